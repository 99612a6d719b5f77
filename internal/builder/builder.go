// Package builder turns configured endpoints into data model endpoints.
//
// For each raw endpoint Build resolves the configuration, finds the owning
// module, builds the clusters, adds the endpoint to the node, runs the
// module's post-build hook and records the endpoint in the binding table.
// A failing endpoint is logged and skipped; the others are still built.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mash-protocol/mash-endpoint/internal/module"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
)

// Report summarizes a build.
type Report struct {
	// Built lists endpoints in build order.
	Built []uint16

	// Skipped lists endpoints no module supports.
	Skipped []uint16

	// Failed maps endpoints to the reason they were not built.
	Failed map[uint16]error
}

// OK reports whether every endpoint was built.
func (r Report) OK() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0
}

// FailedEndpoints returns the failed endpoint IDs in ascending order.
func (r Report) FailedEndpoints() []uint16 {
	ids := make([]uint16, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Build builds every raw endpoint. Module drivers must already be
// initialized through rc.Registry.
func Build(ctx context.Context, rc *module.Context, raws []resolver.RawEndpoint) Report {
	rep := Report{Failed: make(map[uint16]error)}

	for _, raw := range raws {
		m := rc.Registry.Find(raw)
		if m == nil {
			rc.Logger.Warn("no module supports endpoint, skipping",
				"endpoint", raw.ID, "device_type", raw.DeviceType)
			rep.Skipped = append(rep.Skipped, raw.ID)
			continue
		}

		if err := buildOne(ctx, rc, m, raw); err != nil {
			rc.Logger.Error("failed to build endpoint",
				"endpoint", raw.ID, "module", m.Name(), "error", err)
			rep.Failed[raw.ID] = err
			continue
		}
		rc.Logger.Info("endpoint built",
			"endpoint", raw.ID, "device_type", raw.DeviceType, "module", m.Name())
		rep.Built = append(rep.Built, raw.ID)
	}
	return rep
}

func buildOne(ctx context.Context, rc *module.Context, m module.Module, raw resolver.RawEndpoint) error {
	h, ok := rc.Handle(m)
	if !ok {
		return fmt.Errorf("%s: %w", m.Name(), module.ErrNotInitialized)
	}

	cfg := resolver.Resolve(raw, rc.Logger)

	ep, err := m.BuildEndpoint(rc, cfg, h)
	if err != nil {
		return err
	}
	if ep == nil {
		return errors.New("module returned no endpoint")
	}
	if err := rc.Node.AddEndpoint(ep); err != nil {
		return fmt.Errorf("add endpoint: %w", err)
	}

	if pb, ok := m.(module.PostBuilder); ok {
		if err := pb.PostBuild(ctx, rc, ep, cfg, h); err != nil {
			// The endpoint exists; initial values that failed keep their
			// cluster defaults.
			rc.Logger.Warn("post-build failed", "endpoint", raw.ID, "error", err)
		}
	}

	return rc.Bindings.Record(raw.ID, module.Binding{Module: m, Handle: h})
}
