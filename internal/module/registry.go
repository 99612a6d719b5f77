package module

import (
	"context"
	"errors"
	"fmt"

	"github.com/mash-protocol/mash-endpoint/internal/resolver"
)

// Defaults returns the built-in modules in lookup order: light, extended
// color light, switch.
func Defaults(opts LightOptions) []Module {
	return []Module{
		NewLightModule(opts),
		NewExtendedColorLightModule(opts),
		NewSwitchModule(),
	}
}

// Overlap is an endpoint claimed by more than one module. The first module
// wins.
type Overlap struct {
	Endpoint uint16
	Modules  []string
}

// Registry is the ordered module list.
type Registry struct {
	modules []Module
	enabled []bool

	// attempted marks modules whose InitDrivers has run, failed or not.
	attempted []bool
}

// NewRegistry creates a registry. Order matters: Find returns the first
// module that supports an endpoint.
func NewRegistry(modules ...Module) *Registry {
	return &Registry{
		modules:   modules,
		enabled:   make([]bool, len(modules)),
		attempted: make([]bool, len(modules)),
	}
}

// Modules returns the registered modules in declaration order.
func (r *Registry) Modules() []Module {
	out := make([]Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// Find returns the first module that supports raw, or nil.
func (r *Registry) Find(raw resolver.RawEndpoint) Module {
	for _, m := range r.modules {
		if m.Supports(raw) {
			return m
		}
	}
	return nil
}

// DetectEnabled marks every module that owns at least one endpoint and
// returns the enabled modules.
func (r *Registry) DetectEnabled(raws []resolver.RawEndpoint) []Module {
	for _, raw := range raws {
		for i, m := range r.modules {
			if m.Supports(raw) {
				r.enabled[i] = true
				break
			}
		}
	}
	return r.Enabled()
}

// Enabled returns the modules marked by DetectEnabled.
func (r *Registry) Enabled() []Module {
	var out []Module
	for i, m := range r.modules {
		if r.enabled[i] {
			out = append(out, m)
		}
	}
	return out
}

// InitDrivers initializes the drivers of every enabled module that has not
// been tried yet and stores the handles in rc. Each module is tried at most
// once: a failing module stays uninitialized and its endpoints fail to
// build.
func (r *Registry) InitDrivers(ctx context.Context, rc *Context) error {
	var errs []error
	for i, m := range r.modules {
		if !r.enabled[i] || r.attempted[i] || rc.initialized(m) {
			continue
		}
		r.attempted[i] = true
		h, err := m.InitDrivers(ctx, rc)
		if err != nil {
			rc.Logger.Error("module driver init failed", "module", m.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
			continue
		}
		rc.setHandle(m, h)
		rc.Logger.Debug("module drivers initialized", "module", m.Name())
	}
	return errors.Join(errs...)
}

// Overlaps reports endpoints that more than one module supports.
func (r *Registry) Overlaps(raws []resolver.RawEndpoint) []Overlap {
	var out []Overlap
	for _, raw := range raws {
		var names []string
		for _, m := range r.modules {
			if m.Supports(raw) {
				names = append(names, m.Name())
			}
		}
		if len(names) > 1 {
			out = append(out, Overlap{Endpoint: raw.ID, Modules: names})
		}
	}
	return out
}

// PostStart runs the PostStart slot of every initialized module. Failures
// are joined; every module gets its turn.
func (r *Registry) PostStart(ctx context.Context, rc *Context) error {
	var errs []error
	for _, m := range r.Enabled() {
		ps, ok := m.(PostStarter)
		if !ok {
			continue
		}
		h, ok := rc.Handle(m)
		if !ok {
			continue
		}
		if err := ps.PostStart(ctx, rc, h); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}
