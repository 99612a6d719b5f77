// Package router dispatches data model callbacks to the module that built
// the affected endpoint.
package router

import (
	"io"
	"log/slog"

	"github.com/mash-protocol/mash-endpoint/internal/module"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Router implements model.AttributeCallback and model.IdentifyCallback.
type Router struct {
	bindings *module.BindingTable
	logger   *slog.Logger
	events   mlog.Logger
}

var (
	_ model.AttributeCallback = (*Router)(nil)
	_ model.IdentifyCallback  = (*Router)(nil)
)

// New creates a router over the binding table.
func New(bindings *module.BindingTable, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		bindings: bindings,
		logger:   logger,
		events:   mlog.NoopLogger{},
	}
}

// SetEventLogger sets the protocol event logger.
func (r *Router) SetEventLogger(l mlog.Logger) {
	if l == nil {
		l = mlog.NoopLogger{}
	}
	r.events = l
}

// Install registers the router as the node's attribute and identify
// callback.
func (r *Router) Install(node *model.Node) {
	node.SetAttributeCallback(r)
	node.SetIdentifyCallback(r)
}

// OnAttributeUpdate forwards pre-update values to the owning module.
// Post-update notifications are ignored.
func (r *Router) OnAttributeUpdate(phase model.UpdatePhase, path model.AttributePath, value any) error {
	if phase != model.PhasePreUpdate {
		return nil
	}
	b, ok := r.bindings.Lookup(path.Endpoint)
	if !ok {
		return nil
	}

	r.events.Log(mlog.Event{
		Layer:    mlog.LayerModel,
		Category: mlog.CategoryAttribute,
		Endpoint: path.Endpoint,
		Attribute: &mlog.AttributeEvent{
			Cluster:   path.Cluster,
			Attribute: path.Attribute,
			Value:     value,
		},
	})

	u, ok := b.Module.(module.AttributeUpdater)
	if !ok {
		return nil
	}
	if err := u.AttributeUpdate(b.Handle, path, value); err != nil {
		r.logger.Warn("module attribute update failed",
			"module", b.Module.Name(), "path", path.String(),
			"cluster", clusters.ClusterName(path.Cluster), "error", err)
		return err
	}
	return nil
}

// OnIdentify forwards identify events to the owning module.
func (r *Router) OnIdentify(kind model.IdentifyKind, endpoint uint16, effect, variant uint8) error {
	b, ok := r.bindings.Lookup(endpoint)
	if !ok {
		return nil
	}

	r.events.Log(mlog.Event{
		Layer:    mlog.LayerModel,
		Category: mlog.CategoryIdentify,
		Endpoint: endpoint,
		Identify: &mlog.IdentifyEvent{
			Kind:    kind.String(),
			Effect:  effect,
			Variant: variant,
		},
	})

	id, ok := b.Module.(module.Identifier)
	if !ok {
		return nil
	}
	return id.Identify(b.Handle, kind, endpoint, effect, variant)
}
