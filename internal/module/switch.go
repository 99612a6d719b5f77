package module

import (
	"context"

	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// SwitchModule builds on_off_switch endpoints: an on/off client and a
// binding table. Switches have no light driver; their buttons act through
// bindings.
type SwitchModule struct{}

var _ Module = SwitchModule{}

// NewSwitchModule creates the switch module.
func NewSwitchModule() SwitchModule { return SwitchModule{} }

// Name implements Module.
func (SwitchModule) Name() string { return "switch" }

// Supports implements Module.
func (SwitchModule) Supports(raw resolver.RawEndpoint) bool {
	return raw.DeviceType == resolver.DeviceTypeOnOffSwitch
}

// InitDrivers implements Module. Switches need no drivers.
func (SwitchModule) InitDrivers(ctx context.Context, rc *Context) (Handle, error) {
	return nil, nil
}

// BuildEndpoint implements Module.
func (SwitchModule) BuildEndpoint(rc *Context, cfg resolver.Resolved, h Handle) (*model.Endpoint, error) {
	ep := model.NewEndpoint(cfg.ID)
	if err := AssembleClusters(rc, ep, cfg, Assembly{OnOffClient: true, Binding: true}); err != nil {
		return nil, err
	}
	return ep, nil
}
