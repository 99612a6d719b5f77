package module

import (
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
)

// ExtendedColorLightModule drives extended color lights. It behaves like
// LightModule but exposes a physical color temperature range and clamps
// color temperature into it before the value reaches the light.
type ExtendedColorLightModule struct {
	*LightModule
}

// NewExtendedColorLightModule creates the module for extended_color_light
// endpoints.
func NewExtendedColorLightModule(opts LightOptions) *ExtendedColorLightModule {
	return &ExtendedColorLightModule{
		LightModule: &LightModule{
			name:        "extended_color_light",
			deviceTypes: []string{resolver.DeviceTypeExtendedColorLight},
			opts:        opts,
			minMireds:   clusters.DefaultPhysicalMinMireds,
			maxMireds:   clusters.DefaultPhysicalMaxMireds,
			startUp:     clusters.DefaultStartUpMireds,
		},
	}
}

// PhysicalRange returns the supported color temperature range in mireds.
func (m *ExtendedColorLightModule) PhysicalRange() (lo, hi uint16) {
	return m.minMireds, m.maxMireds
}
