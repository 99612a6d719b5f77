package clusters

import (
	"context"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// OnOffConfig configures an OnOff cluster.
type OnOffConfig struct {
	OnOff bool
}

// NewOnOff creates an OnOff cluster server without commands.
func NewOnOff(cfg OnOffConfig) *model.Cluster {
	c := model.NewCluster(OnOffID, "OnOff", 6)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          OnOffAttrOnOff,
		Name:        "OnOff",
		Type:        model.DataTypeBool,
		Access:      model.AccessReadOnly,
		NonVolatile: true,
		Default:     cfg.OnOff,
	}))
	return c
}

// NewOnOffClient creates an OnOff cluster in the client role, as used by
// switches that send On/Off commands through bindings.
func NewOnOffClient() *model.Cluster {
	c := model.NewCluster(OnOffID, "OnOff", 6)
	c.SetRole(model.RoleClient)
	return c
}

// AddOnOffLightingFeature adds the Lighting feature attributes.
func AddOnOffLightingFeature(c *model.Cluster) {
	c.AddFeature(OnOffFeatureLighting)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      OnOffAttrGlobalSceneControl,
		Name:    "GlobalSceneControl",
		Type:    model.DataTypeBool,
		Access:  model.AccessReadOnly,
		Default: true,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      OnOffAttrOnTime,
		Name:    "OnTime",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadWrite,
		Default: uint16(0),
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      OnOffAttrOffWaitTime,
		Name:    "OffWaitTime",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadWrite,
		Default: uint16(0),
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          OnOffAttrStartUpOnOff,
		Name:        "StartUpOnOff",
		Type:        model.DataTypeEnum8,
		Access:      model.AccessReadWrite,
		Nullable:    true,
		NonVolatile: true,
	}))
}

// AddOnCommand adds the On command.
func AddOnCommand(c *model.Cluster) {
	c.AddCommand(model.NewCommand(&model.CommandMetadata{ID: OnOffCmdOn, Name: "On"},
		func(ctx context.Context, params map[string]any) (map[string]any, error) {
			return nil, c.SetAttribute(OnOffAttrOnOff, true)
		}))
}

// AddOffCommand adds the Off command.
func AddOffCommand(c *model.Cluster) {
	c.AddCommand(model.NewCommand(&model.CommandMetadata{ID: OnOffCmdOff, Name: "Off"},
		func(ctx context.Context, params map[string]any) (map[string]any, error) {
			return nil, c.SetAttribute(OnOffAttrOnOff, false)
		}))
}

// AddToggleCommand adds the Toggle command.
func AddToggleCommand(c *model.Cluster) {
	c.AddCommand(model.NewCommand(&model.CommandMetadata{ID: OnOffCmdToggle, Name: "Toggle"},
		func(ctx context.Context, params map[string]any) (map[string]any, error) {
			v, err := c.ReadAttribute(OnOffAttrOnOff)
			if err != nil {
				return nil, err
			}
			on, _ := v.(bool)
			return nil, c.SetAttribute(OnOffAttrOnOff, !on)
		}))
}
