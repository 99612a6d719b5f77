package clusters

import (
	"context"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Color temperature defaults for lights that do not configure their own
// physical range.
const (
	DefaultPhysicalMinMireds uint16 = 153
	DefaultPhysicalMaxMireds uint16 = 500
	DefaultStartUpMireds     uint16 = 350
)

// ColorConfig configures a ColorControl cluster.
type ColorConfig struct {
	ColorMode         uint8
	EnhancedColorMode uint8
}

// ColorTemperatureConfig configures the ColorTemperature feature.
type ColorTemperatureConfig struct {
	Mireds            uint16
	PhysicalMinMireds uint16
	PhysicalMaxMireds uint16
	StartUpMireds     uint16
}

// NewColorControl creates a ColorControl cluster server with the mode and
// options attributes. Features add the color space attributes.
func NewColorControl(cfg ColorConfig) *model.Cluster {
	c := model.NewCluster(ColorControlID, "ColorControl", 7)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrColorMode,
		Name:    "ColorMode",
		Type:    model.DataTypeEnum8,
		Access:  model.AccessReadOnly,
		Default: cfg.ColorMode,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrEnhancedColorMode,
		Name:    "EnhancedColorMode",
		Type:    model.DataTypeEnum8,
		Access:  model.AccessReadOnly,
		Default: cfg.EnhancedColorMode,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrOptions,
		Name:    "Options",
		Type:    model.DataTypeBitmap8,
		Access:  model.AccessReadWrite,
		Default: uint8(0),
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrColorCapabilities,
		Name:    "ColorCapabilities",
		Type:    model.DataTypeBitmap32,
		Access:  model.AccessReadOnly,
		Default: uint32(0),
	}))
	return c
}

func addCapability(c *model.Cluster, bits uint32) {
	c.AddFeature(bits)
	_ = c.SetAttribute(ColorAttrColorCapabilities, c.FeatureMap())
}

func setColorMode(c *model.Cluster, mode uint8) error {
	if err := c.SetAttribute(ColorAttrColorMode, mode); err != nil {
		return err
	}
	return c.SetAttribute(ColorAttrEnhancedColorMode, mode)
}

// AddColorHueSaturationFeature adds CurrentHue, CurrentSaturation and the
// hue/saturation move commands.
func AddColorHueSaturationFeature(c *model.Cluster) {
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          ColorAttrCurrentHue,
		Name:        "CurrentHue",
		Type:        model.DataTypeUint8,
		Access:      model.AccessReadOnly,
		NonVolatile: true,
		MaxValue:    254,
		Default:     uint8(0),
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          ColorAttrCurrentSaturation,
		Name:        "CurrentSaturation",
		Type:        model.DataTypeUint8,
		Access:      model.AccessReadOnly,
		NonVolatile: true,
		MaxValue:    254,
		Default:     uint8(0),
	}))
	addCapability(c, ColorFeatureHueSaturation)

	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   ColorCmdMoveToHue,
		Name: "MoveToHue",
		Parameters: []model.ParameterMetadata{
			{Name: "hue", Type: model.DataTypeUint8, Required: true},
		},
	}, func(ctx context.Context, params map[string]any) (map[string]any, error) {
		hue, _ := model.ParamInt(params, "hue")
		if err := c.SetAttribute(ColorAttrCurrentHue, hue); err != nil {
			return nil, err
		}
		return nil, setColorMode(c, ColorModeHueSaturation)
	}))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   ColorCmdMoveToSaturation,
		Name: "MoveToSaturation",
		Parameters: []model.ParameterMetadata{
			{Name: "saturation", Type: model.DataTypeUint8, Required: true},
		},
	}, func(ctx context.Context, params map[string]any) (map[string]any, error) {
		sat, _ := model.ParamInt(params, "saturation")
		if err := c.SetAttribute(ColorAttrCurrentSaturation, sat); err != nil {
			return nil, err
		}
		return nil, setColorMode(c, ColorModeHueSaturation)
	}))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   ColorCmdMoveToHueAndSaturation,
		Name: "MoveToHueAndSaturation",
		Parameters: []model.ParameterMetadata{
			{Name: "hue", Type: model.DataTypeUint8, Required: true},
			{Name: "saturation", Type: model.DataTypeUint8, Required: true},
		},
	}, func(ctx context.Context, params map[string]any) (map[string]any, error) {
		hue, _ := model.ParamInt(params, "hue")
		sat, _ := model.ParamInt(params, "saturation")
		if err := c.SetAttribute(ColorAttrCurrentHue, hue); err != nil {
			return nil, err
		}
		if err := c.SetAttribute(ColorAttrCurrentSaturation, sat); err != nil {
			return nil, err
		}
		return nil, setColorMode(c, ColorModeHueSaturation)
	}))
}

// AddColorXYFeature adds CurrentX, CurrentY and MoveToColor.
func AddColorXYFeature(c *model.Cluster) {
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          ColorAttrCurrentX,
		Name:        "CurrentX",
		Type:        model.DataTypeUint16,
		Access:      model.AccessReadOnly,
		NonVolatile: true,
		MaxValue:    0xFEFF,
		Default:     uint16(0x616B),
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          ColorAttrCurrentY,
		Name:        "CurrentY",
		Type:        model.DataTypeUint16,
		Access:      model.AccessReadOnly,
		NonVolatile: true,
		MaxValue:    0xFEFF,
		Default:     uint16(0x607D),
	}))
	addCapability(c, ColorFeatureXY)

	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   ColorCmdMoveToColor,
		Name: "MoveToColor",
		Parameters: []model.ParameterMetadata{
			{Name: "colorX", Type: model.DataTypeUint16, Required: true},
			{Name: "colorY", Type: model.DataTypeUint16, Required: true},
		},
	}, func(ctx context.Context, params map[string]any) (map[string]any, error) {
		x, _ := model.ParamInt(params, "colorX")
		y, _ := model.ParamInt(params, "colorY")
		if err := c.SetAttribute(ColorAttrCurrentX, x); err != nil {
			return nil, err
		}
		if err := c.SetAttribute(ColorAttrCurrentY, y); err != nil {
			return nil, err
		}
		return nil, setColorMode(c, ColorModeXY)
	}))
}

// AddColorTemperatureFeature adds the color temperature attributes and
// MoveToColorTemperature. Requests outside the physical range are clamped.
func AddColorTemperatureFeature(c *model.Cluster, cfg ColorTemperatureConfig) {
	if cfg.PhysicalMinMireds == 0 {
		cfg.PhysicalMinMireds = DefaultPhysicalMinMireds
	}
	if cfg.PhysicalMaxMireds == 0 {
		cfg.PhysicalMaxMireds = DefaultPhysicalMaxMireds
	}

	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          ColorAttrColorTemperatureMireds,
		Name:        "ColorTemperatureMireds",
		Type:        model.DataTypeUint16,
		Access:      model.AccessReadOnly,
		NonVolatile: true,
		Default:     cfg.Mireds,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrColorTempPhysicalMinMireds,
		Name:    "ColorTempPhysicalMinMireds",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadOnly,
		Default: cfg.PhysicalMinMireds,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrColorTempPhysicalMaxMireds,
		Name:    "ColorTempPhysicalMaxMireds",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadOnly,
		Default: cfg.PhysicalMaxMireds,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrCoupleColorTempToLevelMin,
		Name:    "CoupleColorTempToLevelMinMireds",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadOnly,
		Default: cfg.PhysicalMinMireds,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          ColorAttrStartUpColorTemperatureMireds,
		Name:        "StartUpColorTemperatureMireds",
		Type:        model.DataTypeUint16,
		Access:      model.AccessReadWrite,
		Nullable:    true,
		NonVolatile: true,
		Default:     cfg.StartUpMireds,
	}))
	addCapability(c, ColorFeatureColorTemperature)

	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID:   ColorCmdMoveToColorTemperature,
		Name: "MoveToColorTemperature",
		Parameters: []model.ParameterMetadata{
			{Name: "colorTemperatureMireds", Type: model.DataTypeUint16, Required: true},
		},
	}, func(ctx context.Context, params map[string]any) (map[string]any, error) {
		m, _ := model.ParamInt(params, "colorTemperatureMireds")
		m = max(m, int64(cfg.PhysicalMinMireds))
		m = min(m, int64(cfg.PhysicalMaxMireds))
		if err := c.SetAttribute(ColorAttrColorTemperatureMireds, m); err != nil {
			return nil, err
		}
		return nil, setColorMode(c, ColorModeColorTemperature)
	}))
}

// AddColorRemainingTime adds the RemainingTime attribute.
func AddColorRemainingTime(c *model.Cluster, remaining uint16) {
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      ColorAttrRemainingTime,
		Name:    "RemainingTime",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadOnly,
		Default: remaining,
	}))
}

// AddStopMoveStepCommand adds StopMoveStep. Color changes are applied
// immediately, so the command only acknowledges.
func AddStopMoveStepCommand(c *model.Cluster) {
	c.AddCommand(model.NewCommand(&model.CommandMetadata{ID: ColorCmdStopMoveStep, Name: "StopMoveStep"},
		func(ctx context.Context, params map[string]any) (map[string]any, error) {
			return nil, nil
		}))
}
