package clusters

import (
	"context"

	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Level limits for the CurrentLevel attribute.
const (
	LevelMin uint8 = 0
	LevelMax uint8 = 254
)

// LevelConfig configures a LevelControl cluster.
type LevelConfig struct {
	CurrentLevel uint8
	Options      uint8

	// OnLevel is stored as null when HasOnLevel is false.
	HasOnLevel bool
	OnLevel    uint8
}

// NewLevelControl creates a LevelControl cluster server with MoveToLevel,
// MoveToLevelWithOnOff and the Stop commands.
func NewLevelControl(cfg LevelConfig) *model.Cluster {
	c := model.NewCluster(LevelControlID, "LevelControl", 6)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          LevelAttrCurrentLevel,
		Name:        "CurrentLevel",
		Type:        model.DataTypeUint8,
		Access:      model.AccessReadOnly,
		Nullable:    true,
		NonVolatile: true,
		MaxValue:    LevelMax,
		Default:     cfg.CurrentLevel,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      LevelAttrOptions,
		Name:    "Options",
		Type:    model.DataTypeBitmap8,
		Access:  model.AccessReadWrite,
		Default: cfg.Options,
	}))

	onLevel := model.NewAttribute(&model.AttributeMetadata{
		ID:       LevelAttrOnLevel,
		Name:     "OnLevel",
		Type:     model.DataTypeUint8,
		Access:   model.AccessReadWrite,
		Nullable: true,
		MaxValue: LevelMax,
	})
	if cfg.HasOnLevel {
		_ = onLevel.SetValueInternal(cfg.OnLevel)
	}
	c.AddAttribute(onLevel)

	moveToLevel := func(withOnOff bool) model.CommandHandler {
		return func(ctx context.Context, params map[string]any) (map[string]any, error) {
			level, _ := model.ParamInt(params, "level")
			if level < 0 || level > int64(LevelMax) {
				return nil, model.ErrInvalidParameters
			}
			if err := c.SetAttribute(LevelAttrCurrentLevel, uint8(level)); err != nil {
				return nil, err
			}
			if withOnOff {
				if ep := c.Endpoint(); ep != nil {
					if onoff, err := ep.GetCluster(OnOffID); err == nil {
						return nil, onoff.SetAttribute(OnOffAttrOnOff, level > 0)
					}
				}
			}
			return nil, nil
		}
	}
	levelParams := []model.ParameterMetadata{
		{Name: "level", Type: model.DataTypeUint8, Required: true},
		{Name: "transitionTime", Type: model.DataTypeUint16},
		{Name: "optionsMask", Type: model.DataTypeBitmap8},
		{Name: "optionsOverride", Type: model.DataTypeBitmap8},
	}
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID: LevelCmdMoveToLevel, Name: "MoveToLevel", Parameters: levelParams,
	}, moveToLevel(false)))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{
		ID: LevelCmdMoveToLevelWithOnOff, Name: "MoveToLevelWithOnOff", Parameters: levelParams,
	}, moveToLevel(true)))

	// Transitions are applied immediately, so there is nothing to stop.
	stop := func(ctx context.Context, params map[string]any) (map[string]any, error) {
		return nil, nil
	}
	c.AddCommand(model.NewCommand(&model.CommandMetadata{ID: LevelCmdStop, Name: "Stop"}, stop))
	c.AddCommand(model.NewCommand(&model.CommandMetadata{ID: LevelCmdStopWithOnOff, Name: "StopWithOnOff"}, stop))

	return c
}

// AddLevelOnOffFeature marks the cluster as coupled to OnOff.
func AddLevelOnOffFeature(c *model.Cluster) {
	c.AddFeature(LevelFeatureOnOff)
}

// AddLevelLightingFeature adds the Lighting feature attributes.
func AddLevelLightingFeature(c *model.Cluster) {
	c.AddFeature(LevelFeatureLighting)
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      LevelAttrRemainingTime,
		Name:    "RemainingTime",
		Type:    model.DataTypeUint16,
		Access:  model.AccessReadOnly,
		Default: uint16(0),
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      LevelAttrMinLevel,
		Name:    "MinLevel",
		Type:    model.DataTypeUint8,
		Access:  model.AccessReadOnly,
		Default: uint8(1),
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:      LevelAttrMaxLevel,
		Name:    "MaxLevel",
		Type:    model.DataTypeUint8,
		Access:  model.AccessReadOnly,
		Default: LevelMax,
	}))
	c.AddAttribute(model.NewAttribute(&model.AttributeMetadata{
		ID:          LevelAttrStartUpCurrentLevel,
		Name:        "StartUpCurrentLevel",
		Type:        model.DataTypeUint8,
		Access:      model.AccessReadWrite,
		Nullable:    true,
		NonVolatile: true,
	}))
}
