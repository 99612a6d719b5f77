package module

import (
	"fmt"

	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Assembly adjusts how AssembleClusters builds an endpoint.
type Assembly struct {
	// ColorTemperature carries the physical limits for the color
	// temperature feature. Zero limits use the cluster defaults.
	ColorTemperature clusters.ColorTemperatureConfig

	// OnOffClient builds the on/off cluster in the client role.
	OnOffClient bool

	// Binding adds a Binding cluster.
	Binding bool
}

// AssembleClusters adds the enabled clusters of cfg to ep in a fixed
// order: descriptor, identify, groups, scenes, on/off, level, color and
// binding. The first failure aborts the endpoint.
func AssembleClusters(rc *Context, ep *model.Endpoint, cfg resolver.Resolved, a Assembly) error {
	if err := clusters.AddDescriptorAndRegister(ep, cfg.DeviceType); err != nil {
		return fmt.Errorf("%w: %w", ErrClusterCreation, err)
	}

	add := func(name string, c *model.Cluster) error {
		if err := ep.AddCluster(c); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrClusterCreation, name, err)
		}
		return nil
	}

	if cfg.Identify.Enabled {
		id := clusters.NewIdentify(clusters.IdentifyConfig{
			IdentifyTime: cfg.Identify.IdentifyTime,
			IdentifyType: cfg.Identify.IdentifyType,
		}, rc.Node, rc.Timers)
		id.AddTriggerEffectCommand()
		if err := add(resolver.ClusterIdentify, id.Cluster()); err != nil {
			return err
		}
	}

	if cfg.Groups.Enabled {
		if err := add(resolver.ClusterGroups, clusters.NewGroups().Cluster()); err != nil {
			return err
		}
	}

	if cfg.Scenes.Enabled {
		if err := add(resolver.ClusterScenes, clusters.NewScenesManagement(cfg.Scenes.SceneTableSize)); err != nil {
			return err
		}
	}

	if cfg.OnOff.Enabled {
		var c *model.Cluster
		if a.OnOffClient {
			c = clusters.NewOnOffClient()
		} else {
			c = clusters.NewOnOff(clusters.OnOffConfig{OnOff: cfg.OnOff.On})
			if cfg.OnOff.Lighting {
				clusters.AddOnOffLightingFeature(c)
			}
			clusters.AddOffCommand(c)
			clusters.AddOnCommand(c)
			clusters.AddToggleCommand(c)
		}
		if err := add(resolver.ClusterOnOff, c); err != nil {
			return err
		}
	}

	if cfg.Level.Enabled {
		c := clusters.NewLevelControl(clusters.LevelConfig{
			CurrentLevel: cfg.Level.CurrentLevel,
			Options:      cfg.Level.Options,
			HasOnLevel:   cfg.Level.HasOnLevel,
			OnLevel:      cfg.Level.OnLevel,
		})
		if cfg.Level.OnOff {
			clusters.AddLevelOnOffFeature(c)
		}
		if cfg.Level.Lighting {
			clusters.AddLevelLightingFeature(c)
		}
		if err := add(resolver.ClusterLevel, c); err != nil {
			return err
		}
	}

	if cfg.Color.Enabled {
		c := clusters.NewColorControl(clusters.ColorConfig{
			ColorMode:         cfg.Color.ColorMode,
			EnhancedColorMode: cfg.Color.EnhancedColorMode,
		})
		clusters.AddColorHueSaturationFeature(c)
		if cfg.Color.ColorTemperatureFeature {
			ct := a.ColorTemperature
			switch {
			case cfg.Color.HasColorTemperature:
				ct.Mireds = cfg.Color.ColorTemperature
			case ct.StartUpMireds > 0:
				ct.Mireds = ct.StartUpMireds
			}
			clusters.AddColorTemperatureFeature(c, ct)
		}
		if cfg.Color.XY {
			clusters.AddColorXYFeature(c)
		}
		clusters.AddColorRemainingTime(c, cfg.Color.RemainingTime)
		clusters.AddStopMoveStepCommand(c)
		if err := add(resolver.ClusterColor, c); err != nil {
			return err
		}
	}

	if a.Binding {
		if err := add("binding", clusters.NewBinding().Cluster()); err != nil {
			return err
		}
	}
	return nil
}
