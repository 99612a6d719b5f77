// Package resolver turns raw endpoint configuration into fully defaulted
// endpoint settings.
//
// Resolution is pure and total: every RawEndpoint yields a Resolved value.
// Out-of-range numbers are clamped silently and unrecognized color modes
// fall back to color temperature with a warning.
package resolver

import (
	"io"
	"log/slog"
	"slices"
)

// Device type tags.
const (
	DeviceTypeOnOffLight         = "on_off_light"
	DeviceTypeDimmableLight      = "dimmable_light"
	DeviceTypeExtendedColorLight = "extended_color_light"
	DeviceTypeOnOffSwitch        = "on_off_switch"
)

// Default scenes table size.
const DefaultSceneTableSize = 16

type deviceDefaults struct {
	clusters []string
	features map[string][]string
}

var lightFeatures = map[string][]string{
	ClusterOnOff: {FeatureLighting},
}

var dimmableFeatures = map[string][]string{
	ClusterOnOff: {FeatureLighting},
	ClusterLevel: {FeatureOnOff, FeatureLighting},
}

var extendedFeatures = map[string][]string{
	ClusterOnOff: {FeatureLighting},
	ClusterLevel: {FeatureOnOff, FeatureLighting},
	ClusterColor: {FeatureColorTemperature, FeatureXY},
}

var defaultsByType = map[string]deviceDefaults{
	DeviceTypeOnOffLight: {
		clusters: []string{ClusterIdentify, ClusterGroups, ClusterScenes, ClusterOnOff},
		features: lightFeatures,
	},
	DeviceTypeDimmableLight: {
		clusters: []string{ClusterIdentify, ClusterGroups, ClusterScenes, ClusterOnOff, ClusterLevel},
		features: dimmableFeatures,
	},
	DeviceTypeExtendedColorLight: {
		clusters: []string{ClusterIdentify, ClusterGroups, ClusterScenes, ClusterOnOff, ClusterLevel, ClusterColor},
		features: extendedFeatures,
	},
	DeviceTypeOnOffSwitch: {
		clusters: []string{ClusterIdentify, ClusterOnOff},
	},
}

// KnownDeviceType reports whether tag has a default table.
func KnownDeviceType(tag string) bool {
	_, ok := defaultsByType[tag]
	return ok
}

// DefaultClusterEnabled reports whether cluster is on by default for
// the device type tag. Unknown tags enable nothing.
func DefaultClusterEnabled(tag, cluster string) bool {
	return slices.Contains(defaultsByType[tag].clusters, cluster)
}

func defaultFeature(tag, cluster, feature string) bool {
	return slices.Contains(defaultsByType[tag].features[cluster], feature)
}

// Resolve produces the resolved configuration for raw. Warnings go to
// logger, which may be nil.
func Resolve(raw RawEndpoint, logger *slog.Logger) Resolved {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tag := raw.DeviceType

	r := Resolved{
		ID:         raw.ID,
		DeviceType: tag,
	}

	r.Identify = IdentifyConfig{
		Enabled:      enabled(raw.Identify.ClusterBlock, tag, ClusterIdentify),
		IdentifyTime: uint16(clampOr(raw.Identify.IdentifyTime, 0, 0xFFFF, 0)),
		IdentifyType: uint8(clampOr(raw.Identify.IdentifyType, 0, 0xFF, 0)),
	}

	r.Groups = GroupsConfig{
		Enabled: enabled(raw.Groups.ClusterBlock, tag, ClusterGroups),
	}

	r.Scenes = ScenesConfig{
		Enabled:        enabled(raw.Scenes.ClusterBlock, tag, ClusterScenes),
		SceneTableSize: uint16(clampOr(raw.Scenes.SceneTableSize, 0, 0xFFFF, DefaultSceneTableSize)),
	}

	on := false
	if raw.OnOff.State != nil {
		on = *raw.OnOff.State
	}
	r.OnOff = OnOffConfig{
		Enabled:  enabled(raw.OnOff.ClusterBlock, tag, ClusterOnOff),
		On:       on,
		Lighting: feature(raw.OnOff.Features, tag, ClusterOnOff, FeatureLighting),
	}

	r.Level = LevelConfig{
		Enabled:      enabled(raw.Level.ClusterBlock, tag, ClusterLevel),
		CurrentLevel: uint8(clampOr(raw.Level.CurrentLevel, 0, 254, 0)),
		Options:      uint8(clampOr(raw.Level.Options, 0, 0xFF, 0)),
		HasOnLevel:   raw.Level.OnLevel != nil,
		OnLevel:      uint8(clampOr(raw.Level.OnLevel, 0, 254, 0)),
		OnOff:        feature(raw.Level.Features, tag, ClusterLevel, FeatureOnOff),
		Lighting:     feature(raw.Level.Features, tag, ClusterLevel, FeatureLighting),
	}

	mode := ColorModeColorTemperature
	if raw.Color.ColorMode != nil {
		mode = parseColorMode(*raw.Color.ColorMode, raw.ID, logger)
	}
	enhanced := mode
	if raw.Color.EnhancedColorMode != nil {
		enhanced = parseColorMode(*raw.Color.EnhancedColorMode, raw.ID, logger)
	}
	c := raw.Color
	r.Color = ColorConfig{
		Enabled:                 enabled(c.ClusterBlock, tag, ClusterColor),
		ColorMode:               mode,
		EnhancedColorMode:       enhanced,
		HasCurrentHue:           c.CurrentHue != nil,
		CurrentHue:              uint8(clampOr(c.CurrentHue, 0, 254, 0)),
		HasCurrentSaturation:    c.CurrentSaturation != nil,
		CurrentSaturation:       uint8(clampOr(c.CurrentSaturation, 0, 254, 0)),
		HasColorTemperature:     c.ColorTemperatureMireds != nil,
		ColorTemperature:        uint16(clampOr(c.ColorTemperatureMireds, 0, 0xFFFF, 0)),
		HasRemainingTime:        c.RemainingTime != nil,
		RemainingTime:           uint16(clampOr(c.RemainingTime, 0, 0xFFFF, 0)),
		ColorTemperatureFeature: feature(c.Features, tag, ClusterColor, FeatureColorTemperature),
		XY:                      feature(c.Features, tag, ClusterColor, FeatureXY),
	}

	return r
}

// enabled applies the precedence explicit override, then presence, then
// the device type default.
func enabled(b ClusterBlock, tag, cluster string) bool {
	if b.Enabled != nil {
		return *b.Enabled
	}
	if b.Present {
		return true
	}
	return DefaultClusterEnabled(tag, cluster)
}

func feature(listed []string, tag, cluster, name string) bool {
	return slices.Contains(listed, name) || defaultFeature(tag, cluster, name)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampOr(v *int, lo, hi, def int) int {
	if v == nil {
		return def
	}
	return Clamp(*v, lo, hi)
}

func parseColorMode(s string, endpoint uint16, logger *slog.Logger) uint8 {
	switch s {
	case "kColorTemperature", "kColorTemperatureMireds":
		return ColorModeColorTemperature
	case "kCurrentHueAndCurrentSaturation", "kHueSaturation":
		return ColorModeHueSaturation
	case "kCurrentXAndCurrentY", "kXY":
		return ColorModeXY
	case "kUndefined", "kUnknownEnumValue":
		return ColorModeUnknown
	}
	logger.Warn("unknown color mode, using color temperature", "endpoint", endpoint, "color_mode", s)
	return ColorModeColorTemperature
}
