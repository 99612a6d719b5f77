package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/mash-endpoint/internal/resolver"
)

// Product device types.
const (
	DeviceTypeLight  = "light"
	DeviceTypeSwitch = "switch"
)

// Network connectivity options.
const (
	ConnectivityWiFi       = "wifi"
	ConnectivityThread     = "thread"
	ConnectivityWiFiThread = "wifi_thread"
)

// Button modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
	ModeDual   = "dual"
)

// Button defaults.
const (
	DefaultLongPressTimeMS      = 5000
	DefaultShortPressTimeoutMS  = 2000
	DefaultIdentifyTriggerCount = 5
	DefaultIdentifyTimeS        = 10
)

// AppConfig describes the product: its endpoints, buttons and hardware.
type AppConfig struct {
	DeviceName   string
	DeviceType   string
	Connectivity string
	FlashSize    string
	LEDStrip     *LEDStripConfig
	Endpoints    []resolver.RawEndpoint
	Buttons      []ButtonConfig
}

// LEDStripConfig describes the light output hardware.
type LEDStripConfig struct {
	LEDCount int
	RMTGPIO  int
	Type     string
}

// ButtonConfig is one normalized button. Every field is concrete.
type ButtonConfig struct {
	ID                   string
	GPIO                 int
	ActiveLevel          int
	LongPressTimeMS      int
	ShortPressTimeoutMS  int
	IdentifyTriggerCount int
	IdentifyTimeS        int

	// Mode is lowercased; local, remote or dual are recognized.
	Mode string

	// ActionCluster and ActionCommand are lowercased.
	ActionCluster       string
	ActionCommand       string
	ActionIdentifyTimeS int

	BindingEndpoint int
	TargetEndpoint  int
	Driver          string
}

type appYAML struct {
	DeviceName *string              `yaml:"device_name"`
	DeviceType *string              `yaml:"device_type"`
	Network    map[string]yaml.Node `yaml:"network"`
	FlashSize  yaml.Node            `yaml:"flash_size"`
	Flash      yaml.Node            `yaml:"flash"`
	LEDStrip   map[string]yaml.Node `yaml:"led_strip"`
	Endpoints  []yaml.Node          `yaml:"endpoints"`
	Buttons    []yaml.Node          `yaml:"buttons"`
	Button     yaml.Node            `yaml:"button"`
}

// UnmarshalYAML decodes and normalizes the app block.
func (a *AppConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw appYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.DeviceName != nil {
		a.DeviceName = *raw.DeviceName
	}
	if raw.DeviceType != nil {
		a.DeviceType = *raw.DeviceType
	}
	if a.DeviceType == "" {
		a.DeviceType = DeviceTypeLight
	}

	a.Connectivity = ConnectivityWiFi
	if n, ok := raw.Network["connectivity"]; ok {
		if s := nodeString(&n); s != nil {
			a.Connectivity = strings.ToLower(*s)
		}
	}

	flash := nodeString(&raw.FlashSize)
	if flash == nil || *flash == "" {
		flash = nodeString(&raw.Flash)
	}
	a.FlashSize = normalizeFlashSize(flash)

	a.LEDStrip = nil
	if len(raw.LEDStrip) > 0 {
		led := &LEDStripConfig{RMTGPIO: -1, Type: "ws2812"}
		if v := mapInt(raw.LEDStrip, "led_count"); v != nil {
			led.LEDCount = *v
		}
		if v := mapInt(raw.LEDStrip, "rmt_gpio"); v != nil {
			led.RMTGPIO = *v
		}
		if v := mapString(raw.LEDStrip, "type"); v != nil && *v != "" {
			led.Type = strings.ToLower(*v)
		}
		a.LEDStrip = led
	}

	a.Endpoints = make([]resolver.RawEndpoint, 0, len(raw.Endpoints))
	for i := range raw.Endpoints {
		ep, err := decodeEndpoint(&raw.Endpoints[i])
		if err != nil {
			return fmt.Errorf("endpoints[%d]: %w", i, err)
		}
		a.Endpoints = append(a.Endpoints, ep)
	}

	defaultMode := ModeLocal
	if a.DeviceType == DeviceTypeSwitch {
		defaultMode = ModeRemote
	}

	buttons := raw.Buttons
	if len(buttons) == 0 && raw.Button.Kind == yaml.MappingNode && len(raw.Button.Content) > 0 {
		buttons = []yaml.Node{raw.Button}
	}
	a.Buttons = make([]ButtonConfig, 0, len(buttons))
	for i := range buttons {
		b, err := decodeButton(&buttons[i], defaultMode)
		if err != nil {
			return fmt.Errorf("buttons[%d]: %w", i, err)
		}
		a.Buttons = append(a.Buttons, b)
	}

	return nil
}

// normalizeFlashSize uppercases the value and appends MB to bare digits.
// Membership is checked by Validate.
func normalizeFlashSize(s *string) string {
	if s == nil {
		return DefaultFlashSize
	}
	v := strings.ToUpper(strings.TrimSpace(*s))
	if v == "" {
		return DefaultFlashSize
	}
	if _, err := strconv.Atoi(v); err == nil {
		v += "MB"
	}
	return v
}

func decodeEndpoint(n *yaml.Node) (resolver.RawEndpoint, error) {
	var ep resolver.RawEndpoint
	var m map[string]yaml.Node
	if err := n.Decode(&m); err != nil {
		return ep, fmt.Errorf("endpoint must be a mapping: %w", err)
	}

	id := mapInt(m, "id")
	if id == nil {
		return ep, fmt.Errorf("missing a valid 'id' value")
	}
	if *id < 0 || *id > 0xFFFF {
		return ep, fmt.Errorf("id %d out of range", *id)
	}
	ep.ID = uint16(*id)

	ep.DeviceType = resolver.DeviceTypeOnOffLight
	if s := mapString(m, "device_type"); s != nil && *s != "" {
		ep.DeviceType = *s
	}

	var clusters map[string]yaml.Node
	if c, ok := m["clusters"]; ok && c.Kind == yaml.MappingNode {
		if err := c.Decode(&clusters); err != nil {
			return ep, fmt.Errorf("clusters: %w", err)
		}
	}

	var data map[string]yaml.Node

	ep.Identify.ClusterBlock, data = clusterEntry(clusters, resolver.ClusterIdentify)
	ep.Identify.IdentifyTime = mapInt(data, "identify_time")
	ep.Identify.IdentifyType = mapInt(data, "identify_type")

	ep.Groups.ClusterBlock, _ = clusterEntry(clusters, resolver.ClusterGroups)

	ep.Scenes.ClusterBlock, data = clusterEntry(clusters, resolver.ClusterScenes)
	ep.Scenes.SceneTableSize = mapInt(data, "scene_table_size")

	ep.OnOff.ClusterBlock, data = clusterEntry(clusters, resolver.ClusterOnOff)
	for _, key := range []string{"state", "on", "on_off"} {
		if v, ok := data[key]; ok {
			ep.OnOff.State = nodeBool(&v)
			break
		}
	}
	ep.OnOff.Features = mapStrings(data, "features")

	ep.Level.ClusterBlock, data = clusterEntry(clusters, resolver.ClusterLevel)
	ep.Level.CurrentLevel = mapInt(data, "current_level")
	ep.Level.Options = mapInt(data, "options")
	ep.Level.OnLevel = mapInt(data, "on_level")
	ep.Level.Features = mapStrings(data, "features")

	ep.Color.ClusterBlock, data = clusterEntry(clusters, resolver.ClusterColor)
	ep.Color.ColorMode = mapString(data, "color_mode")
	ep.Color.EnhancedColorMode = mapString(data, "enhanced_color_mode")
	ep.Color.CurrentHue = mapInt(data, "current_hue")
	ep.Color.CurrentSaturation = mapInt(data, "current_saturation")
	ep.Color.ColorTemperatureMireds = mapInt(data, "color_temperature_mireds")
	ep.Color.RemainingTime = mapInt(data, "remaining_time")
	ep.Color.Features = mapStrings(data, "features")

	return ep, nil
}

// clusterEntry reads one cluster block. A mapping carries attributes and
// an optional enabled key; a scalar sets enabled; null only marks the
// block present.
func clusterEntry(clusters map[string]yaml.Node, key string) (resolver.ClusterBlock, map[string]yaml.Node) {
	n, ok := clusters[key]
	if !ok {
		return resolver.ClusterBlock{}, nil
	}
	block := resolver.ClusterBlock{Present: true}

	switch n.Kind {
	case yaml.MappingNode:
		var data map[string]yaml.Node
		if err := n.Decode(&data); err != nil {
			return block, nil
		}
		if e, ok := data["enabled"]; ok {
			block.Enabled = nodeBool(&e)
			delete(data, "enabled")
		}
		return block, data
	case yaml.ScalarNode:
		block.Enabled = nodeBool(&n)
	}
	return block, nil
}

func decodeButton(n *yaml.Node, defaultMode string) (ButtonConfig, error) {
	var b ButtonConfig
	var m map[string]yaml.Node
	if err := n.Decode(&m); err != nil {
		return b, fmt.Errorf("each button entry must be a mapping")
	}

	gpio := mapInt(m, "gpio")
	if gpio == nil {
		return b, fmt.Errorf("button definition is missing a valid 'gpio' value")
	}
	b.GPIO = *gpio

	if s := mapString(m, "id"); s != nil {
		b.ID = *s
	}
	b.ActiveLevel = intOr(mapInt(m, "active_level"), 0)
	b.LongPressTimeMS = intOr(mapInt(m, "long_press_time_ms"), DefaultLongPressTimeMS)
	b.ShortPressTimeoutMS = intOr(mapInt(m, "short_press_timeout_ms"), DefaultShortPressTimeoutMS)
	b.IdentifyTriggerCount = intOr(mapInt(m, "identify_trigger_count"), DefaultIdentifyTriggerCount)
	b.IdentifyTimeS = intOr(mapInt(m, "identify_time_s"), DefaultIdentifyTimeS)

	b.Mode = defaultMode
	if s := mapString(m, "mode"); s != nil && *s != "" {
		b.Mode = strings.ToLower(*s)
	}

	var action map[string]yaml.Node
	if a, ok := m["action"]; ok && a.Kind == yaml.MappingNode {
		_ = a.Decode(&action)
	}

	b.ActionCluster = "on_off"
	if s := mapString(action, "cluster"); s != nil && *s != "" {
		b.ActionCluster = strings.ToLower(*s)
	}
	b.ActionCommand = "toggle"
	if b.ActionCluster == "identify" {
		b.ActionCommand = "identify"
	}
	if s := mapString(action, "command"); s != nil && *s != "" {
		b.ActionCommand = strings.ToLower(*s)
	}
	b.ActionIdentifyTimeS = intOr(mapInt(action, "identify_time_s"), b.IdentifyTimeS)

	b.BindingEndpoint = intOr(mapInt(m, "binding_endpoint"), 0)

	target := mapInt(action, "target_endpoint")
	if target == nil {
		target = mapInt(m, "target_endpoint")
	}
	b.TargetEndpoint = intOr(target, 0)

	if s := mapString(action, "driver"); s != nil && *s != "" {
		b.Driver = *s
	} else if s := mapString(m, "driver"); s != nil {
		b.Driver = *s
	}

	return b, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
