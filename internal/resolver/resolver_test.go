package resolver

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func intp(v int) *int                { return &v }
func boolp(v bool) *bool             { return &v }
func strp(v string) *string          { return &v }
func discard() *slog.Logger          { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }
func resolve(r RawEndpoint) Resolved { return Resolve(r, discard()) }

func TestDefaultClusters(t *testing.T) {
	tests := []struct {
		tag                                         string
		identify, groups, scenes, onoff, level, col bool
	}{
		{DeviceTypeOnOffLight, true, true, true, true, false, false},
		{DeviceTypeDimmableLight, true, true, true, true, true, false},
		{DeviceTypeExtendedColorLight, true, true, true, true, true, true},
		{DeviceTypeOnOffSwitch, true, false, false, true, false, false},
		{"door_lock", false, false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			r := resolve(RawEndpoint{ID: 1, DeviceType: tt.tag})
			got := []bool{r.Identify.Enabled, r.Groups.Enabled, r.Scenes.Enabled, r.OnOff.Enabled, r.Level.Enabled, r.Color.Enabled}
			want := []bool{tt.identify, tt.groups, tt.scenes, tt.onoff, tt.level, tt.col}
			for i := range got {
				if got[i] != want[i] {
					t.Errorf("cluster %d enabled = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestExtendedColorLightInheritsDefaults(t *testing.T) {
	r := resolve(RawEndpoint{ID: 3, DeviceType: DeviceTypeExtendedColorLight})

	if !r.OnOff.Lighting {
		t.Error("on_off lighting feature should default on")
	}
	if !r.Level.OnOff || !r.Level.Lighting {
		t.Errorf("level features = on_off:%v lighting:%v, want both", r.Level.OnOff, r.Level.Lighting)
	}
	if !r.Color.ColorTemperatureFeature || !r.Color.XY {
		t.Errorf("color features = ct:%v xy:%v, want both", r.Color.ColorTemperatureFeature, r.Color.XY)
	}
	if r.Color.ColorMode != ColorModeColorTemperature {
		t.Errorf("ColorMode = %d, want %d", r.Color.ColorMode, ColorModeColorTemperature)
	}
	if r.Color.EnhancedColorMode != r.Color.ColorMode {
		t.Errorf("EnhancedColorMode = %d, want %d", r.Color.EnhancedColorMode, r.Color.ColorMode)
	}
	if r.Scenes.SceneTableSize != DefaultSceneTableSize {
		t.Errorf("SceneTableSize = %d, want %d", r.Scenes.SceneTableSize, DefaultSceneTableSize)
	}
}

func TestEnabledPrecedence(t *testing.T) {
	t.Run("explicit false beats default", func(t *testing.T) {
		raw := RawEndpoint{ID: 1, DeviceType: DeviceTypeOnOffLight}
		raw.Groups.Present = true
		raw.Groups.Enabled = boolp(false)
		if resolve(raw).Groups.Enabled {
			t.Error("groups enabled, want disabled")
		}
	})

	t.Run("presence enables non-default", func(t *testing.T) {
		raw := RawEndpoint{ID: 1, DeviceType: DeviceTypeOnOffSwitch}
		raw.Level.Present = true
		if !resolve(raw).Level.Enabled {
			t.Error("level disabled, want enabled")
		}
	})

	t.Run("explicit true on unknown type", func(t *testing.T) {
		raw := RawEndpoint{ID: 1, DeviceType: "custom"}
		raw.OnOff.Enabled = boolp(true)
		if !resolve(raw).OnOff.Enabled {
			t.Error("on_off disabled, want enabled")
		}
	})
}

func TestClamping(t *testing.T) {
	raw := RawEndpoint{ID: 2, DeviceType: DeviceTypeExtendedColorLight}
	raw.Level.CurrentLevel = intp(9999)
	raw.Level.OnLevel = intp(-5)
	raw.Level.Options = intp(300)
	raw.Identify.IdentifyTime = intp(70000)
	raw.Identify.IdentifyType = intp(-1)
	raw.Scenes.SceneTableSize = intp(-3)
	raw.Color.CurrentHue = intp(255)
	raw.Color.CurrentSaturation = intp(-20)
	raw.Color.ColorTemperatureMireds = intp(100000)
	raw.Color.RemainingTime = intp(-1)

	r := resolve(raw)

	checks := []struct {
		name      string
		got, want int
	}{
		{"current_level", int(r.Level.CurrentLevel), 254},
		{"on_level", int(r.Level.OnLevel), 0},
		{"options", int(r.Level.Options), 255},
		{"identify_time", int(r.Identify.IdentifyTime), 65535},
		{"identify_type", int(r.Identify.IdentifyType), 0},
		{"scene_table_size", int(r.Scenes.SceneTableSize), 0},
		{"hue", int(r.Color.CurrentHue), 254},
		{"saturation", int(r.Color.CurrentSaturation), 0},
		{"mireds", int(r.Color.ColorTemperature), 65535},
		{"remaining_time", int(r.Color.RemainingTime), 0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if !r.Level.HasOnLevel || !r.Color.HasCurrentHue || !r.Color.HasCurrentSaturation ||
		!r.Color.HasColorTemperature || !r.Color.HasRemainingTime {
		t.Error("presence flags should be set for configured values")
	}
}

func TestClampIdempotent(t *testing.T) {
	for _, v := range []int{-100, -1, 0, 1, 128, 254, 255, 9999} {
		once := Clamp(v, 0, 254)
		if twice := Clamp(once, 0, 254); twice != once {
			t.Errorf("Clamp(Clamp(%d)) = %d, want %d", v, twice, once)
		}
		if once < 0 || once > 254 {
			t.Errorf("Clamp(%d) = %d, out of range", v, once)
		}
	}
}

func TestPresenceFlagsAbsent(t *testing.T) {
	r := resolve(RawEndpoint{ID: 1, DeviceType: DeviceTypeDimmableLight})
	if r.Level.HasOnLevel || r.Color.HasCurrentHue || r.Color.HasCurrentSaturation ||
		r.Color.HasColorTemperature || r.Color.HasRemainingTime {
		t.Error("presence flags should be clear when nothing is configured")
	}
	if r.OnOff.On {
		t.Error("on should default to false")
	}
}

func TestColorModes(t *testing.T) {
	tests := []struct {
		in   string
		want uint8
	}{
		{"kColorTemperature", ColorModeColorTemperature},
		{"kColorTemperatureMireds", ColorModeColorTemperature},
		{"kCurrentHueAndCurrentSaturation", ColorModeHueSaturation},
		{"kHueSaturation", ColorModeHueSaturation},
		{"kCurrentXAndCurrentY", ColorModeXY},
		{"kXY", ColorModeXY},
		{"kUndefined", ColorModeUnknown},
		{"kUnknownEnumValue", ColorModeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			raw := RawEndpoint{ID: 1, DeviceType: DeviceTypeExtendedColorLight}
			raw.Color.ColorMode = strp(tt.in)
			r := resolve(raw)
			if r.Color.ColorMode != tt.want {
				t.Errorf("ColorMode = %d, want %d", r.Color.ColorMode, tt.want)
			}
			if r.Color.EnhancedColorMode != tt.want {
				t.Errorf("EnhancedColorMode = %d, want %d", r.Color.EnhancedColorMode, tt.want)
			}
		})
	}
}

func TestUnknownColorModeWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	raw := RawEndpoint{ID: 4, DeviceType: DeviceTypeExtendedColorLight}
	raw.Color.ColorMode = strp("rainbow")
	raw.Color.EnhancedColorMode = strp("kXY")

	r := Resolve(raw, logger)
	if r.Color.ColorMode != ColorModeColorTemperature {
		t.Errorf("ColorMode = %d, want fallback %d", r.Color.ColorMode, ColorModeColorTemperature)
	}
	if r.Color.EnhancedColorMode != ColorModeXY {
		t.Errorf("EnhancedColorMode = %d, want %d", r.Color.EnhancedColorMode, ColorModeXY)
	}
	if !strings.Contains(buf.String(), "rainbow") {
		t.Errorf("expected warning naming the mode, got %q", buf.String())
	}
}

func TestListedFeatures(t *testing.T) {
	raw := RawEndpoint{ID: 1, DeviceType: DeviceTypeOnOffSwitch}
	raw.OnOff.Features = []string{"lighting"}
	raw.Color.Features = []string{"XY"}

	r := resolve(raw)
	if !r.OnOff.Lighting {
		t.Error("listed lighting feature not applied")
	}
	if r.Color.XY {
		t.Error("feature names are case-sensitive")
	}
}

func TestResolveNilLogger(t *testing.T) {
	raw := RawEndpoint{ID: 1, DeviceType: DeviceTypeExtendedColorLight}
	raw.Color.ColorMode = strp("bogus")
	r := Resolve(raw, nil)
	if r.Color.ColorMode != ColorModeColorTemperature {
		t.Errorf("ColorMode = %d", r.Color.ColorMode)
	}
}

func TestKnownDeviceType(t *testing.T) {
	for _, tag := range []string{DeviceTypeOnOffLight, DeviceTypeDimmableLight, DeviceTypeExtendedColorLight, DeviceTypeOnOffSwitch} {
		if !KnownDeviceType(tag) {
			t.Errorf("KnownDeviceType(%q) = false", tag)
		}
	}
	if KnownDeviceType("fan") {
		t.Error("KnownDeviceType(fan) = true")
	}
	if DefaultClusterEnabled("fan", ClusterOnOff) {
		t.Error("unknown device types enable nothing")
	}
}
