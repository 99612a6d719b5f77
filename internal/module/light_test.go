package module

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/internal/driver"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

type lightFixture struct {
	rc     *Context
	light  *fakeLight
	module Module
	handle Handle
}

func newLightFixture(t *testing.T, extended bool) *lightFixture {
	t.Helper()
	fl := &fakeLight{}
	opts := LightOptions{NewLight: func() (driver.Light, error) { return fl, nil }}

	var m Module
	if extended {
		m = NewExtendedColorLightModule(opts)
	} else {
		m = NewLightModule(opts)
	}
	rc := newTestContext(m)
	h, err := m.InitDrivers(context.Background(), rc)
	require.NoError(t, err)
	return &lightFixture{rc: rc, light: fl, module: m, handle: h}
}

// build creates, registers and post-builds an endpoint.
func (f *lightFixture) build(t *testing.T, raw resolver.RawEndpoint) *model.Endpoint {
	t.Helper()
	cfg := resolver.Resolve(raw, nil)
	ep, err := f.module.BuildEndpoint(f.rc, cfg, f.handle)
	require.NoError(t, err)
	require.NoError(t, f.rc.Node.AddEndpoint(ep))
	require.NoError(t, f.module.(PostBuilder).PostBuild(context.Background(), f.rc, ep, cfg, f.handle))
	return ep
}

func (f *lightFixture) read(t *testing.T, ep uint16, cluster, attr uint32) any {
	t.Helper()
	v, err := f.rc.Node.ReadAttribute(model.AttributePath{Endpoint: ep, Cluster: cluster, Attribute: attr})
	require.NoError(t, err)
	return v
}

func TestLightModule_Supports(t *testing.T) {
	m := NewLightModule(LightOptions{})
	assert.True(t, m.Supports(resolver.RawEndpoint{DeviceType: resolver.DeviceTypeOnOffLight}))
	assert.True(t, m.Supports(resolver.RawEndpoint{DeviceType: resolver.DeviceTypeDimmableLight}))
	assert.False(t, m.Supports(resolver.RawEndpoint{DeviceType: resolver.DeviceTypeExtendedColorLight}))

	x := NewExtendedColorLightModule(LightOptions{})
	assert.True(t, x.Supports(resolver.RawEndpoint{DeviceType: resolver.DeviceTypeExtendedColorLight}))
	assert.False(t, x.Supports(resolver.RawEndpoint{DeviceType: resolver.DeviceTypeDimmableLight}))
	assert.Equal(t, "extended_color_light", x.Name())
}

func TestLightModule_InitDriversStrip(t *testing.T) {
	m := NewLightModule(LightOptions{Strip: driver.StripConfig{LEDCount: 4, Type: "sk6812w"}})
	h, err := m.InitDrivers(context.Background(), newTestContext(m))
	require.NoError(t, err)

	d, ok := h.(*LightDevice)
	require.True(t, ok)
	strip, ok := d.Light().(*driver.Strip)
	require.True(t, ok)
	assert.Equal(t, driver.PixelFormatGRBW, strip.Format())

	bad := NewLightModule(LightOptions{Strip: driver.StripConfig{Type: "apa102"}})
	_, err = bad.InitDrivers(context.Background(), newTestContext(bad))
	assert.ErrorIs(t, err, driver.ErrUnsupportedLEDType)
}

func TestLightModule_InvalidHandle(t *testing.T) {
	m := NewLightModule(LightOptions{})
	_, err := m.BuildEndpoint(newTestContext(m), resolver.Resolved{ID: 1}, "nope")
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, m.AttributeUpdate(nil, model.AttributePath{}, true), ErrInvalidHandle)
}

func TestLightModule_PostBuildPushesInitialValues(t *testing.T) {
	f := newLightFixture(t, false)

	raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeDimmableLight}
	raw.OnOff.State = boolPtr(true)
	raw.Level.CurrentLevel = intPtr(9999)
	f.build(t, raw)

	assert.Equal(t, true, f.read(t, 1, clusters.OnOffID, clusters.OnOffAttrOnOff))
	assert.Equal(t, uint8(254), f.read(t, 1, clusters.LevelControlID, clusters.LevelAttrCurrentLevel))
}

func TestLightModule_AttributeUpdate(t *testing.T) {
	f := newLightFixture(t, true)
	f.build(t, resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight})
	f.light.reset()

	u := f.module.(AttributeUpdater)
	path := func(cluster, attr uint32) model.AttributePath {
		return model.AttributePath{Endpoint: 1, Cluster: cluster, Attribute: attr}
	}

	require.NoError(t, u.AttributeUpdate(f.handle, path(clusters.OnOffID, clusters.OnOffAttrOnOff), true))
	assert.True(t, f.light.on)

	require.NoError(t, u.AttributeUpdate(f.handle, path(clusters.LevelControlID, clusters.LevelAttrCurrentLevel), uint8(254)))
	assert.Equal(t, uint8(255), f.light.hsv.Value)

	require.NoError(t, u.AttributeUpdate(f.handle, path(clusters.ColorControlID, clusters.ColorAttrCurrentHue), uint8(127)))
	assert.Equal(t, uint16(180), f.light.hsv.Hue)

	require.NoError(t, u.AttributeUpdate(f.handle, path(clusters.ColorControlID, clusters.ColorAttrCurrentSaturation), int64(254)))
	assert.Equal(t, uint8(255), f.light.hsv.Saturation)

	require.NoError(t, u.AttributeUpdate(f.handle, path(clusters.ColorControlID, clusters.ColorAttrColorTemperatureMireds), uint16(350)))
	assert.Equal(t, uint32(2857), f.light.temp)

	// unrelated attribute
	require.NoError(t, u.AttributeUpdate(f.handle, path(clusters.IdentifyID, clusters.IdentifyAttrIdentifyTime), uint16(3)))

	assert.Equal(t, []string{"power", "brightness", "hue", "saturation", "temperature"}, f.light.Calls())
}

func TestExtendedColorLight_ClampsMireds(t *testing.T) {
	f := newLightFixture(t, true)

	raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight}
	raw.Color.Present = true
	raw.Color.ColorTemperatureMireds = intPtr(900)
	f.build(t, raw)

	assert.Equal(t, uint16(500), f.read(t, 1, clusters.ColorControlID, clusters.ColorAttrColorTemperatureMireds))
	assert.Equal(t, uint16(153), f.read(t, 1, clusters.ColorControlID, clusters.ColorAttrColorTempPhysicalMinMireds))
	assert.Equal(t, uint16(500), f.read(t, 1, clusters.ColorControlID, clusters.ColorAttrColorTempPhysicalMaxMireds))
	assert.Equal(t, uint16(350), f.read(t, 1, clusters.ColorControlID, clusters.ColorAttrStartUpColorTemperatureMireds))

	u := f.module.(AttributeUpdater)
	path := model.AttributePath{Endpoint: 1, Cluster: clusters.ColorControlID, Attribute: clusters.ColorAttrColorTemperatureMireds}
	require.NoError(t, u.AttributeUpdate(f.handle, path, uint16(100)))
	assert.Equal(t, driver.MiredsToKelvin(153), f.light.temp)

	lo, hi := f.module.(*ExtendedColorLightModule).PhysicalRange()
	assert.Equal(t, uint16(153), lo)
	assert.Equal(t, uint16(500), hi)
}

func TestExtendedColorLight_StartUpMireds(t *testing.T) {
	f := newLightFixture(t, true)
	f.build(t, resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight})
	assert.Equal(t, uint16(350), f.read(t, 1, clusters.ColorControlID, clusters.ColorAttrColorTemperatureMireds))
}

func TestLightModule_OnlyPrimaryDrivesLight(t *testing.T) {
	f := newLightFixture(t, false)
	f.build(t, resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeOnOffLight})
	f.build(t, resolver.RawEndpoint{ID: 2, DeviceType: resolver.DeviceTypeOnOffLight})
	f.light.reset()

	d := f.handle.(*LightDevice)
	primary, ok := d.Primary()
	require.True(t, ok)
	assert.Equal(t, uint16(1), primary)

	u := f.module.(AttributeUpdater)
	require.NoError(t, u.AttributeUpdate(f.handle,
		model.AttributePath{Endpoint: 2, Cluster: clusters.OnOffID, Attribute: clusters.OnOffAttrOnOff}, true))
	assert.Empty(t, f.light.Calls())
}

func TestLightModule_IdentifySession(t *testing.T) {
	f := newLightFixture(t, false)
	f.build(t, resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeDimmableLight})

	require.NoError(t, f.light.SetHSV(driver.HSV{Hue: 40, Saturation: 100, Value: 60}))
	require.NoError(t, f.light.SetPower(false))
	f.light.reset()

	id := f.module.(Identifier)
	d := f.handle.(*LightDevice)

	require.NoError(t, id.Identify(f.handle, model.IdentifyStart, 1, 0, 0))
	assert.True(t, d.Identifying())
	assert.Equal(t, uint8(255), f.light.Brightness())

	// second START is ignored
	require.NoError(t, id.Identify(f.handle, model.IdentifyStart, 1, 0, 0))

	require.NoError(t, id.Identify(f.handle, model.IdentifyEffect, 1, 2, 0))

	require.NoError(t, id.Identify(f.handle, model.IdentifyStop, 1, 0, 0))
	assert.False(t, d.Identifying())
	assert.Equal(t, driver.HSV{Hue: 40, Saturation: 100, Value: 60}, f.light.HSV())
	assert.False(t, f.light.on)
	assert.Equal(t, []string{"brightness", "hsv", "power"}, f.light.Calls())

	// STOP without a session does nothing
	require.NoError(t, id.Identify(f.handle, model.IdentifyStop, 1, 0, 0))
	assert.Len(t, f.light.Calls(), 3)
}

func TestLightModule_IdentifyStopJoinsErrors(t *testing.T) {
	f := newLightFixture(t, false)
	id := f.module.(Identifier)
	require.NoError(t, id.Identify(f.handle, model.IdentifyStart, 1, 0, 0))

	boom := errors.New("driver down")
	f.light.fail = boom
	err := id.Identify(f.handle, model.IdentifyStop, 1, 0, 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, f.handle.(*LightDevice).Identifying())
}

func TestLightModule_PostStart(t *testing.T) {
	tests := []struct {
		name     string
		raw      func() resolver.RawEndpoint
		extended bool
		calls    []string
	}{
		{
			name: "on_off_light",
			raw: func() resolver.RawEndpoint {
				return resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeOnOffLight}
			},
			calls: []string{"power"},
		},
		{
			name: "dimmable_light",
			raw: func() resolver.RawEndpoint {
				return resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeDimmableLight}
			},
			calls: []string{"brightness", "power"},
		},
		{
			name: "temperature mode",
			raw: func() resolver.RawEndpoint {
				return resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight}
			},
			extended: true,
			calls:    []string{"brightness", "temperature", "power"},
		},
		{
			name: "hue saturation mode",
			raw: func() resolver.RawEndpoint {
				raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight}
				raw.Color.Present = true
				raw.Color.ColorMode = strPtr("kHueSaturation")
				raw.Color.CurrentHue = intPtr(127)
				return raw
			},
			extended: true,
			calls:    []string{"brightness", "hue", "saturation", "power"},
		},
		{
			name: "xy mode warns",
			raw: func() resolver.RawEndpoint {
				raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight}
				raw.Color.Present = true
				raw.Color.ColorMode = strPtr("kXY")
				return raw
			},
			extended: true,
			calls:    []string{"brightness", "power"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLightFixture(t, tt.extended)
			f.build(t, tt.raw())
			f.light.reset()

			require.NoError(t, f.module.(PostStarter).PostStart(context.Background(), f.rc, f.handle))
			assert.Equal(t, tt.calls, f.light.Calls())
		})
	}
}

func TestLightModule_PostStartValues(t *testing.T) {
	f := newLightFixture(t, true)
	raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight}
	raw.OnOff.State = boolPtr(true)
	raw.Level.CurrentLevel = intPtr(127)
	raw.Color.Present = true
	raw.Color.ColorTemperatureMireds = intPtr(250)
	f.build(t, raw)

	require.NoError(t, f.module.(PostStarter).PostStart(context.Background(), f.rc, f.handle))
	assert.Equal(t, uint8(127), f.light.Brightness())
	assert.Equal(t, uint32(4000), f.light.temp)
	assert.True(t, f.light.on)
}

func TestLightModule_PostStartWithoutEndpoint(t *testing.T) {
	f := newLightFixture(t, false)
	require.NoError(t, f.module.(PostStarter).PostStart(context.Background(), f.rc, f.handle))
	assert.Empty(t, f.light.Calls())
}

func TestRegistry_PostStart(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLight{}
	m := NewLightModule(LightOptions{NewLight: func() (driver.Light, error) { return fl, nil }})
	rc := newTestContext(m, NewSwitchModule())

	raws := []resolver.RawEndpoint{
		{ID: 1, DeviceType: resolver.DeviceTypeOnOffLight},
		{ID: 2, DeviceType: resolver.DeviceTypeOnOffSwitch},
	}
	rc.Registry.DetectEnabled(raws)
	require.NoError(t, rc.Registry.InitDrivers(ctx, rc))

	h, ok := rc.Handle(m)
	require.True(t, ok)
	cfg := resolver.Resolve(raws[0], nil)
	ep, err := m.BuildEndpoint(rc, cfg, h)
	require.NoError(t, err)
	require.NoError(t, rc.Node.AddEndpoint(ep))
	require.NoError(t, m.PostBuild(ctx, rc, ep, cfg, h))

	fl.reset()
	require.NoError(t, rc.Registry.PostStart(ctx, rc))
	assert.Equal(t, []string{"power"}, fl.Calls())
}
