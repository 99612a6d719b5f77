package module

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/internal/driver"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// fakeLight records driver calls.
type fakeLight struct {
	mu    sync.Mutex
	calls []string
	on    bool
	hsv   driver.HSV
	temp  uint32
	fail  error
}

func (l *fakeLight) record(call string) error {
	l.calls = append(l.calls, call)
	return l.fail
}

func (l *fakeLight) SetPower(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = on
	return l.record("power")
}

func (l *fakeLight) SetBrightness(v uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hsv.Value = v
	if v > 0 {
		l.on = true
	}
	return l.record("brightness")
}

func (l *fakeLight) SetHue(h uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hsv.Hue = h
	return l.record("hue")
}

func (l *fakeLight) SetSaturation(s uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hsv.Saturation = s
	return l.record("saturation")
}

func (l *fakeLight) SetHSV(hsv driver.HSV) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hsv = hsv
	return l.record("hsv")
}

func (l *fakeLight) SetTemperature(k uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.temp = k
	return l.record("temperature")
}

func (l *fakeLight) Brightness() uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		return 0
	}
	return l.hsv.Value
}

func (l *fakeLight) HSV() driver.HSV {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hsv
}

func (l *fakeLight) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *fakeLight) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

// stubModule supports a fixed set of device types and counts driver
// initializations.
type stubModule struct {
	name    string
	types   []string
	inits   int
	initErr error
}

func (m *stubModule) Name() string { return m.name }

func (m *stubModule) Supports(raw resolver.RawEndpoint) bool {
	for _, t := range m.types {
		if t == raw.DeviceType {
			return true
		}
	}
	return false
}

func (m *stubModule) InitDrivers(ctx context.Context, rc *Context) (Handle, error) {
	m.inits++
	if m.initErr != nil {
		return nil, m.initErr
	}
	return m.name + "-handle", nil
}

func (m *stubModule) BuildEndpoint(rc *Context, cfg resolver.Resolved, h Handle) (*model.Endpoint, error) {
	return model.NewEndpoint(cfg.ID), nil
}

func newTestContext(modules ...Module) *Context {
	return NewContext(model.NewNode(1, 0xFFF1, 0x8000), nil, nil, modules...)
}

func TestRegistry_FindFirstMatch(t *testing.T) {
	a := &stubModule{name: "a", types: []string{"x", "y"}}
	b := &stubModule{name: "b", types: []string{"y", "z"}}
	r := NewRegistry(a, b)

	tests := []struct {
		deviceType string
		expected   string
	}{
		{"x", "a"},
		{"y", "a"},
		{"z", "b"},
		{"w", ""},
	}
	for _, tt := range tests {
		t.Run(tt.deviceType, func(t *testing.T) {
			m := r.Find(resolver.RawEndpoint{DeviceType: tt.deviceType})
			if tt.expected == "" {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.expected, m.Name())
		})
	}
}

func TestRegistry_SingleOwnership(t *testing.T) {
	r := NewRegistry(Defaults(LightOptions{})...)
	for _, dt := range []string{
		resolver.DeviceTypeOnOffLight,
		resolver.DeviceTypeDimmableLight,
		resolver.DeviceTypeExtendedColorLight,
		resolver.DeviceTypeOnOffSwitch,
	} {
		raw := resolver.RawEndpoint{ID: 1, DeviceType: dt}
		owners := 0
		for _, m := range r.Modules() {
			if m.Supports(raw) {
				owners++
			}
		}
		assert.Equal(t, 1, owners, dt)
	}
	assert.Empty(t, r.Overlaps([]resolver.RawEndpoint{
		{ID: 1, DeviceType: resolver.DeviceTypeOnOffLight},
		{ID: 2, DeviceType: resolver.DeviceTypeOnOffSwitch},
	}))
}

func TestRegistry_Overlaps(t *testing.T) {
	a := &stubModule{name: "a", types: []string{"y"}}
	b := &stubModule{name: "b", types: []string{"y"}}
	r := NewRegistry(a, b)

	got := r.Overlaps([]resolver.RawEndpoint{{ID: 3, DeviceType: "y"}, {ID: 4, DeviceType: "q"}})
	require.Len(t, got, 1)
	assert.Equal(t, Overlap{Endpoint: 3, Modules: []string{"a", "b"}}, got[0])
}

func TestRegistry_InitDriversOnce(t *testing.T) {
	a := &stubModule{name: "a", types: []string{"x"}}
	b := &stubModule{name: "b", types: []string{"y"}}
	c := &stubModule{name: "c", types: []string{"z"}}
	rc := newTestContext(a, b, c)

	enabled := rc.Registry.DetectEnabled([]resolver.RawEndpoint{
		{ID: 1, DeviceType: "x"},
		{ID: 2, DeviceType: "x"},
		{ID: 3, DeviceType: "z"},
	})
	require.Len(t, enabled, 2)

	require.NoError(t, rc.Registry.InitDrivers(context.Background(), rc))
	require.NoError(t, rc.Registry.InitDrivers(context.Background(), rc))

	assert.Equal(t, 1, a.inits)
	assert.Equal(t, 0, b.inits)
	assert.Equal(t, 1, c.inits)

	h, ok := rc.Handle(a)
	assert.True(t, ok)
	assert.Equal(t, "a-handle", h)
	_, ok = rc.Handle(b)
	assert.False(t, ok)
}

func TestRegistry_InitDriversFailure(t *testing.T) {
	boom := errors.New("boom")
	a := &stubModule{name: "a", types: []string{"x"}, initErr: boom}
	rc := newTestContext(a)
	rc.Registry.DetectEnabled([]resolver.RawEndpoint{{ID: 1, DeviceType: "x"}})

	err := rc.Registry.InitDrivers(context.Background(), rc)
	assert.ErrorIs(t, err, boom)
	_, ok := rc.Handle(a)
	assert.False(t, ok)

	// A failed module is not retried.
	assert.NoError(t, rc.Registry.InitDrivers(context.Background(), rc))
	assert.Equal(t, 1, a.inits)
	_, ok = rc.Handle(a)
	assert.False(t, ok)
}

func TestBindingTable_WriteOnce(t *testing.T) {
	bt := NewBindingTable()
	m := &stubModule{name: "a"}

	require.NoError(t, bt.Record(2, Binding{Module: m, Handle: "h"}))
	require.NoError(t, bt.Record(1, Binding{Module: m}))
	assert.ErrorIs(t, bt.Record(2, Binding{Module: m}), ErrAlreadyBound)

	b, ok := bt.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "h", b.Handle)
	_, ok = bt.Lookup(9)
	assert.False(t, ok)

	assert.Equal(t, []uint16{1, 2}, bt.Endpoints())
	assert.Equal(t, 2, bt.Len())
}

func TestAssembleClusters_PerDeviceType(t *testing.T) {
	tests := []struct {
		deviceType string
		assembly   Assembly
		expected   []uint32
	}{
		{
			deviceType: resolver.DeviceTypeOnOffLight,
			expected: []uint32{
				clusters.IdentifyID, clusters.GroupsID, clusters.OnOffID,
				clusters.DescriptorID, clusters.ScenesManagementID,
			},
		},
		{
			deviceType: resolver.DeviceTypeDimmableLight,
			expected: []uint32{
				clusters.IdentifyID, clusters.GroupsID, clusters.OnOffID, clusters.LevelControlID,
				clusters.DescriptorID, clusters.ScenesManagementID,
			},
		},
		{
			deviceType: resolver.DeviceTypeExtendedColorLight,
			expected: []uint32{
				clusters.IdentifyID, clusters.GroupsID, clusters.OnOffID, clusters.LevelControlID,
				clusters.DescriptorID, clusters.ScenesManagementID, clusters.ColorControlID,
			},
		},
		{
			deviceType: resolver.DeviceTypeOnOffSwitch,
			assembly:   Assembly{OnOffClient: true, Binding: true},
			expected: []uint32{
				clusters.IdentifyID, clusters.OnOffID, clusters.DescriptorID, clusters.BindingID,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.deviceType, func(t *testing.T) {
			rc := newTestContext()
			cfg := resolver.Resolve(resolver.RawEndpoint{ID: 1, DeviceType: tt.deviceType}, nil)
			ep := model.NewEndpoint(1)
			require.NoError(t, AssembleClusters(rc, ep, cfg, tt.assembly))
			assert.ElementsMatch(t, tt.expected, ep.ClusterIDs())
			assert.Len(t, ep.DeviceTypes(), 1)
		})
	}
}

func TestAssembleClusters_Features(t *testing.T) {
	rc := newTestContext()
	cfg := resolver.Resolve(resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeExtendedColorLight}, nil)
	ep := model.NewEndpoint(1)
	require.NoError(t, AssembleClusters(rc, ep, cfg, Assembly{}))

	onoff, err := ep.GetCluster(clusters.OnOffID)
	require.NoError(t, err)
	assert.True(t, onoff.HasFeature(clusters.OnOffFeatureLighting))
	for _, cmd := range []uint32{clusters.OnOffCmdOff, clusters.OnOffCmdOn, clusters.OnOffCmdToggle} {
		_, err := onoff.GetCommand(cmd)
		assert.NoError(t, err)
	}

	level, err := ep.GetCluster(clusters.LevelControlID)
	require.NoError(t, err)
	assert.True(t, level.HasFeature(clusters.LevelFeatureOnOff|clusters.LevelFeatureLighting))

	color, err := ep.GetCluster(clusters.ColorControlID)
	require.NoError(t, err)
	assert.True(t, color.HasFeature(clusters.ColorFeatureColorTemperature|clusters.ColorFeatureXY))
	assert.True(t, color.HasAttribute(clusters.ColorAttrRemainingTime))
	_, err = color.GetCommand(clusters.ColorCmdStopMoveStep)
	assert.NoError(t, err)

	id, err := ep.GetCluster(clusters.IdentifyID)
	require.NoError(t, err)
	_, err = id.GetCommand(clusters.IdentifyCmdTriggerEffect)
	assert.NoError(t, err)
}

func TestAssembleClusters_UnknownDeviceType(t *testing.T) {
	rc := newTestContext()
	cfg := resolver.Resolve(resolver.RawEndpoint{ID: 1, DeviceType: "toaster"}, nil)
	err := AssembleClusters(rc, model.NewEndpoint(1), cfg, Assembly{})
	assert.ErrorIs(t, err, ErrClusterCreation)
	assert.ErrorIs(t, err, clusters.ErrUnsupportedDeviceType)
}

func TestAssembleClusters_DisabledCluster(t *testing.T) {
	rc := newTestContext()
	raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeOnOffLight}
	raw.Groups.Present = true
	raw.Groups.Enabled = boolPtr(false)
	cfg := resolver.Resolve(raw, nil)

	ep := model.NewEndpoint(1)
	require.NoError(t, AssembleClusters(rc, ep, cfg, Assembly{}))
	assert.False(t, ep.HasCluster(clusters.GroupsID))
}

func TestAssembleClusters_IdentifyTime(t *testing.T) {
	rc := newTestContext()
	raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeOnOffSwitch}
	raw.Identify.Present = true
	raw.Identify.IdentifyTime = intPtr(30)
	cfg := resolver.Resolve(raw, nil)
	require.Equal(t, uint16(30), cfg.Identify.IdentifyTime)

	ep := model.NewEndpoint(1)
	require.NoError(t, AssembleClusters(rc, ep, cfg, Assembly{OnOffClient: true, Binding: true}))

	id, err := ep.GetCluster(clusters.IdentifyID)
	require.NoError(t, err)
	v, err := id.ReadAttribute(clusters.IdentifyAttrIdentifyTime)
	require.NoError(t, err)
	assert.Equal(t, uint16(30), v)
}

func TestSwitchModule(t *testing.T) {
	sw := NewSwitchModule()
	rc := newTestContext(sw)
	assert.True(t, sw.Supports(resolver.RawEndpoint{DeviceType: resolver.DeviceTypeOnOffSwitch}))
	assert.False(t, sw.Supports(resolver.RawEndpoint{DeviceType: resolver.DeviceTypeOnOffLight}))

	h, err := sw.InitDrivers(context.Background(), rc)
	require.NoError(t, err)
	assert.Nil(t, h)

	cfg := resolver.Resolve(resolver.RawEndpoint{ID: 5, DeviceType: resolver.DeviceTypeOnOffSwitch}, nil)
	ep, err := sw.BuildEndpoint(rc, cfg, h)
	require.NoError(t, err)
	assert.True(t, ep.HasCluster(clusters.BindingID))
	assert.True(t, ep.HasCluster(clusters.OnOffID))
	assert.False(t, ep.HasServerCluster(clusters.OnOffID))

	var m Module = sw
	_, isUpdater := m.(AttributeUpdater)
	_, isIdentifier := m.(Identifier)
	assert.False(t, isUpdater)
	assert.False(t, isIdentifier)
}
