package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/internal/driver"
	"github.com/mash-protocol/mash-endpoint/internal/module"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// failingModule claims "broken" endpoints and fails to build them.
type failingModule struct{}

func (failingModule) Name() string { return "failing" }

func (failingModule) Supports(raw resolver.RawEndpoint) bool { return raw.DeviceType == "broken" }

func (failingModule) InitDrivers(ctx context.Context, rc *module.Context) (module.Handle, error) {
	return nil, nil
}

func (failingModule) BuildEndpoint(rc *module.Context, cfg resolver.Resolved, h module.Handle) (*model.Endpoint, error) {
	return nil, errors.New("cluster creation failed")
}

func newContext(extra ...module.Module) *module.Context {
	mods := append(module.Defaults(module.LightOptions{Strip: driver.StripConfig{}}), extra...)
	return module.NewContext(model.NewNode(1, 0xFFF1, 0x8000), nil, nil, mods...)
}

func prepare(t *testing.T, rc *module.Context, raws []resolver.RawEndpoint) {
	t.Helper()
	rc.Registry.DetectEnabled(raws)
	require.NoError(t, rc.Registry.InitDrivers(context.Background(), rc))
}

func TestBuild_LightAndSwitch(t *testing.T) {
	rc := newContext()
	raws := []resolver.RawEndpoint{
		{ID: 1, DeviceType: resolver.DeviceTypeDimmableLight},
		{ID: 2, DeviceType: resolver.DeviceTypeOnOffSwitch},
	}
	prepare(t, rc, raws)

	rep := Build(context.Background(), rc, raws)
	assert.True(t, rep.OK())
	assert.Equal(t, []uint16{1, 2}, rep.Built)

	b, ok := rc.Bindings.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "light", b.Module.Name())
	_, isDevice := b.Handle.(*module.LightDevice)
	assert.True(t, isDevice)

	b, ok = rc.Bindings.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "switch", b.Module.Name())

	ep, err := rc.Node.GetEndpoint(1)
	require.NoError(t, err)
	assert.True(t, ep.HasCluster(clusters.LevelControlID))

	ep, err = rc.Node.GetEndpoint(2)
	require.NoError(t, err)
	assert.True(t, ep.HasCluster(clusters.BindingID))
}

func TestBuild_SkipsUnsupported(t *testing.T) {
	rc := newContext()
	raws := []resolver.RawEndpoint{
		{ID: 1, DeviceType: "toaster"},
		{ID: 2, DeviceType: resolver.DeviceTypeOnOffLight},
	}
	prepare(t, rc, raws)

	rep := Build(context.Background(), rc, raws)
	assert.False(t, rep.OK())
	assert.Equal(t, []uint16{1}, rep.Skipped)
	assert.Equal(t, []uint16{2}, rep.Built)
	_, ok := rc.Bindings.Lookup(1)
	assert.False(t, ok)
}

func TestBuild_FailureDoesNotStopOthers(t *testing.T) {
	rc := newContext(failingModule{})
	raws := []resolver.RawEndpoint{
		{ID: 1, DeviceType: "broken"},
		{ID: 2, DeviceType: resolver.DeviceTypeOnOffLight},
		{ID: 2, DeviceType: resolver.DeviceTypeOnOffLight},
	}
	prepare(t, rc, raws)

	rep := Build(context.Background(), rc, raws)
	assert.Equal(t, []uint16{2}, rep.Built)
	assert.Equal(t, []uint16{1, 2}, rep.FailedEndpoints())
	assert.ErrorIs(t, rep.Failed[2], model.ErrDuplicateEndpoint)

	_, err := rc.Node.GetEndpoint(1)
	assert.ErrorIs(t, err, model.ErrEndpointNotFound)
	assert.Equal(t, 1, rc.Bindings.Len())
}

func TestBuild_RequiresInitializedDrivers(t *testing.T) {
	rc := newContext()
	rep := Build(context.Background(), rc, []resolver.RawEndpoint{{ID: 1, DeviceType: resolver.DeviceTypeOnOffLight}})
	assert.ErrorIs(t, rep.Failed[1], module.ErrNotInitialized)
}

func TestBuild_PushesInitialValues(t *testing.T) {
	rc := newContext()
	on := true
	level := 80
	raw := resolver.RawEndpoint{ID: 1, DeviceType: resolver.DeviceTypeDimmableLight}
	raw.OnOff.State = &on
	raw.Level.CurrentLevel = &level
	prepare(t, rc, []resolver.RawEndpoint{raw})

	rep := Build(context.Background(), rc, []resolver.RawEndpoint{raw})
	require.True(t, rep.OK())

	v, err := rc.Node.ReadAttribute(model.AttributePath{Endpoint: 1, Cluster: clusters.OnOffID, Attribute: clusters.OnOffAttrOnOff})
	require.NoError(t, err)
	assert.Equal(t, true, v)
	v, err = rc.Node.ReadAttribute(model.AttributePath{Endpoint: 1, Cluster: clusters.LevelControlID, Attribute: clusters.LevelAttrCurrentLevel})
	require.NoError(t, err)
	assert.Equal(t, uint8(80), v)
}
