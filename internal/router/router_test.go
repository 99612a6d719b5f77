package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/internal/module"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// mockModule is a module with the attribute and identify slots.
type mockModule struct {
	mock.Mock
}

func (m *mockModule) Name() string                           { return "mock" }
func (m *mockModule) Supports(raw resolver.RawEndpoint) bool { return true }

func (m *mockModule) InitDrivers(ctx context.Context, rc *module.Context) (module.Handle, error) {
	return nil, nil
}

func (m *mockModule) BuildEndpoint(rc *module.Context, cfg resolver.Resolved, h module.Handle) (*model.Endpoint, error) {
	return model.NewEndpoint(cfg.ID), nil
}

func (m *mockModule) AttributeUpdate(h module.Handle, path model.AttributePath, value any) error {
	args := m.Called(h, path, value)
	return args.Error(0)
}

func (m *mockModule) Identify(h module.Handle, kind model.IdentifyKind, endpoint uint16, effect, variant uint8) error {
	args := m.Called(h, kind, endpoint, effect, variant)
	return args.Error(0)
}

// bareModule has no optional slots.
type bareModule struct{}

func (bareModule) Name() string                           { return "bare" }
func (bareModule) Supports(raw resolver.RawEndpoint) bool { return true }

func (bareModule) InitDrivers(ctx context.Context, rc *module.Context) (module.Handle, error) {
	return nil, nil
}

func (bareModule) BuildEndpoint(rc *module.Context, cfg resolver.Resolved, h module.Handle) (*model.Endpoint, error) {
	return model.NewEndpoint(cfg.ID), nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []mlog.Event
}

func (r *eventRecorder) Log(e mlog.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

var onOffPath = model.AttributePath{Endpoint: 1, Cluster: clusters.OnOffID, Attribute: clusters.OnOffAttrOnOff}

func TestRouter_PreUpdateDispatch(t *testing.T) {
	m := &mockModule{}
	bt := module.NewBindingTable()
	require.NoError(t, bt.Record(1, module.Binding{Module: m, Handle: "h1"}))

	m.On("AttributeUpdate", "h1", onOffPath, true).Return(nil).Once()

	r := New(bt, nil)
	rec := &eventRecorder{}
	r.SetEventLogger(rec)

	require.NoError(t, r.OnAttributeUpdate(model.PhasePreUpdate, onOffPath, true))
	require.NoError(t, r.OnAttributeUpdate(model.PhasePostUpdate, onOffPath, true))

	m.AssertExpectations(t)
	require.Len(t, rec.events, 1)
	assert.Equal(t, mlog.CategoryAttribute, rec.events[0].Category)
	assert.Equal(t, clusters.OnOffID, rec.events[0].Attribute.Cluster)
}

func TestRouter_UnknownEndpoint(t *testing.T) {
	m := &mockModule{}
	bt := module.NewBindingTable()
	require.NoError(t, bt.Record(1, module.Binding{Module: m}))

	r := New(bt, nil)
	other := onOffPath
	other.Endpoint = 7
	assert.NoError(t, r.OnAttributeUpdate(model.PhasePreUpdate, other, true))
	assert.NoError(t, r.OnIdentify(model.IdentifyStart, 7, 0, 0))
	m.AssertNotCalled(t, "AttributeUpdate", mock.Anything, mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "Identify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_MissingSlots(t *testing.T) {
	bt := module.NewBindingTable()
	require.NoError(t, bt.Record(1, module.Binding{Module: bareModule{}}))

	r := New(bt, nil)
	assert.NoError(t, r.OnAttributeUpdate(model.PhasePreUpdate, onOffPath, true))
	assert.NoError(t, r.OnIdentify(model.IdentifyStart, 1, 0, 0))
}

func TestRouter_ErrorReturned(t *testing.T) {
	m := &mockModule{}
	bt := module.NewBindingTable()
	require.NoError(t, bt.Record(1, module.Binding{Module: m}))

	boom := errors.New("driver failure")
	m.On("AttributeUpdate", nil, onOffPath, false).Return(boom)
	m.On("Identify", nil, model.IdentifyEffect, uint16(1), uint8(2), uint8(0)).Return(boom)

	r := New(bt, nil)
	assert.ErrorIs(t, r.OnAttributeUpdate(model.PhasePreUpdate, onOffPath, false), boom)
	assert.ErrorIs(t, r.OnIdentify(model.IdentifyEffect, 1, 2, 0), boom)
}

func TestRouter_InstalledOnNode(t *testing.T) {
	node := model.NewNode(1, 0xFFF1, 0x8000)
	ep := model.NewEndpoint(1)
	require.NoError(t, clusters.AddDescriptorAndRegister(ep, clusters.DeviceTypeOnOffLight))
	require.NoError(t, ep.AddCluster(clusters.NewOnOff(clusters.OnOffConfig{})))
	require.NoError(t, node.AddEndpoint(ep))

	m := &mockModule{}
	bt := module.NewBindingTable()
	require.NoError(t, bt.Record(1, module.Binding{Module: m}))
	m.On("AttributeUpdate", nil, onOffPath, true).Return(errors.New("rejected")).Once()
	m.On("Identify", nil, model.IdentifyStart, uint16(1), uint8(0), uint8(0)).Return(nil).Once()

	New(bt, nil).Install(node)

	// a pre-update failure is logged by the node and the value still commits
	require.NoError(t, node.UpdateAttribute(context.Background(), onOffPath, true))
	v, err := node.ReadAttribute(onOffPath)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	require.NoError(t, node.Identify(model.IdentifyStart, 1, 0, 0))
	m.AssertExpectations(t)
}
