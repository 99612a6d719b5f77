package inspect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Read(ctx context.Context, node uint64, path model.AttributePath) (any, error) {
	args := m.Called(ctx, node, path)
	return args.Get(0), args.Error(1)
}

func (m *mockSession) Write(ctx context.Context, node uint64, path model.AttributePath, value any) error {
	return m.Called(ctx, node, path, value).Error(0)
}

func (m *mockSession) Invoke(ctx context.Context, node uint64, path model.CommandPath, fields map[string]any) (map[string]any, error) {
	args := m.Called(ctx, node, path, fields)
	resp, _ := args.Get(0).(map[string]any)
	return resp, args.Error(1)
}

func TestRemoteInspectorReadAttribute(t *testing.T) {
	ctx := context.Background()
	onOff := model.AttributePath{Endpoint: 1, Cluster: clusters.OnOffID, Attribute: clusters.OnOffAttrOnOff}

	t.Run("success", func(t *testing.T) {
		s := &mockSession{}
		s.On("Read", ctx, uint64(0xA1), onOff).Return(true, nil)

		v, err := NewRemoteInspector(s).ReadAttribute(ctx, mustPath(t, "@a1/1/on_off/on_off"))
		require.NoError(t, err)
		assert.Equal(t, true, v)
		s.AssertExpectations(t)
	})

	t.Run("session error", func(t *testing.T) {
		s := &mockSession{}
		boom := errors.New("timeout")
		s.On("Read", ctx, uint64(0xA1), onOff).Return(nil, boom)

		_, err := NewRemoteInspector(s).ReadAttribute(ctx, mustPath(t, "@a1/1/on_off/on_off"))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("local path", func(t *testing.T) {
		s := &mockSession{}
		_, err := NewRemoteInspector(s).ReadAttribute(ctx, mustPath(t, "1/on_off/on_off"))
		assert.ErrorIs(t, err, ErrLocalPath)
		s.AssertNotCalled(t, "Read")
	})

	t.Run("partial path", func(t *testing.T) {
		s := &mockSession{}
		_, err := NewRemoteInspector(s).ReadAttribute(ctx, mustPath(t, "@a1/1/on_off"))
		assert.ErrorIs(t, err, ErrPartialPath)
	})

	t.Run("nil path", func(t *testing.T) {
		_, err := NewRemoteInspector(&mockSession{}).ReadAttribute(ctx, nil)
		assert.Error(t, err)
	})
}

func TestRemoteInspectorWriteAttribute(t *testing.T) {
	ctx := context.Background()
	s := &mockSession{}
	path := model.AttributePath{Endpoint: 2, Cluster: clusters.LevelControlID, Attribute: clusters.LevelAttrOnLevel}
	s.On("Write", ctx, uint64(0xB2), path, int64(50)).Return(nil)

	err := NewRemoteInspector(s).WriteAttribute(ctx, mustPath(t, "@b2/2/level_control/on_level"), int64(50))
	require.NoError(t, err)
	s.AssertExpectations(t)
}

func TestRemoteInspectorInvokeCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		s := &mockSession{}
		path := model.CommandPath{Endpoint: 1, Cluster: clusters.GroupsID, Command: clusters.GroupsCmdAddGroup}
		params := map[string]any{"groupID": 3}
		s.On("Invoke", ctx, uint64(0xA1), path, params).Return(map[string]any{"status": 0}, nil)

		resp, err := NewRemoteInspector(s).InvokeCommand(ctx, mustPath(t, "@a1/1/groups/cmd/add_group"), params)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"status": 0}, resp)
		s.AssertExpectations(t)
	})

	t.Run("attribute path", func(t *testing.T) {
		_, err := NewRemoteInspector(&mockSession{}).InvokeCommand(ctx, mustPath(t, "@a1/1/on_off/on_off"), nil)
		assert.ErrorIs(t, err, ErrNotCommand)
	})

	t.Run("local path", func(t *testing.T) {
		_, err := NewRemoteInspector(&mockSession{}).InvokeCommand(ctx, mustPath(t, "1/on_off/cmd/on"), nil)
		assert.ErrorIs(t, err, ErrLocalPath)
	})
}
