package binding

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

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendUnicast(ctx context.Context, node uint64, endpoint uint16, req Request) error {
	args := m.Called(ctx, node, endpoint, req)
	return args.Error(0)
}

func (m *mockSender) SendGroup(ctx context.Context, group uint16, req Request) error {
	args := m.Called(ctx, group, req)
	return args.Error(0)
}

func newSwitchNode(t *testing.T, targets ...clusters.BindingTarget) *model.Node {
	t.Helper()
	node := model.NewNode(1, 0, 0)
	ep := model.NewEndpoint(1)
	b := clusters.NewBinding()
	require.NoError(t, b.Replace(targets))
	require.NoError(t, ep.AddCluster(b.Cluster()))
	require.NoError(t, node.AddEndpoint(ep))
	return node
}

func TestClusterUpdateUnicastAndGroup(t *testing.T) {
	onoff := clusters.OnOffID
	node := newSwitchNode(t,
		clusters.BindingTarget{Node: 0x42, Endpoint: 1, Cluster: &onoff},
		clusters.BindingTarget{Group: 9},
	)
	sender := &mockSender{}
	req := Request{Cluster: clusters.OnOffID, Command: clusters.OnOffCmdToggle}

	sender.On("SendUnicast", mock.Anything, uint64(0x42), uint16(1), req).Return(nil).Once()
	sender.On("SendGroup", mock.Anything, uint16(9), req).Return(nil).Once()

	c := NewClient(node, sender, nil)
	require.NoError(t, c.ClusterUpdate(context.Background(), 1, req))
	sender.AssertExpectations(t)
}

func TestClusterUpdateFiltersByCluster(t *testing.T) {
	onoff := clusters.OnOffID
	node := newSwitchNode(t, clusters.BindingTarget{Node: 0x42, Endpoint: 1, Cluster: &onoff})
	sender := &mockSender{}

	c := NewClient(node, sender, nil)
	err := c.ClusterUpdate(context.Background(), 1, Request{
		Cluster: clusters.IdentifyID,
		Command: clusters.IdentifyCmdIdentify,
		Fields:  map[string]any{"identifyTime": uint16(10)},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	sender.AssertNotCalled(t, "SendUnicast", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClusterUpdateEmptyTable(t *testing.T) {
	node := newSwitchNode(t)
	c := NewClient(node, &mockSender{}, nil)

	err := c.ClusterUpdate(context.Background(), 1, Request{Cluster: clusters.OnOffID, Command: clusters.OnOffCmdOn})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClusterUpdateJoinsSendErrors(t *testing.T) {
	node := newSwitchNode(t,
		clusters.BindingTarget{Node: 0x42, Endpoint: 1},
		clusters.BindingTarget{Node: 0x43, Endpoint: 2},
	)
	sender := &mockSender{}
	req := Request{Cluster: clusters.OnOffID, Command: clusters.OnOffCmdOff}
	errDown := errors.New("transport down")

	sender.On("SendUnicast", mock.Anything, uint64(0x42), uint16(1), req).Return(errDown).Once()
	sender.On("SendUnicast", mock.Anything, uint64(0x43), uint16(2), req).Return(nil).Once()

	c := NewClient(node, sender, nil)
	err := c.ClusterUpdate(context.Background(), 1, req)
	assert.ErrorIs(t, err, errDown)
	sender.AssertExpectations(t)
}

func TestClusterUpdateMissingBindingCluster(t *testing.T) {
	node := model.NewNode(1, 0, 0)
	require.NoError(t, node.AddEndpoint(model.NewEndpoint(3)))
	c := NewClient(node, &mockSender{}, nil)

	err := c.ClusterUpdate(context.Background(), 3, Request{Cluster: clusters.OnOffID})
	assert.ErrorIs(t, err, ErrNoBindingCluster)

	err = c.ClusterUpdate(context.Background(), 9, Request{Cluster: clusters.OnOffID})
	assert.ErrorIs(t, err, model.ErrEndpointNotFound)
}
