package mqtt

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/internal/builder"
	"github.com/mash-protocol/mash-endpoint/internal/driver"
	"github.com/mash-protocol/mash-endpoint/internal/module"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/interaction"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// memBroker is an in-process broker. Messages are delivered synchronously.
type memBroker struct {
	mu   sync.Mutex
	subs map[string]MessageHandler
	sent []string
}

func newMemBroker() *memBroker {
	return &memBroker{subs: make(map[string]MessageHandler)}
}

// conn returns a PubSub whose subscriptions are namespaced per client.
func (b *memBroker) conn(name string) *memConn {
	return &memConn{broker: b, name: name}
}

func (b *memBroker) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

type memConn struct {
	broker *memBroker
	name   string
}

func (c *memConn) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b := c.broker
	b.mu.Lock()
	b.sent = append(b.sent, topic)
	var hs []MessageHandler
	for key, h := range b.subs {
		_, filter, _ := strings.Cut(key, "|")
		if topicMatches(filter, topic) {
			hs = append(hs, h)
		}
	}
	b.mu.Unlock()

	for _, h := range hs {
		if err := h(topic, payload); err != nil {
			return err
		}
	}
	return nil
}

func (c *memConn) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	c.broker.subs[c.name+"|"+topic] = handler
	return nil
}

func (c *memConn) Unsubscribe(topic string) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	delete(c.broker.subs, c.name+"|"+topic)
	return nil
}

// topicMatches supports the + wildcard.
func topicMatches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	if len(fs) != len(ts) {
		return false
	}
	for i := range fs {
		if fs[i] != "+" && fs[i] != ts[i] {
			return false
		}
	}
	return true
}

const (
	switchNode uint64 = 0xA1
	lightNode  uint64 = 0xB2
)

func newLightNode(t *testing.T) *model.Node {
	t.Helper()
	node := model.NewNode(lightNode, 0xFFF1, 0x8000)
	rc := module.NewContext(node, nil, nil, module.Defaults(module.LightOptions{Strip: driver.StripConfig{}})...)
	raws := []resolver.RawEndpoint{{ID: 1, DeviceType: resolver.DeviceTypeOnOffLight}}
	rc.Registry.DetectEnabled(raws)
	require.NoError(t, rc.Registry.InitDrivers(context.Background(), rc))
	require.True(t, builder.Build(context.Background(), rc, raws).OK())
	return node
}

type pair struct {
	broker     *memBroker
	light      *model.Node
	switchSide *Transport
	lightSide  *Transport
	client     *interaction.Client
}

func newPair(t *testing.T) *pair {
	t.Helper()
	p := &pair{broker: newMemBroker(), light: newLightNode(t)}
	topics := Topics{Prefix: "test"}

	p.lightSide = NewTransport(p.broker.conn("light"), topics, lightNode, 1, nil)
	p.lightSide.SetServer(interaction.NewServer(p.light))
	require.NoError(t, p.lightSide.Start(context.Background()))

	p.switchSide = NewTransport(p.broker.conn("switch"), topics, switchNode, 1, nil)
	p.client = interaction.NewClient(p.switchSide, switchNode)
	p.client.SetTimeout(time.Second)
	p.switchSide.SetResponseHandler(p.client)
	require.NoError(t, p.switchSide.Start(context.Background()))

	t.Cleanup(func() {
		_ = p.client.Close()
		_ = p.switchSide.Stop()
		_ = p.lightSide.Stop()
	})
	return p
}

var lightOnOff = model.AttributePath{Endpoint: 1, Cluster: clusters.OnOffID, Attribute: clusters.OnOffAttrOnOff}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "mash/"}
	assert.Equal(t, "mash/node/0000000000001A2B/request", topics.NodeRequest(0x1A2B))
	assert.Equal(t, "mash/node/0000000000001A2B/response", topics.NodeResponse(0x1A2B))
	assert.Equal(t, "mash/node/0000000000001A2B/status", topics.NodeStatus(0x1A2B))
	assert.Equal(t, "mash/group/7/request", topics.GroupRequest(7))
	assert.Equal(t, "mash/group/+/request", topics.AllGroupRequests())
	assert.Equal(t, "mash/group/1/request", Topics{}.GroupRequest(1))

	tests := []struct {
		topic string
		group uint16
		ok    bool
	}{
		{"mash/group/7/request", 7, true},
		{"mash/group/65535/request", 65535, true},
		{"mash/group/0/request", 0, false},
		{"mash/group/x/request", 0, false},
		{"mash/group/70000/request", 0, false},
		{"mash/group//request", 0, false},
		{"other/group/7/request", 0, false},
		{"mash/group/7/response", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			g, err := topics.ParseGroupRequest(tt.topic)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidTopic)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.group, g)
		})
	}
}

func TestTransport_UnicastInvoke(t *testing.T) {
	p := newPair(t)

	path := model.CommandPath{Endpoint: 1, Cluster: clusters.OnOffID, Command: clusters.OnOffCmdToggle}
	_, err := p.client.Invoke(context.Background(), lightNode, path, nil)
	require.NoError(t, err)

	v, err := p.light.ReadAttribute(lightOnOff)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	assert.Equal(t, []string{
		"test/node/00000000000000B2/request",
		"test/node/00000000000000A1/response",
	}, p.broker.topics())
	assert.Zero(t, p.client.Pending())
}

func TestTransport_ReadAndErrorStatus(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.light.UpdateAttribute(context.Background(), lightOnOff, true))

	v, err := p.client.Read(context.Background(), lightNode, lightOnOff)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = p.client.Read(context.Background(), lightNode, model.AttributePath{Endpoint: 9, Cluster: clusters.OnOffID})
	assert.Error(t, err)
}

func TestTransport_GroupInvoke(t *testing.T) {
	p := newPair(t)

	_, err := p.light.Invoke(context.Background(),
		model.CommandPath{Endpoint: 1, Cluster: clusters.GroupsID, Command: clusters.GroupsCmdAddGroup},
		map[string]any{"groupID": uint16(5)})
	require.NoError(t, err)

	require.NoError(t, p.client.InvokeGroup(context.Background(), 6, clusters.OnOffID, clusters.OnOffCmdOn, nil))
	v, err := p.light.ReadAttribute(lightOnOff)
	require.NoError(t, err)
	assert.Equal(t, false, v, "not a member of group 6")

	require.NoError(t, p.client.InvokeGroup(context.Background(), 5, clusters.OnOffID, clusters.OnOffCmdOn, nil))
	v, err = p.light.ReadAttribute(lightOnOff)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestTransport_Stop(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.lightSide.Stop())

	path := model.CommandPath{Endpoint: 1, Cluster: clusters.OnOffID, Command: clusters.OnOffCmdOn}
	assert.ErrorIs(t, p.lightSide.Send(context.Background(), interaction.Destination{Node: switchNode}, []byte{0}), ErrTransportStopped)

	p.client.SetTimeout(20 * time.Millisecond)
	_, err := p.client.Invoke(context.Background(), lightNode, path, nil)
	assert.ErrorIs(t, err, interaction.ErrRequestTimeout)
}

func TestTransport_RejectsMalformed(t *testing.T) {
	p := newPair(t)
	conn := p.broker.conn("raw")
	topics := Topics{Prefix: "test"}

	assert.Error(t, conn.Publish(topics.NodeRequest(lightNode), []byte{0xff}, 1, false))
	assert.Error(t, conn.Publish(topics.GroupRequest(3), []byte{0xff}, 1, false))
	assert.Error(t, conn.Publish(topics.NodeResponse(switchNode), []byte{0xff}, 1, false))
}
