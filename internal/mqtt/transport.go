package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mash-protocol/mash-endpoint/pkg/interaction"
	"github.com/mash-protocol/mash-endpoint/pkg/wire"
)

// PubSub is the broker surface the transport needs. *Client implements it.
type PubSub interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// RequestHandler serves inbound requests. *interaction.Server implements
// it.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req *wire.Request) *wire.Response
	HandleGroupRequest(ctx context.Context, req *wire.Request) error
}

// ResponseHandler receives responses to requests this node sent.
// *interaction.Client implements it.
type ResponseHandler interface {
	HandleResponse(resp *wire.Response) error
}

var (
	_ PubSub                    = (*Client)(nil)
	_ RequestHandler            = (*interaction.Server)(nil)
	_ ResponseHandler           = (*interaction.Client)(nil)
	_ interaction.RequestSender = (*Transport)(nil)
)

// Transport moves wire messages for one node over MQTT.
type Transport struct {
	ps     PubSub
	topics Topics
	node   uint64
	qos    byte
	logger *slog.Logger

	mu         sync.RWMutex
	server     RequestHandler
	responses  ResponseHandler
	ctx        context.Context
	cancel     context.CancelFunc
	subscribed []string
}

// NewTransport creates a transport for node. Start must be called before
// inbound messages are delivered; Send works as soon as ps is connected.
func NewTransport(ps PubSub, topics Topics, node uint64, qos byte, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Transport{
		ps:     ps,
		topics: topics,
		node:   node,
		qos:    qos,
		logger: logger,
	}
}

// SetServer sets the handler for inbound requests.
func (t *Transport) SetServer(s RequestHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.server = s
}

// SetResponseHandler sets the handler for inbound responses.
func (t *Transport) SetResponseHandler(h ResponseHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = h
}

// Start subscribes to the node's request and response topics and to all
// group requests. Inbound handling stops when ctx is done or Stop is
// called.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return errors.New("mqtt: transport already started")
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	subs := []struct {
		topic   string
		handler MessageHandler
	}{
		{t.topics.NodeRequest(t.node), t.handleRequest},
		{t.topics.NodeResponse(t.node), t.handleResponse},
		{t.topics.AllGroupRequests(), t.handleGroupRequest},
	}
	for _, s := range subs {
		if err := t.ps.Subscribe(s.topic, t.qos, s.handler); err != nil {
			return errors.Join(err, t.Stop())
		}
		t.mu.Lock()
		t.subscribed = append(t.subscribed, s.topic)
		t.mu.Unlock()
	}

	t.logger.Info("MQTT transport started", "node", FormatNodeID(t.node), "request_topic", t.topics.NodeRequest(t.node))
	return nil
}

// Stop unsubscribes and stops inbound handling.
func (t *Transport) Stop() error {
	t.mu.Lock()
	topics := t.subscribed
	t.subscribed = nil
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	var errs []error
	for _, topic := range topics {
		if err := t.ps.Unsubscribe(topic); err != nil && !errors.Is(err, ErrNotConnected) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send publishes an encoded request to a node or a group.
func (t *Transport) Send(ctx context.Context, dst interaction.Destination, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ctx := t.context(); ctx != nil && ctx.Err() != nil {
		return ErrTransportStopped
	}

	topic := t.topics.NodeRequest(dst.Node)
	if dst.IsGroup() {
		topic = t.topics.GroupRequest(dst.Group)
	}
	return t.ps.Publish(topic, data, t.qos, false)
}

func (t *Transport) context() context.Context {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ctx
}

func (t *Transport) handlers() (RequestHandler, ResponseHandler) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.server, t.responses
}

func (t *Transport) handleRequest(topic string, payload []byte) error {
	ctx := t.context()
	if ctx == nil || ctx.Err() != nil {
		return nil
	}
	server, _ := t.handlers()
	if server == nil {
		return nil
	}

	req, err := wire.DecodeRequest(payload)
	if err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	resp := server.HandleRequest(ctx, req)

	data, err := wire.EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return t.ps.Publish(t.topics.NodeResponse(req.SourceNode), data, t.qos, false)
}

func (t *Transport) handleGroupRequest(topic string, payload []byte) error {
	ctx := t.context()
	if ctx == nil || ctx.Err() != nil {
		return nil
	}
	server, _ := t.handlers()
	if server == nil {
		return nil
	}

	group, err := t.topics.ParseGroupRequest(topic)
	if err != nil {
		return err
	}
	req, err := wire.DecodeRequest(payload)
	if err != nil {
		return fmt.Errorf("decode group request: %w", err)
	}
	if req.Group != group {
		return fmt.Errorf("%w: request for group %d on topic of group %d", ErrInvalidTopic, req.Group, group)
	}
	return server.HandleGroupRequest(ctx, req)
}

func (t *Transport) handleResponse(topic string, payload []byte) error {
	_, responses := t.handlers()
	if responses == nil {
		return nil
	}
	resp, err := wire.DecodeResponse(payload)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := responses.HandleResponse(resp); err != nil {
		// late responses arrive after the request timed out
		t.logger.Debug("dropped response", "message_id", resp.MessageID, "error", err)
	}
	return nil
}
