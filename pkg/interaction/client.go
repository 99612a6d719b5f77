package interaction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
	"github.com/mash-protocol/mash-endpoint/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// Destination addresses a request to a node or a group.
type Destination struct {
	Node  uint64
	Group uint16
}

// IsGroup reports whether the destination is a group.
func (d Destination) IsGroup() bool {
	return d.Group != 0
}

// RequestSender hands encoded requests to a transport.
type RequestSender interface {
	Send(ctx context.Context, dst Destination, data []byte) error
}

// Client sends requests and correlates responses by message ID.
type Client struct {
	mu sync.RWMutex

	sender     RequestSender
	sourceNode uint64
	timeout    time.Duration
	events     mlog.Logger

	nextMsgID uint32

	pending   map[uint32]pendingRequest
	pendingMu sync.Mutex

	closed bool
}

type pendingRequest struct {
	ch   chan *wire.Response
	peer uint64
}

// NewClient creates a new interaction client. sourceNode is stamped on
// every request.
func NewClient(sender RequestSender, sourceNode uint64) *Client {
	return &Client{
		sender:     sender,
		sourceNode: sourceNode,
		timeout:    10 * time.Second,
		events:     mlog.NoopLogger{},
		pending:    make(map[uint32]pendingRequest),
	}
}

// SetTimeout sets the response timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetEventLogger sets the protocol event logger.
func (c *Client) SetEventLogger(events mlog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if events != nil {
		c.events = events
	}
}

// Close closes the client and fails all pending requests.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	c.pendingMu.Lock()
	for _, p := range c.pending {
		close(p.ch)
	}
	c.pending = make(map[uint32]pendingRequest)
	c.pendingMu.Unlock()

	return nil
}

// Pending returns the number of requests awaiting a response.
func (c *Client) Pending() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

func (c *Client) nextMessageID() uint32 {
	for {
		if id := atomic.AddUint32(&c.nextMsgID, 1); id != 0 {
			return id
		}
	}
}

// start registers a pending response (unicast only) and sends the request.
func (c *Client) start(ctx context.Context, dst Destination, req *wire.Request) (chan *wire.Response, error) {
	c.mu.RLock()
	closed := c.closed
	events := c.events
	c.mu.RUnlock()
	if closed {
		return nil, ErrClientClosed
	}

	req.MessageID = c.nextMessageID()
	req.SourceNode = c.sourceNode
	req.Group = dst.Group

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	var ch chan *wire.Response
	if !dst.IsGroup() {
		ch = make(chan *wire.Response, 1)
		c.pendingMu.Lock()
		c.pending[req.MessageID] = pendingRequest{ch: ch, peer: dst.Node}
		c.pendingMu.Unlock()
	}

	events.Log(mlog.RequestEvent(mlog.DirectionOut, c.sourceNode, dst.Node, req))
	if err := c.sender.Send(ctx, dst, data); err != nil {
		c.forget(req.MessageID)
		return nil, err
	}
	return ch, nil
}

func (c *Client) await(ctx context.Context, msgID uint32, ch chan *wire.Response) (*wire.Response, error) {
	defer c.forget(msgID)

	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClientClosed
		}
		return resp, nil
	}
}

func (c *Client) forget(msgID uint32) {
	c.pendingMu.Lock()
	delete(c.pending, msgID)
	c.pendingMu.Unlock()
}

func (c *Client) roundTrip(ctx context.Context, node uint64, req *wire.Request) (*wire.Response, error) {
	ch, err := c.start(ctx, Destination{Node: node}, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.await(ctx, req.MessageID, ch)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

// HandleResponse delivers a response to the waiting request.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	p, exists := c.pending[resp.MessageID]
	if exists {
		// Close closes channels under pendingMu, so this send is safe.
		select {
		case p.ch <- resp:
		default:
		}
	}
	c.pendingMu.Unlock()

	if !exists {
		return ErrUnexpectedReply
	}

	c.mu.RLock()
	events := c.events
	c.mu.RUnlock()
	events.Log(mlog.ResponseEvent(mlog.DirectionIn, c.sourceNode, p.peer, resp, 0))
	return nil
}

// Read reads one attribute from a peer.
func (c *Client) Read(ctx context.Context, node uint64, path model.AttributePath) (any, error) {
	resp, err := c.roundTrip(ctx, node, &wire.Request{
		Operation: wire.OpRead,
		Endpoint:  path.Endpoint,
		Cluster:   path.Cluster,
		ID:        path.Attribute,
	})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Write writes one attribute on a peer.
func (c *Client) Write(ctx context.Context, node uint64, path model.AttributePath, value any) error {
	_, err := c.roundTrip(ctx, node, &wire.Request{
		Operation: wire.OpWrite,
		Endpoint:  path.Endpoint,
		Cluster:   path.Cluster,
		ID:        path.Attribute,
		Value:     value,
	})
	return err
}

// Invoke invokes a command on a peer and waits for its response fields.
func (c *Client) Invoke(ctx context.Context, node uint64, path model.CommandPath, fields map[string]any) (map[string]any, error) {
	resp, err := c.roundTrip(ctx, node, invokeRequest(path, fields))
	if err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

// InvokeAsync sends an invoke and returns once it is handed to the
// transport. done runs on its own goroutine with the response or error.
// The wait is bounded by the client timeout, not by ctx.
func (c *Client) InvokeAsync(ctx context.Context, node uint64, path model.CommandPath, fields map[string]any, done func(map[string]any, error)) error {
	req := invokeRequest(path, fields)
	ch, err := c.start(ctx, Destination{Node: node}, req)
	if err != nil {
		return err
	}
	go func() {
		resp, err := c.await(context.Background(), req.MessageID, ch)
		if err == nil {
			err = resp.Err()
		}
		if done == nil {
			return
		}
		if err != nil {
			done(nil, err)
			return
		}
		done(resp.Fields, nil)
	}()
	return nil
}

// InvokeGroup sends a group-addressed invoke. Groups do not respond.
func (c *Client) InvokeGroup(ctx context.Context, group uint16, cluster, command uint32, fields map[string]any) error {
	req := invokeRequest(model.CommandPath{Cluster: cluster, Command: command}, fields)
	_, err := c.start(ctx, Destination{Group: group}, req)
	return err
}

func invokeRequest(path model.CommandPath, fields map[string]any) *wire.Request {
	return &wire.Request{
		Operation: wire.OpInvoke,
		Endpoint:  path.Endpoint,
		Cluster:   path.Cluster,
		ID:        path.Command,
		Fields:    fields,
	}
}
