package binding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// ErrNotFound is returned when the local endpoint has no binding that
// applies to the request's cluster.
var ErrNotFound = errors.New("no binding for cluster")

// ErrNoBindingCluster is returned when the local endpoint has no Binding
// cluster.
var ErrNoBindingCluster = errors.New("endpoint has no binding cluster")

// Request is a command to deliver to every bound peer.
type Request struct {
	Cluster uint32
	Command uint32
	Fields  map[string]any
}

// String formats the request for logs.
func (r Request) String() string {
	return fmt.Sprintf("%s/0x%02X", clusters.ClusterName(r.Cluster), r.Command)
}

// Sender delivers a request to one binding target. Implementations return
// once the request has been handed to the transport.
type Sender interface {
	SendUnicast(ctx context.Context, node uint64, endpoint uint16, req Request) error
	SendGroup(ctx context.Context, group uint16, req Request) error
}

// Client walks binding tables.
type Client struct {
	node   *model.Node
	sender Sender
	logger *slog.Logger
}

// NewClient creates a binding client for node.
func NewClient(node *model.Node, sender Sender, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		node:   node,
		sender: sender,
		logger: logger,
	}
}

// ClusterUpdate sends req to every target bound on localEP that matches the
// request's cluster. Failures for individual targets are joined.
func (c *Client) ClusterUpdate(ctx context.Context, localEP uint16, req Request) error {
	bc, err := c.node.GetCluster(localEP, clusters.BindingID)
	if err != nil {
		if errors.Is(err, model.ErrClusterNotFound) {
			return fmt.Errorf("endpoint %d: %w", localEP, ErrNoBindingCluster)
		}
		return fmt.Errorf("endpoint %d: %w", localEP, err)
	}

	var matched []clusters.BindingTarget
	for _, t := range clusters.Targets(bc) {
		if t.Matches(req.Cluster) {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("endpoint %d %s: %w", localEP, clusters.ClusterName(req.Cluster), ErrNotFound)
	}

	var errs []error
	for _, t := range matched {
		var sendErr error
		if t.IsGroup() {
			sendErr = c.sender.SendGroup(ctx, t.Group, req)
		} else {
			sendErr = c.sender.SendUnicast(ctx, t.Node, t.Endpoint, req)
		}
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, sendErr))
			continue
		}
		c.logger.Debug("binding request sent", "endpoint", localEP, "target", t.String(), "request", req.String())
	}
	return errors.Join(errs...)
}
