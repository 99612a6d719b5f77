package interaction

import (
	"context"
	"io"
	"log/slog"

	"github.com/mash-protocol/mash-endpoint/pkg/binding"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// BindingSender delivers binding requests through a Client.
type BindingSender struct {
	client *Client
	logger *slog.Logger
}

// NewBindingSender creates a binding.Sender backed by client.
func NewBindingSender(client *Client, logger *slog.Logger) *BindingSender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BindingSender{client: client, logger: logger}
}

// SendUnicast sends req to (node, endpoint). The response is logged when
// it arrives.
func (s *BindingSender) SendUnicast(ctx context.Context, node uint64, endpoint uint16, req binding.Request) error {
	path := model.CommandPath{Endpoint: endpoint, Cluster: req.Cluster, Command: req.Command}
	return s.client.InvokeAsync(ctx, node, path, req.Fields, func(fields map[string]any, err error) {
		if err != nil {
			s.logger.Warn("bound command failed", "node", node, "path", path.String(), "error", err)
			return
		}
		s.logger.Debug("bound command acknowledged", "node", node, "path", path.String(), "fields", fields)
	})
}

// SendGroup sends req to a group.
func (s *BindingSender) SendGroup(ctx context.Context, group uint16, req binding.Request) error {
	return s.client.InvokeGroup(ctx, group, req.Cluster, req.Command, req.Fields)
}

var _ binding.Sender = (*BindingSender)(nil)
