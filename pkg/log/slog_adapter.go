package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.Endpoint != 0 {
		attrs = append(attrs, slog.Uint64("endpoint", uint64(event.Endpoint)))
	}

	switch {
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs,
			slog.Uint64("msg_id", uint64(m.MessageID)),
			slog.String("msg_type", m.Type.String()),
		)
		if m.Operation != nil {
			attrs = append(attrs, slog.String("operation", m.Operation.String()))
		}
		if m.Cluster != nil {
			attrs = append(attrs, slog.Uint64("cluster", uint64(*m.Cluster)))
		}
		if m.ID != nil {
			attrs = append(attrs, slog.Uint64("id", uint64(*m.ID)))
		}
		if m.Status != nil {
			attrs = append(attrs, slog.String("status", m.Status.String()))
		}
		if m.Peer != 0 {
			attrs = append(attrs, slog.Uint64("peer", m.Peer))
		}
		if m.Group != 0 {
			attrs = append(attrs, slog.Uint64("group", uint64(m.Group)))
		}
		if m.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
		}
	case event.Attribute != nil:
		attrs = append(attrs,
			slog.Uint64("cluster", uint64(event.Attribute.Cluster)),
			slog.Uint64("attribute", uint64(event.Attribute.Attribute)),
			slog.Any("value", event.Attribute.Value),
		)
	case event.Identify != nil:
		attrs = append(attrs, slog.String("kind", event.Identify.Kind))
		if event.Identify.Effect != 0 {
			attrs = append(attrs, slog.Int("effect", int(event.Identify.Effect)))
		}
	case event.Button != nil:
		attrs = append(attrs,
			slog.String("button", event.Button.Button),
			slog.String("press", event.Button.Press),
			slog.Int("count", event.Button.Count),
		)
		if event.Button.Action != "" {
			attrs = append(attrs, slog.String("action", event.Button.Action))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
