// Package commands implements the mash-log CLI commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mash-protocol/mash-endpoint/pkg/inspect"
	"github.com/mash-protocol/mash-endpoint/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	session := shortenSessionID(event.SessionID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Message != nil:
		typeLabel = event.Message.Type.String()
	case event.Attribute != nil:
		typeLabel = "Attribute"
	case event.Identify != nil:
		typeLabel = "Identify"
	case event.Button != nil:
		typeLabel = "Button"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	header := fmt.Sprintf("%s [session:%s] %-3s %s %s", ts, session, dir, event.Layer.String(), typeLabel)
	if event.Endpoint != 0 {
		header += fmt.Sprintf(" ep %d", event.Endpoint)
	}
	fmt.Fprintln(w, header)

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.Attribute != nil:
		formatAttributeDetails(w, event.Attribute)
	case event.Identify != nil:
		formatIdentifyDetails(w, event.Identify)
	case event.Button != nil:
		formatButtonDetails(w, event.Button)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatMessageDetails writes message-specific details.
func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  MessageID: %d\n", msg.MessageID)
	switch {
	case msg.Group != 0:
		fmt.Fprintf(w, "  Group: %d\n", msg.Group)
	case msg.Peer != 0:
		fmt.Fprintf(w, "  Peer: %016X\n", msg.Peer)
	}

	switch msg.Type {
	case log.MessageTypeRequest:
		if msg.Operation != nil {
			fmt.Fprintf(w, "  Operation: %s\n", msg.Operation.String())
		}
		if msg.Cluster != nil {
			fmt.Fprintf(w, "  Cluster: %s", inspect.GetClusterName(*msg.Cluster))
			if msg.ID != nil {
				fmt.Fprintf(w, "  ID: 0x%04X", *msg.ID)
			}
			fmt.Fprintln(w)
		}

	case log.MessageTypeResponse:
		if msg.Status != nil {
			fmt.Fprintf(w, "  Status: %s (%d)\n", msg.Status.String(), *msg.Status)
		}
		if msg.ProcessingTime != nil {
			fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*msg.ProcessingTime))
		}
	}

	if msg.Fields != nil {
		fieldsJSON, err := json.Marshal(msg.Fields)
		if err == nil {
			fmt.Fprintf(w, "  Fields: %s\n", string(fieldsJSON))
		}
	}
}

// formatAttributeDetails writes an attribute commit.
func formatAttributeDetails(w io.Writer, attr *log.AttributeEvent) {
	name := inspect.GetAttributeName(attr.Cluster, attr.Attribute)
	if name == "" {
		name = fmt.Sprintf("attr_0x%04X", attr.Attribute)
	}
	fmt.Fprintf(w, "  %s.%s = %s\n", inspect.GetClusterName(attr.Cluster), name, inspect.NewFormatter().FormatValue(attr.Value))
}

// formatIdentifyDetails writes an identify callback.
func formatIdentifyDetails(w io.Writer, id *log.IdentifyEvent) {
	fmt.Fprintf(w, "  Kind: %s\n", id.Kind)
	if id.Effect != 0 || id.Variant != 0 {
		fmt.Fprintf(w, "  Effect: %d  Variant: %d\n", id.Effect, id.Variant)
	}
}

// formatButtonDetails writes a button press.
func formatButtonDetails(w io.Writer, b *log.ButtonEvent) {
	fmt.Fprintf(w, "  Button: %s (%s press", b.Button, b.Press)
	if b.Count > 0 {
		fmt.Fprintf(w, ", count %d", b.Count)
	}
	fmt.Fprintln(w, ")")
	if b.Action != "" {
		fmt.Fprintf(w, "  Action: %s\n", b.Action)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "wire":
		return log.LayerWire, nil
	case "model":
		return log.LayerModel, nil
	case "input":
		return log.LayerInput, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be wire, model, or input)", s)
	}
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "attribute":
		return log.CategoryAttribute, nil
	case "identify":
		return log.CategoryIdentify, nil
	case "button":
		return log.CategoryButton, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, attribute, identify, button, or error)", s)
	}
}

// RunView writes the events of the log file that match filter to w. A
// positive tail keeps only the last tail matches.
func RunView(path string, filter log.Filter, tail int, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	if tail > 0 {
		events, err := reader.Tail(tail)
		for _, event := range events {
			formatEvent(w, event)
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		return nil
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}
