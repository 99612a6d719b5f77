// Package log records endpoint activity as structured protocol events.
//
// This is separate from operational logging (slog). Protocol capture gives a
// complete machine-readable trace of what the endpoint did: messages sent
// and received, committed attribute updates, identify sessions and button
// presses.
//
// # Basic Usage
//
//	// During development: mirror events to the console
//	events := log.NewSlogAdapter(slog.Default())
//
//	// In production: append to a binary file
//	fl, _ := log.NewFileLogger("/var/lib/mash/endpoint.mlog")
//
//	// Both
//	events = log.NewMultiLogger(log.NewSlogAdapter(logger), fl)
//
// # Event Types
//
//   - Wire: decoded requests and responses (MessageEvent)
//   - Model: committed attribute updates (AttributeEvent), identify (IdentifyEvent)
//   - Input: button presses (ButtonEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .mlog extension.
// Reader iterates a file and applies a Filter.
package log
