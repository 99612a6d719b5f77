// Package persistence stores the node state that must survive a restart:
// non-volatile attribute values, binding tables and group tables.
//
// State is a single JSON document written by NodeStateStore. Capture builds
// it from a live node and Apply pushes it back after the endpoints are
// built. Flusher saves the state periodically when it changes, and Clear
// erases it for a factory reset.
package persistence
