package log

import "time"

// Logger receives protocol events.
// Pass NoopLogger to disable logging.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and must not
	// block; events are logged while the stack lock is held.
	Log(event Event)
}

// NoopLogger discards all events. It is usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}

// Stamped fills SessionID and NodeID on every event before passing it on.
type Stamped struct {
	next      Logger
	sessionID string
	nodeID    uint64
}

// NewStamped wraps next.
func NewStamped(next Logger, sessionID string, nodeID uint64) *Stamped {
	if next == nil {
		next = NoopLogger{}
	}
	return &Stamped{next: next, sessionID: sessionID, nodeID: nodeID}
}

// SessionID returns the session stamped on events.
func (s *Stamped) SessionID() string {
	return s.sessionID
}

// Log stamps and forwards the event.
func (s *Stamped) Log(event Event) {
	if event.SessionID == "" {
		event.SessionID = s.sessionID
	}
	if event.NodeID == 0 {
		event.NodeID = s.nodeID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.next.Log(event)
}

var _ Logger = (*Stamped)(nil)
