package log

import (
	"time"

	"github.com/mash-protocol/mash-endpoint/pkg/wire"
)

// Event is one protocol log entry.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one run of the endpoint process (UUID).
	SessionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// NodeID is the local node.
	NodeID uint64 `cbor:"6,keyasint,omitempty"`

	// Endpoint is the local endpoint the event concerns.
	Endpoint uint16 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message   *MessageEvent   `cbor:"8,keyasint,omitempty"`
	Attribute *AttributeEvent `cbor:"9,keyasint,omitempty"`
	Identify  *IdentifyEvent  `cbor:"10,keyasint,omitempty"`
	Button    *ButtonEvent    `cbor:"11,keyasint,omitempty"`
	Error     *ErrorEventData `cbor:"12,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message or a local input.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerWire is the message layer (decoded CBOR).
	LayerWire Layer = 0
	// LayerModel is the data model (attribute commits, identify).
	LayerModel Layer = 1
	// LayerInput is the button input layer.
	LayerInput Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerWire:
		return "WIRE"
	case LayerModel:
		return "MODEL"
	case LayerInput:
		return "INPUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage   Category = 0
	CategoryAttribute Category = 1
	CategoryIdentify  Category = 2
	CategoryButton    Category = 3
	CategoryError     Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryAttribute:
		return "ATTRIBUTE"
	case CategoryIdentify:
		return "IDENTIFY"
	case CategoryButton:
		return "BUTTON"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MessageType distinguishes requests from responses.
type MessageType uint8

const (
	MessageTypeRequest  MessageType = 0
	MessageTypeResponse MessageType = 1
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent captures a decoded message.
type MessageEvent struct {
	Type      MessageType `cbor:"1,keyasint"`
	MessageID uint32      `cbor:"2,keyasint"`

	// Requests only.
	Operation *wire.Operation `cbor:"3,keyasint,omitempty"`
	Cluster   *uint32         `cbor:"4,keyasint,omitempty"`
	ID        *uint32         `cbor:"5,keyasint,omitempty"`

	// Responses only.
	Status *wire.Status `cbor:"6,keyasint,omitempty"`

	// Peer is the remote node; Group is set for group-addressed requests.
	Peer  uint64 `cbor:"7,keyasint,omitempty"`
	Group uint16 `cbor:"8,keyasint,omitempty"`

	// Fields holds command fields or the written value.
	Fields any `cbor:"9,keyasint,omitempty"`

	// ProcessingTime is the time from request receipt to response (responses only).
	ProcessingTime *time.Duration `cbor:"10,keyasint,omitempty"`
}

// AttributeEvent captures a committed attribute update.
type AttributeEvent struct {
	Cluster   uint32 `cbor:"1,keyasint"`
	Attribute uint32 `cbor:"2,keyasint"`
	Value     any    `cbor:"3,keyasint,omitempty"`
}

// IdentifyEvent captures an identify callback.
type IdentifyEvent struct {
	// Kind is START, STOP or EFFECT.
	Kind    string `cbor:"1,keyasint"`
	Effect  uint8  `cbor:"2,keyasint,omitempty"`
	Variant uint8  `cbor:"3,keyasint,omitempty"`
}

// ButtonEvent captures a debounced button press.
type ButtonEvent struct {
	Button string `cbor:"1,keyasint"`

	// Press is "short" or "long".
	Press string `cbor:"2,keyasint"`

	// Count is the short press counter after this press.
	Count int `cbor:"3,keyasint,omitempty"`

	// Action names what the press did, e.g. "remote toggle".
	Action string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// RequestEvent builds a wire-layer event for req.
func RequestEvent(dir Direction, nodeID uint64, peer uint64, req *wire.Request) Event {
	op := req.Operation
	cluster := req.Cluster
	id := req.ID
	msg := &MessageEvent{
		Type:      MessageTypeRequest,
		MessageID: req.MessageID,
		Operation: &op,
		Cluster:   &cluster,
		ID:        &id,
		Peer:      peer,
		Group:     req.Group,
	}
	switch {
	case req.Fields != nil:
		msg.Fields = req.Fields
	case req.Value != nil:
		msg.Fields = req.Value
	}
	return Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		NodeID:    nodeID,
		Endpoint:  req.Endpoint,
		Message:   msg,
	}
}

// ResponseEvent builds a wire-layer event for resp. A zero elapsed leaves
// ProcessingTime unset.
func ResponseEvent(dir Direction, nodeID uint64, peer uint64, resp *wire.Response, elapsed time.Duration) Event {
	status := resp.Status
	msg := &MessageEvent{
		Type:      MessageTypeResponse,
		MessageID: resp.MessageID,
		Status:    &status,
		Peer:      peer,
	}
	if elapsed > 0 {
		msg.ProcessingTime = &elapsed
	}
	return Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		NodeID:    nodeID,
		Message:   msg,
	}
}
