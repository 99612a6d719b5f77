package wire

import (
	"errors"
	"fmt"
)

// CBOR map keys for request encoding.
const (
	KeyMessageID  = 1
	KeyOperation  = 2
	KeySourceNode = 3
	KeyEndpoint   = 4
	KeyCluster    = 5
	KeyID         = 6
	KeyFields     = 7
	KeyValue      = 8
	KeyGroup      = 9
)

// Request validation errors.
var (
	ErrInvalidMessageID = errors.New("messageId 0 is reserved")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Request is sent by a client to read, write or invoke on a peer node.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32, never 0
//	  2: operation,    // uint8: 1=Read, 2=Write, 3=Invoke
//	  3: sourceNode,   // uint64
//	  4: endpoint,     // uint16
//	  5: cluster,      // uint32
//	  6: id,           // uint32 attribute or command ID
//	  7: fields,       // command fields (Invoke)
//	  8: value,        // attribute value (Write)
//	  9: group         // uint16, set for group-addressed invokes
//	}
type Request struct {
	MessageID  uint32         `cbor:"1,keyasint"`
	Operation  Operation      `cbor:"2,keyasint"`
	SourceNode uint64         `cbor:"3,keyasint,omitempty"`
	Endpoint   uint16         `cbor:"4,keyasint"`
	Cluster    uint32         `cbor:"5,keyasint"`
	ID         uint32         `cbor:"6,keyasint"`
	Fields     map[string]any `cbor:"7,keyasint,omitempty"`
	Value      any            `cbor:"8,keyasint,omitempty"`
	Group      uint16         `cbor:"9,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return ErrInvalidMessageID
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidOperation, r.Operation)
	}
	return nil
}

// String formats the request for logs.
func (r *Request) String() string {
	return fmt.Sprintf("%s #%d ep=%d cluster=0x%04X id=0x%02X",
		r.Operation, r.MessageID, r.Endpoint, r.Cluster, r.ID)
}

// Response answers a Request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint8
//	  3: value,        // read result
//	  4: fields,       // command response fields
//	  5: message       // human-readable error detail
//	}
type Response struct {
	MessageID uint32         `cbor:"1,keyasint"`
	Status    Status         `cbor:"2,keyasint"`
	Value     any            `cbor:"3,keyasint,omitempty"`
	Fields    map[string]any `cbor:"4,keyasint,omitempty"`
	Message   string         `cbor:"5,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Err converts a non-success response into an error wrapping StatusError.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &StatusError{Status: r.Status, Message: r.Message}
}

// StatusError is returned by clients for non-success responses.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "status " + e.Status.String()
	}
	return fmt.Sprintf("status %s: %s", e.Status, e.Message)
}
