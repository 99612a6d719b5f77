package wire

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Request and Response travel as keyasint CBOR maps. Encoding is canonical:
// the same invoke always produces the same bytes. Decoding skips unknown
// keys.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: decoder mode: %v", err))
	}
}

// Marshal encodes v with the message encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v with the message decoding. Command fields
// decode as map[string]any with uint64/int64 integers.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeRequest validates a Read, Write or Invoke request and encodes it
// for publishing.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes an inbound request and rejects it when the
// operation or the path is unusable.
func DecodeRequest(data []byte) (*Request, error) {
	req := new(Request)
	if err := Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

// EncodeResponse encodes the answer to a unicast request.
func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(resp)
}

// DecodeResponse decodes a response. Matching it to the pending request by
// MessageID is up to the caller.
func DecodeResponse(data []byte) (*Response, error) {
	resp := new(Response)
	if err := Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

// Equal reports whether a and b encode to the same bytes. Tests use it to
// compare decoded fields, whose integer types differ from the sent ones.
func Equal(a, b any) bool {
	dataA, errA := Marshal(a)
	dataB, errB := Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(dataA, dataB)
}
