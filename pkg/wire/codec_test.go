package wire

import (
	"errors"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "read request",
			req: Request{
				MessageID: 1,
				Operation: OpRead,
				Endpoint:  1,
				Cluster:   0x0006,
				ID:        0x0000,
			},
		},
		{
			name: "write request",
			req: Request{
				MessageID:  2,
				Operation:  OpWrite,
				SourceNode: 0x1122,
				Endpoint:   1,
				Cluster:    0x0003,
				ID:         0x0000,
				Value:      uint64(10),
			},
		},
		{
			name: "invoke request",
			req: Request{
				MessageID: 3,
				Operation: OpInvoke,
				Endpoint:  2,
				Cluster:   0x0003,
				ID:        0x00,
				Fields:    map[string]any{"identifyTime": uint64(10)},
			},
		},
		{
			name: "group invoke",
			req: Request{
				MessageID: 4,
				Operation: OpInvoke,
				Group:     7,
				Cluster:   0x0006,
				ID:        0x02,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeRequest(&tt.req)
			if err != nil {
				t.Fatalf("EncodeRequest failed: %v", err)
			}

			decoded, err := DecodeRequest(data)
			if err != nil {
				t.Fatalf("DecodeRequest failed: %v", err)
			}

			if decoded.MessageID != tt.req.MessageID {
				t.Errorf("MessageID: got %d, want %d", decoded.MessageID, tt.req.MessageID)
			}
			if decoded.Operation != tt.req.Operation {
				t.Errorf("Operation: got %v, want %v", decoded.Operation, tt.req.Operation)
			}
			if decoded.Endpoint != tt.req.Endpoint || decoded.Cluster != tt.req.Cluster || decoded.ID != tt.req.ID {
				t.Errorf("path: got %s, want %s", decoded, &tt.req)
			}
			if decoded.Group != tt.req.Group {
				t.Errorf("Group: got %d, want %d", decoded.Group, tt.req.Group)
			}
			if !Equal(decoded.Fields, tt.req.Fields) {
				t.Errorf("Fields: got %v, want %v", decoded.Fields, tt.req.Fields)
			}
			if !Equal(decoded.Value, tt.req.Value) {
				t.Errorf("Value: got %v, want %v", decoded.Value, tt.req.Value)
			}
		})
	}
}

func TestRequestValidation(t *testing.T) {
	_, err := EncodeRequest(&Request{MessageID: 0, Operation: OpRead})
	if !errors.Is(err, ErrInvalidMessageID) {
		t.Errorf("expected ErrInvalidMessageID, got %v", err)
	}

	_, err = EncodeRequest(&Request{MessageID: 1, Operation: 9})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation, got %v", err)
	}

	data, err := Marshal(&Request{MessageID: 1, Operation: 0})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, err := DecodeRequest(data); err == nil {
		t.Error("expected decode of invalid operation to fail")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &Response{
		MessageID: 5,
		Status:    StatusSuccess,
		Value:     true,
		Fields:    map[string]any{"status": uint64(0)},
	}

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	decoded, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if decoded.MessageID != 5 || !decoded.IsSuccess() {
		t.Errorf("got %+v", decoded)
	}
	if decoded.Value != true {
		t.Errorf("Value: got %v, want true", decoded.Value)
	}
	if decoded.Err() != nil {
		t.Errorf("Err: got %v, want nil", decoded.Err())
	}
}

func TestResponseErr(t *testing.T) {
	resp := &Response{MessageID: 1, Status: StatusUnsupportedCluster, Message: "no such cluster"}

	err := resp.Err()
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if se.Status != StatusUnsupportedCluster {
		t.Errorf("Status: got %v", se.Status)
	}
	if err.Error() != "status UNSUPPORTED_CLUSTER: no such cluster" {
		t.Errorf("Error(): got %q", err.Error())
	}
}

func TestDeterministicEncoding(t *testing.T) {
	req := &Request{
		MessageID: 9,
		Operation: OpInvoke,
		Endpoint:  1,
		Cluster:   0x0008,
		ID:        0x04,
		Fields:    map[string]any{"level": uint64(128), "transitionTime": uint64(0), "optionsMask": uint64(0)},
	}

	first, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := EncodeRequest(req)
		if string(again) != string(first) {
			t.Fatal("encoding is not deterministic")
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "SUCCESS"},
		{StatusFailure, "FAILURE"},
		{StatusUnsupportedEndpoint, "UNSUPPORTED_ENDPOINT"},
		{StatusUnsupportedCluster, "UNSUPPORTED_CLUSTER"},
		{StatusUnsupportedAttribute, "UNSUPPORTED_ATTRIBUTE"},
		{StatusUnsupportedCommand, "UNSUPPORTED_COMMAND"},
		{StatusConstraintError, "CONSTRAINT_ERROR"},
		{StatusUnsupportedWrite, "UNSUPPORTED_WRITE"},
		{StatusBusy, "BUSY"},
		{StatusInvalidCommand, "INVALID_COMMAND"},
		{Status(0x42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(0x%02X).String() = %q, want %q", uint8(tt.status), got, tt.want)
		}
	}
}

func TestOperationString(t *testing.T) {
	if OpInvoke.String() != "Invoke" || Operation(7).String() != "Unknown" {
		t.Error("unexpected operation names")
	}
	if Operation(0).IsValid() || !OpWrite.IsValid() {
		t.Error("unexpected operation validity")
	}
}
