package wire

// Status represents a response status code. Values follow the interaction
// model status codes used by lighting devices.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0x00

	// StatusFailure is an unspecified failure.
	StatusFailure Status = 0x01

	// StatusUnsupportedEndpoint indicates the endpoint doesn't exist.
	StatusUnsupportedEndpoint Status = 0x7F

	// StatusUnsupportedCommand indicates the command doesn't exist.
	StatusUnsupportedCommand Status = 0x81

	// StatusInvalidCommand indicates malformed or missing command fields.
	StatusInvalidCommand Status = 0x85

	// StatusUnsupportedAttribute indicates the attribute doesn't exist.
	StatusUnsupportedAttribute Status = 0x86

	// StatusConstraintError indicates a value violates a constraint.
	StatusConstraintError Status = 0x87

	// StatusUnsupportedWrite indicates a write to a read-only attribute.
	StatusUnsupportedWrite Status = 0x88

	// StatusBusy indicates the node could not take the stack lock in time.
	StatusBusy Status = 0x9C

	// StatusUnsupportedCluster indicates the cluster doesn't exist on the endpoint.
	StatusUnsupportedCluster Status = 0xC3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusUnsupportedEndpoint:
		return "UNSUPPORTED_ENDPOINT"
	case StatusUnsupportedCommand:
		return "UNSUPPORTED_COMMAND"
	case StatusInvalidCommand:
		return "INVALID_COMMAND"
	case StatusUnsupportedAttribute:
		return "UNSUPPORTED_ATTRIBUTE"
	case StatusConstraintError:
		return "CONSTRAINT_ERROR"
	case StatusUnsupportedWrite:
		return "UNSUPPORTED_WRITE"
	case StatusBusy:
		return "BUSY"
	case StatusUnsupportedCluster:
		return "UNSUPPORTED_CLUSTER"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
