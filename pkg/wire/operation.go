package wire

// Operation represents an interaction operation.
type Operation uint8

const (
	// OpRead gets an attribute value.
	OpRead Operation = 1

	// OpWrite sets an attribute value. Write access is enforced.
	OpWrite Operation = 2

	// OpInvoke executes a cluster command with fields.
	OpInvoke Operation = 3
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpInvoke:
		return "Invoke"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpRead && o <= OpInvoke
}
