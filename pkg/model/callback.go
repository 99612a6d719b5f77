package model

// UpdatePhase tells an AttributeCallback whether the value is about to be
// committed or already has been.
type UpdatePhase uint8

const (
	// PhasePreUpdate runs before the value is stored.
	PhasePreUpdate UpdatePhase = iota

	// PhasePostUpdate runs after the value is stored.
	PhasePostUpdate
)

// String returns the phase name.
func (p UpdatePhase) String() string {
	switch p {
	case PhasePreUpdate:
		return "PRE_UPDATE"
	case PhasePostUpdate:
		return "POST_UPDATE"
	default:
		return "UNKNOWN"
	}
}

// IdentifyKind is the identify callback event type.
type IdentifyKind uint8

const (
	// IdentifyStart begins an identify session.
	IdentifyStart IdentifyKind = iota

	// IdentifyStop ends an identify session.
	IdentifyStop

	// IdentifyEffect requests a one-shot effect (TriggerEffect command).
	IdentifyEffect
)

// String returns the identify kind name.
func (k IdentifyKind) String() string {
	switch k {
	case IdentifyStart:
		return "START"
	case IdentifyStop:
		return "STOP"
	case IdentifyEffect:
		return "EFFECT"
	default:
		return "UNKNOWN"
	}
}

// AttributeCallback receives every committed attribute change on a node.
type AttributeCallback interface {
	OnAttributeUpdate(phase UpdatePhase, path AttributePath, value any) error
}

// IdentifyCallback receives identify events raised by Identify clusters.
type IdentifyCallback interface {
	OnIdentify(kind IdentifyKind, endpoint uint16, effect uint8, variant uint8) error
}

// AttributeCallbackFunc adapts a function to AttributeCallback.
type AttributeCallbackFunc func(phase UpdatePhase, path AttributePath, value any) error

// OnAttributeUpdate calls f.
func (f AttributeCallbackFunc) OnAttributeUpdate(phase UpdatePhase, path AttributePath, value any) error {
	return f(phase, path, value)
}

// IdentifyCallbackFunc adapts a function to IdentifyCallback.
type IdentifyCallbackFunc func(kind IdentifyKind, endpoint uint16, effect uint8, variant uint8) error

// OnIdentify calls f.
func (f IdentifyCallbackFunc) OnIdentify(kind IdentifyKind, endpoint uint16, effect uint8, variant uint8) error {
	return f(kind, endpoint, effect, variant)
}
