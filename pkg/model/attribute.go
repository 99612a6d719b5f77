package model

import (
	"errors"
	"fmt"
	"sync"
)

// Global attribute IDs (present on all clusters).
const (
	// AttrIDClusterRevision is the cluster revision number.
	AttrIDClusterRevision uint32 = 0xFFFD

	// AttrIDFeatureMap is the cluster feature bitmap.
	AttrIDFeatureMap uint32 = 0xFFFC

	// AttrIDAttributeList is the list of supported attribute IDs.
	AttrIDAttributeList uint32 = 0xFFFB

	// AttrIDAcceptedCommandList is the list of accepted command IDs.
	AttrIDAcceptedCommandList uint32 = 0xFFF9

	// AttrIDGlobalBase is the start of the global attribute range.
	AttrIDGlobalBase uint32 = 0xF000
)

// Access flags for attributes.
type Access uint8

const (
	// AccessRead allows reading the attribute.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the attribute.
	AccessWrite

	// AccessSubscribe allows subscribing to changes.
	AccessSubscribe

	// AccessReadOnly is read and subscribe.
	AccessReadOnly = AccessRead | AccessSubscribe

	// AccessReadWrite is read, write, and subscribe.
	AccessReadWrite = AccessRead | AccessWrite | AccessSubscribe
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// CanSubscribe returns true if subscribing is allowed.
func (a Access) CanSubscribe() bool { return a&AccessSubscribe != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if a.CanSubscribe() {
		s += "S"
	}
	if s == "" {
		return "-"
	}
	return s
}

// DataType represents the type of an attribute value.
type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeBool
	DataTypeUint8
	DataTypeUint16
	DataTypeUint32
	DataTypeUint64
	DataTypeInt8
	DataTypeInt16
	DataTypeEnum8
	DataTypeBitmap8
	DataTypeBitmap32
	DataTypeString
	DataTypeArray
	DataTypeStruct
)

// String returns the data type name.
func (d DataType) String() string {
	names := []string{
		"unknown", "bool", "uint8", "uint16", "uint32", "uint64",
		"int8", "int16", "enum8", "bitmap8", "bitmap32",
		"string", "array", "struct",
	}
	if int(d) < len(names) {
		return names[d]
	}
	return "unknown"
}

// AttributeMetadata describes an attribute's properties.
type AttributeMetadata struct {
	// ID is the attribute identifier within the cluster.
	ID uint32

	// Name is the human-readable attribute name.
	Name string

	// Type is the data type of the attribute value.
	Type DataType

	// Access defines the allowed operations.
	Access Access

	// Nullable indicates if nil is a valid value.
	Nullable bool

	// NonVolatile marks attributes that survive a restart.
	NonVolatile bool

	// MinValue is the minimum allowed value (numeric types).
	MinValue any

	// MaxValue is the maximum allowed value (numeric types).
	MaxValue any

	// Default is the default value.
	Default any
}

// Attribute represents an attribute instance with its current value.
type Attribute struct {
	mu       sync.RWMutex
	metadata *AttributeMetadata
	value    any
	dirty    bool
}

// Attribute errors.
var (
	ErrAttributeNotWritable = errors.New("attribute is not writable")
	ErrAttributeNotNullable = errors.New("attribute does not accept null")
	ErrAttributeValueType   = errors.New("invalid value type for attribute")
	ErrAttributeOutOfRange  = errors.New("value out of range")
)

// NewAttribute creates a new attribute with the given metadata.
func NewAttribute(meta *AttributeMetadata) *Attribute {
	return &Attribute{
		metadata: meta,
		value:    meta.Default,
	}
}

// ID returns the attribute ID.
func (a *Attribute) ID() uint32 {
	return a.metadata.ID
}

// Metadata returns the attribute metadata.
func (a *Attribute) Metadata() *AttributeMetadata {
	return a.metadata
}

// Value returns the current attribute value.
func (a *Attribute) Value() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// SetValue sets the attribute value.
// Returns an error if the attribute is not writable or the value is invalid.
func (a *Attribute) SetValue(value any) error {
	if !a.metadata.Access.CanWrite() {
		return ErrAttributeNotWritable
	}
	return a.SetValueInternal(value)
}

// SetValueInternal sets the value without checking write access.
// Numeric values are normalized to the attribute's declared Go type.
func (a *Attribute) SetValueInternal(value any) error {
	value, err := a.validate(value)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Lists and structs are not comparable with != and always count as changed.
	switch a.metadata.Type {
	case DataTypeArray, DataTypeStruct, DataTypeUnknown:
		a.value = value
		a.dirty = true
	default:
		if a.value != value {
			a.value = value
			a.dirty = true
		}
	}
	return nil
}

// validate applies the nullable check and normalize. The result is what
// SetValueInternal would store.
func (a *Attribute) validate(value any) (any, error) {
	if value == nil {
		if !a.metadata.Nullable {
			return nil, ErrAttributeNotNullable
		}
		return nil, nil
	}
	return a.normalize(value)
}

// normalize checks the value against the declared type and range and
// converts integers to the canonical Go type for that data type.
func (a *Attribute) normalize(value any) (any, error) {
	switch a.metadata.Type {
	case DataTypeBool:
		if _, ok := value.(bool); !ok {
			return nil, fmt.Errorf("%w: expected bool", ErrAttributeValueType)
		}
		return value, nil
	case DataTypeString:
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("%w: expected string", ErrAttributeValueType)
		}
		return value, nil
	case DataTypeArray, DataTypeStruct, DataTypeUnknown:
		return value, nil
	}

	n, ok := ToInt64(value)
	if !ok {
		return nil, fmt.Errorf("%w: expected integer", ErrAttributeValueType)
	}
	if err := a.checkRange(n); err != nil {
		return nil, err
	}

	switch a.metadata.Type {
	case DataTypeUint8, DataTypeEnum8, DataTypeBitmap8:
		if n < 0 || n > 0xFF {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrAttributeOutOfRange, n, a.metadata.Type)
		}
		return uint8(n), nil
	case DataTypeUint16:
		if n < 0 || n > 0xFFFF {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrAttributeOutOfRange, n, a.metadata.Type)
		}
		return uint16(n), nil
	case DataTypeUint32, DataTypeBitmap32:
		if n < 0 || n > 0xFFFFFFFF {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrAttributeOutOfRange, n, a.metadata.Type)
		}
		return uint32(n), nil
	case DataTypeUint64:
		if n < 0 {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrAttributeOutOfRange, n, a.metadata.Type)
		}
		return uint64(n), nil
	case DataTypeInt8:
		if n < -128 || n > 127 {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrAttributeOutOfRange, n, a.metadata.Type)
		}
		return int8(n), nil
	case DataTypeInt16:
		if n < -32768 || n > 32767 {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrAttributeOutOfRange, n, a.metadata.Type)
		}
		return int16(n), nil
	}
	return value, nil
}

// checkRange validates numeric range constraints.
func (a *Attribute) checkRange(v int64) error {
	if a.metadata.MinValue != nil {
		min, _ := ToInt64(a.metadata.MinValue)
		if v < min {
			return fmt.Errorf("%w: %d < %v", ErrAttributeOutOfRange, v, a.metadata.MinValue)
		}
	}
	if a.metadata.MaxValue != nil {
		max, _ := ToInt64(a.metadata.MaxValue)
		if v > max {
			return fmt.Errorf("%w: %d > %v", ErrAttributeOutOfRange, v, a.metadata.MaxValue)
		}
	}
	return nil
}

// IsDirty returns true if the value changed since the last ClearDirty call.
func (a *Attribute) IsDirty() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dirty
}

// ClearDirty clears the dirty flag.
func (a *Attribute) ClearDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty = false
}

// ToInt64 converts any Go integer (and integral floats, as produced by JSON
// decoding) to int64.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case float32:
		if float32(int64(n)) != n {
			return 0, false
		}
		return int64(n), true
	case float64:
		if float64(int64(n)) != n {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
