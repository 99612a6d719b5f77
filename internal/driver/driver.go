// Package driver provides the light and input drivers behind the device
// modules.
//
// The drivers here are simulated: an LED strip that keeps its color state
// in memory and renders pixels on request, and a button fed by the
// console or by level edges. They implement the same interfaces a
// hardware driver would.
package driver

import "errors"

// Driver errors.
var (
	ErrUnsupportedLEDType = errors.New("unsupported LED type")
	ErrInvalidLEDCount    = errors.New("invalid LED count")
	ErrUnknownPressKind   = errors.New("unknown press kind")
)

// HSV is a color in driver scale: hue in degrees, saturation and value
// 0-255.
type HSV struct {
	Hue        uint16
	Saturation uint8
	Value      uint8
}

// Light is the output surface the light modules drive.
type Light interface {
	SetPower(on bool) error
	SetBrightness(v uint8) error
	SetHue(hue uint16) error
	SetSaturation(sat uint8) error
	SetHSV(hsv HSV) error
	SetTemperature(kelvin uint32) error

	// Brightness returns the current brightness; zero when off.
	Brightness() uint8
	HSV() HSV
}

// PressKind distinguishes short from long presses.
type PressKind uint8

const (
	PressShort PressKind = iota
	PressLong
)

// String returns the press kind name.
func (k PressKind) String() string {
	switch k {
	case PressShort:
		return "short"
	case PressLong:
		return "long"
	default:
		return "unknown"
	}
}

// PressHandler is called once per debounced press.
type PressHandler func()

// Input is a button input.
type Input interface {
	RegisterPressCallback(kind PressKind, handler PressHandler) error
}
