package driver

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
)

// LEDModel is the LED chip family.
type LEDModel uint8

const (
	LEDModelWS2812 LEDModel = iota
	LEDModelSK6812
)

// PixelFormat is the byte order sent to the strip.
type PixelFormat uint8

const (
	PixelFormatGRB PixelFormat = iota
	PixelFormatGRBW
)

// StripConfig configures a simulated LED strip.
type StripConfig struct {
	LEDCount int
	GPIO     int
	Type     string
}

// ResolveLEDType maps a configured LED type to model and pixel format.
func ResolveLEDType(t string) (LEDModel, PixelFormat, error) {
	switch strings.ToLower(t) {
	case "", "ws2812":
		return LEDModelWS2812, PixelFormatGRB, nil
	case "sk6812":
		return LEDModelSK6812, PixelFormatGRB, nil
	case "sk6812w", "sk6812_rgbw":
		return LEDModelSK6812, PixelFormatGRBW, nil
	case "rgbw":
		return LEDModelWS2812, PixelFormatGRBW, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedLEDType, t)
}

// Pixel is one rendered LED. W is only used by GRBW strips.
type Pixel struct {
	R, G, B, W uint8
}

// StripState is a snapshot of a strip.
type StripState struct {
	On          bool
	HSV         HSV
	Kelvin      uint32
	Temperature bool
}

// Strip is a simulated addressable LED strip.
type Strip struct {
	cfg    StripConfig
	model  LEDModel
	format PixelFormat
	logger *slog.Logger

	mu       sync.Mutex
	state    StripState
	onChange func(StripState)
}

var _ Light = (*Strip)(nil)

// NewStrip creates a strip. A zero LED count is allowed; state is tracked
// but nothing is rendered.
func NewStrip(cfg StripConfig, logger *slog.Logger) (*Strip, error) {
	if cfg.LEDCount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLEDCount, cfg.LEDCount)
	}
	model, format, err := ResolveLEDType(cfg.Type)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Strip{
		cfg:    cfg,
		model:  model,
		format: format,
		logger: logger,
	}, nil
}

// Model returns the LED model.
func (s *Strip) Model() LEDModel { return s.model }

// Format returns the pixel format.
func (s *Strip) Format() PixelFormat { return s.format }

// LEDCount returns the number of LEDs.
func (s *Strip) LEDCount() int { return s.cfg.LEDCount }

// OnChange registers a function called after every state change.
func (s *Strip) OnChange(fn func(StripState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Strip) update(what string, fn func(st *StripState)) error {
	s.mu.Lock()
	fn(&s.state)
	st := s.state
	cb := s.onChange
	s.mu.Unlock()

	if s.cfg.LEDCount == 0 {
		s.logger.Debug("LED "+what+" (LED count is 0, visual update skipped)", "state", st.String())
	} else {
		s.logger.Debug("LED "+what, "state", st.String())
	}
	if cb != nil {
		cb(st)
	}
	return nil
}

// SetPower turns the strip on or off without touching the color.
func (s *Strip) SetPower(on bool) error {
	return s.update("set power", func(st *StripState) { st.On = on })
}

// SetBrightness sets the value channel. A non-zero brightness turns the
// strip on.
func (s *Strip) SetBrightness(v uint8) error {
	return s.update("set brightness", func(st *StripState) {
		st.HSV.Value = v
		if v > 0 {
			st.On = true
		}
	})
}

// SetHue sets the hue in degrees, keeping saturation and value.
func (s *Strip) SetHue(hue uint16) error {
	return s.update("set hue", func(st *StripState) {
		st.HSV.Hue = hue % 361
		st.Temperature = false
	})
}

// SetSaturation sets the saturation, keeping hue and value.
func (s *Strip) SetSaturation(sat uint8) error {
	return s.update("set saturation", func(st *StripState) {
		st.HSV.Saturation = sat
		st.Temperature = false
	})
}

// SetHSV replaces the whole color.
func (s *Strip) SetHSV(hsv HSV) error {
	return s.update("set hsv", func(st *StripState) {
		st.HSV = hsv
		st.Temperature = false
	})
}

// SetTemperature switches to white at the given color temperature.
func (s *Strip) SetTemperature(kelvin uint32) error {
	return s.update("set temperature", func(st *StripState) {
		st.Kelvin = kelvin
		st.Temperature = true
	})
}

// Brightness returns the value channel, or zero when off.
func (s *Strip) Brightness() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.On {
		return 0
	}
	return s.state.HSV.Value
}

// HSV returns the current color.
func (s *Strip) HSV() HSV {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HSV
}

// State returns a snapshot of the strip.
func (s *Strip) State() StripState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pixels renders the strip. Every LED shows the same color.
func (s *Strip) Pixels() []Pixel {
	st := s.State()
	var p Pixel
	if st.On {
		if st.Temperature {
			p = kelvinToPixel(st.Kelvin, st.HSV.Value)
		} else {
			r, g, b := HSVToRGB(st.HSV)
			p = Pixel{R: r, G: g, B: b}
		}
		if s.format == PixelFormatGRBW {
			w := min(p.R, p.G, p.B)
			p = Pixel{R: p.R - w, G: p.G - w, B: p.B - w, W: w}
		}
	}
	out := make([]Pixel, s.cfg.LEDCount)
	for i := range out {
		out[i] = p
	}
	return out
}

// String formats the state for logs and the console.
func (st StripState) String() string {
	power := "off"
	if st.On {
		power = "on"
	}
	if st.Temperature {
		return fmt.Sprintf("%s %dK v=%d", power, st.Kelvin, st.HSV.Value)
	}
	return fmt.Sprintf("%s h=%d s=%d v=%d", power, st.HSV.Hue, st.HSV.Saturation, st.HSV.Value)
}

// HSVToRGB converts a driver-scale color to RGB.
func HSVToRGB(c HSV) (r, g, b uint8) {
	h := float64(c.Hue%360) / 60
	s := float64(c.Saturation) / 255
	v := float64(c.Value) / 255

	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var rf, gf, bf float64
	switch int(i) {
	case 0:
		rf, gf, bf = v, t, p
	case 1:
		rf, gf, bf = q, v, p
	case 2:
		rf, gf, bf = p, v, t
	case 3:
		rf, gf, bf = p, q, v
	case 4:
		rf, gf, bf = t, p, v
	default:
		rf, gf, bf = v, p, q
	}
	return uint8(math.Round(rf * 255)), uint8(math.Round(gf * 255)), uint8(math.Round(bf * 255))
}

// kelvinToPixel approximates a black body color, scaled by value.
func kelvinToPixel(kelvin uint32, value uint8) Pixel {
	t := float64(max(kelvin, 1000)) / 100
	var r, g, b float64
	if t <= 66 {
		r = 255
		g = 99.4708025861*math.Log(t) - 161.1195681661
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592)
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492)
	}
	switch {
	case t >= 66:
		b = 255
	case t <= 19:
		b = 0
	default:
		b = 138.5177312231*math.Log(t-10) - 305.0447927307
	}
	scale := float64(value) / 255
	ch := func(x float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(255, x)) * scale))
	}
	return Pixel{R: ch(r), G: ch(g), B: ch(b)}
}
