package driver

// Driver-side full scale values.
const (
	StandardBrightness = 255
	StandardHue        = 360
	StandardSaturation = 255

	// TemperatureFactor converts mireds to kelvin: K = 1e6 / mireds.
	TemperatureFactor = 1_000_000
)

// Protocol-side full scale values.
const (
	MatterBrightness = 254
	MatterHue        = 254
	MatterSaturation = 254
)

// RemapToRange scales x from [0, srcMax] to [0, dstMax]. x is clamped to
// the source range first and the result is truncated.
func RemapToRange(x, srcMax, dstMax int) int {
	if srcMax <= 0 {
		return 0
	}
	x = max(0, min(x, srcMax))
	return int(int64(x) * int64(dstMax) / int64(srcMax))
}

// MiredsToKelvin converts a color temperature in mireds to kelvin,
// rounded to the nearest integer. Zero mireds gives zero.
func MiredsToKelvin(mireds uint16) uint32 {
	if mireds == 0 {
		return 0
	}
	m := uint32(mireds)
	return (TemperatureFactor + m/2) / m
}

// BrightnessFromLevel maps a CurrentLevel (0-254) to driver brightness.
func BrightnessFromLevel(level uint8) uint8 {
	return uint8(RemapToRange(int(level), MatterBrightness, StandardBrightness))
}

// HueFromMatter maps CurrentHue (0-254) to degrees (0-360).
func HueFromMatter(hue uint8) uint16 {
	return uint16(RemapToRange(int(hue), MatterHue, StandardHue))
}

// SaturationFromMatter maps CurrentSaturation (0-254) to 0-255.
func SaturationFromMatter(sat uint8) uint8 {
	return uint8(RemapToRange(int(sat), MatterSaturation, StandardSaturation))
}
