package commissioning

import (
	"errors"
	"fmt"
	"strings"
)

// ManualCodeLength is the number of digits of a manual pairing code.
const ManualCodeLength = 11

// ErrInvalidManualCode is returned by ParseManualCode.
var ErrInvalidManualCode = errors.New("invalid manual pairing code")

// EncodeManualCode packs the upper four discriminator bits and the setup
// code into ten digits and appends the Verhoeff check digit.
func EncodeManualCode(discriminator uint16, code SetupCode) string {
	short := uint32(discriminator>>8) & 0xF
	chunk1 := short >> 2
	chunk2 := (short&0x3)<<14 | uint32(code)&0x3FFF
	chunk3 := uint32(code) >> 14

	digits := fmt.Sprintf("%01d%05d%04d", chunk1, chunk2, chunk3)
	return digits + string(rune('0'+verhoeffDigit(digits)))
}

// ParseManualCode decodes a manual pairing code into its short (4-bit)
// discriminator and setup code. Dashes and spaces are ignored.
func ParseManualCode(s string) (shortDiscriminator uint8, code SetupCode, err error) {
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(s) != ManualCodeLength {
		return 0, 0, fmt.Errorf("%w: must be %d digits", ErrInvalidManualCode, ManualCodeLength)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("%w: non-digit %q", ErrInvalidManualCode, r)
		}
	}
	if !verhoeffValid(s) {
		return 0, 0, fmt.Errorf("%w: check digit mismatch", ErrInvalidManualCode)
	}

	chunk1 := atoi(s[0:1])
	chunk2 := atoi(s[1:6])
	chunk3 := atoi(s[6:10])
	if chunk1 > 3 || chunk2 > 0xFFFF {
		return 0, 0, fmt.Errorf("%w: out of range", ErrInvalidManualCode)
	}

	shortDiscriminator = uint8(chunk1<<2 | chunk2>>14)
	code = SetupCode(chunk3<<14 | chunk2&0x3FFF)
	if err := code.Validate(); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidManualCode, err)
	}
	return shortDiscriminator, code, nil
}

func atoi(s string) uint32 {
	var n uint32
	for _, r := range s {
		n = n*10 + uint32(r-'0')
	}
	return n
}

var verhoeffD = [10][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

var verhoeffP = [8][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

var verhoeffInv = [10]uint8{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}

// verhoeffDigit computes the check digit of a decimal string.
func verhoeffDigit(digits string) uint8 {
	var c uint8
	for i := 0; i < len(digits); i++ {
		d := digits[len(digits)-1-i] - '0'
		c = verhoeffD[c][verhoeffP[(i+1)%8][d]]
	}
	return verhoeffInv[c]
}

func verhoeffValid(digits string) bool {
	var c uint8
	for i := 0; i < len(digits); i++ {
		d := digits[len(digits)-1-i] - '0'
		c = verhoeffD[c][verhoeffP[i%8][d]]
	}
	return c == 0
}
