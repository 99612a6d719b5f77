package commissioning

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetupCode(t *testing.T) {
	tests := []struct {
		input   string
		want    SetupCode
		wantErr bool
	}{
		{"00000001", 1, false},
		{"20202021", 20202021, false},
		{"99999998", 99999998, false},
		{"  34567890  ", 34567890, false}, // with whitespace

		// Invalid cases
		{"00000000", 0, true},  // trivial
		{"12345678", 0, true},  // trivial
		{"87654321", 0, true},  // trivial
		{"55555555", 0, true},  // trivial
		{"99999999", 0, true},  // trivial
		{"1234567", 0, true},   // too short
		{"123456789", 0, true}, // too long
		{"", 0, true},          // empty
		{"1234567a", 0, true},  // non-numeric
		{"-1234567", 0, true},  // negative
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSetupCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSetupCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSetupCode(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetupCodeString(t *testing.T) {
	tests := []struct {
		code SetupCode
		want string
	}{
		{1, "00000001"},
		{20202021, "20202021"},
		{99999998, "99999998"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("SetupCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestParseMAC(t *testing.T) {
	want := net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for _, in := range []string{"AA:BB:CC:DD:EE:FF", "aa-bb-cc-dd-ee-ff", "AABBCCDDEEFF", " aabbccddeeff "} {
		t.Run(in, func(t *testing.T) {
			got, err := ParseMAC(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	for _, in := range []string{"", "AABBCC", "zz:bb:cc:dd:ee:ff", "00:11:22:33:44:55:66:77"} {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := ParseMAC(in)
			assert.ErrorIs(t, err, ErrInvalidMAC)
		})
	}
}

func TestCredentialsFromMAC(t *testing.T) {
	tests := []struct {
		name         string
		mac          string
		disc         uint16
		code         SetupCode
		discFallback bool
		codeFallback bool
	}{
		{
			name: "derived",
			mac:  "AA:BB:CC:DD:EE:FF",
			disc: 0xEFF,
			code: 64434454,
		},
		{
			name:         "reserved discriminator",
			mac:          "00:00:00:00:0F:FF",
			disc:         FallbackDiscriminator,
			code:         1,
			discFallback: true,
		},
		{
			name:         "zero discriminator",
			mac:          "01:02:03:04:F0:00",
			disc:         FallbackDiscriminator,
			code:         SetupCode(0x01020304%99999998 + 1),
			discFallback: true,
		},
		{
			name:         "trivial setup code",
			mac:          "00:A9:8A:C6:12:34",
			disc:         0x234,
			code:         FallbackSetupCode,
			codeFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mac, err := ParseMAC(tt.mac)
			require.NoError(t, err)

			creds, err := CredentialsFromMAC(mac)
			require.NoError(t, err)
			assert.Equal(t, tt.disc, creds.Discriminator)
			assert.Equal(t, tt.code, creds.SetupCode)
			assert.Equal(t, tt.discFallback, creds.DiscriminatorFallback)
			assert.Equal(t, tt.codeFallback, creds.SetupCodeFallback)
			assert.NoError(t, creds.SetupCode.Validate())
		})
	}

	t.Run("short MAC", func(t *testing.T) {
		creds, err := CredentialsFromMAC(net.HardwareAddr{1, 2, 3})
		assert.ErrorIs(t, err, ErrInvalidMAC)
		assert.Equal(t, DefaultCredentials(), creds)
	})
}

func TestManualCode(t *testing.T) {
	code := EncodeManualCode(FallbackDiscriminator, FallbackSetupCode)
	assert.Equal(t, "34970112332", code)
	assert.Equal(t, code, DefaultCredentials().ManualCode())

	short, sc, err := ParseManualCode("3497-011-2332")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xF), short)
	assert.Equal(t, FallbackSetupCode, sc)

	t.Run("round trip", func(t *testing.T) {
		for _, c := range []struct {
			disc uint16
			code SetupCode
		}{{0x000, 1}, {0x123, 64434454}, {0xEFF, 99999998}, {0x800, 34567890}} {
			short, sc, err := ParseManualCode(EncodeManualCode(c.disc, c.code))
			require.NoError(t, err)
			assert.Equal(t, uint8(c.disc>>8), short)
			assert.Equal(t, c.code, sc)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{"", "3497011233", "34970112333", "3497011233x"} {
			_, _, err := ParseManualCode(in)
			assert.True(t, errors.Is(err, ErrInvalidManualCode), "input %q: %v", in, err)
		}
	})
}

func TestVerhoeff(t *testing.T) {
	assert.Equal(t, uint8(3), verhoeffDigit("236"))
	assert.True(t, verhoeffValid("2363"))
	assert.False(t, verhoeffValid("2364"))
}

func TestQRCode(t *testing.T) {
	creds := Credentials{Discriminator: 1234, SetupCode: 34567890}
	qr := NewQRCodeData(creds, 0xFFF1, 0x8000)
	s := qr.String()
	assert.Equal(t, "MASH:1:1234:34567890:0xFFF1:0x8000", s)

	parsed, err := ParseQRCode(s)
	require.NoError(t, err)
	assert.Equal(t, qr, parsed)

	parsed, err = ParseQRCode("MASH:1:1234:34567890:65521:32768")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFF1), parsed.VendorID)

	tests := []struct {
		in  string
		err error
	}{
		{"MASH:2:1234:34567890:0x1:0x2", ErrUnsupportedVersion},
		{"MASH:1:4096:34567890:0x1:0x2", ErrInvalidQRCode},
		{"MASH:1:1234:12345678:0x1:0x2", ErrInvalidQRCode},
		{"MASH:1:1234:3456789:0x1:0x2", ErrInvalidQRCode},
		{"MASH:1:1234:34567890:0x10000:0x2", ErrInvalidQRCode},
		{"MT:Y.K9042C00KA0648G00", ErrInvalidQRCode},
	}
	for _, tt := range tests {
		_, err := ParseQRCode(tt.in)
		assert.ErrorIs(t, err, tt.err, tt.in)
	}
}
