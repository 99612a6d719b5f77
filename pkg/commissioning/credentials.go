package commissioning

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Fallback credentials, used when a derived value is reserved or no MAC
// address is available.
const (
	FallbackDiscriminator uint16    = 0xF00
	FallbackSetupCode     SetupCode = 20202021
)

// ErrInvalidMAC is returned for MAC addresses that are not 6 bytes long.
var ErrInvalidMAC = errors.New("invalid MAC address")

// Credentials are the commissioning credentials of a node.
type Credentials struct {
	Discriminator uint16
	SetupCode     SetupCode

	// MAC is the address the credentials were derived from, nil for the
	// fallback credentials.
	MAC net.HardwareAddr

	// DiscriminatorFallback and SetupCodeFallback report that the derived
	// value was reserved and replaced.
	DiscriminatorFallback bool
	SetupCodeFallback     bool
}

// DefaultCredentials returns the fallback credentials.
func DefaultCredentials() Credentials {
	return Credentials{
		Discriminator: FallbackDiscriminator,
		SetupCode:     FallbackSetupCode,
	}
}

// ParseMAC parses a MAC address in colon, dash or bare hex notation.
func ParseMAC(s string) (net.HardwareAddr, error) {
	s = strings.TrimSpace(s)
	var mac net.HardwareAddr
	if !strings.ContainsAny(s, ":-.") {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
		}
		mac = b
	} else {
		m, err := net.ParseMAC(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMAC, err)
		}
		mac = m
	}
	if len(mac) != 6 {
		return nil, fmt.Errorf("%w: want 6 bytes, got %d", ErrInvalidMAC, len(mac))
	}
	return mac, nil
}

// DeriveDiscriminator returns the low 12 bits of the last two MAC bytes.
// Reserved values yield FallbackDiscriminator and ok=false.
func DeriveDiscriminator(mac net.HardwareAddr) (disc uint16, ok bool) {
	if len(mac) < 6 {
		return FallbackDiscriminator, false
	}
	disc = (uint16(mac[4])<<8 | uint16(mac[5])) & DiscriminatorMax
	switch disc {
	case 0x000, 0xFFE, 0xFFF:
		return FallbackDiscriminator, false
	}
	return disc, true
}

// DeriveSetupCode maps the first four MAC bytes into 1..99999998.
// Trivial codes yield FallbackSetupCode and ok=false.
func DeriveSetupCode(mac net.HardwareAddr) (code SetupCode, ok bool) {
	if len(mac) < 4 {
		return FallbackSetupCode, false
	}
	base := binary.BigEndian.Uint32(mac[0:4])
	code = SetupCode(base%(SetupCodeMax) + 1)
	if code.IsTrivial() {
		return FallbackSetupCode, false
	}
	return code, true
}

// CredentialsFromMAC derives the credentials of a device from its MAC.
func CredentialsFromMAC(mac net.HardwareAddr) (Credentials, error) {
	if len(mac) != 6 {
		return DefaultCredentials(), fmt.Errorf("%w: want 6 bytes, got %d", ErrInvalidMAC, len(mac))
	}
	disc, discOK := DeriveDiscriminator(mac)
	code, codeOK := DeriveSetupCode(mac)
	return Credentials{
		Discriminator:         disc,
		SetupCode:             code,
		MAC:                   mac,
		DiscriminatorFallback: !discOK,
		SetupCodeFallback:     !codeOK,
	}, nil
}

// ManualCode returns the 11-digit manual pairing code.
func (c Credentials) ManualCode() string {
	return EncodeManualCode(c.Discriminator, c.SetupCode)
}

// String formats the credentials for logs.
func (c Credentials) String() string {
	return fmt.Sprintf("discriminator=%d setup_code=%s manual=%s", c.Discriminator, c.SetupCode, c.ManualCode())
}
