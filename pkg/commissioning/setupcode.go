package commissioning

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Setup code constants.
const (
	// SetupCodeLength is the number of digits in a setup code.
	SetupCodeLength = 8

	// SetupCodeMin and SetupCodeMax bound a usable setup code.
	SetupCodeMin = 1
	SetupCodeMax = 99999998

	// DiscriminatorMax is the maximum discriminator value (12 bits).
	DiscriminatorMax = 0xFFF

	// PayloadVersion is the QR payload version.
	PayloadVersion = 1
)

// Setup code errors.
var (
	ErrInvalidSetupCode   = errors.New("invalid setup code")
	ErrInvalidQRCode      = errors.New("invalid QR code format")
	ErrUnsupportedVersion = errors.New("unsupported payload version")
)

// SetupCode represents an 8-digit setup code.
type SetupCode uint32

var trivialSetupCodes = map[SetupCode]bool{
	0: true, 11111111: true, 22222222: true, 33333333: true, 44444444: true,
	55555555: true, 66666666: true, 77777777: true, 88888888: true, 99999999: true,
	12345678: true, 87654321: true,
}

// ParseSetupCode parses an 8-digit string into a SetupCode.
func ParseSetupCode(s string) (SetupCode, error) {
	s = strings.TrimSpace(s)
	if len(s) != SetupCodeLength {
		return 0, fmt.Errorf("%w: must be %d digits", ErrInvalidSetupCode, SetupCodeLength)
	}

	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSetupCode, err)
	}

	sc := SetupCode(n)
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	return sc, nil
}

// String returns the setup code as an 8-digit string with leading zeros.
func (sc SetupCode) String() string {
	return fmt.Sprintf("%08d", sc)
}

// IsTrivial reports whether the code is one of the guessable codes that
// must never be used.
func (sc SetupCode) IsTrivial() bool {
	return trivialSetupCodes[sc]
}

// Validate checks if the setup code is usable.
func (sc SetupCode) Validate() error {
	if sc.IsTrivial() {
		return fmt.Errorf("%w: %s is trivial", ErrInvalidSetupCode, sc)
	}
	if sc < SetupCodeMin || sc > SetupCodeMax {
		return fmt.Errorf("%w: out of range", ErrInvalidSetupCode)
	}
	return nil
}

// QRCodeData contains the data encoded in a setup QR code.
type QRCodeData struct {
	// Version is the payload version (currently 1).
	Version int

	// Discriminator is the 12-bit device discriminator for mDNS filtering.
	Discriminator uint16

	// SetupCode is the 8-digit setup code.
	SetupCode SetupCode

	// VendorID is the vendor identifier.
	VendorID uint16

	// ProductID is the product identifier.
	ProductID uint16
}

// NewQRCodeData builds the QR payload of an endpoint's credentials.
func NewQRCodeData(creds Credentials, vendorID, productID uint16) *QRCodeData {
	return &QRCodeData{
		Version:       PayloadVersion,
		Discriminator: creds.Discriminator,
		SetupCode:     creds.SetupCode,
		VendorID:      vendorID,
		ProductID:     productID,
	}
}

// qrCodeRegex matches the QR code format.
var qrCodeRegex = regexp.MustCompile(`^MASH:(\d+):(\d+):(\d{8}):(0x[0-9a-fA-F]+|[0-9]+):(0x[0-9a-fA-F]+|[0-9]+)$`)

// ParseQRCode parses a QR code string.
// Format: MASH:<version>:<discriminator>:<setupcode>:<vendorid>:<productid>
func ParseQRCode(data string) (*QRCodeData, error) {
	data = strings.TrimSpace(data)

	matches := qrCodeRegex.FindStringSubmatch(data)
	if matches == nil {
		return nil, fmt.Errorf("%w: expected MASH:<version>:<discriminator>:<setupcode>:<vendorid>:<productid>", ErrInvalidQRCode)
	}

	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid version: %v", ErrInvalidQRCode, err)
	}
	if version != PayloadVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, version)
	}

	discriminator, err := strconv.ParseUint(matches[2], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid discriminator: %v", ErrInvalidQRCode, err)
	}
	if discriminator > DiscriminatorMax {
		return nil, fmt.Errorf("%w: discriminator exceeds 12 bits", ErrInvalidQRCode)
	}

	setupCode, err := ParseSetupCode(matches[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQRCode, err)
	}

	// Vendor and product IDs may be hex or decimal.
	vendorID, err := parseID(matches[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid vendor ID: %v", ErrInvalidQRCode, err)
	}
	productID, err := parseID(matches[5])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product ID: %v", ErrInvalidQRCode, err)
	}

	return &QRCodeData{
		Version:       version,
		Discriminator: uint16(discriminator),
		SetupCode:     setupCode,
		VendorID:      uint16(vendorID),
		ProductID:     uint16(productID),
	}, nil
}

func parseID(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 16)
	}
	return strconv.ParseUint(s, 10, 16)
}

// String returns the QR code as a string.
func (q *QRCodeData) String() string {
	return fmt.Sprintf("MASH:%d:%d:%s:0x%04X:0x%04X",
		q.Version, q.Discriminator, q.SetupCode.String(), q.VendorID, q.ProductID)
}
