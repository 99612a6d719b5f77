package discovery

import (
	"errors"
	"fmt"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeCommissionable is the service type for nodes in commissioning mode.
	ServiceTypeCommissionable = "_mashc._udp"

	// ServiceTypeOperational is the service type for running nodes.
	ServiceTypeOperational = "_mash._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default port.
	DefaultPort = 5540
)

// TXT record key constants.
const (
	// Commissionable TXT keys
	TXTKeyDiscriminator     = "D"  // Discriminator (0-4095)
	TXTKeyCommissioningMode = "CM" // Commissioning mode
	TXTKeyDeviceType        = "DT" // Primary device type ID
	TXTKeyDeviceName        = "DN" // Device name (optional)
	TXTKeyVendorProd        = "VP" // Vendor+Product ID

	// Operational TXT keys
	TXTKeyNodeID      = "NI" // Node ID (16 hex digits)
	TXTKeyEndpoints   = "EP" // Endpoint count (optional)
	TXTKeyTopicPrefix = "TP" // MQTT topic prefix (optional)
)

// Timing constants.
const (
	// CommissioningWindowDuration is how long commissioning mode stays open by default.
	CommissioningWindowDuration = 15 * time.Minute

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400

	// MaxDiscriminator is the maximum discriminator value (12 bits).
	MaxDiscriminator = 4095

	// MaxDeviceNameLen is the maximum DN value length.
	MaxDeviceNameLen = 32
)

// Discovery errors.
var (
	ErrInvalidDiscriminator = errors.New("discriminator out of range")
	ErrInvalidTXTRecord     = errors.New("invalid TXT record format")
	ErrMissingRequired      = errors.New("missing required field")
	ErrInstanceNameTooLong  = errors.New("instance name exceeds 63 characters")
	ErrTXTTooLarge          = errors.New("TXT records exceed size limit")
	ErrNotAdvertising       = errors.New("service not advertised")
)

// CommissioningMode is the CM TXT value.
type CommissioningMode uint8

const (
	// CommissioningModeClosed means the window is closed.
	CommissioningModeClosed CommissioningMode = 0

	// CommissioningModeBasic is the window opened at boot or on request.
	CommissioningModeBasic CommissioningMode = 1

	// CommissioningModeEnhanced is an administrator-opened window.
	CommissioningModeEnhanced CommissioningMode = 2
)

// String returns the mode name.
func (m CommissioningMode) String() string {
	switch m {
	case CommissioningModeClosed:
		return "CLOSED"
	case CommissioningModeBasic:
		return "BASIC"
	case CommissioningModeEnhanced:
		return "ENHANCED"
	default:
		return "UNKNOWN"
	}
}

// CommissionableInfo describes the commissionable advertisement.
type CommissionableInfo struct {
	Discriminator     uint16
	CommissioningMode CommissioningMode
	VendorID          uint16
	ProductID         uint16

	// DeviceType is the primary endpoint's device type ID.
	DeviceType uint32

	// DeviceName is optional and truncated to MaxDeviceNameLen.
	DeviceName string

	// Port defaults to DefaultPort.
	Port uint16
}

// InstanceName returns the commissionable instance name.
func (i *CommissionableInfo) InstanceName() string {
	return fmt.Sprintf("MASH-%04d", i.Discriminator)
}

// Validate checks the required fields.
func (i *CommissionableInfo) Validate() error {
	if i.Discriminator > MaxDiscriminator {
		return ErrInvalidDiscriminator
	}
	return nil
}

// OperationalInfo describes the operational advertisement.
type OperationalInfo struct {
	NodeID        uint64
	VendorID      uint16
	ProductID     uint16
	DeviceName    string
	EndpointCount uint8
	TopicPrefix   string
	Port          uint16
}

// InstanceName returns the operational instance name.
func (i *OperationalInfo) InstanceName() string {
	return fmt.Sprintf("%016X", i.NodeID)
}

// Validate checks the required fields.
func (i *OperationalInfo) Validate() error {
	if i.NodeID == 0 {
		return fmt.Errorf("%w: node ID", ErrMissingRequired)
	}
	return nil
}

// DiscoveryState represents the node's discovery state.
type DiscoveryState uint8

const (
	// StateUnregistered - nothing is advertised.
	StateUnregistered DiscoveryState = iota

	// StateOperational - only the operational service is advertised.
	StateOperational

	// StateCommissioningOpen - the commissioning window is open.
	StateCommissioningOpen
)

// String returns the state name.
func (s DiscoveryState) String() string {
	switch s {
	case StateUnregistered:
		return "UNREGISTERED"
	case StateOperational:
		return "OPERATIONAL"
	case StateCommissioningOpen:
		return "COMMISSIONING_OPEN"
	default:
		return "UNKNOWN"
	}
}
