package discovery

import (
	"context"
	"net"
	"sync"
	"time"
)

// Advertiser provides mDNS service advertising capabilities.
type Advertiser interface {
	// AdvertiseCommissionable starts advertising a commissionable service.
	AdvertiseCommissionable(ctx context.Context, info *CommissionableInfo) error

	// StopCommissionable stops advertising the commissionable service.
	StopCommissionable() error

	// AdvertiseOperational starts advertising the operational service.
	AdvertiseOperational(ctx context.Context, info *OperationalInfo) error

	// UpdateOperational updates TXT records for the operational service.
	UpdateOperational(info *OperationalInfo) error

	// StopOperational stops advertising the operational service.
	StopOperational() error

	// StopAll stops all advertisements.
	StopAll()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interfaces restricts advertising to the named interfaces.
	// Empty means all interfaces.
	Interfaces []string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Register replaces zeroconf.Register. Set this in tests.
	Register RegisterFunc

	// InterfaceByName replaces net.InterfaceByName. Set this in tests.
	InterfaceByName func(name string) (*net.Interface, error)
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: DefaultTTL,
	}
}

func (c AdvertiserConfig) lookupInterface(name string) (*net.Interface, error) {
	if c.InterfaceByName != nil {
		return c.InterfaceByName(name)
	}
	return net.InterfaceByName(name)
}

// DiscoveryManager manages the node's discovery state machine.
type DiscoveryManager struct {
	mu sync.RWMutex

	state      DiscoveryState
	advertiser Advertiser

	commissionableInfo *CommissionableInfo
	operationalInfo    *OperationalInfo

	window             time.Duration
	commissioningTimer *time.Timer

	onStateChange func(old, new DiscoveryState)
}

// NewDiscoveryManager creates a new discovery manager.
func NewDiscoveryManager(advertiser Advertiser) *DiscoveryManager {
	return &DiscoveryManager{
		state:      StateUnregistered,
		advertiser: advertiser,
		window:     CommissioningWindowDuration,
	}
}

// State returns the current discovery state.
func (m *DiscoveryManager) State() DiscoveryState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// OnStateChange sets a callback for state changes. It runs with the
// manager lock held and must not call back into the manager.
func (m *DiscoveryManager) OnStateChange(fn func(old, new DiscoveryState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// SetCommissioningWindow sets how long the commissioning window stays open.
func (m *DiscoveryManager) SetCommissioningWindow(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.window = d
	}
}

// SetCommissionableInfo sets the node's commissionable information.
// This should be called before entering commissioning mode.
func (m *DiscoveryManager) SetCommissionableInfo(info *CommissionableInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissionableInfo = info
}

// StartOperational starts the operational advertisement.
func (m *DiscoveryManager) StartOperational(ctx context.Context, info *OperationalInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.advertiser.AdvertiseOperational(ctx, info); err != nil {
		return err
	}
	m.operationalInfo = info
	if m.state == StateUnregistered {
		m.setState(StateOperational)
	}
	return nil
}

// UpdateOperational refreshes the operational TXT records.
func (m *DiscoveryManager) UpdateOperational(info *OperationalInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.operationalInfo == nil {
		return ErrNotAdvertising
	}
	if err := m.advertiser.UpdateOperational(info); err != nil {
		return err
	}
	m.operationalInfo = info
	return nil
}

// EnterCommissioningMode starts advertising the commissionable service.
// The service is stopped automatically after the commissioning window expires.
func (m *DiscoveryManager) EnterCommissioningMode(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commissionableInfo == nil {
		return ErrMissingRequired
	}

	info := *m.commissionableInfo
	if info.CommissioningMode == CommissioningModeClosed {
		info.CommissioningMode = CommissioningModeBasic
	}
	if err := m.advertiser.AdvertiseCommissionable(ctx, &info); err != nil {
		return err
	}

	if m.commissioningTimer != nil {
		m.commissioningTimer.Stop()
	}
	m.commissioningTimer = time.AfterFunc(m.window, func() {
		_ = m.ExitCommissioningMode()
	})

	m.setState(StateCommissioningOpen)
	return nil
}

// ExitCommissioningMode stops advertising the commissionable service.
func (m *DiscoveryManager) ExitCommissioningMode() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commissioningTimer != nil {
		m.commissioningTimer.Stop()
		m.commissioningTimer = nil
	}

	if m.state != StateCommissioningOpen {
		return nil
	}

	if err := m.advertiser.StopCommissionable(); err != nil {
		return err
	}

	if m.operationalInfo != nil {
		m.setState(StateOperational)
	} else {
		m.setState(StateUnregistered)
	}
	return nil
}

// Stop stops all advertising.
func (m *DiscoveryManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commissioningTimer != nil {
		m.commissioningTimer.Stop()
		m.commissioningTimer = nil
	}

	m.advertiser.StopAll()
	m.operationalInfo = nil
	m.setState(StateUnregistered)
}

// setState must be called with m.mu held.
func (m *DiscoveryManager) setState(state DiscoveryState) {
	old := m.state
	m.state = state
	if m.onStateChange != nil && old != state {
		m.onStateChange(old, state)
	}
}
