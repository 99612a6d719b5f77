package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// Server is a registered mDNS service.
type Server interface {
	SetText(txt []string)
	Shutdown()
}

// RegisterFunc registers a service. It matches zeroconf.Register apart
// from the returned type.
type RegisterFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (Server, error)

func zeroconfRegister(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (Server, error) {
	server, err := zeroconf.Register(instance, service, domain, port, txt, ifaces, opts...)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config   AdvertiserConfig
	register RegisterFunc

	mu sync.Mutex

	commissionableServer Server
	operationalServer    Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	register := config.Register
	if register == nil {
		register = zeroconfRegister
	}
	return &MDNSAdvertiser{
		config:   config,
		register: register,
	}, nil
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() ([]net.Interface, error) {
	if len(a.config.Interfaces) == 0 {
		return nil, nil
	}

	ifaces := make([]net.Interface, 0, len(a.config.Interfaces))
	for _, name := range a.config.Interfaces {
		iface, err := a.config.lookupInterface(name)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", name, err)
		}
		ifaces = append(ifaces, *iface)
	}
	return ifaces, nil
}

func (a *MDNSAdvertiser) start(instance, service string, port uint16, txt TXTRecordMap) (Server, error) {
	if err := ValidateInstanceName(instance); err != nil {
		return nil, err
	}
	txtStrings := TXTRecordsToStrings(txt)
	if err := ValidateTXTSize(txtStrings); err != nil {
		return nil, err
	}

	p := int(port)
	if p == 0 {
		p = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	// nil means all interfaces
	ifaces, err := a.getInterfaces()
	if err != nil {
		return nil, err
	}

	return a.register(instance, service, Domain, p, txtStrings, ifaces, opts...)
}

// AdvertiseCommissionable starts advertising a commissionable service,
// replacing any previous commissionable advertisement.
func (a *MDNSAdvertiser) AdvertiseCommissionable(ctx context.Context, info *CommissionableInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.commissionableServer != nil {
		a.commissionableServer.Shutdown()
		a.commissionableServer = nil
	}

	server, err := a.start(info.InstanceName(), ServiceTypeCommissionable, info.Port, EncodeCommissionableTXT(info))
	if err != nil {
		return fmt.Errorf("failed to register commissionable service: %w", err)
	}

	a.commissionableServer = server
	return nil
}

// StopCommissionable stops advertising the commissionable service.
func (a *MDNSAdvertiser) StopCommissionable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.commissionableServer != nil {
		a.commissionableServer.Shutdown()
		a.commissionableServer = nil
	}
	return nil
}

// AdvertiseOperational starts advertising the operational service.
func (a *MDNSAdvertiser) AdvertiseOperational(ctx context.Context, info *OperationalInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.operationalServer != nil {
		a.operationalServer.Shutdown()
		a.operationalServer = nil
	}

	server, err := a.start(info.InstanceName(), ServiceTypeOperational, info.Port, EncodeOperationalTXT(info))
	if err != nil {
		return fmt.Errorf("failed to register operational service: %w", err)
	}

	a.operationalServer = server
	return nil
}

// UpdateOperational updates TXT records of the operational service.
func (a *MDNSAdvertiser) UpdateOperational(info *OperationalInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.operationalServer == nil {
		return ErrNotAdvertising
	}

	txtStrings := TXTRecordsToStrings(EncodeOperationalTXT(info))
	if err := ValidateTXTSize(txtStrings); err != nil {
		return err
	}
	a.operationalServer.SetText(txtStrings)
	return nil
}

// StopOperational stops advertising the operational service.
func (a *MDNSAdvertiser) StopOperational() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.operationalServer == nil {
		return ErrNotAdvertising
	}
	a.operationalServer.Shutdown()
	a.operationalServer = nil
	return nil
}

// StopAll stops all advertisements.
func (a *MDNSAdvertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.commissionableServer != nil {
		a.commissionableServer.Shutdown()
		a.commissionableServer = nil
	}
	if a.operationalServer != nil {
		a.operationalServer.Shutdown()
		a.operationalServer = nil
	}
}
