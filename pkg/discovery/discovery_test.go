package discovery_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-endpoint/pkg/discovery"
)

type fakeServer struct {
	mu       sync.Mutex
	text     []string
	shutdown bool
}

func (s *fakeServer) SetText(txt []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = txt
}

func (s *fakeServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

type registration struct {
	instance string
	service  string
	domain   string
	port     int
	ifaces   []net.Interface
	server   *fakeServer
}

type fakeRegistry struct {
	mu   sync.Mutex
	regs []*registration
	err  error
}

func (r *fakeRegistry) register(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (discovery.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	reg := &registration{
		instance: instance, service: service, domain: domain, port: port, ifaces: ifaces,
		server: &fakeServer{text: txt},
	}
	r.regs = append(r.regs, reg)
	return reg.server, nil
}

func (r *fakeRegistry) last() *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.regs) == 0 {
		return nil
	}
	return r.regs[len(r.regs)-1]
}

func testAdvertiser(t *testing.T) (*discovery.MDNSAdvertiser, *fakeRegistry) {
	t.Helper()
	reg := &fakeRegistry{}
	cfg := discovery.DefaultAdvertiserConfig()
	cfg.Register = reg.register
	adv, err := discovery.NewMDNSAdvertiser(cfg)
	require.NoError(t, err)
	return adv, reg
}

func TestCommissionableTXT(t *testing.T) {
	info := &discovery.CommissionableInfo{
		Discriminator:     3840,
		CommissioningMode: discovery.CommissioningModeBasic,
		VendorID:          0xFFF1,
		ProductID:         0x8000,
		DeviceType:        0x010D,
		DeviceName:        "Kitchen Light",
	}

	txt := discovery.EncodeCommissionableTXT(info)
	assert.Equal(t, "3840", txt[discovery.TXTKeyDiscriminator])
	assert.Equal(t, "1", txt[discovery.TXTKeyCommissioningMode])
	assert.Equal(t, "65521+32768", txt[discovery.TXTKeyVendorProd])
	assert.Equal(t, "269", txt[discovery.TXTKeyDeviceType])
	assert.Equal(t, "Kitchen Light", txt[discovery.TXTKeyDeviceName])

	strs := discovery.TXTRecordsToStrings(txt)
	assert.Equal(t, "CM=1", strs[0], "records are sorted")

	decoded, err := discovery.DecodeCommissionableTXT(discovery.StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
}

func TestCommissionableTXTOptionalAndErrors(t *testing.T) {
	txt := discovery.EncodeCommissionableTXT(&discovery.CommissionableInfo{
		Discriminator: 1,
		DeviceName:    strings.Repeat("x", 40),
	})
	_, hasDT := txt[discovery.TXTKeyDeviceType]
	assert.False(t, hasDT)
	assert.Len(t, txt[discovery.TXTKeyDeviceName], discovery.MaxDeviceNameLen)

	tests := []struct {
		name string
		txt  discovery.TXTRecordMap
		err  error
	}{
		{"missing D", discovery.TXTRecordMap{"CM": "1"}, discovery.ErrMissingRequired},
		{"D too large", discovery.TXTRecordMap{"D": "4096", "CM": "1"}, discovery.ErrInvalidDiscriminator},
		{"missing CM", discovery.TXTRecordMap{"D": "1"}, discovery.ErrMissingRequired},
		{"bad CM", discovery.TXTRecordMap{"D": "1", "CM": "x"}, discovery.ErrInvalidTXTRecord},
		{"bad VP", discovery.TXTRecordMap{"D": "1", "CM": "1", "VP": "abc"}, discovery.ErrInvalidTXTRecord},
		{"bad DT", discovery.TXTRecordMap{"D": "1", "CM": "1", "DT": "-1"}, discovery.ErrInvalidTXTRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := discovery.DecodeCommissionableTXT(tt.txt)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	info, err := discovery.DecodeCommissionableTXT(discovery.TXTRecordMap{"D": "1", "CM": "0", "VP": "65521"})
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFF1), info.VendorID)
	assert.Equal(t, uint16(0), info.ProductID)
}

func TestOperationalTXT(t *testing.T) {
	info := &discovery.OperationalInfo{
		NodeID:        0x1122334455667788,
		VendorID:      0xFFF1,
		ProductID:     0x8001,
		DeviceName:    "Hall Switch",
		EndpointCount: 2,
		TopicPrefix:   "mash",
	}
	assert.Equal(t, "1122334455667788", info.InstanceName())

	txt := discovery.EncodeOperationalTXT(info)
	decoded, err := discovery.DecodeOperationalTXT(txt)
	require.NoError(t, err)
	assert.Equal(t, info, decoded)

	_, err = discovery.DecodeOperationalTXT(discovery.TXTRecordMap{"NI": "42"})
	assert.ErrorIs(t, err, discovery.ErrInvalidTXTRecord)
	_, err = discovery.DecodeOperationalTXT(discovery.TXTRecordMap{})
	assert.ErrorIs(t, err, discovery.ErrMissingRequired)
}

func TestValidation(t *testing.T) {
	assert.NoError(t, discovery.ValidateInstanceName("MASH-3840"))
	assert.ErrorIs(t, discovery.ValidateInstanceName(""), discovery.ErrInstanceNameTooLong)
	assert.ErrorIs(t, discovery.ValidateInstanceName(strings.Repeat("a", 64)), discovery.ErrInstanceNameTooLong)

	assert.NoError(t, discovery.ValidateTXTSize([]string{"D=1"}))
	assert.ErrorIs(t, discovery.ValidateTXTSize([]string{strings.Repeat("a", 400)}), discovery.ErrTXTTooLarge)

	assert.ErrorIs(t, (&discovery.CommissionableInfo{Discriminator: 5000}).Validate(), discovery.ErrInvalidDiscriminator)
	assert.ErrorIs(t, (&discovery.OperationalInfo{}).Validate(), discovery.ErrMissingRequired)
}

func TestMDNSAdvertiserCommissionable(t *testing.T) {
	adv, reg := testAdvertiser(t)
	defer adv.StopAll()

	info := &discovery.CommissionableInfo{Discriminator: 42, CommissioningMode: discovery.CommissioningModeBasic}
	require.NoError(t, adv.AdvertiseCommissionable(context.Background(), info))

	first := reg.last()
	require.NotNil(t, first)
	assert.Equal(t, "MASH-0042", first.instance)
	assert.Equal(t, discovery.ServiceTypeCommissionable, first.service)
	assert.Equal(t, discovery.Domain, first.domain)
	assert.Equal(t, discovery.DefaultPort, first.port)
	assert.Nil(t, first.ifaces)
	assert.Contains(t, first.server.text, "D=42")

	// Re-advertising replaces the previous server.
	info.Port = 6000
	require.NoError(t, adv.AdvertiseCommissionable(context.Background(), info))
	assert.True(t, first.server.shutdown)
	assert.Equal(t, 6000, reg.last().port)

	require.NoError(t, adv.StopCommissionable())
	assert.True(t, reg.last().server.shutdown)
	require.NoError(t, adv.StopCommissionable())
}

func TestMDNSAdvertiserOperational(t *testing.T) {
	adv, reg := testAdvertiser(t)

	info := &discovery.OperationalInfo{NodeID: 0xABCD, EndpointCount: 1}
	assert.ErrorIs(t, adv.UpdateOperational(info), discovery.ErrNotAdvertising)

	require.NoError(t, adv.AdvertiseOperational(context.Background(), info))
	r := reg.last()
	assert.Equal(t, discovery.ServiceTypeOperational, r.service)
	assert.Equal(t, "000000000000ABCD", r.instance)

	info.EndpointCount = 3
	require.NoError(t, adv.UpdateOperational(info))
	assert.Contains(t, r.server.text, "EP=3")

	adv.StopAll()
	assert.True(t, r.server.shutdown)
	assert.ErrorIs(t, adv.StopOperational(), discovery.ErrNotAdvertising)
}

func TestMDNSAdvertiserInterfaces(t *testing.T) {
	reg := &fakeRegistry{}
	cfg := discovery.AdvertiserConfig{
		Interfaces: []string{"eth0"},
		Register:   reg.register,
		InterfaceByName: func(name string) (*net.Interface, error) {
			if name == "eth0" {
				return &net.Interface{Index: 2, Name: "eth0", Flags: net.FlagUp | net.FlagMulticast}, nil
			}
			return nil, errors.New("no such interface")
		},
	}
	adv, err := discovery.NewMDNSAdvertiser(cfg)
	require.NoError(t, err)

	require.NoError(t, adv.AdvertiseCommissionable(context.Background(), &discovery.CommissionableInfo{Discriminator: 1}))
	require.Len(t, reg.last().ifaces, 1)
	assert.Equal(t, "eth0", reg.last().ifaces[0].Name)

	cfg.Interfaces = []string{"wlan9"}
	adv, err = discovery.NewMDNSAdvertiser(cfg)
	require.NoError(t, err)
	assert.Error(t, adv.AdvertiseCommissionable(context.Background(), &discovery.CommissionableInfo{Discriminator: 1}))
}

func TestMDNSAdvertiserRegisterError(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("bind failed")}
	adv, err := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{Register: reg.register})
	require.NoError(t, err)

	err = adv.AdvertiseCommissionable(context.Background(), &discovery.CommissionableInfo{Discriminator: 1})
	assert.ErrorContains(t, err, "bind failed")
}

type mockAdvertiser struct {
	mock.Mock
}

func (m *mockAdvertiser) AdvertiseCommissionable(ctx context.Context, info *discovery.CommissionableInfo) error {
	return m.Called(ctx, info).Error(0)
}

func (m *mockAdvertiser) StopCommissionable() error {
	return m.Called().Error(0)
}

func (m *mockAdvertiser) AdvertiseOperational(ctx context.Context, info *discovery.OperationalInfo) error {
	return m.Called(ctx, info).Error(0)
}

func (m *mockAdvertiser) UpdateOperational(info *discovery.OperationalInfo) error {
	return m.Called(info).Error(0)
}

func (m *mockAdvertiser) StopOperational() error {
	return m.Called().Error(0)
}

func (m *mockAdvertiser) StopAll() {
	m.Called()
}

func TestDiscoveryManager(t *testing.T) {
	ctx := context.Background()
	adv := &mockAdvertiser{}
	m := discovery.NewDiscoveryManager(adv)

	var transitions []string
	m.OnStateChange(func(old, new discovery.DiscoveryState) {
		transitions = append(transitions, old.String()+"->"+new.String())
	})

	assert.ErrorIs(t, m.EnterCommissioningMode(ctx), discovery.ErrMissingRequired)

	op := &discovery.OperationalInfo{NodeID: 1}
	adv.On("AdvertiseOperational", ctx, op).Return(nil).Once()
	require.NoError(t, m.StartOperational(ctx, op))
	assert.Equal(t, discovery.StateOperational, m.State())

	m.SetCommissionableInfo(&discovery.CommissionableInfo{Discriminator: 7})
	adv.On("AdvertiseCommissionable", ctx, mock.MatchedBy(func(info *discovery.CommissionableInfo) bool {
		return info.Discriminator == 7 && info.CommissioningMode == discovery.CommissioningModeBasic
	})).Return(nil).Once()
	require.NoError(t, m.EnterCommissioningMode(ctx))
	assert.Equal(t, discovery.StateCommissioningOpen, m.State())

	adv.On("StopCommissionable").Return(nil).Once()
	require.NoError(t, m.ExitCommissioningMode())
	assert.Equal(t, discovery.StateOperational, m.State())

	// Exiting twice is a no-op.
	require.NoError(t, m.ExitCommissioningMode())

	adv.On("StopAll").Return().Once()
	m.Stop()
	assert.Equal(t, discovery.StateUnregistered, m.State())

	assert.Equal(t, []string{
		"UNREGISTERED->OPERATIONAL",
		"OPERATIONAL->COMMISSIONING_OPEN",
		"COMMISSIONING_OPEN->OPERATIONAL",
		"OPERATIONAL->UNREGISTERED",
	}, transitions)
	adv.AssertExpectations(t)
}

func TestDiscoveryManagerWindowExpiry(t *testing.T) {
	ctx := context.Background()
	adv := &mockAdvertiser{}
	m := discovery.NewDiscoveryManager(adv)
	m.SetCommissioningWindow(20 * time.Millisecond)
	m.SetCommissionableInfo(&discovery.CommissionableInfo{Discriminator: 7})

	adv.On("AdvertiseCommissionable", ctx, mock.Anything).Return(nil).Once()
	adv.On("StopCommissionable").Return(nil).Once()
	require.NoError(t, m.EnterCommissioningMode(ctx))

	assert.Eventually(t, func() bool {
		return m.State() == discovery.StateUnregistered
	}, time.Second, 5*time.Millisecond)
	adv.AssertExpectations(t)
}

func TestDiscoveryManagerAdvertiseError(t *testing.T) {
	ctx := context.Background()
	adv := &mockAdvertiser{}
	m := discovery.NewDiscoveryManager(adv)
	m.SetCommissionableInfo(&discovery.CommissionableInfo{Discriminator: 7})

	adv.On("AdvertiseCommissionable", ctx, mock.Anything).Return(errors.New("no network")).Once()
	assert.Error(t, m.EnterCommissioningMode(ctx))
	assert.Equal(t, discovery.StateUnregistered, m.State())

	assert.ErrorIs(t, m.UpdateOperational(&discovery.OperationalInfo{NodeID: 1}), discovery.ErrNotAdvertising)
}
