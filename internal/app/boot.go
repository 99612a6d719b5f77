package app

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/mash-protocol/mash-endpoint/internal/builder"
	"github.com/mash-protocol/mash-endpoint/internal/button"
	"github.com/mash-protocol/mash-endpoint/internal/config"
	"github.com/mash-protocol/mash-endpoint/internal/driver"
	"github.com/mash-protocol/mash-endpoint/internal/module"
	"github.com/mash-protocol/mash-endpoint/internal/mqtt"
	"github.com/mash-protocol/mash-endpoint/internal/router"
	"github.com/mash-protocol/mash-endpoint/internal/telemetry"
	"github.com/mash-protocol/mash-endpoint/pkg/binding"
	"github.com/mash-protocol/mash-endpoint/pkg/commissioning"
	"github.com/mash-protocol/mash-endpoint/pkg/conformance"
	"github.com/mash-protocol/mash-endpoint/pkg/discovery"
	"github.com/mash-protocol/mash-endpoint/pkg/duration"
	"github.com/mash-protocol/mash-endpoint/pkg/interaction"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
	"github.com/mash-protocol/mash-endpoint/pkg/persistence"
)

// New boots an endpoint from cfg. Failures of optional services (MQTT,
// InfluxDB, mDNS, individual endpoints) are logged and the endpoint comes
// up without them; only an unusable node identity or protocol log path
// fails the boot.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = config.NewLogger(cfg.Logging, opts.Version)
	}

	nodeID, err := resolveNodeID(cfg.Node)
	if err != nil {
		return nil, err
	}
	if cfg.Node.NodeID == 0 && cfg.Node.MAC == "" {
		logger.Warn("node_id and mac not configured, using a random node ID", "node_id", fmt.Sprintf("%016X", nodeID))
	}

	node := model.NewNode(nodeID, cfg.Node.VendorID, cfg.Node.ProductID)
	node.SetLogger(logger)

	a := &App{
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		node:    node,
		restart: make(chan RestartReason, 1),
	}

	if err := a.openEventLog(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.buildEndpoints(ctx)
	a.restoreState(ctx)

	a.router = router.New(a.rc.Bindings, logger)
	a.router.SetEventLogger(a.events)
	a.router.Install(node)

	if err := a.rc.Registry.PostStart(ctx, a.rc); err != nil {
		logger.Warn("post start failed", "error", err)
	}

	a.setupTransport()

	a.buttons, err = button.New(cfg.App.Buttons, button.Options{
		Node:        node,
		Binding:     a.bindings,
		Endpoints:   cfg.App.Endpoints,
		LockTimeout: cfg.Runtime.StackLockTimeout,
		OnLongPress: a.FactoryReset,
		Clock:       opts.Clock,
		Logger:      logger,
		Events:      a.events,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("buttons: %w", err)
	}

	a.creds = credentials(cfg.Node.MAC, logger)
	a.setupDiscovery()

	logger.Info("endpoint booted",
		"node_id", fmt.Sprintf("%016X", nodeID),
		"endpoints", len(node.Endpoints())-1,
		"failed_endpoints", a.report.FailedEndpoints(),
		"buttons", len(a.buttons.Runtimes()),
		"restored", a.restored,
		"session", a.events.SessionID(),
	)
	return a, nil
}

// openEventLog assembles the protocol event fan-out: CBOR file, slog
// mirror and InfluxDB.
func (a *App) openEventLog() error {
	multi := mlog.NewMultiLogger(mlog.NewSlogAdapter(a.logger.With("component", "protocol")))

	if path := a.cfg.ProtocolLog.Path; path != "" {
		fl, err := mlog.NewFileLogger(path)
		if err != nil {
			return fmt.Errorf("protocol log %s: %w", path, err)
		}
		a.fileLog = fl
		multi.Add(fl)
	}

	if a.cfg.Telemetry.InfluxDB.Enabled {
		c, err := telemetry.Connect(a.cfg.Telemetry.InfluxDB)
		if err != nil {
			a.logger.Warn("telemetry disabled", "url", a.cfg.Telemetry.InfluxDB.URL, "error", err)
		} else {
			c.SetOnError(func(err error) { a.logger.Warn("telemetry write failed", "error", err) })
			a.influx = c
			multi.Add(telemetry.NewSink(c))
		}
	}

	a.events = mlog.NewStamped(multi, uuid.NewString(), a.node.NodeID())
	return nil
}

// buildEndpoints runs module detection, driver init and endpoint
// construction.
func (a *App) buildEndpoints(ctx context.Context) {
	lightOpts := module.LightOptions{NewLight: a.opts.NewLight}
	if s := a.cfg.App.LEDStrip; s != nil {
		lightOpts.Strip = driver.StripConfig{LEDCount: s.LEDCount, GPIO: s.RMTGPIO, Type: s.Type}
	}

	a.rc = module.NewContext(a.node, duration.NewManager(), a.logger, module.Defaults(lightOpts)...)
	raws := a.cfg.App.Endpoints

	for _, m := range a.rc.Registry.DetectEnabled(raws) {
		a.logger.Debug("module enabled", "module", m.Name())
	}
	for _, o := range a.rc.Registry.Overlaps(raws) {
		a.logger.Warn("endpoint supported by several modules", "endpoint", o.Endpoint, "modules", o.Modules, "owner", o.Modules[0])
	}
	if err := a.rc.Registry.InitDrivers(ctx, a.rc); err != nil {
		a.logger.Error("driver init failed", "error", err)
	}

	a.report = builder.Build(ctx, a.rc, raws)
	if !a.report.OK() {
		a.logger.Warn("some endpoints failed to build", "endpoints", a.report.FailedEndpoints())
	}
	a.checkConformance()
}

// checkConformance logs endpoints that do not carry what their device
// type requires. Non-conforming endpoints are kept.
func (a *App) checkConformance() {
	for ep, r := range conformance.ValidateNode(a.node) {
		for _, w := range r.Warnings {
			a.logger.Debug("conformance", "endpoint", ep, "warning", w)
		}
		if !r.Valid {
			a.logger.Warn("endpoint does not conform to its device type", "endpoint", ep, "errors", r.Errors)
		}
	}
}

// restoreState applies the stored state and primes the flusher with what
// the node holds afterwards.
func (a *App) restoreState(ctx context.Context) {
	a.store = persistence.NewNodeStateStore(a.cfg.Persistence.Path)

	state, err := a.store.Load()
	switch {
	case err != nil:
		a.logger.Warn("stored state unreadable, starting fresh", "path", a.store.Path(), "error", err)
	case state != nil && !state.IsEmpty():
		if err := persistence.Apply(ctx, a.node, state); err != nil {
			a.logger.Warn("stored state partially applied", "path", a.store.Path(), "error", err)
		}
		a.restored = true
	}

	a.flusher = persistence.NewFlusher(a.store, a.node, a.cfg.Persistence.FlushInterval, a.logger)
	a.flusher.Prime(persistence.Capture(ctx, a.node))
}

// setupTransport wires the interaction server and client to MQTT. Without
// a broker the binding client still works for local decisions, but remote
// sends fail with ErrNoTransport.
func (a *App) setupTransport() {
	a.server = interaction.NewServer(a.node)
	a.server.SetLockTimeout(a.cfg.Runtime.StackLockTimeout)
	a.server.SetLogger(a.logger)
	a.server.SetEventLogger(a.events)

	var sender binding.Sender = offlineSender{}
	if ps := a.pubSub(); ps != nil {
		nodeID := a.node.NodeID()
		a.transport = mqtt.NewTransport(ps, mqtt.Topics{Prefix: a.cfg.MQTT.TopicPrefix}, nodeID, byte(a.cfg.MQTT.QoS), a.logger.With("component", "mqtt"))
		a.client = interaction.NewClient(a.transport, nodeID)
		a.client.SetEventLogger(a.events)
		a.transport.SetServer(a.server)
		a.transport.SetResponseHandler(a.client)
		sender = interaction.NewBindingSender(a.client, a.logger)
	}
	a.bindings = binding.NewClient(a.node, sender, a.logger)
}

func (a *App) pubSub() mqtt.PubSub {
	if a.opts.PubSub != nil {
		return a.opts.PubSub
	}
	if !a.cfg.MQTT.Enabled {
		return nil
	}
	c, err := mqtt.Connect(a.cfg.MQTT, a.node.NodeID())
	if err != nil {
		a.logger.Error("MQTT unavailable, running without transport",
			"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port), "error", err)
		return nil
	}
	c.SetLogger(a.logger)
	c.SetOnDisconnect(func(err error) { a.logger.Warn("MQTT connection lost", "error", err) })
	a.broker = c
	return c
}

func (a *App) setupDiscovery() {
	adv := a.opts.Advertiser
	if adv == nil {
		if !a.cfg.Discovery.Enabled {
			return
		}
		var err error
		adv, err = discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interfaces: advertiseInterfaces(a.cfg),
			TTL:        a.cfg.Discovery.TTL,
		})
		if err != nil {
			a.logger.Warn("mDNS unavailable", "error", err)
			return
		}
	}

	a.discovery = discovery.NewDiscoveryManager(adv)
	a.discovery.SetCommissioningWindow(a.cfg.Discovery.CommissioningWindow)
	a.discovery.SetCommissionableInfo(&discovery.CommissionableInfo{
		Discriminator: a.creds.Discriminator,
		VendorID:      a.cfg.Node.VendorID,
		ProductID:     a.cfg.Node.ProductID,
		DeviceType:    primaryDeviceType(a.node),
		DeviceName:    a.cfg.App.DeviceName,
		Port:          uint16(a.cfg.Discovery.Port),
	})
	a.discovery.OnStateChange(func(old, next discovery.DiscoveryState) {
		a.logger.Info("discovery state changed", "from", old.String(), "to", next.String())
	})
}

func (a *App) operationalInfo() *discovery.OperationalInfo {
	return &discovery.OperationalInfo{
		NodeID:        a.node.NodeID(),
		VendorID:      a.cfg.Node.VendorID,
		ProductID:     a.cfg.Node.ProductID,
		DeviceName:    a.cfg.App.DeviceName,
		EndpointCount: uint8(len(a.node.Endpoints()) - 1),
		TopicPrefix:   a.cfg.MQTT.TopicPrefix,
		Port:          uint16(a.cfg.Discovery.Port),
	}
}

func advertiseInterfaces(cfg *config.Config) []string {
	if len(cfg.Discovery.Interfaces) > 0 {
		return cfg.Discovery.Interfaces
	}
	if cfg.Node.Interface != "" {
		return []string{cfg.Node.Interface}
	}
	return nil
}

// primaryDeviceType returns the first device type of the lowest non-root
// endpoint.
func primaryDeviceType(node *model.Node) uint32 {
	for _, ep := range node.Endpoints() {
		if ep.ID() == 0 {
			continue
		}
		if dts := ep.DeviceTypes(); len(dts) > 0 {
			return dts[0].ID
		}
	}
	return 0
}

// resolveNodeID picks the configured node ID, then one derived from the
// MAC, then a random one.
func resolveNodeID(cfg config.NodeConfig) (uint64, error) {
	if cfg.NodeID != 0 {
		return cfg.NodeID, nil
	}
	if cfg.MAC != "" {
		mac, err := commissioning.ParseMAC(cfg.MAC)
		if err != nil {
			return 0, fmt.Errorf("node.mac: %w", err)
		}
		return nodeIDFromMAC(mac), nil
	}
	for {
		u := uuid.New()
		if id := binary.BigEndian.Uint64(u[:8]); id != 0 {
			return id, nil
		}
	}
}

func nodeIDFromMAC(mac net.HardwareAddr) uint64 {
	var id uint64
	for _, b := range mac {
		id = id<<8 | uint64(b)
	}
	return id
}

// credentials derives the commissioning credentials from mac and falls
// back to the defaults when it is missing or unusable.
func credentials(mac string, logger *slog.Logger) commissioning.Credentials {
	if mac == "" {
		logger.Warn("no MAC configured, using fallback commissioning credentials")
		return commissioning.DefaultCredentials()
	}
	hw, err := commissioning.ParseMAC(mac)
	if err != nil {
		logger.Warn("using fallback commissioning credentials", "error", err)
		return commissioning.DefaultCredentials()
	}
	creds, err := commissioning.CredentialsFromMAC(hw)
	if err != nil {
		logger.Warn("using fallback commissioning credentials", "error", err)
		return commissioning.DefaultCredentials()
	}
	if creds.DiscriminatorFallback {
		logger.Warn("MAC yields a reserved discriminator, using fallback", "discriminator", creds.Discriminator)
	}
	if creds.SetupCodeFallback {
		logger.Warn("MAC yields a trivial setup code, using fallback")
	}
	return creds
}

// offlineSender is the binding sender used without a transport.
type offlineSender struct{}

func (offlineSender) SendUnicast(ctx context.Context, node uint64, endpoint uint16, req binding.Request) error {
	return ErrNoTransport
}

func (offlineSender) SendGroup(ctx context.Context, group uint16, req binding.Request) error {
	return ErrNoTransport
}
