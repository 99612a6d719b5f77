// Package app boots and supervises the endpoint.
//
// New runs the boot sequence: node identity, protocol event log, module
// registry and drivers, endpoint construction, state restore, attribute
// routing, transport, buttons and discovery. Run keeps the endpoint alive
// until the context ends or a restart is requested; Supervise repeats the
// whole cycle after each restart.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

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
	"github.com/mash-protocol/mash-endpoint/pkg/discovery"
	"github.com/mash-protocol/mash-endpoint/pkg/interaction"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
	"github.com/mash-protocol/mash-endpoint/pkg/persistence"
)

// App errors.
var (
	ErrAlreadyStarted = errors.New("endpoint already started")
	ErrNotStarted     = errors.New("endpoint not started")
	ErrNoTransport    = errors.New("no transport configured")
)

// State is the lifecycle state of an App.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// RestartReason tells Supervise why Run returned.
type RestartReason uint8

const (
	// ReasonShutdown ends supervision.
	ReasonShutdown RestartReason = iota

	// ReasonRestart reboots with the stored state.
	ReasonRestart

	// ReasonFactoryReset reboots after the stored state was erased.
	ReasonFactoryReset
)

// String returns the reason name.
func (r RestartReason) String() string {
	switch r {
	case ReasonShutdown:
		return "shutdown"
	case ReasonRestart:
		return "restart"
	case ReasonFactoryReset:
		return "factory_reset"
	default:
		return "unknown"
	}
}

// Options replace the hardware and network edges of the endpoint.
type Options struct {
	Version string

	// Logger overrides the logger built from the logging config.
	Logger *slog.Logger

	// NewLight overrides the LED strip driver.
	NewLight func() (driver.Light, error)

	// PubSub replaces the MQTT broker connection.
	PubSub mqtt.PubSub

	// Advertiser replaces mDNS advertising.
	Advertiser discovery.Advertiser

	// Clock drives button press timing.
	Clock button.Clock
}

// App is one boot of the endpoint.
type App struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	node     *model.Node
	rc       *module.Context
	report   builder.Report
	router   *router.Router
	buttons  *button.Engine
	bindings *binding.Client

	server    *interaction.Server
	client    *interaction.Client
	transport *mqtt.Transport
	broker    *mqtt.Client

	events  *mlog.Stamped
	fileLog *mlog.FileLogger
	influx  *telemetry.Client

	store    *persistence.NodeStateStore
	flusher  *persistence.Flusher
	restored bool

	creds     commissioning.Credentials
	discovery *discovery.DiscoveryManager

	restart chan RestartReason

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// Config returns the configuration the endpoint booted with.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Node returns the data model.
func (a *App) Node() *model.Node { return a.node }

// Modules returns the module context.
func (a *App) Modules() *module.Context { return a.rc }

// Report returns the endpoint build report.
func (a *App) Report() builder.Report { return a.report }

// Buttons returns the button engine.
func (a *App) Buttons() *button.Engine { return a.buttons }

// Bindings returns the binding client.
func (a *App) Bindings() *binding.Client { return a.bindings }

// Credentials returns the commissioning credentials.
func (a *App) Credentials() commissioning.Credentials { return a.creds }

// Discovery returns the discovery manager, nil when discovery is off.
func (a *App) Discovery() *discovery.DiscoveryManager { return a.discovery }

// Restored reports whether stored state was applied at boot.
func (a *App) Restored() bool { return a.restored }

// SessionID returns the protocol log session of this boot.
func (a *App) SessionID() string { return a.events.SessionID() }

// Events returns the protocol event logger.
func (a *App) Events() mlog.Logger { return a.events }

// Client returns the interaction client used to reach other nodes.
func (a *App) Client() (*interaction.Client, error) {
	if a.client == nil {
		return nil, ErrNoTransport
	}
	return a.client, nil
}

// State returns the lifecycle state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// QRCode returns the commissioning QR payload.
func (a *App) QRCode() string {
	return commissioning.NewQRCodeData(a.creds, a.cfg.Node.VendorID, a.cfg.Node.ProductID).String()
}

// RequestRestart asks Run to return with reason. Only the first request
// of a boot counts.
func (a *App) RequestRestart(reason RestartReason) {
	select {
	case a.restart <- reason:
	default:
	}
}

// FactoryReset erases the stored state and requests a restart. Saving is
// suspended first so the final flush does not write the state back.
func (a *App) FactoryReset() {
	a.logger.Warn("factory reset requested", "path", a.store.Path())
	a.flusher.Suspend()
	if err := a.store.Clear(); err != nil {
		a.logger.Error("failed to erase stored state", "path", a.store.Path(), "error", err)
	}
	a.RequestRestart(ReasonFactoryReset)
}

// Close releases everything New and Run acquired. Errors are joined.
func (a *App) Close() error {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.state = StateStopped
	a.mu.Unlock()

	var errs []error
	if a.discovery != nil {
		a.discovery.Stop()
	}
	if a.transport != nil {
		if err := a.transport.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("transport: %w", err))
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("interaction client: %w", err))
		}
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}
	if a.rc != nil {
		a.rc.Timers.CancelAll()
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}
	if a.fileLog != nil {
		if err := a.fileLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("protocol log: %w", err))
		}
	}
	return errors.Join(errs...)
}
