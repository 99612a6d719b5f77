// Package button turns debounced button presses into on/off and identify
// actions.
//
// Each configured button gets a Runtime. A short press bumps the press
// counter and runs the configured action against bound peers (remote), the
// local target endpoint (local) or both (dual). Enough short presses in a
// row start identify. A long press resets the device.
package button

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mash-protocol/mash-endpoint/internal/config"
	"github.com/mash-protocol/mash-endpoint/internal/driver"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
	"github.com/mash-protocol/mash-endpoint/pkg/binding"
	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
	mlog "github.com/mash-protocol/mash-endpoint/pkg/log"
	"github.com/mash-protocol/mash-endpoint/pkg/model"
)

// Engine errors.
var (
	// ErrInvalidState is returned when the endpoint an action needs is not
	// configured or was not built.
	ErrInvalidState = errors.New("button: invalid state")

	// ErrUnsupportedAction is returned for an action cluster the engine
	// cannot run.
	ErrUnsupportedAction = errors.New("button: unsupported action")

	// ErrUnknownButton is returned when no runtime has the requested ID.
	ErrUnknownButton = errors.New("button: unknown button")
)

// maxLongPressMS bounds the configured long press time.
const maxLongPressMS = 0xFFFF

// ClusterUpdater sends a command to every peer bound to a local endpoint.
// *binding.Client implements it.
type ClusterUpdater interface {
	ClusterUpdate(ctx context.Context, localEP uint16, req binding.Request) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures an Engine.
type Options struct {
	Node    *model.Node
	Binding ClusterUpdater

	// Endpoints is the configured endpoint list, used to pick default
	// binding and target endpoints.
	Endpoints []resolver.RawEndpoint

	// LockTimeout bounds the wait for the stack lock.
	LockTimeout time.Duration

	// OnLongPress erases storage and requests a restart.
	OnLongPress func()

	Clock  Clock
	Logger *slog.Logger
	Events mlog.Logger
}

// Runtime is the state of one button.
type Runtime struct {
	cfg    config.ButtonConfig
	button *driver.Button

	mode    Mode
	cluster ActionCluster
	command Command

	bindingEndpoint  uint16
	targetEndpoint   uint16
	identifyDuration uint16

	mu    sync.Mutex
	count int
	last  time.Time
}

// ID returns the configured button ID.
func (rt *Runtime) ID() string { return rt.cfg.ID }

// Button returns the input driver.
func (rt *Runtime) Button() *driver.Button { return rt.button }

// Mode returns the parsed action mode.
func (rt *Runtime) Mode() Mode { return rt.mode }

// Cluster returns the cluster the short press action targets.
func (rt *Runtime) Cluster() ActionCluster { return rt.cluster }

// Command returns the parsed short press command.
func (rt *Runtime) Command() Command { return rt.command }

// BindingEndpoint returns the local endpoint whose bindings receive remote
// commands, or 0 when the button has none.
func (rt *Runtime) BindingEndpoint() uint16 { return rt.bindingEndpoint }

// TargetEndpoint returns the endpoint local actions write to, or 0.
func (rt *Runtime) TargetEndpoint() uint16 { return rt.targetEndpoint }

// IdentifyDuration returns the identify time in seconds used by the
// identify action.
func (rt *Runtime) IdentifyDuration() uint16 { return rt.identifyDuration }

// Config returns the button configuration.
func (rt *Runtime) Config() config.ButtonConfig { return rt.cfg }

func (rt *Runtime) timeout() time.Duration {
	return time.Duration(rt.cfg.ShortPressTimeoutMS) * time.Millisecond
}

func (rt *Runtime) triggerReached() bool {
	return rt.cfg.IdentifyTriggerCount > 0 && rt.count >= rt.cfg.IdentifyTriggerCount
}

// Count returns the current short press counter.
func (rt *Runtime) Count() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.count
}

// Engine runs button actions.
type Engine struct {
	node        *model.Node
	binding     ClusterUpdater
	lockTimeout time.Duration
	onLongPress func()
	clock       Clock
	logger      *slog.Logger
	events      mlog.Logger

	runtimes []*Runtime
}

// New creates the runtimes for the configured buttons and registers their
// press callbacks.
func New(buttons []config.ButtonConfig, opts Options) (*Engine, error) {
	if opts.Node == nil {
		return nil, errors.New("button: node is required")
	}
	e := &Engine{
		node:        opts.Node,
		binding:     opts.Binding,
		lockTimeout: opts.LockTimeout,
		onLongPress: opts.OnLongPress,
		clock:       opts.Clock,
		logger:      opts.Logger,
		events:      opts.Events,
	}
	if e.lockTimeout <= 0 {
		e.lockTimeout = config.DefaultStackLockTimeout
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.events == nil {
		e.events = mlog.NoopLogger{}
	}

	for _, cfg := range buttons {
		rt, err := e.newRuntime(cfg, opts.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("button %s: %w", cfg.ID, err)
		}
		e.runtimes = append(e.runtimes, rt)
	}
	return e, nil
}

func (e *Engine) newRuntime(cfg config.ButtonConfig, raws []resolver.RawEndpoint) (*Runtime, error) {
	longMS := min(max(cfg.LongPressTimeMS, 0), maxLongPressMS)

	rt := &Runtime{
		cfg: cfg,
		button: driver.NewButton(driver.ButtonConfig{
			GPIO:        cfg.GPIO,
			ActiveLevel: cfg.ActiveLevel,
			LongPress:   time.Duration(longMS) * time.Millisecond,
		}),
	}
	rt.mode = parseMode(cfg.Mode, e.logger)
	rt.cluster = parseCluster(cfg.ActionCluster, e.logger)
	rt.command = parseCommand(rt.cluster, cfg.ActionCommand, e.logger)

	if cfg.ActionIdentifyTimeS > 0 {
		rt.identifyDuration = clampU16(cfg.ActionIdentifyTimeS)
	} else {
		rt.identifyDuration = clampU16(cfg.IdentifyTimeS)
	}

	if rt.mode.remote() {
		if cfg.BindingEndpoint > 0 {
			rt.bindingEndpoint = uint16(cfg.BindingEndpoint)
		} else {
			rt.bindingEndpoint = defaultBindingEndpoint(raws)
		}
		if rt.bindingEndpoint == 0 {
			e.logger.Warn("no binding endpoint for button", "button", cfg.ID)
		}
	}
	if rt.mode.local() {
		if cfg.TargetEndpoint > 0 {
			rt.targetEndpoint = uint16(cfg.TargetEndpoint)
		} else {
			rt.targetEndpoint = defaultTargetEndpoint(raws)
		}
		if rt.targetEndpoint == 0 {
			e.logger.Warn("no local target endpoint for button", "button", cfg.ID)
		}
	}

	if err := rt.button.RegisterPressCallback(driver.PressShort, func() { e.ShortPress(rt) }); err != nil {
		return nil, err
	}
	if err := rt.button.RegisterPressCallback(driver.PressLong, func() { e.LongPress(rt) }); err != nil {
		return nil, err
	}

	e.logger.Info("button initialized",
		"button", cfg.ID, "gpio", cfg.GPIO, "mode", rt.mode.String(),
		"cluster", rt.cluster.String(), "command", rt.command.String(),
		"binding_endpoint", rt.bindingEndpoint, "target_endpoint", rt.targetEndpoint,
		"long_press_ms", longMS)
	return rt, nil
}

// Runtimes returns the runtimes in configuration order.
func (e *Engine) Runtimes() []*Runtime {
	return e.runtimes
}

// Runtime returns the runtime with the given ID. An empty ID selects the
// first button.
func (e *Engine) Runtime(id string) (*Runtime, error) {
	for _, rt := range e.runtimes {
		if id == "" || rt.cfg.ID == id {
			return rt, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownButton, id)
}

// ShortPress counts the press, runs the configured action and starts
// identify once the trigger count is reached.
func (e *Engine) ShortPress(rt *Runtime) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := e.clock.Now()
	if rt.count == 0 || rt.cfg.ShortPressTimeoutMS <= 0 || elapsed(now, rt.last) > rt.timeout() {
		rt.count = 1
	} else {
		rt.count++
	}
	rt.last = now
	e.logger.Info("short press", "button", rt.cfg.ID, "count", rt.count)

	action := rt.cluster.String() + " " + rt.command.String()
	err := e.runAction(rt)
	if errors.Is(err, model.ErrLockTimeout) {
		e.logger.Error("button action aborted", "button", rt.cfg.ID, "error", err)
		e.logPress(rt, driver.PressShort, action)
		rt.count = 0
		return
	}
	if err != nil {
		e.logger.Warn("button action failed", "button", rt.cfg.ID, "action", action, "error", err)
	}

	if rt.triggerReached() {
		e.logger.Info("identify trigger reached", "button", rt.cfg.ID, "count", rt.count)
		action = "identify trigger"
		if err := e.identify(rt, clampU16(rt.cfg.IdentifyTimeS)); err != nil {
			e.logger.Warn("identify trigger failed", "button", rt.cfg.ID, "error", err)
		}
		e.logPress(rt, driver.PressShort, action)
		rt.count = 0
		return
	}
	e.logPress(rt, driver.PressShort, action)
}

// LongPress runs the long press action.
func (e *Engine) LongPress(rt *Runtime) {
	e.logger.Warn("long press, factory reset", "button", rt.cfg.ID)
	e.logPress(rt, driver.PressLong, "factory reset")
	if e.onLongPress != nil {
		e.onLongPress()
	}
}

func (e *Engine) runAction(rt *Runtime) error {
	switch rt.cluster {
	case ClusterOnOff:
		var errs []error
		if rt.mode.remote() {
			errs = append(errs, e.sendRemote(rt, binding.Request{
				Cluster: clusters.OnOffID,
				Command: onOffCommandID(rt.command),
			}))
		}
		if rt.mode.local() {
			errs = append(errs, e.localOnOff(rt))
		}
		return errors.Join(errs...)
	case ClusterIdentify:
		return e.identify(rt, rt.identifyDuration)
	default:
		e.logger.Warn("unsupported button action", "button", rt.cfg.ID)
		return ErrUnsupportedAction
	}
}

func (e *Engine) identify(rt *Runtime, d uint16) error {
	var errs []error
	if rt.mode.remote() {
		errs = append(errs, e.sendRemote(rt, binding.Request{
			Cluster: clusters.IdentifyID,
			Command: clusters.IdentifyCmdIdentify,
			Fields:  map[string]any{"identifyTime": d},
		}))
	}
	if rt.mode.local() {
		errs = append(errs, e.localIdentify(rt, d))
	}
	return errors.Join(errs...)
}

// sendRemote delivers req to the peers bound to the button's binding
// endpoint. The stack lock is held for the duration of the update.
func (e *Engine) sendRemote(rt *Runtime, req binding.Request) error {
	ep := rt.bindingEndpoint
	if ep == 0 {
		e.logger.Warn("remote action without binding endpoint", "button", rt.cfg.ID)
		return fmt.Errorf("%w: no binding endpoint", ErrInvalidState)
	}
	if _, err := e.node.GetEndpoint(ep); err != nil {
		e.logger.Warn("binding endpoint not created", "button", rt.cfg.ID, "endpoint", ep)
		return fmt.Errorf("%w: binding endpoint %d: %w", ErrInvalidState, ep, err)
	}
	if e.binding == nil {
		return fmt.Errorf("%w: no binding client", ErrInvalidState)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.lockTimeout)
	defer cancel()

	lock := e.node.Lock()
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()

	err := e.binding.ClusterUpdate(context.Background(), ep, req)
	switch {
	case err == nil:
		e.logger.Info("remote command sent", "button", rt.cfg.ID, "endpoint", ep, "request", req.String())
		return nil
	case errors.Is(err, binding.ErrNotFound):
		e.logger.Warn("no bindings configured", "button", rt.cfg.ID, "endpoint", ep, "request", req.String())
	default:
		e.logger.Error("remote command failed", "button", rt.cfg.ID, "endpoint", ep, "request", req.String(), "error", err)
	}
	return err
}

func (e *Engine) localOnOff(rt *Runtime) error {
	ep := rt.targetEndpoint
	if ep == 0 {
		return fmt.Errorf("%w: no target endpoint", ErrInvalidState)
	}
	path := model.AttributePath{Endpoint: ep, Cluster: clusters.OnOffID, Attribute: clusters.OnOffAttrOnOff}

	var next bool
	switch rt.command {
	case CommandOn:
		next = true
	case CommandOff:
		next = false
	default:
		v, err := e.node.ReadAttribute(path)
		cur, ok := v.(bool)
		if err != nil || !ok {
			e.logger.Warn("could not read on/off state, turning on", "endpoint", ep, "error", err)
			next = true
		} else {
			next = !cur
		}
	}

	if err := e.write(path, next); err != nil {
		return err
	}
	e.logger.Info("local on/off set", "button", rt.cfg.ID, "endpoint", ep, "on", next)
	return nil
}

func (e *Engine) localIdentify(rt *Runtime, d uint16) error {
	ep := rt.targetEndpoint
	if ep == 0 {
		return fmt.Errorf("%w: no target endpoint", ErrInvalidState)
	}
	path := model.AttributePath{Endpoint: ep, Cluster: clusters.IdentifyID, Attribute: clusters.IdentifyAttrIdentifyTime}
	if err := e.write(path, d); err != nil {
		return err
	}
	e.logger.Info("local identify started", "button", rt.cfg.ID, "endpoint", ep, "seconds", d)
	return nil
}

func (e *Engine) write(path model.AttributePath, value any) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.lockTimeout)
	defer cancel()
	return e.node.UpdateAttribute(ctx, path, value)
}

func (e *Engine) logPress(rt *Runtime, kind driver.PressKind, action string) {
	e.events.Log(mlog.Event{
		Timestamp: e.clock.Now(),
		Layer:     mlog.LayerInput,
		Category:  mlog.CategoryButton,
		Button: &mlog.ButtonEvent{
			Button: rt.cfg.ID,
			Press:  kind.String(),
			Count:  rt.count,
			Action: action,
		},
	})
}

func onOffCommandID(c Command) uint32 {
	switch c {
	case CommandOn:
		return clusters.OnOffCmdOn
	case CommandOff:
		return clusters.OnOffCmdOff
	default:
		return clusters.OnOffCmdToggle
	}
}

// elapsed returns now - last, or zero when the clock went backwards.
func elapsed(now, last time.Time) time.Duration {
	if d := now.Sub(last); d > 0 {
		return d
	}
	return 0
}

func clampU16(v int) uint16 {
	return uint16(min(max(v, 0), 0xFFFF))
}
