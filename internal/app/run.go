package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mash-protocol/mash-endpoint/internal/config"
)

// Run starts the state flusher, transport and discovery and blocks until
// ctx ends or a restart is requested. Run can be called once per App.
func (a *App) Run(ctx context.Context) (RestartReason, error) {
	a.mu.Lock()
	if a.state != StateIdle {
		a.mu.Unlock()
		return ReasonShutdown, ErrAlreadyStarted
	}
	a.state = StateRunning
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		a.flusher.Run(gctx)
		return nil
	})

	if a.transport != nil {
		if err := a.transport.Start(gctx); err != nil {
			a.logger.Error("transport start failed", "error", err)
		}
	}
	a.startDiscovery(gctx)

	a.logger.Info("endpoint running", "state", a.State().String())

	var reason RestartReason
	select {
	case <-ctx.Done():
		reason = ReasonShutdown
	case reason = <-a.restart:
	}

	cancel()
	if err := g.Wait(); err != nil {
		return reason, err
	}

	a.mu.Lock()
	a.state = StateStopped
	a.mu.Unlock()

	a.logger.Info("endpoint stopped", "reason", reason.String())
	return reason, nil
}

// startDiscovery advertises the operational service and, on a node
// without stored state, opens the commissioning window.
func (a *App) startDiscovery(ctx context.Context) {
	if a.discovery == nil {
		return
	}
	if err := a.discovery.StartOperational(ctx, a.operationalInfo()); err != nil {
		a.logger.Warn("operational advertisement failed", "error", err)
	}
	if a.restored {
		return
	}
	if err := a.discovery.EnterCommissioningMode(ctx); err != nil {
		a.logger.Warn("commissioning window failed to open", "error", err)
		return
	}
	a.logger.Info("commissioning window open",
		"discriminator", a.creds.Discriminator,
		"manual_code", a.creds.ManualCode(),
		"qr", a.QRCode())
}

// Loader returns the configuration for each boot.
type Loader func() (*config.Config, error)

// Supervise boots, runs and closes endpoints until Run reports a shutdown.
// Configuration is reloaded for every boot. booted, if set, sees each App
// before it runs.
func Supervise(ctx context.Context, load Loader, opts Options, booted func(*App)) error {
	for {
		cfg, err := load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a, err := New(ctx, cfg, opts)
		if err != nil {
			return fmt.Errorf("boot: %w", err)
		}
		if booted != nil {
			booted(a)
		}

		reason, runErr := a.Run(ctx)
		if err := a.Close(); err != nil {
			a.logger.Warn("shutdown incomplete", "error", err)
		}
		if runErr != nil {
			return runErr
		}
		if reason == ReasonShutdown {
			return nil
		}
		a.logger.Info("restarting endpoint", "reason", reason.String())
	}
}
