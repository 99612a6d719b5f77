// Command mash-endpoint runs a MASH lighting endpoint.
//
// The endpoint is described by a YAML configuration: the device type and
// endpoints to build, buttons, the LED strip, MQTT transport and mDNS
// discovery. After a restart or factory reset the configuration is read
// again and the endpoint is booted from scratch.
//
// Usage:
//
//	mash-endpoint [flags]
//
// Flags:
//
//	-config string      Configuration file path (default "mash-endpoint.yaml")
//	-log-level string   Override the configured log level: debug, info, warn, error
//	-interactive        Start the interactive console
//
// Examples:
//
//	# Start with the default configuration file
//	mash-endpoint
//
//	# Start a switch with a console for pressing buttons
//	mash-endpoint -config /etc/mash/switch.yaml -interactive
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mash-protocol/mash-endpoint/cmd/mash-endpoint/interactive"
	"github.com/mash-protocol/mash-endpoint/internal/app"
	"github.com/mash-protocol/mash-endpoint/internal/config"
)

// version is set at build time.
var version = "dev"

var (
	configFile      string
	logLevel        string
	interactiveMode bool
)

func init() {
	flag.StringVar(&configFile, "config", "mash-endpoint.yaml", "Configuration file path")
	flag.StringVar(&logLevel, "log-level", "", "Override the configured log level: debug, info, warn, error")
	flag.BoolVar(&interactiveMode, "interactive", false, "Start the interactive console")
}

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Println("MASH Endpoint")
	log.Println("=============")
	log.Printf("Version: %s", version)
	log.Printf("Config: %s", configFile)

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		return cfg, nil
	}

	// Validate the configuration before anything is started.
	cfg, err := load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := app.Options{Version: version}
	booted := printCommissioningInfo

	if interactiveMode {
		console, err := interactive.New()
		if err != nil {
			log.Fatalf("Failed to start console: %v", err)
		}
		log.SetOutput(console.Stdout())
		opts.Logger = config.NewLoggerTo(console.Stdout(), cfg.Logging, version)
		booted = func(a *app.App) {
			console.SetApp(a)
			printCommissioningInfo(a)
		}
		go console.Run(ctx, cancel)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.Printf("Received signal: %v", sig)
			log.Println("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := app.Supervise(ctx, load, opts, booted); err != nil {
		log.Fatalf("Endpoint failed: %v", err)
	}

	log.Println("Goodbye!")
}

func printCommissioningInfo(a *app.App) {
	if a.Restored() {
		log.Printf("Node %016X restored from %s", a.Node().NodeID(), a.Config().Persistence.Path)
		return
	}
	creds := a.Credentials()
	log.Println("")
	log.Println("========================================")
	log.Println("  COMMISSIONING INFORMATION")
	log.Println("========================================")
	log.Printf("  Discriminator: %d", creds.Discriminator)
	log.Printf("  Manual code:   %s", creds.ManualCode())
	log.Printf("  QR payload:    %s", a.QRCode())
	log.Println("========================================")
	log.Println("")
	if a.Discovery() == nil {
		log.Println("mDNS discovery is disabled")
	}
}
