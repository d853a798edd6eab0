// Command cairnd runs the cairn system daemon: it restores the system
// from its snapshot image (or boots fresh), hands the running system to a
// front end, and writes a new image at orderly shutdown.
//
// Transport front ends (HTTP, CLI) are separate programs; this binary
// owns only the system lifecycle.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cairnfs/cairn/internal/logger"
	"github.com/cairnfs/cairn/pkg/config"
	"github.com/cairnfs/cairn/pkg/system"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/cairn/config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cairnd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return err
	}

	hasher, err := config.CreateHasher(&cfg.Security.Hasher)
	if err != nil {
		return err
	}

	opts := system.Options{
		SessionWindow:    cfg.Session.Window,
		LockoutThreshold: cfg.Security.LockoutThreshold,
		Hasher:           hasher,
	}

	sys, err := system.Boot(cfg.Snapshot.Path, opts)
	if err != nil {
		return fmt.Errorf("failed to boot system from %s: %w", cfg.Snapshot.Path, err)
	}
	logger.Info("system ready (image: %s, session window: %s)", cfg.Snapshot.Path, cfg.Session.Window)

	// Run until interrupted. Front ends attach to the system through
	// their own processes; the daemon only guards the lifecycle.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	received := <-signals
	logger.Info("received %s, packing system image", received)

	image := sys.Pack()
	if err := system.WriteImageFile(cfg.Snapshot.Path, image); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	logger.Info("image written to %s", cfg.Snapshot.Path)
	return nil
}
