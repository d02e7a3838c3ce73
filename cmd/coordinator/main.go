package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RobiAdawiya/andalan-solution/internal/config"
	"github.com/RobiAdawiya/andalan-solution/internal/coordinator"
	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

func main() {
	// 1. Load floor.yml (defaults when absent) with environment overrides
	configPath := os.Getenv("FLOOR_CONFIG")
	if configPath == "" {
		configPath = "floor.yml"
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load %s: %v\n", configPath, err)
		os.Exit(1)
	}

	// 2. Setup graceful shutdown
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// 3. Open the ledger, waiting for it to become available
	store, err := ledger.OpenWait(runCtx, cfg.Ledger.Path, cfg.Ledger.WaitTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 4. Create bus client
	bus, err := floorbus.NewClientFromURL(cfg.Bus.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	// 5. Verify broker connectivity; the watchdog handles later outages
	if err := bus.Ping(runCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Redis not accessible yet: %v\n", err)
	}

	healthAddr := cfg.Coordinator.HealthAddr
	if !cfg.Coordinator.HealthEnabled() {
		healthAddr = ""
	}

	engine := coordinator.NewEngine(bus, store, coordinator.Options{
		Topics:           cfg.Bus.Topics,
		SafetyTag:        cfg.Coordinator.SafetyTag,
		HealthAddr:       healthAddr,
		WatchdogInterval: cfg.Bus.WatchdogInterval,
		Retry:            cfg.Bus.RetryPolicy(),
	})

	fmt.Printf("Coordinator starting (ledger=%s, safety tag=%s)\n", cfg.Ledger.Path, cfg.Coordinator.SafetyTag)

	// 6. Start engine in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(runCtx)
	}()

	// 7. Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		fmt.Printf("Received signal %v, shutting down gracefully...\n", sig)
		cancel()
		<-errCh
	case runErr := <-errCh:
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Coordinator error: %v\n", runErr)
			store.Close()
			bus.Close()
			os.Exit(1)
		}
	}

	fmt.Println("Coordinator stopped")
}
