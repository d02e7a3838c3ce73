package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RobiAdawiya/andalan-solution/internal/config"
	"github.com/RobiAdawiya/andalan-solution/internal/ingest"
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

	policy, err := ingest.ParseOverflowPolicy(cfg.Ingest.OverflowPolicy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 2. Create bus client
	bus, err := floorbus.NewClientFromURL(cfg.Bus.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	// 3. Storage is opened lazily by the sink and reopened after failures
	queue := ingest.NewQueue(cfg.Ingest.QueueCapacity, policy)
	sink := ingest.NewSink(ingest.LedgerOpener(cfg.Ledger.Path), cfg.Ingest.MachineID, cfg.Ingest.RetryPolicy())
	pipeline := ingest.New(bus, queue, sink, ingest.Options{
		Topic:            cfg.Bus.Topics.BatchTelemetry,
		PollTimeout:      cfg.Ingest.PollTimeout,
		WatchdogInterval: cfg.Bus.WatchdogInterval,
		Retry:            cfg.Bus.RetryPolicy(),
	})

	// 4. Setup graceful shutdown
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	fmt.Printf("Ingester starting for machine '%s' on %s (queue=%d, overflow=%s)\n",
		cfg.Ingest.MachineID, cfg.Bus.Topics.BatchTelemetry, cfg.Ingest.QueueCapacity, policy)

	errCh := make(chan error, 1)
	go func() {
		errCh <- pipeline.Start(runCtx)
	}()

	select {
	case sig := <-sigCh:
		fmt.Printf("Received signal %v, shutting down gracefully...\n", sig)
		cancel()
		<-errCh
	case runErr := <-errCh:
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Ingester error: %v\n", runErr)
			bus.Close()
			os.Exit(1)
		}
	}

	fmt.Println("Ingester stopped")
}
