package main

import (
	"chat-relay/runtime"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups run before main decides on the exit code.
func run() error {
	// 1. Configuration & Logger
	config, err := loadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Bind, there is nothing to serve without the port
	address := config.Address()
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Serve until a signal arrives
	server := runtime.NewServer(log, listener, runtime.Options{
		WriteTimeout:        config.WriteTimeout,
		RestartInterval:     config.RestartInterval,
		TelemetryBufferSize: config.TelemetryBufferSize,
		HeartbeatInterval:   config.HeartbeatInterval,
	})
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("relay failed: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
