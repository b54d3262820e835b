// meshrpc is a fire-and-forget RPC client built on per-endpoint connection
// pools.
//
// Usage:
//
//	meshrpc send <address> [payload...]
//
// With no payload arguments, payloads are read from stdin, one per line.
//
// Flags:
//
//	-config string
//	    Path to configuration file (default "~/.meshrpc/config.toml")
//	-network string
//	    Transport network, "tcp" or "i2p" (overrides config)
//	-sam string
//	    SAM bridge address (overrides config)
//	-metrics string
//	    Serve Prometheus metrics on this address (overrides config)
//	-v
//	    Enable verbose logging
//	-version
//	    Print version and exit
//
// See https://github.com/go-i2p/meshrpc for more information.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-i2p/meshrpc/lib/config"
	"github.com/go-i2p/meshrpc/lib/metrics"
	"github.com/go-i2p/meshrpc/lib/pool"
	"github.com/go-i2p/meshrpc/lib/transport"
	"github.com/go-i2p/meshrpc/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultConfigPath := filepath.Join(homeDir, ".meshrpc", "config.toml")

	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	network := flag.String("network", "", "Transport network, \"tcp\" or \"i2p\" (overrides config)")
	samAddr := flag.String("sam", "", "SAM bridge address (overrides config)")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address (overrides config)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "meshrpc - Pooled fire-and-forget RPC client\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  meshrpc send <address> [payload...]   Send payloads to an endpoint\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("meshrpc version %s\n", version.Full())
		return 0
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if *network != "" {
		cfg.Transport.Network = *network
	}
	if *samAddr != "" {
		cfg.Transport.SAMAddress = *samAddr
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return 1
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 1
	}

	switch args[0] {
	case "send":
		return handleSend(args[1:], logger, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		return 1
	}
}

// handleSend submits each payload to the endpoint's pool and waits for the
// queue to drain before reporting.
func handleSend(args []string, logger *slog.Logger, cfg *config.Config) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: meshrpc send <address> [payload...]")
		return 1
	}
	addr := args[0]

	dialer, err := buildDialer(cfg)
	if err != nil {
		logger.Error("failed to create dialer", "error", err)
		return 1
	}

	factory := pool.NewFactory(dialer, pool.Config{
		MaxConnections: cfg.Pool.MaxConnections,
		WriteTimeout:   cfg.Pool.WriteTimeout,
	})
	defer func() {
		if err := factory.ShutdownAll(); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		metrics.RecordStartTime()
		go func() {
			logger.Info("serving metrics", "listen", cfg.Metrics.Listen)
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	p := factory.NewPool(addr)
	defer p.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var failures int64
	submit := func(payload []byte) bool {
		req := pool.NewRequest(payload, func(err error) {
			atomic.AddInt64(&failures, 1)
			logger.Warn("request failed", "endpoint", addr, "error", err)
		})
		if err := p.Submit(req); err != nil {
			logger.Error("submit rejected", "error", err)
			return false
		}
		return true
	}

	if len(args) > 1 {
		for _, payload := range args[1:] {
			if !submit([]byte(payload)) {
				return 1
			}
		}
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Bytes()
			payload := make([]byte, len(line))
			copy(payload, line)
			if !submit(payload) {
				return 1
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("reading stdin", "error", err)
			return 1
		}
	}

	// Submissions are asynchronous; wait for the pending queue to drain
	// (or the requests to age out) before tearing the pool down.
	deadline := time.After(cfg.Pool.WriteTimeout + cfg.Transport.DialTimeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			return 1
		case <-deadline:
			logger.Warn("timed out waiting for queue to drain", "pending", p.Stats().PendingWrites)
			return 1
		case <-tick.C:
		}
		if p.Stats().PendingWrites == 0 {
			break
		}
	}

	stats := p.Stats()
	logger.Info("done",
		"endpoint", stats.Endpoint,
		"sent", stats.SentCount,
		"failures", atomic.LoadInt64(&failures),
		"connections", stats.OpenCount,
	)
	if atomic.LoadInt64(&failures) > 0 {
		return 1
	}
	return 0
}

// buildDialer selects the transport from configuration.
func buildDialer(cfg *config.Config) (transport.Dialer, error) {
	switch cfg.Transport.Network {
	case "i2p":
		return transport.NewI2PDialer(cfg.Transport.TunnelName, cfg.Transport.SAMAddress, nil), nil
	case "tcp":
		return &transport.NetDialer{
			Network: "tcp",
			Timeout: cfg.Transport.DialTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("unknown network %q", cfg.Transport.Network)
	}
}
