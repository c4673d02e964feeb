// flashkv is an in-memory, Redis-compatible key-value server.
//
// Usage:
//
//	flashkv [flags]
//
// Flags:
//
//	-config string       JSON configuration file (default "flashkv.json")
//	-addr string         Server address (default ":6379")
//	-requirepass string  Password for AUTH (default: none)
//	-maxclients int      Maximum number of clients (default 10000)
//	-timeout duration    Idle read timeout, 0 disables (default 0)
//	-loglevel string     Log level: debug, info, warn, error (default "info")
//	-lockfile string     Single-instance lock file (default "flashkv.lock")
//	-version             Show version and exit
//
// Flags given on the command line override the configuration file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/flashdb/flashkv/internal/config"
	"github.com/flashdb/flashkv/internal/engine"
	"github.com/flashdb/flashkv/internal/script"
	"github.com/flashdb/flashkv/internal/server"
	"github.com/flashdb/flashkv/internal/version"
)

func main() {
	configFile := flag.String("config", "flashkv.json", "JSON configuration file")
	addr := flag.String("addr", ":6379", "Server address")
	requirePass := flag.String("requirepass", "", "Password for AUTH command")
	maxClients := flag.Int("maxclients", 10000, "Maximum number of clients")
	timeout := flag.Duration("timeout", 0, "Idle read timeout (0 = no timeout)")
	logLevel := flag.String("loglevel", "info", "Log level: debug, info, warn, error")
	lockFile := flag.String("lockfile", "flashkv.lock", "Single-instance lock file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "requirepass":
			cfg.Password = *requirePass
		case "maxclients":
			cfg.MaxClients = *maxClients
		case "timeout":
			cfg.ReadTimeout = config.Duration(*timeout)
		case "loglevel":
			cfg.LogLevel = *logLevel
		case "lockfile":
			cfg.LockFile = *lockFile
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	if cfg.LockFile != "" {
		lock := flock.New(cfg.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			log.Fatalf("Failed to lock %s: %v", cfg.LockFile, err)
		}
		if !locked {
			log.Fatalf("Another flashkv instance holds %s", cfg.LockFile)
		}
		defer lock.Unlock()
	}

	e := engine.New(
		engine.WithOptions(cfg.EngineOptions()),
		engine.WithLogger(logger),
	)

	maxBody, _ := cfg.Script.MaxBodyBytes()
	script.Register(e, script.NewRunner(
		script.WithLogger(logger.With("component", "script")),
		script.WithMaxBody(maxBody),
	))

	srv := server.New(cfg.Addr, e, cfg.ServerConfig(), server.WithLogger(logger.With("component", "server")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "version", version.Version, "addr", cfg.Addr, "pid", os.Getpid())

	start := time.Now()
	if err := srv.Start(ctx); err != nil {
		e.Close()
		log.Fatalf("Server error: %v", err)
	}
	if err := e.Close(); err != nil {
		logger.Error("engine close", "error", err)
	}
	logger.Info("shutdown complete", "uptime", time.Since(start).Round(time.Second).String(), "summary", e.Summary())
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
