// Package main provides the entry point for mini-redis.
//
// mini-redis is a single-node, in-memory key/value server speaking the
// Redis RESP v2 wire protocol over TCP, with snapshot persistence.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/miniredis-go/internal/infra/confloader"
	"github.com/yndnr/miniredis-go/internal/infra/shutdown"
	"github.com/yndnr/miniredis-go/internal/keyspace"
	"github.com/yndnr/miniredis-go/internal/processor"
	"github.com/yndnr/miniredis-go/internal/resp"
	"github.com/yndnr/miniredis-go/internal/server"
	"github.com/yndnr/miniredis-go/internal/server/config"
	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
	"github.com/yndnr/miniredis-go/internal/telemetry/metric"
)

// Build information, set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "mini-redis",
		Usage:   "single-node in-memory RESP key/value server",
		Version: version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "TCP listen port (1..65535)",
				Value: config.DefaultPort,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to YAML configuration file",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)
	log.Info("starting mini-redis",
		"version", version,
		"commit", commit,
		"addr", cfg.Server.Addr,
		"port", cfg.Server.Port)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	var metrics *metric.Registry
	if cfg.Telemetry.MetricsAddr != "" {
		metrics = metric.NewRegistry()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv := &http.Server{Addr: cfg.Telemetry.MetricsAddr, Handler: mux}
		go func() {
			log.Info("metrics listening", "addr", cfg.Telemetry.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", "error", err)
			}
		}()
		shutdownHandler.OnShutdown(metricsSrv.Shutdown)
	}

	store := keyspace.New()
	proc := processor.New(store,
		processor.WithSnapshotPath(cfg.Storage.SnapshotPath),
		processor.WithMetrics(metrics),
		processor.WithLogger(log))

	srv := server.New(&server.Config{
		Addr:        net.JoinHostPort(cfg.Server.Addr, strconv.Itoa(cfg.Server.Port)),
		IdleTimeout: cfg.Server.ConnIdleTimeout,
		RateLimit:   cfg.Server.RateLimit,
		Limits: resp.Limits{
			MaxBulkLen:   cfg.Proto.MaxBulkLen,
			MaxArrayLen:  cfg.Proto.MaxArrayLen,
			MaxNesting:   cfg.Proto.MaxNesting,
			MaxInlineLen: cfg.Proto.MaxInlineLen,
		},
	}, proc, log, metrics)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	shutdownHandler.OnShutdown(srv.Shutdown)

	if path := c.String("config"); path != "" {
		watcher, err := watchConfig(path, log)
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, the optional config file, environment
// variables, and the --port flag, in increasing priority.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if c.IsSet("port") {
		if err := loader.LoadMap(map[string]any{"server.port": c.Int("port")}); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// watchConfig applies log-level changes from the config file at
// runtime.
func watchConfig(path string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(log)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(string) {
		fresh := config.Default()
		loader := confloader.NewLoader(confloader.WithConfigFile(path))
		if err := loader.Load(fresh); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if err := config.Verify(fresh); err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if fresh.Log.Level != logger.GetLevel() {
			logger.SetLevel(fresh.Log.Level)
			log.Info("log level changed", "level", fresh.Log.Level)
		}
	})
	if err := watcher.Watch(path); err != nil {
		_ = watcher.Stop()
		return nil, err
	}
	watcher.Start()
	return watcher, nil
}
