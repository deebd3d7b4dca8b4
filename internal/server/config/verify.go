// Package config defines the server configuration structure.
package config

import (
	"fmt"
)

// Verify checks a loaded configuration for values the server cannot
// run with.
func Verify(cfg *ServerConfig) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range 1..65535", cfg.Server.Port)
	}
	if cfg.Server.ConnIdleTimeout < 0 {
		return fmt.Errorf("config: server.conn_idle_timeout must not be negative")
	}
	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must not be negative")
	}

	if cfg.Proto.MaxBulkLen < 0 {
		return fmt.Errorf("config: proto.max_bulk_len must not be negative")
	}
	if cfg.Proto.MaxArrayLen < 0 {
		return fmt.Errorf("config: proto.max_array_len must not be negative")
	}
	if cfg.Proto.MaxNesting < 0 {
		return fmt.Errorf("config: proto.max_nesting must not be negative")
	}
	if cfg.Proto.MaxInlineLen < 0 {
		return fmt.Errorf("config: proto.max_inline_len must not be negative")
	}

	if cfg.Storage.SnapshotPath == "" {
		return fmt.Errorf("config: storage.snapshot_path must not be empty")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text", "console":
	default:
		return fmt.Errorf("config: unknown log.format %q", cfg.Log.Format)
	}
	return nil
}
