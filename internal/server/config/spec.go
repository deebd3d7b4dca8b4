// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for mini-redis.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Proto     ProtoSection     `koanf:"proto"`
	Storage   StorageSection   `koanf:"storage"`
	Telemetry TelemetrySection `koanf:"telemetry"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures the TCP endpoint.
type ServerSection struct {
	// Addr is the listen host.
	Addr string `koanf:"addr"`

	// Port is the listen port (1..65535).
	Port int `koanf:"port"`

	// ConnIdleTimeout closes connections idle for this long.
	// Zero disables the idle timeout.
	ConnIdleTimeout time.Duration `koanf:"conn_idle_timeout"`

	// RateLimit is the maximum number of commands per second per IP.
	// Zero disables rate limiting.
	RateLimit int `koanf:"rate_limit"`
}

// ProtoSection bounds the RESP parser. Zero disables a bound.
type ProtoSection struct {
	// MaxBulkLen caps a single bulk string.
	MaxBulkLen int64 `koanf:"max_bulk_len"`

	// MaxArrayLen caps a single array element count.
	MaxArrayLen int64 `koanf:"max_array_len"`

	// MaxNesting caps active array frames.
	MaxNesting int `koanf:"max_nesting"`

	// MaxInlineLen caps buffered bytes before a CRLF.
	MaxInlineLen int64 `koanf:"max_inline_len"`
}

// StorageSection configures persistence.
type StorageSection struct {
	// SnapshotPath is the file used when SAVE/LOAD name no path.
	SnapshotPath string `koanf:"snapshot_path"`
}

// TelemetrySection configures metrics exposure.
type TelemetrySection struct {
	// MetricsAddr serves Prometheus metrics over HTTP when non-empty.
	MetricsAddr string `koanf:"metrics_addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
