// Package config defines the server configuration structure.
package config

import "github.com/yndnr/miniredis-go/internal/resp"

// Default configuration values.
const (
	DefaultAddr = "127.0.0.1"
	DefaultPort = 6379

	DefaultSnapshotPath = "dump.mrdb"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr: DefaultAddr,
			Port: DefaultPort,
		},
		Proto: ProtoSection{
			MaxBulkLen:   resp.DefaultMaxBulkLen,
			MaxArrayLen:  resp.DefaultMaxArrayLen,
			MaxNesting:   resp.DefaultMaxNesting,
			MaxInlineLen: resp.DefaultMaxInlineLen,
		},
		Storage: StorageSection{
			SnapshotPath: DefaultSnapshotPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
