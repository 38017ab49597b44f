package kv

import (
	"context"
	"fmt"
	"strings"
)

// Drivers understood by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config selects and parameterises a backend.
type Config struct {
	Driver      string
	Dir         string // file
	DSN         string // sqlite path or postgres DSN
	RedisURL    string
	RedisPrefix string
}

// Open constructs the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverFile:
		return NewFile(cfg.Dir)
	case DriverSQLite:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("kv: sqlite requires a database path")
		}
		return OpenSQLite(ctx, cfg.DSN)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("kv: postgres requires a DSN")
		}
		return OpenPostgres(ctx, cfg.DSN)
	case DriverRedis:
		return ConnectRedis(cfg.RedisURL, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", cfg.Driver)
	}
}
