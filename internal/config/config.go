// Package config loads runtime settings from PBV_-prefixed environment variables.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"pbv-lab/internal/profile"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "PBV_"

// Config represents the application configuration.
type Config struct {
	Log        LogConfig        `env:", prefix=LOG_"`
	HTTP       HTTPConfig       `env:", prefix=HTTP_"`
	Postgres   PostgresConfig   `env:", prefix=POSTGRES_"`
	ClickHouse ClickHouseConfig `env:", prefix=CLICKHOUSE_"`
	Engine     EngineConfig     `env:", prefix=ENGINE_"`
	Feed       FeedConfig       `env:", prefix=FEED_"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=text"` // text | json
}

// HTTPConfig holds server configuration.
type HTTPConfig struct {
	Addr            string        `env:"ADDR, default=:8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT, default=15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT, default=60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES, default=33554432"`

	// Upper bounds on client-supplied profile parameters.
	MaxWindow int `env:"MAX_WINDOW, default=100000"`
	MaxBins   int `env:"MAX_BINS, default=10000"`
	MaxN      int `env:"MAX_N, default=10000"`
}

// PostgresConfig holds the series and run store connection.
type PostgresConfig struct {
	DSN      string `env:"DSN"`
	MaxConns int32  `env:"MAX_CONNS, default=8"`
}

// ClickHouseConfig holds the profile row store connection.
type ClickHouseConfig struct {
	DSN string `env:"DSN"`
}

// EngineConfig holds executor sizing and default profile parameters.
type EngineConfig struct {
	Workers     int  `env:"WORKERS, default=0"` // 0 uses GOMAXPROCS
	FanOut      int  `env:"FAN_OUT, default=64"`
	WindowSize  int  `env:"WINDOW, default=20"`
	Bins        int  `env:"BINS, default=10"`
	CenterLabel bool `env:"CENTER_LABEL, default=false"`
	Round       int  `env:"ROUND, default=-1"`
}

// FeedConfig holds the upstream tick feed used by the watch command.
type FeedConfig struct {
	URL               string        `env:"URL"`
	Subscribe         string        `env:"SUBSCRIBE"` // sent after every connect
	ReconnectDelay    time.Duration `env:"RECONNECT_DELAY, default=1s"`
	MaxReconnectDelay time.Duration `env:"MAX_RECONNECT_DELAY, default=30s"`
	PingInterval      time.Duration `env:"PING_INTERVAL, default=30s"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT, default=60s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT, default=10s"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l. Keys are looked up with EnvPrefix.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine workers must not be negative, got %d", c.Engine.Workers)
	}
	if c.Engine.FanOut <= 0 {
		return fmt.Errorf("engine fan-out must be positive, got %d", c.Engine.FanOut)
	}
	if c.Feed.ReconnectDelay <= 0 || c.Feed.MaxReconnectDelay < c.Feed.ReconnectDelay {
		return fmt.Errorf("feed reconnect delay must be positive and at most the max delay")
	}
	if c.Feed.PingInterval <= 0 || c.Feed.ReadTimeout <= 0 || c.Feed.WriteTimeout <= 0 {
		return fmt.Errorf("feed ping interval, read timeout and write timeout must be positive")
	}
	if c.HTTP.MaxWindow <= 0 || c.HTTP.MaxBins <= 0 || c.HTTP.MaxN <= 0 {
		return fmt.Errorf("http parameter limits must be positive")
	}
	return nil
}

// Params returns the default profile parameters.
func (e EngineConfig) Params() profile.Params {
	return profile.Params{
		WindowSize:  e.WindowSize,
		Bins:        e.Bins,
		CenterLabel: e.CenterLabel,
		Round:       e.Round,
	}
}

// Executor returns the row driver the engine should use.
func (e EngineConfig) Executor(sequential bool) profile.Executor {
	if sequential {
		return profile.Sequential{}
	}
	return profile.Parallel{Workers: e.Workers, FanOut: e.FanOut}
}
