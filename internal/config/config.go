// Package config holds the runtime options of the seabattle command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rhinci/Morskoy-boy/pkg"
)

// Config holds runtime wiring options for a player process.
type Config struct {
	PlayerName string        // empty picks Player_NNNN
	Address    string        // host to dial when joining
	Port       int           // port to host on or dial
	Linger     time.Duration // how long to keep the link after the match ends
	LogLevel   string        // debug, info, warn or error

	LogFile string // match log JSON file; used when no bucket is set
	S3      S3

	SpectatorAddr string // listen address of the spectator feed; empty disables it
	Metrics       bool   // expose /metrics on the spectator feed
}

// S3 selects an S3 bucket for the match log.
type S3 struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

func (s S3) Enabled() bool {
	return s.Bucket != ""
}

func Default() Config {
	return Config{
		Address:  "127.0.0.1",
		Port:     pkg.DefaultPort,
		Linger:   5 * time.Second,
		LogLevel: "info",
		LogFile:  "game_log.json",
		S3: S3{
			Region: "us-east-1",
		},
		Metrics: true,
	}
}

var (
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
	ErrInvalidLinger   = errors.New("linger must not be negative")
	ErrInvalidLogLevel = errors.New("unknown log level")
	ErrMissingRegion   = errors.New("s3 region is required when a bucket is set")
)

// Validate reports every invalid option at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPort, c.Port))
	}
	if c.Linger < 0 {
		errs = append(errs, ErrInvalidLinger)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.S3.Enabled() && c.S3.Region == "" {
		errs = append(errs, ErrMissingRegion)
	}
	return errors.Join(errs...)
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
}
