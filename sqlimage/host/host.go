// Package host exposes the entry points a host database calls with image
// values: building, mutating, querying and copying embedded databases. Every
// call works on a private engine instance that is discarded before the call
// returns, so a Host is safe for concurrent use.
package host

import (
	"context"
	"log/slog"

	"github.com/tomyedwab/sqlimage/sqlimage/bridge"
	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// Config controls how a Host materializes images and copies them to disk.
type Config struct {
	// Strategy defaults to bridge.MemoryStrategy.
	Strategy bridge.Strategy
	// Backup bounds Export's page copy. Zero fields take bridge defaults.
	Backup bridge.BackupPolicy
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Host runs bridge operations against images.
type Host struct {
	strategy bridge.Strategy
	backup   bridge.BackupPolicy
	logger   *slog.Logger
}

// New creates a Host from cfg.
func New(cfg Config) *Host {
	if cfg.Strategy == nil {
		cfg.Strategy = bridge.MemoryStrategy{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Backup.Logger == nil {
		cfg.Backup.Logger = cfg.Logger
	}
	return &Host{
		strategy: cfg.Strategy,
		backup:   cfg.Backup,
		logger:   cfg.Logger.With("strategy", cfg.Strategy.Name()),
	}
}

// Strategy returns the strategy used to materialize images.
func (h *Host) Strategy() bridge.Strategy {
	return h.strategy
}

func (h *Host) fail(ctx context.Context, op string, err error) error {
	h.logger.WarnContext(ctx, "Operation failed",
		"op", op,
		"error_type", types.TypeOf(err).String(),
		"error", err)
	return err
}
