package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

const (
	DefaultPagesPerStep = 5
	DefaultRetryDelay   = 250 * time.Millisecond
	DefaultMaxRetries   = 20
)

// BackupPolicy bounds the page copy performed by Copy. Zero fields take the
// defaults above.
type BackupPolicy struct {
	PagesPerStep int           // pages copied per step
	RetryDelay   time.Duration // sleep before retrying a step that made no progress
	MaxRetries   int           // consecutive no-progress steps before giving up
	Logger       *slog.Logger
}

func (p BackupPolicy) withDefaults() BackupPolicy {
	if p.PagesPerStep <= 0 {
		p.PagesPerStep = DefaultPagesPerStep
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

// Copy performs a page-level backup of src's main database into dst's.
//
// A step that returns busy or locked copies nothing; go-sqlite3 reports it as
// an unfinished step with no error, so a step whose remaining/total page
// counts did not move is treated as a lock and retried after RetryDelay. The
// retry counter resets whenever a step makes progress.
func Copy(ctx context.Context, src, dst *Handle, policy BackupPolicy) error {
	policy = policy.withDefaults()

	err := dst.raw(func(d *sqlite3.SQLiteConn) error {
		return src.raw(func(s *sqlite3.SQLiteConn) error {
			b, err := d.Backup("main", s, "main")
			if err != nil {
				return fmt.Errorf("couldn't create backup operation: %w", err)
			}
			if err := runSteps(ctx, b, policy); err != nil {
				_ = b.Finish()
				return err
			}
			return b.Finish()
		})
	})
	if err == nil {
		return nil
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	return types.NewErrorWithCause(types.ErrorTypeBackup, "page copy failed", err)
}

func runSteps(ctx context.Context, b *sqlite3.SQLiteBackup, policy BackupPolicy) error {
	var lastRemaining, lastTotal, retries int
	for {
		done, err := b.Step(policy.PagesPerStep)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		remaining, total := b.Remaining(), b.PageCount()
		if remaining != lastRemaining || total != lastTotal {
			lastRemaining, lastTotal = remaining, total
			retries = 0
			continue
		}

		retries++
		if retries > policy.MaxRetries {
			return types.NewError(types.ErrorTypeBackup,
				fmt.Sprintf("database still locked after %d retries", policy.MaxRetries))
		}
		policy.Logger.Debug("Backup step blocked, retrying",
			"retry", retries,
			"remaining", remaining,
			"delay", policy.RetryDelay)

		timer := time.NewTimer(policy.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return types.NewErrorWithCause(types.ErrorTypeBackup, "backup interrupted", ctx.Err())
		case <-timer.C:
		}
	}
}
