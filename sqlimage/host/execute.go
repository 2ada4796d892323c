package host

import (
	"context"
	"strings"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// Execute runs script against a private copy of image and returns the
// resulting image. Statements run in order and the first failure aborts the
// call; image itself is never modified, so on error the caller still holds
// the original value.
func (h *Host) Execute(ctx context.Context, image types.Image, script string) (types.Image, error) {
	handle, err := h.strategy.Materialize(ctx, image)
	if err != nil {
		return nil, h.fail(ctx, "execute", err)
	}

	if strings.TrimSpace(script) != "" {
		if _, err := handle.Conn().ExecContext(ctx, script); err != nil {
			_ = handle.Close()
			return nil, h.fail(ctx, "execute",
				types.NewErrorWithCause(types.ErrorTypeStatement, "query execution failed", err))
		}
		open, err := handle.InTransaction()
		if err == nil && open {
			err = types.NewError(types.ErrorTypeStatement, "script left a transaction open")
		}
		if err != nil {
			_ = handle.Close()
			return nil, h.fail(ctx, "execute", err)
		}
	}

	out, err := h.strategy.Capture(ctx, handle)
	if err != nil {
		return nil, h.fail(ctx, "execute", err)
	}
	h.logger.DebugContext(ctx, "Executed script",
		"input_bytes", len(image),
		"output_bytes", len(out))
	return out, nil
}

// CreateEmpty returns the canonical image of an empty database.
func (h *Host) CreateEmpty(ctx context.Context) (types.Image, error) {
	return h.Execute(ctx, nil, "")
}

// Init runs script against an empty database and returns the result.
func (h *Host) Init(ctx context.Context, script string) (types.Image, error) {
	return h.Execute(ctx, nil, script)
}

// Vacuum rebuilds image, dropping free pages.
func (h *Host) Vacuum(ctx context.Context, image types.Image) (types.Image, error) {
	return h.Execute(ctx, image, "VACUUM")
}
