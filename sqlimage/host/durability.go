package host

import (
	"context"
	"os"

	"github.com/tomyedwab/sqlimage/sqlimage/bridge"
	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// Export writes image to the database file at path with a page-level backup
// and reports whether the copy completed. The destination is closed, and so
// flushed, before Export returns true.
func (h *Host) Export(ctx context.Context, image types.Image, path string) (bool, error) {
	src, err := h.strategy.Materialize(ctx, image)
	if err != nil {
		return false, h.fail(ctx, "export", err)
	}
	defer src.Close()

	dst, err := bridge.OpenPersistent(ctx, path)
	if err != nil {
		return false, h.fail(ctx, "export",
			types.NewErrorWithCause(types.ErrorTypeBackup, "couldn't open backup destination", err))
	}
	if err := bridge.Copy(ctx, src, dst, h.backup); err != nil {
		_ = dst.Close()
		return false, h.fail(ctx, "export", err)
	}
	if err := dst.Close(); err != nil {
		return false, h.fail(ctx, "export",
			types.NewErrorWithCause(types.ErrorTypeBackup, "couldn't close backup destination", err))
	}

	h.logger.InfoContext(ctx, "Exported image", "path", path, "bytes", len(image))
	return true, nil
}

// Import reads the database file at path into an image.
func (h *Host) Import(ctx context.Context, path string) (types.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, h.fail(ctx, "import",
			types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't open database file", err))
	}
	handle, err := bridge.OpenPersistent(ctx, path)
	if err != nil {
		return nil, h.fail(ctx, "import", err)
	}
	defer handle.Close()

	image, err := bridge.Snapshot(ctx, handle)
	if err != nil {
		return nil, h.fail(ctx, "import", err)
	}
	h.logger.InfoContext(ctx, "Imported image", "path", path, "bytes", len(image))
	return image, nil
}
