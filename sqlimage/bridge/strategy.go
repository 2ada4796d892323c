package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// MaxAdoptSize is the largest image MemoryStrategy can hand to the engine
// allocator in one piece.
const MaxAdoptSize = 1 << 30

// Strategy turns images into live handles and back. Capture always closes
// the handle, whether or not it succeeds.
type Strategy interface {
	Name() string
	Materialize(ctx context.Context, image types.Image) (*Handle, error)
	Capture(ctx context.Context, h *Handle) (types.Image, error)
}

// --- In-memory strategy ---

// MemoryStrategy materializes images as in-memory databases.
type MemoryStrategy struct{}

func (MemoryStrategy) Name() string { return "memory" }

// Materialize opens a fresh in-memory database and loads image into it. A
// zero-length image yields the empty database.
func (MemoryStrategy) Materialize(ctx context.Context, image types.Image) (*Handle, error) {
	h, err := openMemory(ctx)
	if err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't open an in-memory database", err)
	}
	if len(image) == 0 {
		return h, nil
	}
	if err := adopt(ctx, h, image); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

// Capture serializes the handle and closes it.
func (MemoryStrategy) Capture(ctx context.Context, h *Handle) (types.Image, error) {
	defer h.Close()
	return Snapshot(ctx, h)
}

// adopt loads image into h.
//
// Precondition: h is a fresh, empty in-memory handle.
//
// The engine takes ownership of a deserialized buffer and will free it with
// its own allocator, so image is copied into a region obtained from
// sqlite3_malloc64 (SQLiteConn.Deserialize does the allocation and copy) on a
// staging connection. That region cannot grow, so its pages are then copied
// into h with the backup API; h ends up with engine-managed, growable pages
// and the staging buffer is released by the engine when staging closes.
func adopt(ctx context.Context, h *Handle, image types.Image) error {
	if len(image) > MaxAdoptSize {
		return types.NewError(types.ErrorTypeAllocation,
			fmt.Sprintf("image of %d bytes exceeds the %d byte adopt limit", len(image), MaxAdoptSize))
	}

	image = rollbackHeader(image)
	staging, err := openMemory(ctx)
	if err != nil {
		return types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't open a staging database", err)
	}
	defer staging.Close()

	err = staging.raw(func(c *sqlite3.SQLiteConn) error {
		return c.Deserialize(image, "main")
	})
	if err != nil {
		return types.NewErrorWithCause(types.ErrorTypeAllocation, "couldn't hand the image to the engine allocator", err)
	}

	if err := copyAll(h, staging); err != nil {
		return types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't open the database image", err)
	}
	return nil
}

// copyAll copies every page of src into dst in a single backup step. Both
// handles are private to the caller, so the step never sees a lock.
func copyAll(dst, src *Handle) error {
	return dst.raw(func(d *sqlite3.SQLiteConn) error {
		return src.raw(func(s *sqlite3.SQLiteConn) error {
			b, err := d.Backup("main", s, "main")
			if err != nil {
				return err
			}
			done, stepErr := b.Step(-1)
			finishErr := b.Finish()
			if stepErr != nil {
				return stepErr
			}
			if finishErr != nil {
				return finishErr
			}
			if !done {
				return errors.New("backup step did not complete")
			}
			return nil
		})
	})
}

// --- Temp-file strategy ---

// TempFileStrategy materializes images as private temporary files in Dir
// (os.TempDir() when empty).
type TempFileStrategy struct {
	Dir string
}

func (TempFileStrategy) Name() string { return "tempfile" }

// Materialize writes image to a new temporary file and opens it.
func (s TempFileStrategy) Materialize(ctx context.Context, image types.Image) (*Handle, error) {
	f, err := os.CreateTemp(s.Dir, "sqlimage-"+uuid.NewString()+"-*.db")
	if err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't create a temporary database file", err)
	}
	path := f.Name()
	_, err = f.Write(rollbackHeader(image))
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't write the temporary database file", err)
	}

	h, err := open(ctx, persistentDSN(path))
	if err != nil {
		_ = os.Remove(path)
		return nil, types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't open the temporary database file", err)
	}
	h.path = path
	h.temp = true

	if err := probe(ctx, h); err != nil {
		_ = h.Close()
		return nil, types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't open the database image", err)
	}
	return h, nil
}

// Capture closes the handle and reads the backing file.
func (TempFileStrategy) Capture(ctx context.Context, h *Handle) (types.Image, error) {
	defer h.Close()
	if h.path == "" {
		return nil, types.NewError(types.ErrorTypeSerialize, "handle has no backing file")
	}
	if err := writeFirstPage(ctx, h); err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeSerialize, "couldn't initialize an empty database", err)
	}
	if err := h.release(); err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeSerialize, "couldn't flush the temporary database file", err)
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeSerialize, "couldn't read the temporary database file", err)
	}
	return rollbackHeader(data), nil
}

// writeFirstPage makes SQLite lay down page 1 of a database that nothing has
// written yet. A zero-length file is a valid empty database but not a valid
// image. It runs after the caller's statements so that pragmas such as
// page_size still apply, which matches what Serialize does for an in-memory
// database.
func writeFirstPage(ctx context.Context, h *Handle) error {
	var pages int64
	if err := h.conn.GetContext(ctx, &pages, "PRAGMA page_count"); err != nil {
		return err
	}
	if pages > 0 {
		return nil
	}
	_, err := h.conn.ExecContext(ctx, "BEGIN IMMEDIATE; COMMIT;")
	return err
}

// probe forces SQLite to read the database header.
func probe(ctx context.Context, h *Handle) error {
	var n int
	return h.conn.GetContext(ctx, &n, "SELECT count(*) FROM sqlite_master")
}
