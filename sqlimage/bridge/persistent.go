package bridge

import (
	"context"
	"strings"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// persistentDSN disables the driver's busy wait. Lock contention is handled
// by Copy's retry policy, everything else should fail fast.
func persistentDSN(path string) string {
	return path + "?_busy_timeout=0"
}

// OpenPersistent opens (creating if needed) the database file at path. The
// engine manages its own file I/O, so no allocator transfer is involved.
func OpenPersistent(ctx context.Context, path string) (*Handle, error) {
	if path == "" {
		return nil, types.NewError(types.ErrorTypeOpen, "empty database path")
	}
	if strings.ContainsRune(path, '?') {
		return nil, types.NewError(types.ErrorTypeOpen, "database path must not contain '?': "+path)
	}
	h, err := open(ctx, persistentDSN(path))
	if err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't open database file "+path, err)
	}
	h.path = path
	if err := probe(ctx, h); err != nil {
		_ = h.Close()
		return nil, types.NewErrorWithCause(types.ErrorTypeOpen, "couldn't read database file "+path, err)
	}
	return h, nil
}
