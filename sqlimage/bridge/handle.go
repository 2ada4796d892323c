package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

const driverName = "sqlite3"

// Handle is an exclusively-owned connection to one engine instance. It is
// created at the start of a call and closed before the call returns.
type Handle struct {
	db   *sqlx.DB
	conn *sqlx.Conn
	path string // backing file, empty for in-memory handles
	temp bool   // remove path (and journals) on Close
}

// open creates a single-connection pool and pins its only connection, so that
// an in-memory database is never split across two connections.
func open(ctx context.Context, dsn string) (*Handle, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Connx(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Handle{db: db, conn: conn}, nil
}

func openMemory(ctx context.Context) (*Handle, error) {
	return open(ctx, ":memory:")
}

// Conn returns the pinned connection. Callers must not close it.
func (h *Handle) Conn() *sqlx.Conn {
	return h.conn
}

// Path returns the file backing the handle, or "" for an in-memory handle.
func (h *Handle) Path() string {
	return h.path
}

// raw runs fn against the go-sqlite3 connection underneath the handle. The
// connection must not be retained after fn returns.
func (h *Handle) raw(fn func(c *sqlite3.SQLiteConn) error) error {
	if h.conn == nil {
		return fmt.Errorf("handle is closed")
	}
	return h.conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c)
	})
}

// InTransaction reports whether a script left a transaction open on the
// handle.
func (h *Handle) InTransaction() (bool, error) {
	var open bool
	err := h.raw(func(c *sqlite3.SQLiteConn) error {
		open = !c.AutoCommit()
		return nil
	})
	return open, err
}

// release closes the connection and pool but leaves any backing file in place.
func (h *Handle) release() error {
	if h.conn == nil {
		return nil
	}
	connErr := h.conn.Close()
	dbErr := h.db.Close()
	h.conn = nil
	h.db = nil
	return errors.Join(connErr, dbErr)
}

// Close discards the handle. For temp-file handles the file and any journal
// files are removed. Close is idempotent.
func (h *Handle) Close() error {
	err := h.release()
	if h.temp && h.path != "" {
		for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
			if rmErr := os.Remove(h.path + suffix); rmErr != nil && !os.IsNotExist(rmErr) {
				err = errors.Join(err, rmErr)
			}
		}
		h.temp = false
	}
	return err
}

// Snapshot serializes the main schema of a live handle into a Go-owned byte
// slice without closing the handle. The image is always in rollback journal
// mode, whatever the handle's journal mode.
func Snapshot(ctx context.Context, h *Handle) (types.Image, error) {
	var image types.Image
	err := h.raw(func(c *sqlite3.SQLiteConn) error {
		data, err := c.Serialize("main")
		if err != nil {
			return err
		}
		image = rollbackHeader(data)
		return nil
	})
	if err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeSerialize, "couldn't serialize database", err)
	}
	return image, nil
}
