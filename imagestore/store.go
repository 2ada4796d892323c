// Package imagestore keeps named database images as column values in a host
// SQLite database. It is the storage side of the bridge: images go in and
// come back out byte-for-byte, optionally compressed at rest with zstd or
// lz4.
package imagestore

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// ErrNotFound is returned when no image is stored under a name.
var ErrNotFound = errors.New("image not found")

// Codec names how an image is encoded at rest.
type Codec string

const (
	CodecNone Codec = ""
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// ParseCodec accepts "", "none", "zstd" and "lz4".
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "none":
		return CodecNone, nil
	case string(CodecZstd):
		return CodecZstd, nil
	case string(CodecLZ4):
		return CodecLZ4, nil
	}
	return CodecNone, fmt.Errorf("unknown codec %q", s)
}

// Entry describes one stored image.
type Entry struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Size    int64  `db:"size"`
	Codec   Codec  `db:"codec"`
	Updated int64  `db:"updated"`
}

const imageSchema = `
CREATE TABLE IF NOT EXISTS image_v1 (
	id TEXT PRIMARY KEY NOT NULL,
	name TEXT NOT NULL UNIQUE,
	data BLOB NOT NULL,
	codec TEXT NOT NULL,
	size INTEGER NOT NULL,
	updated INTEGER NOT NULL
);
`

const upsertImageV1Sql = `
INSERT INTO image_v1 (id, name, data, codec, size, updated)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name)
DO UPDATE SET data = $3, codec = $4, size = $5, updated = $6;
`

const getImageIDV1Sql = `
SELECT id FROM image_v1 WHERE name = $1;
`

const getImageDataV1Sql = `
SELECT data, codec FROM image_v1 WHERE name = $1;
`

const listImagesV1Sql = `
SELECT id, name, size, codec, updated FROM image_v1 ORDER BY name;
`

const deleteImageV1Sql = `
DELETE FROM image_v1 WHERE name = $1;
`

// Options controls how images are stored.
type Options struct {
	// Codec encodes newly stored images. Existing rows keep the codec they
	// were written with.
	Codec Codec
}

// Store is a catalog of named images.
type Store struct {
	db      *sqlx.DB
	opts    Options
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// ImageDBInit initializes the image catalog schema.
func ImageDBInit(db *sqlx.DB) error {
	_, err := db.Exec(imageSchema)
	return err
}

// NewStore initializes the catalog schema in db and returns a Store.
func NewStore(db *sqlx.DB, opts Options) (*Store, error) {
	codec, err := ParseCodec(string(opts.Codec))
	if err != nil {
		return nil, err
	}
	opts.Codec = codec
	if err := ImageDBInit(db); err != nil {
		return nil, err
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	return &Store{db: db, opts: opts, encoder: encoder, decoder: decoder}, nil
}

// Close releases the codec resources. The database is owned by the caller.
func (s *Store) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}

// Put stores image under name, replacing any previous image, and returns the
// entry id. Ids are stable across replacements.
func (s *Store) Put(name string, image types.Image) (string, error) {
	if name == "" {
		return "", errors.New("image name must not be empty")
	}
	data, err := s.encode(image)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := ""
	err = tx.Get(&id, getImageIDV1Sql, name)
	if errors.Is(err, sql.ErrNoRows) {
		id = uuid.NewString()
	} else if err != nil {
		return "", err
	}

	_, err = tx.Exec(upsertImageV1Sql, id, name, data, string(s.opts.Codec), len(image), time.Now().UTC().Unix())
	if err != nil {
		return "", err
	}
	return id, tx.Commit()
}

// Get returns the image stored under name, or ErrNotFound.
func (s *Store) Get(name string) (types.Image, error) {
	var row struct {
		Data  []byte `db:"data"`
		Codec Codec  `db:"codec"`
	}
	err := s.db.Get(&row, getImageDataV1Sql, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	image, err := s.decode(row.Codec, row.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress image %s: %w", name, err)
	}
	return image, nil
}

func (s *Store) encode(image types.Image) ([]byte, error) {
	switch s.opts.Codec {
	case CodecZstd:
		return s.encoder.EncodeAll(image, make([]byte, 0, len(image)/2)), nil
	case CodecLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(image); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return image, nil
}

func (s *Store) decode(codec Codec, data []byte) (types.Image, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecZstd:
		return s.decoder.DecodeAll(data, nil)
	case CodecLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	}
	return nil, fmt.Errorf("unknown codec %q", codec)
}

// List returns every stored entry ordered by name.
func (s *Store) List() ([]Entry, error) {
	entries := []Entry{}
	err := s.db.Select(&entries, listImagesV1Sql)
	return entries, err
}

// Delete removes the image stored under name, or returns ErrNotFound.
func (s *Store) Delete(name string) error {
	result, err := s.db.Exec(deleteImageV1Sql, name)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
