package imagestore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/sqlimage/sqlimage/host"
	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// setupTestDB creates a temporary catalog database
func setupTestDB(t *testing.T) *sqlx.DB {
	tmpDir := t.TempDir()
	dbPath := path.Join(tmpDir, "test_images.db")
	db := sqlx.MustConnect("sqlite3", dbPath)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func setupStore(t *testing.T, opts Options) *Store {
	store, err := NewStore(setupTestDB(t), opts)
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testImage(t *testing.T) types.Image {
	image, err := host.New(host.Config{}).Init(context.Background(),
		"CREATE TABLE t(a INTEGER, b TEXT); INSERT INTO t VALUES (1,'x'),(2,'y')")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return image
}

func TestImageDBInit(t *testing.T) {
	db := setupTestDB(t)
	if err := ImageDBInit(db); err != nil {
		t.Fatalf("ImageDBInit returned error: %v", err)
	}
	// Idempotent
	if err := ImageDBInit(db); err != nil {
		t.Fatalf("second ImageDBInit returned error: %v", err)
	}

	var tableName string
	err := db.Get(&tableName, "SELECT name FROM sqlite_master WHERE type='table' AND name='image_v1'")
	if err != nil {
		t.Fatalf("Table 'image_v1' does not exist: %v", err)
	}
}

func TestPutGet(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd, CodecLZ4} {
		name := string(codec)
		if name == "" {
			name = "none"
		}
		t.Run(name, func(t *testing.T) {
			store := setupStore(t, Options{Codec: codec})
			image := testImage(t)

			id, err := store.Put("inventory", image)
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if id == "" {
				t.Fatal("Put returned an empty id")
			}

			got, err := store.Get("inventory")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !bytes.Equal(got, image) {
				t.Error("stored image is not byte-identical")
			}

			entries, err := store.List()
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			e := entries[0]
			if e.ID != id || e.Name != "inventory" || e.Size != int64(len(image)) || e.Codec != codec {
				t.Errorf("unexpected entry %+v", e)
			}
			if e.Updated == 0 {
				t.Error("Expected updated timestamp to be set")
			}
		})
	}
}

func TestCompressionShrinksStoredData(t *testing.T) {
	for _, codec := range []Codec{CodecZstd, CodecLZ4} {
		t.Run(string(codec), func(t *testing.T) {
			store := setupStore(t, Options{Codec: codec})
			image := testImage(t)
			if _, err := store.Put("a", image); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			var stored []byte
			if err := store.db.Get(&stored, "SELECT data FROM image_v1 WHERE name = $1", "a"); err != nil {
				t.Fatalf("Failed to read raw data: %v", err)
			}
			if len(stored) >= len(image) {
				t.Errorf("expected compressed data to be smaller: %d >= %d", len(stored), len(image))
			}
		})
	}
}

func TestMixedCodecs(t *testing.T) {
	db := setupTestDB(t)
	image := testImage(t)

	// Rows written under one codec stay readable after the store switches.
	for _, codec := range []Codec{CodecZstd, CodecLZ4, CodecNone} {
		store, err := NewStore(db, Options{Codec: codec})
		if err != nil {
			t.Fatalf("NewStore(%q) returned error: %v", codec, err)
		}
		if _, err := store.Put("img-"+string(codec), image); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		store.Close()
	}

	store, err := NewStore(db, Options{})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	defer store.Close()
	for _, name := range []string{"img-zstd", "img-lz4", "img-"} {
		got, err := store.Get(name)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", name, err)
		}
		if !bytes.Equal(got, image) {
			t.Errorf("Get(%s) is not byte-identical", name)
		}
	}
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		in      string
		want    Codec
		wantErr bool
	}{
		{"", CodecNone, false},
		{"none", CodecNone, false},
		{"zstd", CodecZstd, false},
		{"lz4", CodecLZ4, false},
		{"gzip", CodecNone, true},
	}
	for _, tt := range tests {
		got, err := ParseCodec(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseCodec(%q) = %q, %v", tt.in, got, err)
		}
	}

	if _, err := NewStore(setupTestDB(t), Options{Codec: "gzip"}); err == nil {
		t.Error("NewStore should reject an unknown codec")
	}
}

func TestPutReplacesAndKeepsID(t *testing.T) {
	store := setupStore(t, Options{})
	first, err := store.Put("db", types.Image("one"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	second, err := store.Put("db", types.Image("two"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if first != second {
		t.Errorf("id changed on replace: %s != %s", first, second)
	}
	got, err := store.Get("db")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "two" {
		t.Errorf("expected replaced data, got %q", got)
	}
}

func TestNotFound(t *testing.T) {
	store := setupStore(t, Options{})

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Put("", types.Image("x")); err == nil {
		t.Error("Put with an empty name should fail")
	}
}

func TestDelete(t *testing.T) {
	store := setupStore(t, Options{})
	store.Put("a", types.Image("1"))
	store.Put("b", types.Image("2"))

	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "b" {
		t.Errorf("unexpected entries after delete: %+v", entries)
	}
}
