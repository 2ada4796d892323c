package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/sqlimage/imagestore"
	"github.com/tomyedwab/sqlimage/sqlimage/bridge"
	"github.com/tomyedwab/sqlimage/sqlimage/host"
)

const storeEnv = "SQLIMAGE_STORE"

const usage = `usage: sqlimage [flags] COMMAND [ARGS]

commands:
  create NAME [SCRIPT]   store a new image, optionally initialized by SCRIPT
  exec NAME SCRIPT       run SCRIPT against an image and store the result
  query NAME SQL         print result rows, one JSON array per line
  tables NAME            print table names
  schema NAME            print DDL statements
  count NAME TABLE       print the row count of TABLE
  vacuum NAME...         rebuild one or more images
  import NAME PATH       store the database file at PATH as an image
  export NAME PATH       write an image to a database file at PATH
  list                   print stored images
  rm NAME                delete an image

flags:
`

// app carries the wiring shared by every subcommand.
type app struct {
	host     *host.Host
	store    *imagestore.Store
	logger   *slog.Logger
	out      io.Writer
	parallel int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "sqlimage: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sqlimage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	defaultStore := "sqlimage.db"
	if env := os.Getenv(storeEnv); env != "" {
		defaultStore = env
	}
	storePath := fs.String("store", defaultStore, "catalog database path (env "+storeEnv+")")
	useTempFile := fs.Bool("tempfile", false, "materialize images in temporary files instead of memory")
	tempDir := fs.String("tempdir", "", "directory for temporary files (implies -tempfile)")
	compress := fs.String("compress", "", "codec for newly stored images: none, zstd or lz4")
	parallel := fs.Int("parallel", 4, "maximum images processed at once by vacuum")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid -log-level %q: %w", *logLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var strategy bridge.Strategy = bridge.MemoryStrategy{}
	if *useTempFile || *tempDir != "" {
		strategy = bridge.TempFileStrategy{Dir: *tempDir}
	}

	db, err := sqlx.Connect("sqlite3", *storePath)
	if err != nil {
		return fmt.Errorf("failed to open catalog %s: %w", *storePath, err)
	}
	defer db.Close()
	// Catalog writes from parallel vacuum share one connection.
	db.SetMaxOpenConns(1)

	store, err := imagestore.NewStore(db, imagestore.Options{Codec: imagestore.Codec(*compress)})
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	defer store.Close()

	a := &app{
		host:     host.New(host.Config{Strategy: strategy, Logger: logger}),
		store:    store,
		logger:   logger,
		out:      stdout,
		parallel: *parallel,
	}
	logger.Debug("Catalog opened", "path", *storePath, "strategy", strategy.Name())
	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}
