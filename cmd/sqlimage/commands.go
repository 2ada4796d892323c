package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomyedwab/sqlimage/imagestore"
	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "create":
		if err := needArgs(command, args, 1, 2); err != nil {
			return err
		}
		script := ""
		if len(args) == 2 {
			script = args[1]
		}
		image, err := a.host.Init(ctx, script)
		if err != nil {
			return err
		}
		return a.put(args[0], image)

	case "exec":
		if err := needArgs(command, args, 2, 2); err != nil {
			return err
		}
		image, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		image, err = a.host.Execute(ctx, image, args[1])
		if err != nil {
			return err
		}
		return a.put(args[0], image)

	case "query":
		if err := needArgs(command, args, 2, 2); err != nil {
			return err
		}
		image, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		rows, err := a.host.Query(ctx, image, args[1])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil

	case "tables", "schema":
		if err := needArgs(command, args, 1, 1); err != nil {
			return err
		}
		image, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		list := a.host.ListTables
		if command == "schema" {
			list = a.host.Schema
		}
		names, err := list(ctx, image)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(a.out, name)
		}
		return nil

	case "count":
		if err := needArgs(command, args, 2, 2); err != nil {
			return err
		}
		image, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		n, err := a.host.CountRows(ctx, image, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, n)
		return nil

	case "vacuum":
		if len(args) == 0 {
			return fmt.Errorf("%s: expected at least one image name", command)
		}
		return a.vacuum(ctx, args)

	case "import":
		if err := needArgs(command, args, 2, 2); err != nil {
			return err
		}
		image, err := a.host.Import(ctx, args[1])
		if err != nil {
			return err
		}
		return a.put(args[0], image)

	case "export":
		if err := needArgs(command, args, 2, 2); err != nil {
			return err
		}
		image, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		_, err = a.host.Export(ctx, image, args[1])
		return err

	case "list":
		if err := needArgs(command, args, 0, 0); err != nil {
			return err
		}
		entries, err := a.store.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			encoding := string(e.Codec)
			if e.Codec == imagestore.CodecNone {
				encoding = "none"
			}
			fmt.Fprintf(a.out, "%s\t%s\t%d\t%s\t%s\n", e.Name, e.ID, e.Size, encoding,
				time.Unix(e.Updated, 0).UTC().Format(time.RFC3339))
		}
		return nil

	case "rm":
		if err := needArgs(command, args, 1, 1); err != nil {
			return err
		}
		return a.store.Delete(args[0])
	}
	return fmt.Errorf("unknown command %q", command)
}

func needArgs(command string, args []string, lo, hi int) error {
	if len(args) >= lo && len(args) <= hi {
		return nil
	}
	want := strconv.Itoa(lo)
	if hi != lo {
		want = fmt.Sprintf("%d to %d", lo, hi)
	}
	return fmt.Errorf("%s: expected %s arguments, got %d", command, want, len(args))
}

func (a *app) put(name string, image types.Image) error {
	id, err := a.store.Put(name, image)
	if err != nil {
		return err
	}
	a.logger.Info("Image stored", "name", name, "id", id, "size", len(image))
	return nil
}

// vacuum rebuilds each named image. Images are independent, so they are
// processed concurrently up to the parallel limit; the first failure cancels
// the rest.
func (a *app) vacuum(ctx context.Context, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.parallel > 0 {
		g.SetLimit(a.parallel)
	}
	for _, name := range names {
		g.Go(func() error {
			image, err := a.store.Get(name)
			if err != nil {
				return err
			}
			before := len(image)
			image, err = a.host.Vacuum(ctx, image)
			if err != nil {
				return fmt.Errorf("vacuum %s: %w", name, err)
			}
			if err := a.put(name, image); err != nil {
				return err
			}
			a.logger.Info("Image vacuumed", "name", name, "before", before, "after", len(image))
			return nil
		})
	}
	return g.Wait()
}
