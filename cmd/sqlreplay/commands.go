package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/prashanthpai/sqlreplay"
	"github.com/prashanthpai/sqlreplay/fixture"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type cmdList struct {
	cfg *baseConfig
	fs  afero.Fs
	out io.Writer
}

func (cmd *cmdList) Execute([]string) error {
	store, err := cmd.cfg.store(cmd.fs)
	if err != nil {
		return err
	}

	names, err := store.List()
	if err != nil {
		return err
	}

	var ctx = context.Background()
	var table = tablewriter.NewWriter(cmd.out)
	table.Header("Name", "Discriminator", "Queries", "Size", "Modified")

	for _, name := range names {
		f, _, err := store.Load(ctx, name)
		if err != nil {
			return err
		}
		path, err := store.Path(name)
		if err != nil {
			return err
		}
		info, err := cmd.fs.Stat(path)
		if err != nil {
			return errors.WithMessagef(err, "stat %s", path)
		}

		if err = table.Append([]string{
			name,
			f.Discriminator,
			strconv.Itoa(len(f.Entries)),
			humanize.IBytes(uint64(info.Size())),
			humanize.Time(info.ModTime()),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

type cmdShow struct {
	Name string `long:"name" short:"n" required:"true" description:"Name of the fixture to show"`

	cfg *baseConfig
	fs  afero.Fs
	out io.Writer
}

func (cmd *cmdShow) Execute([]string) error {
	store, err := cmd.cfg.store(cmd.fs)
	if err != nil {
		return err
	}

	f, ok, err := store.Load(context.Background(), cmd.Name)
	if err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("fixture %q not found below %s", cmd.Name, cmd.cfg.Root)
	}

	if f.Discriminator != "" {
		fmt.Fprintf(cmd.out, "Discriminator: %s\n", f.Discriminator)
	}

	var table = tablewriter.NewWriter(cmd.out)
	table.Header("Query", "Options", "Columns", "Rows")

	for _, key := range f.Keys() {
		e, _ := f.Lookup(key)

		var columns, rows = "-", "-"
		if e.Result != nil {
			var names []string
			for _, field := range e.Result.Fields() {
				names = append(names, field.Name)
			}
			columns = strings.Join(names, ", ")
			rows = humanize.Comma(int64(len(e.Result.Rows())))
		}

		if err = table.Append([]string{
			strings.Join(strings.Fields(key), " "),
			formatOptions(e.Options),
			columns,
			rows,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// formatOptions renders opts as sorted name=value pairs.
func formatOptions(opts fixture.Options) string {
	var pairs = make([]string, 0, len(opts))
	for k, v := range opts {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}

type cmdConvert struct {
	To     string `long:"to" required:"true" choice:"yaml" choice:"json" choice:"msgpack" description:"Codec to re-encode fixtures with"`
	Dest   string `long:"dest" description:"Directory to write converted fixtures to. Defaults to --root"`
	Remove bool   `long:"remove" description:"Remove source files once converted"`

	cfg *baseConfig
	fs  afero.Fs
	out io.Writer
}

func (cmd *cmdConvert) Execute([]string) error {
	src, err := cmd.cfg.store(cmd.fs)
	if err != nil {
		return err
	}
	codec, err := fixture.CodecByName(cmd.To)
	if err != nil {
		return err
	}

	var destRoot = cmd.Dest
	if destRoot == "" {
		destRoot = cmd.cfg.Root
	}
	if codec.Ext() == src.Codec().Ext() && destRoot == cmd.cfg.Root {
		return fmt.Errorf("fixtures below %s are already encoded with %s", destRoot, cmd.To)
	}
	var dest = sqlreplay.NewFileStore(cmd.fs, destRoot, codec)

	names, err := src.List()
	if err != nil {
		return err
	}

	var ctx = context.Background()
	for _, name := range names {
		f, _, err := src.Load(ctx, name)
		if err != nil {
			return err
		}
		if err = dest.Save(ctx, f); err != nil {
			return err
		}

		if cmd.Remove {
			path, err := src.Path(name)
			if err != nil {
				return err
			}
			if err = cmd.fs.Remove(path); err != nil {
				return errors.WithMessagef(err, "removing %s", path)
			}
		}
		log.WithFields(log.Fields{"name": name, "codec": cmd.To}).Info("converted fixture")
	}

	fmt.Fprintf(cmd.out, "converted %d fixtures to %s\n", len(names), cmd.To)
	return nil
}
