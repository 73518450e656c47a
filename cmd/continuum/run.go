package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/registry"
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/serialize"
	"github.com/wudi/continuum/store"
	"github.com/wudi/continuum/values"
)

// storeFlags are the DSN/key flags run and resume both accept, so a
// suspended continuation can be parked in store.ContinuationStore between
// invocations instead of (or as well as) a bare file — the CLI surface for
// the persistence supplement serve.go also wires into the scheduler's
// suspend path.
var storeFlags = []cli.Flag{
	&cli.StringFlag{Name: "store", Usage: "ContinuationStore DSN (e.g. sqlite::memory:, mysql:user:pass@tcp(host)/db) to persist the state under instead of a file"},
	&cli.StringFlag{Name: "key", Usage: "Key to save/load the continuation under in --store (defaults to the entry name for run)"},
}

// codecFor resolves the --format flag to a codec, mirroring the two wire
// formats serialize exposes (spec §4.I names both binary and JSON as valid
// encodings of the same ContinuationState).
func codecFor(format string) (interface {
	Serialize(frame.ContinuationState) ([]byte, error)
	Deserialize([]byte) (frame.ContinuationState, error)
}, error) {
	switch format {
	case "binary", "":
		return serialize.BinaryCodec{}, nil
	case "json":
		return serialize.JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown --format %q (want \"binary\" or \"json\")", format)
	}
}

func printResult(res runner.Result) {
	switch res.Kind {
	case runner.Completed:
		fmt.Printf("completed: %s\n", res.Value.String())
	case runner.Suspended:
		fmt.Printf("suspended: yielded %s (budget remaining %s)\n",
			res.YieldedValue.String(), humanize.Comma(int64(res.RemainingBudget)))
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a built-in demo entry point from the start",
	ArgsUsage: "<entry-name>",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "Write the suspended state to this file (if suspended)"},
		&cli.StringFlag{Name: "format", Usage: "Wire format: binary (default) or json"},
	}, storeFlags...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("usage: continuum run <entry-name>")
		}
		name := cmd.Args().First()

		reg := registry.New()
		byName := registerDemoEntries(reg)
		tok, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown entry %q", name)
		}
		entry, _ := reg.Lookup(tok)

		r := runner.New()
		r.EntryPoints = reg
		res, err := r.Run(entry)
		if err != nil {
			return err
		}
		printResult(res)

		if res.Kind == runner.Suspended {
			key := cmd.String("key")
			if key == "" {
				key = name
			}
			return persistSuspendedState(ctx, cmd, key, res.State)
		}
		return nil
	},
}

var resumeCommand = &cli.Command{
	Name:      "resume",
	Usage:     "Resume a suspended continuation from a serialized state file or --store key",
	ArgsUsage: "<state-file-or-key>",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "Write the re-suspended state to this file (if suspended again)"},
		&cli.StringFlag{Name: "format", Usage: "Wire format of the input/output file: binary (default) or json"},
		&cli.IntFlag{Name: "value", Usage: "Integer value to feed back in as the resume value"},
	}, storeFlags...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("usage: continuum resume <state-file-or-key>")
		}
		key := cmd.Args().First()

		state, err := loadSuspendedState(ctx, cmd, key)
		if err != nil {
			return err
		}

		reg := registry.New()
		registerDemoEntries(reg)

		r := runner.New()
		r.EntryPoints = reg
		res, err := r.ResumeContinuation(state, values.Int64(int64(cmd.Int("value"))))
		if err != nil {
			return err
		}
		printResult(res)

		if res.Kind == runner.Suspended {
			return persistSuspendedState(ctx, cmd, key, res.State)
		}
		return nil
	},
}

// persistSuspendedState saves state under key in the store named by the
// --store DSN flag, falling back to the --out file path when --store isn't
// set; it's a no-op if neither flag is given.
func persistSuspendedState(ctx context.Context, cmd *cli.Command, key string, state frame.ContinuationState) error {
	dsn := cmd.String("store")
	if dsn == "" {
		if out := cmd.String("out"); out != "" {
			return writeState(out, cmd.String("format"), state)
		}
		return nil
	}

	st, err := store.OpenByDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	format := cmd.String("format")
	if format == "" {
		format = "binary"
	}
	codec, err := codecFor(format)
	if err != nil {
		return err
	}
	data, err := codec.Serialize(state)
	if err != nil {
		return err
	}
	var methodToken int32
	if state.StackHead != nil {
		methodToken = state.StackHead.MethodToken
	}
	if err := st.Save(ctx, store.Record{Key: key, MethodToken: methodToken, Format: format, Data: data}); err != nil {
		return fmt.Errorf("saving continuation under key %q: %w", key, err)
	}
	fmt.Printf("saved %s continuation under key %q\n", humanize.Bytes(uint64(len(data))), key)
	return nil
}

// loadSuspendedState reads a continuation from the store named by --store
// (treating key as the store key) or, when --store isn't set, from key as a
// file path via readState/codecFor.
func loadSuspendedState(ctx context.Context, cmd *cli.Command, key string) (frame.ContinuationState, error) {
	dsn := cmd.String("store")
	if dsn == "" {
		return readState(key, cmd.String("format"))
	}

	st, err := store.OpenByDSN(ctx, dsn)
	if err != nil {
		return frame.ContinuationState{}, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	rec, err := st.Load(ctx, key)
	if err != nil {
		return frame.ContinuationState{}, fmt.Errorf("loading continuation for key %q: %w", key, err)
	}
	codec, err := codecFor(rec.Format)
	if err != nil {
		return frame.ContinuationState{}, err
	}
	return codec.Deserialize(rec.Data)
}

func writeState(path, format string, state frame.ContinuationState) error {
	codec, err := codecFor(format)
	if err != nil {
		return err
	}
	data, err := codec.Serialize(state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s to %s\n", humanize.Bytes(uint64(len(data))), path)
	return nil
}

func readState(path, format string) (frame.ContinuationState, error) {
	codec, err := codecFor(format)
	if err != nil {
		return frame.ContinuationState{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return frame.ContinuationState{}, err
	}
	return codec.Deserialize(data)
}
