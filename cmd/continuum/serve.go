package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/wudi/continuum/admin"
	"github.com/wudi/continuum/registry"
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/scheduler"
	"github.com/wudi/continuum/serialize"
	"github.com/wudi/continuum/store"
	"github.com/wudi/continuum/validator"
)

// serveCommand replaces the teacher's `hey -S <addr>` built-in web server
// flag with a dedicated subcommand: it starts a Scheduler driving the demo
// entries, runs it on a background goroutine, and serves admin's read-only
// introspection HTTP surface in the foreground.
var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run demo entries under a Scheduler and serve admin introspection over HTTP",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "addr", Usage: "Listen address", Value: ":8080"},
		&cli.IntFlag{Name: "budget-per-slice", Usage: "Instruction budget per scheduler tick", Value: 1000},
		&cli.StringFlag{Name: "store", Usage: "ContinuationStore DSN to park suspended scripts in between ticks (e.g. sqlite::memory:)"},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		reg := registry.New()
		byName := registerDemoEntries(reg)

		r := runner.New()
		r.EntryPoints = reg
		r.Validator = validator.New(validator.Lenient())

		metrics := admin.NewMetrics()
		admin.WireRunner(r, metrics)

		sch := scheduler.New(r, int32(cmd.Int("budget-per-slice")))
		for name, tok := range byName {
			entry, _ := reg.Lookup(tok)
			sch.AddScript(entry, name, 1)
		}

		sch.AddEventListener("failed", func(e scheduler.Event) {
			log.Printf("[sched] script %q (id=%d) failed: %v", e.Script.Name, e.Script.ID, e.Script.Err)
		})

		if dsn := cmd.String("store"); dsn != "" {
			st, err := store.OpenByDSN(ctx, dsn)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()
			wireSuspendStore(ctx, sch, st)
		}

		go sch.Run()

		srv := admin.NewServer(sch, metrics)
		addr := cmd.String("addr")
		fmt.Printf("continuum admin listening on %s\n", addr)
		return http.ListenAndServe(addr, srv)
	},
}

// wireSuspendStore attaches st to sch the same way admin.Server wires its
// metrics: through AddEventListener only, so scheduler stays unaware a store
// exists. A "yielded" script is persisted under its ExternalID, parking its
// ContinuationState outside process memory between ticks (the persistence
// supplement's stated purpose); "completed"/"failed" delete that entry,
// since there's no suspended state left worth holding onto.
func wireSuspendStore(ctx context.Context, sch *scheduler.Scheduler, st store.ContinuationStore) {
	var codec serialize.BinaryCodec
	sch.AddEventListener("yielded", func(e scheduler.Event) {
		if e.Script.ContinuationState == nil {
			return
		}
		data, err := codec.Serialize(*e.Script.ContinuationState)
		if err != nil {
			log.Printf("[store] serializing script %q (id=%d): %v", e.Script.Name, e.Script.ID, err)
			return
		}
		var methodToken int32
		if head := e.Script.ContinuationState.StackHead; head != nil {
			methodToken = head.MethodToken
		}
		key := e.Script.ExternalID.String()
		rec := store.Record{Key: key, MethodToken: methodToken, Format: "binary", Data: data}
		if err := st.Save(ctx, rec); err != nil {
			log.Printf("[store] saving script %q (id=%d): %v", e.Script.Name, e.Script.ID, err)
		}
	})
	cleanup := func(e scheduler.Event) {
		if err := st.Delete(ctx, e.Script.ExternalID.String()); err != nil {
			log.Printf("[store] deleting script %q (id=%d): %v", e.Script.Name, e.Script.ID, err)
		}
	}
	sch.AddEventListener("completed", cleanup)
	sch.AddEventListener("failed", cleanup)
}
