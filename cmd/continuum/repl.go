package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/wudi/continuum/registry"
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/scheduler"
	"github.com/wudi/continuum/values"
)

// replCommand is an interactive shell for driving a Scheduler tick-by-tick,
// the one place this module actually wires chzyer/readline — present in the
// teacher's go.mod but never imported by the teacher's own bufio.Scanner-based
// REPL (runInteractiveShell in cmd/hey/main.go).
var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "Interactively add demo scripts to a Scheduler and step them one tick at a time",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		rl, err := readline.New("continuum> ")
		if err != nil {
			return err
		}
		defer rl.Close()

		reg := registry.New()
		byName := registerDemoEntries(reg)
		r := runner.New()
		r.EntryPoints = reg
		sch := scheduler.New(r, 1000)

		fmt.Println("continuum repl. Commands: add <name>, tick, list, wake <id> <value>, exit")
		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			switch fields[0] {
			case "exit", "quit":
				return nil
			case "add":
				if len(fields) != 2 {
					fmt.Println("usage: add <name>")
					continue
				}
				tok, ok := byName[fields[1]]
				if !ok {
					fmt.Printf("unknown entry %q\n", fields[1])
					continue
				}
				entry, _ := reg.Lookup(tok)
				inst := sch.AddScript(entry, fields[1], 1)
				fmt.Printf("added script id=%d\n", inst.ID)
			case "tick":
				if !sch.Tick() {
					fmt.Println("no work")
				}
			case "list":
				for _, inst := range sch.Scripts() {
					fmt.Printf("id=%d name=%s state=%s ticks=%d yields=%d\n",
						inst.ID, inst.Name, inst.State, inst.TickCount, inst.YieldCount)
				}
			case "wake":
				if len(fields) != 3 {
					fmt.Println("usage: wake <id> <value>")
					continue
				}
				var id uint32
				var val int64
				if _, err := fmt.Sscanf(fields[1], "%d", &id); err != nil {
					fmt.Println("bad id")
					continue
				}
				if _, err := fmt.Sscanf(fields[2], "%d", &val); err != nil {
					fmt.Println("bad value")
					continue
				}
				inst := findByID(sch, id)
				if inst == nil {
					fmt.Printf("no such script id=%d\n", id)
					continue
				}
				sch.Wake(inst, values.Int64(val))
			default:
				fmt.Printf("unknown command %q\n", fields[0])
			}
		}
	},
}

func findByID(sch *scheduler.Scheduler, id uint32) *scheduler.ScriptInstance {
	for _, inst := range sch.Scripts() {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}
