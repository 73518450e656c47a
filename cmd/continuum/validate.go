package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/wudi/continuum/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Validate a serialized continuation state without resuming it",
	ArgsUsage: "<state-file>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Usage: "Wire format of the input file: binary (default) or json"},
		&cli.BoolFlag{Name: "lenient", Usage: "Use validator.Lenient() instead of validator.Default()"},
		&cli.IntFlag{Name: "max-stack-depth", Usage: "Override MaxStackDepth (0 keeps the preset's default)"},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("usage: continuum validate <state-file>")
		}

		state, err := readState(cmd.Args().First(), cmd.String("format"))
		if err != nil {
			return fmt.Errorf("reading state: %w", err)
		}

		opts := validator.Default()
		if cmd.Bool("lenient") {
			opts = validator.Lenient()
		}
		if d := cmd.Int("max-stack-depth"); d > 0 {
			opts.MaxStackDepth = d
		}

		v := validator.New(opts)
		result := v.TryValidate(state)
		return reportValidation(result)
	},
}

func reportValidation(result validator.Result) error {
	if result.Valid() {
		fmt.Println("valid")
		return nil
	}
	for _, fe := range result.Errors {
		fmt.Printf("%s\n", fe.Error())
	}
	return fmt.Errorf("%d validation error(s)", len(result.Errors))
}

