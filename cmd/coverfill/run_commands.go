package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coverfill/internal/catalog"
	"coverfill/internal/config"
	"coverfill/internal/engine"
	"coverfill/internal/runstore"
	"coverfill/internal/tabular"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts sessionOptions

	cmd := &cobra.Command{
		Use:   "run <games.csv>",
		Short: "Start an enrichment run over a CSV list of games",
		Long: `Start an enrichment run over a CSV list of games.

Each game is looked up against the configured providers in order. Ambiguous
matches are presented for a decision unless --non-interactive is set. The run
is checkpointed after every item; Ctrl-C pauses it and a second Ctrl-C aborts.
When the run completes the merged list is exported to stdout or --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.parse(); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireProvider(); err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}
			items, summary, err := tabular.ReadFile(source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %s from %s\n", summary.Describe(), source)

			return ctx.withLockedStore(func(cfg *config.Config, store *runstore.Store) error {
				initial := engine.State{
					Input:       items,
					Accumulated: catalog.NewResultSet(),
					Mode:        engine.ModeIdle,
				}
				run, err := store.Create(commandCtx(cmd), source, initial)
				if err != nil {
					return fmt.Errorf("create run: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Run %s started\n", shortID(run.ID))
				return runSession(cmd, cfg, store, run, opts)
			})
		},
	}

	opts.bind(cmd)
	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var opts sessionOptions

	cmd := &cobra.Command{
		Use:   "resume [run]",
		Short: "Continue a paused run (defaults to the most recent)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.parse(); err != nil {
				return err
			}
			return ctx.withLockedStore(func(cfg *config.Config, store *runstore.Store) error {
				run, err := store.LoadOrLatest(commandCtx(cmd), optionalArg(args))
				if err != nil {
					return err
				}
				id := shortID(run.ID)
				switch {
				case run.State.Completed:
					return fmt.Errorf("run %s already completed; use 'coverfill export %s'", id, id)
				case run.State.Mode == engine.ModeStopped:
					return fmt.Errorf("run %s was stopped; 'coverfill reset %s' starts it over", id, id)
				}
				if err := cfg.RequireProvider(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Resuming run %s at %d/%d\n", id, run.State.Cursor, run.State.Total())
				return runSession(cmd, cfg, store, run, opts)
			})
		},
	}

	opts.bind(cmd)
	return cmd
}
