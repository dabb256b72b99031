package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coverfill/internal/config"
	"coverfill/internal/engine"
	"coverfill/internal/provider"
	"coverfill/internal/runstore"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [run]",
		Short: "Stop a paused run so it cannot be resumed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedStore(func(_ *config.Config, store *runstore.Store) error {
				run, eng, err := restoreStored(cmd, store, args)
				if err != nil {
					return err
				}
				if err := eng.Stop(); err != nil {
					return fmt.Errorf("stop run %s: %w", shortID(run.ID), err)
				}
				state := eng.State()
				if err := store.Save(commandCtx(cmd), run.ID, state); err != nil {
					return fmt.Errorf("save run %s: %w", shortID(run.ID), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s stopped at %d/%d\n", shortID(run.ID), state.Cursor, state.Total())
				return nil
			})
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "reset [run]",
		Short: "Discard a run's results so it can start over",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedStore(func(_ *config.Config, store *runstore.Store) error {
				out := cmd.OutOrStdout()
				if remove {
					run, err := store.LoadOrLatest(commandCtx(cmd), optionalArg(args))
					if err != nil {
						return err
					}
					if err := store.Delete(commandCtx(cmd), run.ID); err != nil {
						return fmt.Errorf("delete run %s: %w", shortID(run.ID), err)
					}
					fmt.Fprintf(out, "Run %s deleted\n", shortID(run.ID))
					return nil
				}
				run, eng, err := restoreStored(cmd, store, args)
				if err != nil {
					return err
				}
				eng.Reset()
				if err := store.Save(commandCtx(cmd), run.ID, eng.State()); err != nil {
					return fmt.Errorf("save run %s: %w", shortID(run.ID), err)
				}
				id := shortID(run.ID)
				fmt.Fprintf(out, "Run %s reset; start it again with 'coverfill resume %s'\n", id, id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the run instead of resetting it")
	return cmd
}

// restoreStored loads a run and rebuilds an engine over it for control
// transitions that never perform a lookup.
func restoreStored(cmd *cobra.Command, store *runstore.Store, args []string) (*runstore.Run, *engine.Engine, error) {
	run, err := store.LoadOrLatest(commandCtx(cmd), optionalArg(args))
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.Restore(provider.NewChain(nil), run.State, engine.WithRunID(run.ID))
	if err != nil {
		return nil, nil, fmt.Errorf("restore run %s: %w", shortID(run.ID), err)
	}
	return run, eng, nil
}
