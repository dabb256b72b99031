package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"coverfill/internal/config"
	"coverfill/internal/logging"
	"coverfill/internal/logs"
	"coverfill/internal/runstore"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var level string
	var item string

	cmd := &cobra.Command{
		Use:   "logs [run]",
		Short: "Show the log of a run (defaults to the most recent)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := logs.Filter{Item: strings.TrimSpace(item)}
			if level != "" {
				if err := filter.MinLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q: use debug, info, warn, or error", level)
				}
			}

			var path string
			err := ctx.withStore(func(cfg *config.Config, store *runstore.Store) error {
				run, err := store.LoadOrLatest(commandCtx(cmd), optionalArg(args))
				if err != nil {
					return err
				}
				path = filepath.Join(cfg.Paths.LogDir, logging.RunLogFileName(run.ID))
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			emit := func(line string) {
				if raw {
					fmt.Fprintln(out, line)
					return
				}
				rec, ok := logs.ParseRecord(line)
				if !ok {
					if filter.MinLevel <= slog.LevelInfo && filter.Item == "" {
						fmt.Fprintln(out, line)
					}
					return
				}
				if filter.Match(rec) {
					fmt.Fprintln(out, rec.Format())
				}
			}

			tail, offset, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			if len(tail) == 0 && !follow {
				if _, statErr := os.Stat(path); statErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "No log recorded at %s\n", path)
					return nil
				}
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(commandCtx(cmd), os.Interrupt)
			defer stop()
			return logs.Follow(followCtx, path, offset, logs.DefaultPollInterval, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unformatted")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&item, "item", "", "Only show lines about this game")
	return cmd
}
