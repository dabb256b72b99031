package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"coverfill/internal/catalog"
	"coverfill/internal/config"
	"coverfill/internal/merge"
	"coverfill/internal/runstore"
	"coverfill/internal/tabular"
)

const timestampLayout = "2006-01-02 15:04:05"

type runStatusJSON struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Mode       string         `json:"mode"`
	Completed  bool           `json:"completed"`
	Cursor     int            `json:"cursor"`
	Total      int            `json:"total"`
	Counts     map[string]int `json:"counts"`
	Pending    string         `json:"pending,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Items      []catalog.Item `json:"items,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var showItems bool

	cmd := &cobra.Command{
		Use:   "status [run]",
		Short: "Show progress of a run (defaults to the most recent)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *runstore.Store) error {
				run, err := store.LoadOrLatest(commandCtx(cmd), optionalArg(args))
				if err != nil {
					return err
				}
				var items []catalog.Item
				if showItems || asJSON {
					items = merge.Results(run.State.Input, run.State.Accumulated)
				}
				if asJSON {
					return writeJSON(cmd, buildRunStatus(run, items))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderRunStatus(run, shouldColorize(out)))
				if showItems {
					fmt.Fprintln(out, renderItemsTable(items))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showItems, "items", false, "List every game with its current status")
	return cmd
}

func buildRunStatus(run *runstore.Run, items []catalog.Item) runStatusJSON {
	state := run.State
	counts := make(map[string]int)
	byStatus := state.Accumulated.CountByStatus()
	for _, status := range catalog.AllStatuses() {
		counts[string(status)] = byStatus[status]
	}
	view := runStatusJSON{
		ID:        run.ID,
		Source:    run.SourcePath,
		Mode:      string(state.Mode),
		Completed: state.Completed,
		Cursor:    state.Cursor,
		Total:     state.Total(),
		Counts:    counts,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
		Items:     items,
	}
	if state.Pending != nil {
		view.Pending = state.Pending.Item.Name
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		view.FinishedAt = &finished
	}
	return view
}

func renderRunStatus(run *runstore.Run, colorize bool) string {
	state := run.State
	counts := state.Accumulated.CountByStatus()
	lines := renderSectionHeader("Run "+shortID(run.ID), colorize)

	modeLabel, modeKind := modeDisplay(state.Mode, state.Completed)
	lines = append(lines,
		renderStatusLine("Source", statusInfo, run.SourcePath, colorize),
		renderStatusLine("Mode", modeKind, modeLabel, colorize),
		renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d/%d", state.Cursor, state.Total()), colorize),
		renderStatusLine("With cover", statusOK, strconv.Itoa(counts[catalog.StatusCompleted]), colorize),
		renderStatusLine("No results", countKind(counts[catalog.StatusNoResults], statusWarn), strconv.Itoa(counts[catalog.StatusNoResults]), colorize),
		renderStatusLine("Errored", countKind(counts[catalog.StatusErrored], statusError), strconv.Itoa(counts[catalog.StatusErrored]), colorize),
	)
	if state.Pending != nil {
		lines = append(lines, renderStatusLine("Waiting on", statusWarn,
			fmt.Sprintf("%s (%d candidates from %s)", state.Pending.Item.Name, len(state.Pending.Candidates), state.Pending.Provider), colorize))
	}
	lines = append(lines, renderStatusLine("Updated", statusInfo, run.UpdatedAt.Local().Format(timestampLayout), colorize))
	if !run.FinishedAt.IsZero() {
		lines = append(lines, renderStatusLine("Finished", statusInfo, run.FinishedAt.Local().Format(timestampLayout), colorize))
	}
	return strings.Join(lines, "\n")
}

func countKind(n int, nonZero statusKind) statusKind {
	if n == 0 {
		return statusInfo
	}
	return nonZero
}

func renderItemsTable(items []catalog.Item) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		cover := "-"
		if item.CoverURL != "" {
			cover = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Label(),
			string(item.Status),
			cover,
			item.ReleaseYear,
		})
	}
	return renderTable([]column{
		{header: "#", right: true},
		{header: "Name", maxWidth: nameWidth},
		{header: "Status"},
		{header: "Cover"},
		{header: "Year"},
	}, rows)
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *runstore.Store) error {
				summaries, err := store.List(commandCtx(cmd), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, summaries)
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRunsTable(summaries))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderRunsTable(summaries []runstore.Summary) string {
	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		mode, _ := modeDisplay(summary.Mode, summary.Completed)
		rows = append(rows, []string{
			shortID(summary.ID),
			filepath.Base(summary.SourcePath),
			mode,
			fmt.Sprintf("%d/%d", summary.Cursor, summary.Total),
			strconv.Itoa(summary.Counts[catalog.StatusCompleted]),
			strconv.Itoa(summary.Counts[catalog.StatusNoResults]),
			strconv.Itoa(summary.Counts[catalog.StatusErrored]),
			summary.UpdatedAt.Local().Format(timestampLayout),
		})
	}
	return renderTable([]column{
		{header: "ID"},
		{header: "Source", maxWidth: nameWidth},
		{header: "Mode"},
		{header: "Progress", right: true},
		{header: "Cover", right: true},
		{header: "No results", right: true},
		{header: "Errored", right: true},
		{header: "Updated"},
	}, rows)
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var output string

	cmd := &cobra.Command{
		Use:   "export [run]",
		Short: "Write a run's merged results as CSV or YAML",
		Long: `Write a run's merged results as CSV or YAML.

Games the run has not reached yet are included as submitted with status
pending, so exporting an unfinished run still lists every input row.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := tabular.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *runstore.Store) error {
				run, err := store.LoadOrLatest(commandCtx(cmd), optionalArg(args))
				if err != nil {
					return err
				}
				items := merge.Results(run.State.Input, run.State.Accumulated)
				return writeExport(cmd, items, format, output)
			})
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", string(tabular.FormatCSV), "Export format (csv or yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
