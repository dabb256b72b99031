package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"coverfill/internal/broker"
	"coverfill/internal/catalog"
	"coverfill/internal/config"
	"coverfill/internal/engine"
	"coverfill/internal/fileutil"
	"coverfill/internal/logging"
	"coverfill/internal/merge"
	"coverfill/internal/notifications"
	"coverfill/internal/runstore"
	"coverfill/internal/tabular"
	"coverfill/internal/translate"
)

// sessionOptions are the flags shared by run and resume.
type sessionOptions struct {
	nonInteractive bool
	formatFlag     string
	output         string
	noNotify       bool

	format tabular.Format
}

func (o *sessionOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.nonInteractive, "non-interactive", false, "Skip ambiguous items instead of prompting")
	cmd.Flags().StringVar(&o.formatFlag, "format", string(tabular.FormatCSV), "Export format on completion (csv or yaml)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write the export to this file instead of stdout")
	cmd.Flags().BoolVar(&o.noNotify, "no-notify", false, "Do not send notifications when the run completes")
}

func (o *sessionOptions) parse() error {
	format, err := tabular.ParseFormat(o.formatFlag)
	if err != nil {
		return err
	}
	o.format = format
	return nil
}

// session drives one persisted run until it completes, pauses, stops, or
// waits on a decision it cannot get.
type session struct {
	cmd    *cobra.Command
	cfg    *config.Config
	store  *runstore.Store
	run    *runstore.Run
	opts   sessionOptions
	logger *slog.Logger
}

func runSession(cmd *cobra.Command, cfg *config.Config, store *runstore.Store, run *runstore.Run, opts sessionOptions) error {
	ctx := commandCtx(cmd)
	errOut := cmd.ErrOrStderr()

	logName := logging.RunLogFileName(run.ID)
	logger, closeLog, err := logging.NewFromConfig(cfg, errOut, logName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = closeLog()
	}()
	logging.CleanupOldLogs(ctx, logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, logging.RunLogPattern,
		filepath.Join(cfg.Paths.LogDir, logName))

	s := &session{cmd: cmd, cfg: cfg, store: store, run: run, opts: opts, logger: logger}
	return s.drive(ctx)
}

func (s *session) drive(ctx context.Context) error {
	errOut := s.cmd.ErrOrStderr()
	overrides := s.cfg.Logging.ComponentOverrides
	gateway := buildGateway(s.cfg, s.logger)
	persist := context.WithoutCancel(ctx)

	var merged []catalog.Item
	hooks := engine.Hooks{
		OnStep: func(state engine.State) {
			if err := s.store.Save(persist, s.run.ID, state); err != nil {
				logging.WarnWithContext(persist, s.logger, "checkpoint failed", "checkpoint_failed",
					logging.String(logging.FieldRunID, s.run.ID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check state_dir permissions and free disk space"),
				)
			}
		},
		OnComplete: func(items []catalog.Item) {
			merged = items
		},
	}
	eng, err := engine.Restore(gateway, s.run.State,
		engine.WithRunID(s.run.ID),
		engine.WithStepDelay(s.cfg.StepDelay()),
		engine.WithHooks(hooks),
		engine.WithLogger(logging.ComponentLevel(s.logger, "engine", overrides)),
	)
	if err != nil {
		return fmt.Errorf("restore run %s: %w", shortID(s.run.ID), err)
	}

	prompter := s.prompter()
	translator := translate.NewFromConfig(s.cfg,
		translate.WithLogger(logging.ComponentLevel(s.logger, "translate", overrides)))
	resolver := broker.New(gateway, prompter,
		broker.WithTranslator(translator),
		broker.WithLogger(logging.ComponentLevel(s.logger, "broker", overrides)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatching := watchInterrupts(runCtx, cancel, eng, errOut)
	defer stopWatching()

	started := time.Now()
	if eng.Mode() != engine.ModeAwaiting {
		if err := eng.Start(); err != nil {
			return fmt.Errorf("start run %s: %w", shortID(s.run.ID), err)
		}
	}
	loopErr := driveEngine(runCtx, eng, resolver)

	final := eng.State()
	if err := s.store.Save(persist, s.run.ID, final); err != nil {
		return fmt.Errorf("checkpoint run %s: %w", shortID(s.run.ID), err)
	}
	switch {
	case loopErr == nil:
	case errors.Is(loopErr, io.EOF):
		fmt.Fprintln(errOut, "Input closed before a decision was made.")
	default:
		if isCanceled(loopErr) {
			fmt.Fprintf(errOut, "Run %s aborted; resume with 'coverfill resume %s'\n", shortID(s.run.ID), shortID(s.run.ID))
			return loopErr
		}
		s.notifyFailure(persist, loopErr)
		return loopErr
	}

	if final.Completed {
		if merged == nil {
			merged = merge.Results(final.Input, final.Accumulated)
		}
		return s.finish(ctx, merged, time.Since(started))
	}
	s.reportUnfinished(final)
	return nil
}

// prompter picks how parked items are presented: interactive lists on a
// terminal, numbered menus over a pipe, or automatic skips.
func (s *session) prompter() broker.Prompter {
	in := s.cmd.InOrStdin()
	errOut := s.cmd.ErrOrStderr()
	switch {
	case s.opts.nonInteractive:
		return broker.AutoSkip{}
	case isTerminal(in) && isTerminal(errOut):
		return broker.NewPicker(in, errOut)
	default:
		return broker.NewTerminal(in, errOut)
	}
}

// driveEngine alternates between the run loop and the broker until the
// engine neither runs nor waits on a resolvable decision.
func driveEngine(ctx context.Context, eng *engine.Engine, resolver *broker.Broker) error {
	for {
		if err := eng.Run(ctx); err != nil {
			return err
		}
		if eng.Mode() != engine.ModeAwaiting {
			return nil
		}
		if err := resolver.Resolve(ctx, eng); err != nil {
			return err
		}
	}
}

func (s *session) finish(ctx context.Context, merged []catalog.Item, elapsed time.Duration) error {
	errOut := s.cmd.ErrOrStderr()
	if err := writeExport(s.cmd, merged, s.opts.format, s.opts.output); err != nil {
		return err
	}
	summary := notifications.SummarizeRun(s.run.ID, merged, elapsed)
	fmt.Fprintf(errOut, "Run %s completed: %d games, %d with cover, %d without results, %d errored\n",
		shortID(s.run.ID), summary.Total, summary.Completed, summary.NoResults, summary.Errored)

	if s.opts.noNotify || s.cfg.Notifications.NtfyTopic == "" {
		return nil
	}
	service := notifications.NewService(s.cfg)
	dispatcher := notifications.NewDispatcher(service, s.cfg.MessageDelay(), s.logger)
	report, err := dispatcher.DispatchItems(ctx, merged)
	if err != nil {
		return fmt.Errorf("send notifications: %w", err)
	}
	fmt.Fprintf(errOut, "Notifications: %d sent, %d failed\n", report.Sent, report.Failed)
	if err := service.NotifyRunCompleted(ctx, summary); err != nil {
		s.warnNotification(ctx, "run summary notification failed", err)
	}
	if failed := erroredNames(merged); len(failed) > 0 {
		failure := fmt.Errorf("%d lookups failed: %s", len(failed), strings.Join(failed, ", "))
		if err := service.NotifyError(ctx, failure, "run "+shortID(s.run.ID)); err != nil {
			s.warnNotification(ctx, "error notification failed", err)
		}
	}
	return nil
}

// notifyFailure reports a run that ended on an unexpected error.
func (s *session) notifyFailure(ctx context.Context, cause error) {
	if s.opts.noNotify || s.cfg.Notifications.NtfyTopic == "" {
		return
	}
	service := notifications.NewService(s.cfg)
	if err := service.NotifyError(ctx, cause, "run "+shortID(s.run.ID)); err != nil {
		s.warnNotification(ctx, "error notification failed", err)
	}
}

func (s *session) warnNotification(ctx context.Context, msg string, err error) {
	logging.WarnWithContext(ctx, s.logger, msg, "notification_failed",
		logging.String(logging.FieldRunID, s.run.ID),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check ntfy_topic and network access"),
	)
}

func erroredNames(items []catalog.Item) []string {
	var names []string
	for _, item := range items {
		if item.Status == catalog.StatusErrored {
			names = append(names, item.Name)
		}
	}
	return names
}

func (s *session) reportUnfinished(state engine.State) {
	errOut := s.cmd.ErrOrStderr()
	id := shortID(s.run.ID)
	switch state.Mode {
	case engine.ModeAwaiting:
		name := ""
		if state.Pending != nil {
			name = state.Pending.Item.Name
		}
		fmt.Fprintf(errOut, "Run %s is waiting for a decision on %q; continue with 'coverfill resume %s'\n", id, name, id)
	case engine.ModeStopped:
		fmt.Fprintf(errOut, "Run %s stopped at %d/%d\n", id, state.Cursor, state.Total())
	default:
		fmt.Fprintf(errOut, "Run %s paused at %d/%d; continue with 'coverfill resume %s'\n", id, state.Cursor, state.Total(), id)
	}
}

// watchInterrupts pauses the engine on the first interrupt and cancels ctx
// on the second.
func watchInterrupts(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine, out io.Writer) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		interrupted := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-signals:
				if !interrupted {
					interrupted = true
					if err := eng.Pause(); err == nil {
						fmt.Fprintln(out, "\nPausing after the current item; press Ctrl-C again to abort.")
						continue
					}
				}
				cancel()
				return
			}
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

// writeExport writes items to path, or to stdout when path is empty.
func writeExport(cmd *cobra.Command, items []catalog.Item, format tabular.Format, path string) error {
	if path == "" {
		return tabular.Write(cmd.OutOrStdout(), format, items)
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	err = fileutil.WriteAtomic(expanded, 0o644, func(w io.Writer) error {
		return tabular.Write(w, format, items)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", expanded, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d games to %s\n", len(items), expanded)
	return nil
}
