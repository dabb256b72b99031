package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"coverfill/internal/config"
	"coverfill/internal/logging"
	"coverfill/internal/merge"
	"coverfill/internal/notifications"
	"coverfill/internal/runstore"
)

var errNotificationsDisabled = errors.New("notifications are not configured; set notifications.ntfy_topic or NTFY_TOPIC")

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var withSummary bool

	cmd := &cobra.Command{
		Use:   "notify [run]",
		Short: "Announce a run's covered games over ntfy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *runstore.Store) error {
				if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
					return errNotificationsDisabled
				}
				run, err := store.LoadOrLatest(commandCtx(cmd), optionalArg(args))
				if err != nil {
					return err
				}

				logger, closeLog, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr(), "")
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				defer func() {
					_ = closeLog()
				}()

				items := merge.Results(run.State.Input, run.State.Accumulated)
				service := notifications.NewService(cfg)
				dispatcher := notifications.NewDispatcher(service, cfg.MessageDelay(), logger)
				report, err := dispatcher.DispatchItems(commandCtx(cmd), items)
				if err != nil {
					return fmt.Errorf("send notifications: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Sent %d notifications (%d failed, %d skipped)\n", report.Sent, report.Failed, report.Skipped)

				if withSummary {
					var elapsed time.Duration
					if !run.FinishedAt.IsZero() {
						elapsed = run.FinishedAt.Sub(run.CreatedAt)
					}
					summary := notifications.SummarizeRun(run.ID, items, elapsed)
					if err := service.NotifyRunCompleted(commandCtx(cmd), summary); err != nil {
						return fmt.Errorf("send run summary: %w", err)
					}
					fmt.Fprintln(out, "Run summary sent")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&withSummary, "summary", false, "Also send the run summary")
	return cmd
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				return errNotificationsDisabled
			}
			service := notifications.NewService(cfg)
			if err := service.TestNotification(commandCtx(cmd)); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
