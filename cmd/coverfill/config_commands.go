package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"coverfill/internal/config"
	"coverfill/internal/language"
	"coverfill/internal/logging"
	"coverfill/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set a SteamGridDB api_key or IGDB client credentials (or export STEAMGRIDDB_API_KEY / IGDB_CLIENT_ID / IGDB_CLIENT_SECRET) before running coverfill.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			lines := []string{
				configuredLine("SteamGridDB", cfg.SteamGridDBConfigured(), "api_key missing", colorize),
				configuredLine("IGDB", cfg.IGDBConfigured(), "client_id/client_secret missing", colorize),
				renderStatusLine("Order", statusInfo, strings.Join(cfg.Providers.Order, " -> "), colorize),
				configuredLine("Notifications", cfg.Notifications.NtfyTopic != "", "ntfy_topic not set", colorize),
				translationLine(cfg, colorize),
				renderStatusLine("State", statusInfo, filepath.Clean(cfg.Paths.StateDir), colorize),
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if err := cfg.RequireProvider(); err != nil {
				return err
			}
			if check {
				results := preflight.RunAll(commandCtx(cmd), cfg, probeBackends(cfg, logging.NewNop()))
				fmt.Fprintln(out, renderPreflight(results, colorize))
				if preflight.Failed(results) {
					return errors.New("preflight checks failed")
				}
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Probe directories and lookup backends")
	return cmd
}

func renderPreflight(results []preflight.Result, colorize bool) string {
	lines := renderSectionHeader("Checks", colorize)
	for _, result := range results {
		kind := statusOK
		switch {
		case result.Skipped:
			kind = statusWarn
		case !result.Passed:
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return strings.Join(lines, "\n")
}

func translationLine(cfg *config.Config, colorize bool) string {
	if !cfg.Translation.Enabled {
		return renderStatusLine("Translation", statusWarn, "disabled", colorize)
	}
	pair := fmt.Sprintf("%s -> %s", language.Name(cfg.Translation.SourceLanguage), language.Name(cfg.Translation.TargetLanguage))
	return renderStatusLine("Translation", statusOK, pair, colorize)
}

func configuredLine(label string, ok bool, missing string, colorize bool) string {
	if ok {
		return renderStatusLine(label, statusOK, "configured", colorize)
	}
	return renderStatusLine(label, statusWarn, missing, colorize)
}
