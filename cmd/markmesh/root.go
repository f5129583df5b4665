package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vearutop/markmesh/internal/config"
)

// app carries settings resolved before any subcommand runs.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "markmesh",
		Short: "Hide, recover and verify image watermarks",
		Long: `Markmesh hides a 32x32 watermark inside a 512x512 cover image by modulating
the luma row pairs, recovers it from a suspect copy and scores the recovered
watermark against the original to tell authentic carriers from tampered ones.

Settings come from an optional YAML file (--config), MARKMESH_* environment
variables (a .env file is honored) and command flags, in that order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			lvl, err := config.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
			slog.SetDefault(a.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML configuration file")

	cmd.AddCommand(newEmbedCmd(a))
	cmd.AddCommand(newExtractCmd(a))
	cmd.AddCommand(newVerifyCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// alpha returns the flag value when set, the configured strength otherwise.
func (a *app) alpha(cmd *cobra.Command, flagValue float64) float64 {
	if cmd.Flags().Changed("alpha") {
		return flagValue
	}
	return a.cfg.Alpha
}
