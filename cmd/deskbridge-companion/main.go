package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"deskbridge/internal/app"
	"deskbridge/internal/companion"
	"deskbridge/internal/transport"
)

func main() {
	var configPath, home string

	root := &cobra.Command{
		Use:          "deskbridge-companion [origin]",
		Short:        "Desktop companion native messaging host",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if home != "" {
				cfg.Home = home
			}
			if err := app.SetupLogging(cfg.LogLevel, cfg.LogJSON); err != nil {
				return err
			}
			log.Info().Strs("args", args).Str("home", cfg.CompanionHome()).Msg("Companion host starting")

			port := transport.Stdio()
			h, vault, err := app.NewCompanion(cfg)
			if err != nil {
				return err
			}
			if !vault.Exists() || cfg.Passphrase() == "" {
				log.Warn().Msg("No unlocked vault; reporting the companion as not running")
				return companion.Refuse(cmd.Context(), port)
			}
			return companion.Serve(cmd.Context(), port, h)
		},
	}
	root.Flags().StringVar(&configPath, "config", app.DefaultConfigPath(), "config file (YAML)")
	root.Flags().StringVar(&home, "home", "", "state dir (default ~/.deskbridge)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Companion host failed")
		os.Exit(1)
	}
}
