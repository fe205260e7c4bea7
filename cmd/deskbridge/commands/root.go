package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"deskbridge/internal/app"
)

var (
	configPath string
	home       string
	logLevel   string
	userID     string
	bundled    bool
	timeout    time.Duration

	appCtx *app.App
)

func Execute() error {
	root := &cobra.Command{
		Use:          "deskbridge",
		Short:        "Secure native messaging bridge to the desktop companion",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if home != "" {
				cfg.Home = home
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if userID != "" {
				cfg.UserID = userID
			}
			if cmd.Flags().Changed("bundled") {
				cfg.Bundled = bundled
			}
			if err := app.SetupLogging(cfg.LogLevel, cfg.LogJSON); err != nil {
				return err
			}

			w, err := app.NewWire(cfg, app.ConsoleUI{Out: os.Stdout}, app.LogBroadcaster{})
			if err != nil {
				return err
			}
			appCtx = app.New(w, app.LogBroadcaster{})
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", app.DefaultConfigPath(), "config file (YAML)")
	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.deskbridge)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&userID, "user", "u", "", "account user id")
	root.PersistentFlags().BoolVar(&bundled, "bundled", false, "run the companion in process")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for a command")

	root.AddCommand(unlockCmd(), statusCmd(), appIDCmd(), fingerprintCmd(), accountCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}
