package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"workforce_backend/internal/app"
	"workforce_backend/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "workforce",
	Short: "Realtime messaging, presence and notifications backend",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			_ = os.Setenv("CONFIG_PATH", configPath)
		}
	},
	// без подкоманды поднимаем сервер
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		return app.Run(cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		return app.Migrate(cfg)
	},
}

var pruneRetention time.Duration

var pruneEventsCmd = &cobra.Command{
	Use:   "prune-events",
	Short: "Remove catch-up log entries older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if pruneRetention > 0 {
			cfg.Events.Retention = pruneRetention
		}
		return app.PruneEvents(context.Background(), cfg)
	},
}

// Execute вызывается из main
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default is config/config.yaml)")

	pruneEventsCmd.Flags().DurationVar(&pruneRetention, "retention", 0, "override events.retention (e.g. 24h)")

	rootCmd.AddCommand(serveCmd, migrateCmd, pruneEventsCmd)
}
