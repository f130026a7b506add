// Package cli contains the wallet commands.
package cli

import (
	"fmt"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
	"wallet/internal/config"
	"wallet/internal/logger"
)

type applicationFlags struct {
	configPath string
}

var appFlags applicationFlags

// app is filled by the root command before any subcommand runs.
var app struct {
	provider *config.Provider
	logger   *slog.Logger
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config"
	}
	rootCmd.PersistentFlags().StringVarP(&appFlags.configPath, "config", "c", defaultPath, "directory holding config.yaml")
}

var rootCmd = &cobra.Command{
	Use:           "wallet",
	Short:         "wallet sends tokens to delegate nodes and tracks them until they settle",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		provider, err := config.NewProvider(appFlags.configPath, slog.Default())
		if err != nil {
			return err
		}
		app.logger = logger.Init(provider.Current().Env)
		provider.SetLogger(app.logger)
		app.provider = provider
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
