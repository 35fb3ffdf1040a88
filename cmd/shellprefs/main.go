// Package main is the entry point for the shellprefs command.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/shellprefs"
	"github.com/CreativeUnicorns/shellprefs/config"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shellprefs",
		Short:         "Frontend shell preference service",
		Long:          "Serves and migrates the store that decides which frontend shell each user sees.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		migrateCmd(),
	)
	return root
}

// loadConfig reads configuration and returns a logger set to the configured level.
func loadConfig() (*config.Config, shellprefs.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level, err := shellprefs.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := shellprefs.NewDefaultLogger()
	logger.SetLevel(level)
	return cfg, logger, nil
}
