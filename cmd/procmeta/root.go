package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/procmeta/internal/config"
	"github.com/aretw0/procmeta/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    = config.Default()
	logger = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "procmeta",
	Short: "procmeta edits business-process metadata",
	Long: `procmeta manages process types, their states and the operations moving between them.
Edits are staged locally and sent to the backend in one save.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		if cmd.Flags().Changed("url") {
			cfg.Client.URL, _ = cmd.Flags().GetString("url")
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		logger = newLogger(cfg.Log)
		return nil
	},
}

func newLogger(c config.Log) *slog.Logger {
	level := logging.ParseLevel(c.Level)
	if strings.EqualFold(c.Format, "json") {
		return logging.NewJSON(os.Stderr, level)
	}
	return logging.New(level)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default "+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().String("url", "", "Backend base URL")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}
