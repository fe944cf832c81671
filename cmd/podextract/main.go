// Package main is the entry point for the podextract CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcartmell/yard-perl-plugin/internal/config"
	"github.com/mcartmell/yard-perl-plugin/internal/logging"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg and logger are resolved before any subcommand runs
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd is the base command for the podextract CLI.
var rootCmd = &cobra.Command{
	Use:   "podextract",
	Short: "Extract and search documentation in Perl sources",
	Long: `podextract turns the POD blocks and comments of Perl modules into
documentation entities: packages with their superclass, subs with their
parameters and visibility, and the prose attached to each.

Single files can be inspected with parse. Whole distributions are indexed
into a SQLite database with index, queried with search, lookup and status,
and served to AI assistants over MCP with serve.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")

		v := viper.New()
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		c, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		l, err := logging.New(c.LogLevel, c.LogFormat, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(l)
		if used := v.ConfigFileUsed(); used != "" {
			l.Debug("using config file", "path", used)
		}

		colorMode, _ := cmd.Flags().GetString("color")
		if err := applyColorMode(colorMode); err != nil {
			return err
		}

		cfg, logger = c, l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./podextract.yaml or ~/.config/podextract/podextract.yaml)")
	rootCmd.PersistentFlags().String("db-path", "", "index database (default: ~/.podextract/index.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

// applyColorMode switches fatih/color on or off. auto keeps its terminal
// detection.
func applyColorMode(mode string) error {
	switch strings.ToLower(mode) {
	case "", "auto":
	case "on", "always":
		color.NoColor = false
	case "off", "never":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (want auto, on or off)", mode)
	}
	return nil
}

// openStore opens the index database, creating its directory
func openStore() (*storage.SQLiteStorage, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return storage.NewSQLiteStorage(cfg.DBPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
