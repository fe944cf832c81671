package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mcartmell/yard-perl-plugin/internal/mcp"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
)

var versionColor = color.New(color.FgGreen, color.Bold)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of podextract",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "podextract %s\n", versionColor.Sprint(version))
		fmt.Fprintf(out, "MCP server: %s %s\n", mcp.ServerName, mcp.ServerVersion)
		fmt.Fprintf(out, "Build mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite driver: %s\n", storage.DriverName)
		fmt.Fprintf(out, "Schema version: %s\n", storage.CurrentSchemaVersion)

		showDB, _ := cmd.Flags().GetBool("db")
		if !showDB {
			return nil
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		v, err := store.SchemaVersion(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Database: %s (schema %s)\n", cfg.DBPath, v)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("db", false, "also report the schema version of the index database")
	rootCmd.AddCommand(versionCmd)
}
