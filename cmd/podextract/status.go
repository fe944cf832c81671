package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [PATH]",
	Short: "Show index statistics for a tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		format, _ := cmd.Flags().GetString("format")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		project, err := loadProject(ctx, store, root)
		if err != nil {
			return err
		}
		status, err := store.GetStatus(ctx, project.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format != "text" {
			return writeStructured(out, format, status)
		}
		renderStatus(out, status)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(statusCmd)
}
