package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcartmell/yard-perl-plugin/internal/mcp"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the documentation index over MCP on stdio",
	Long: `Serve starts a Model Context Protocol server on stdin/stdout exposing
the index_perl_docs, search_docs, lookup_symbol and get_status tools.
Stdout carries the protocol, so logs always go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("podextract MCP server starting",
			"version", version, "build_mode", storage.BuildMode, "driver", storage.DriverName)

		server, err := mcp.NewServer(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Serve(ctx)
		}()

		select {
		case sig := <-sigChan:
			logger.Info("shutting down", "signal", sig.String())
			cancel()
			return server.Close()
		case err := <-errChan:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
