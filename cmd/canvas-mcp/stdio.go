package main

import (
	"context"
	"errors"
	stdlog "log"
	"os"

	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newStdioCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdin/stdout",
		Long:  `Serve MCP over stdin/stdout for desktop clients. Logs are written to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd, false)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			logger := logging.NewLogger("stdio")
			stdio := server.NewStdioServer(a.server.MCP())
			stdio.SetErrorLogger(stdlog.New(logger, "", 0))

			logger.Info().Msg("Canvas MCP Server running on stdio")
			if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
