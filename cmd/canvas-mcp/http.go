package main

import (
	"github.com/Sternrassler/canvas-mcp/internal/httpapi"
	"github.com/spf13/cobra"
)

func newHTTPCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve MCP over HTTP (SSE, streamable and JSON-RPC)",
		Long: `Serve MCP over HTTP. Endpoints:
  GET  /health        liveness, never authenticated
  GET  /ready         Redis reachability when REDIS_URL is set
  GET  /metrics       Prometheus metrics
  GET  /sse           SSE transport (messages to /sse/message)
  ANY  /mcp           streamable HTTP transport
  POST /message       single JSON-RPC message

Set API_KEY to require X-API-Key or Authorization: Bearer on every other route.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd, true)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := httpapi.NewServer(cfg.Addr(), a.server.MCP(), httpapi.Options{
				APIKey: cfg.HTTP.APIKey,
				Ready:  a.ready,
			})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("host", "", "listen host (HOST)")
	cmd.Flags().Int("port", 0, "listen port (PORT)")
	return cmd
}
