package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/canvas-mcp/internal/config"
	"github.com/Sternrassler/canvas-mcp/internal/mcpserver"
	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"base-url":       config.KeyBaseURL,
	"rate-interval":  config.KeyRateInterval,
	"timeout":        config.KeyTimeout,
	"concurrency":    config.KeyConcurrency,
	"retry-attempts": config.KeyRetryAttempts,
	"redis-url":      config.KeyRedisURL,
	"log-level":      config.KeyLogLevel,
	"log-pretty":     config.KeyLogPretty,
	"host":           config.KeyHTTPHost,
	"port":           config.KeyHTTPPort,
}

type rootOptions struct {
	cfgFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "canvas-mcp",
		Short:         "Canvas LMS MCP server",
		Long:          `Exposes Canvas LMS courses, modules, pages, assignments and files as MCP tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.String("base-url", "", "Canvas base URL (CANVAS_BASE_URL)")
	flags.Duration("rate-interval", 0, "minimum spacing between Canvas requests (CANVAS_RATE_INTERVAL)")
	flags.Duration("timeout", 0, "per-request timeout (CANVAS_TIMEOUT)")
	flags.Int("concurrency", 0, "parallel item extractions per module (CANVAS_CONCURRENCY)")
	flags.Int("retry-attempts", 0, "attempts for throttled or failed calls, 1 disables retries (CANVAS_RETRY_ATTEMPTS)")
	flags.String("redis-url", "", "Redis URL for sharing the Canvas quota (REDIS_URL)")
	flags.String("log-level", "", "log level: debug, info, warn, error (LOG_LEVEL)")
	flags.Bool("log-pretty", false, "human-readable logs (LOG_PRETTY)")

	root.AddCommand(newStdioCommand(opts))
	root.AddCommand(newHTTPCommand(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", mcpserver.Name, mcpserver.Version)
		},
	})

	return root
}

// loadConfig resolves and validates the configuration, binding the flags
// the user actually set, then configures logging.
func (o *rootOptions) loadConfig(cmd *cobra.Command, dotenv bool) (*config.Config, error) {
	if dotenv {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
		}
	}

	v, err := config.New(o.cfgFile)
	if err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.Root().PersistentFlags().Lookup(name)
		}
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg := config.Load(v)
	logging.Setup(cfg.LoggingConfig())

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
