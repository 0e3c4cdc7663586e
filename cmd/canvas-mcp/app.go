package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/config"
	"github.com/Sternrassler/canvas-mcp/internal/mcpserver"
	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisPingTimeout = 5 * time.Second

// app holds the wired server and the resources it owns.
type app struct {
	server *mcpserver.Server
	redis  *redis.Client
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	rdb, err := newRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	clientCfg := cfg.ClientConfig()
	clientCfg.Redis = rdb

	c, err := client.New(clientCfg)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, fmt.Errorf("failed to create Canvas client: %w", err)
	}

	log.Info().
		Str("base_url", c.BaseURL()).
		Dur("rate_interval", clientCfg.RateInterval).
		Int("concurrency", cfg.Canvas.Concurrency).
		Int("retry_attempts", cfg.Canvas.RetryAttempts).
		Bool("shared_quota", rdb != nil).
		Msg("Canvas client configured")

	api := canvas.NewAPI(c, cfg.RetryPolicy())
	return &app{
		server: mcpserver.New(api, cfg.Canvas.Concurrency),
		redis:  rdb,
	}, nil
}

// ready reports whether Redis, when configured, answers.
func (a *app) ready(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx).Err()
}

func (a *app) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

// newRedisClient connects to url; an empty url means no shared quota.
func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return rdb, nil
}
