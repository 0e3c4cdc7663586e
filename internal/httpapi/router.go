// Package httpapi serves the MCP server over HTTP: SSE and streamable
// transports, a stateless JSON-RPC endpoint, health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Sternrassler/canvas-mcp/internal/mcpserver"
	"github.com/Sternrassler/canvas-mcp/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Endpoint paths.
const (
	PathHealth      = "/health"
	PathReady       = "/ready"
	PathMetrics     = "/metrics"
	PathMessage     = "/message"
	PathSSE         = "/sse"
	PathSSEMessage  = "/sse/message"
	PathStreamable  = "/mcp"
	maxMessageBytes = 4 << 20
)

// Transports bundles the mcp-go HTTP transports mounted on the router.
type Transports struct {
	SSE        *server.SSEServer
	Streamable *server.StreamableHTTPServer
}

// NewTransports creates the SSE and streamable transports for s.
func NewTransports(s *server.MCPServer) *Transports {
	return &Transports{
		SSE: server.NewSSEServer(s,
			server.WithSSEEndpoint(PathSSE),
			server.WithMessageEndpoint(PathSSEMessage),
		),
		Streamable: server.NewStreamableHTTPServer(s,
			server.WithEndpointPath(PathStreamable),
		),
	}
}

// Options configures the router.
type Options struct {
	// APIKey protects every route except /health. Empty disables auth.
	APIKey string

	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	Logger zerolog.Logger
}

// NewRouter builds the gin engine.
func NewRouter(s *server.MCPServer, t *Transports, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(RecoveryMiddleware(opts.Logger))
	router.Use(LoggerMiddleware(opts.Logger))
	router.Use(APIKeyMiddleware(opts.APIKey))

	router.GET(PathHealth, healthHandler)
	router.GET(PathReady, readyHandler(opts.Ready))
	router.GET(PathMetrics, gin.WrapH(metrics.Handler()))
	router.POST(PathMessage, messageHandler(s))

	router.GET(PathSSE, gin.WrapH(t.SSE))
	router.POST(PathSSEMessage, gin.WrapH(t.SSE))
	router.Any(PathStreamable, gin.WrapH(t.Streamable))

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"server":  mcpserver.Name,
		"version": mcpserver.Version,
	})
}

func readyHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// messageHandler answers a single JSON-RPC message without a session.
// Notifications produce 202 with no body.
func messageHandler(s *server.MCPServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageBytes))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		if !json.Valid(raw) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "request body is not valid JSON"})
			return
		}

		reply := s.HandleMessage(c.Request.Context(), raw)
		if reply == nil {
			c.Status(http.StatusAccepted)
			return
		}
		c.JSON(http.StatusOK, reply)
	}
}
