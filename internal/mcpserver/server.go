// Package mcpserver registers the Canvas tools, prompts and resources on
// an MCP server.
package mcpserver

import (
	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/content"
	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Name and Version identify the server to MCP clients.
const (
	Name    = "canvas-mcp"
	Version = "1.0.0"
)

// Server owns the MCP server and the Canvas operations behind it.
type Server struct {
	api        *canvas.API
	aggregator *content.Aggregator
	weeks      *content.WeekResolver
	mcp        *server.MCPServer
	logger     zerolog.Logger
}

// New builds the MCP server. concurrency bounds item extraction fan-out.
func New(api *canvas.API, concurrency int) *Server {
	aggregator := content.NewAggregator(api, concurrency)

	s := &Server{
		api:        api,
		aggregator: aggregator,
		weeks:      content.NewWeekResolver(api, aggregator),
		logger:     logging.NewLogger("mcp-server"),
	}

	s.mcp = server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s
}

// MCP returns the underlying server for transports.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}
