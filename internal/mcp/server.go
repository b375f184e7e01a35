// Package mcp exposes saved canvases to MCP clients over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/branch-canvas/internal/render"
	"github.com/ziadkadry99/branch-canvas/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes read-only canvas tools.
type Server struct {
	store    *session.Store
	renderer *render.Renderer
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server reading from the given session store.
func NewServer(store *session.Store, renderer *render.Renderer) *Server {
	s := &Server{
		store:    store,
		renderer: renderer,
	}

	s.mcp = server.NewMCPServer(
		"branchcanvas",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(listSessionsTool, s.handleListSessions)
	s.mcp.AddTool(listNodesTool, s.handleListNodes)
	s.mcp.AddTool(getThreadTool, s.handleGetThread)
	s.mcp.AddTool(renderNodeTool, s.handleRenderNode)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
