package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
)

var errNoSessions = errors.New("no saved sessions. Open the canvas in a browser first")

func (s *Server) handleListSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.store.Sessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing sessions failed: %v", err)), nil
	}
	var sb strings.Builder
	for _, id := range ids {
		snap, err := s.store.LoadCanvas(ctx, id)
		if err != nil || snap == nil {
			continue
		}
		fmt.Fprintf(&sb, "%s (%d nodes)\n", id, len(snap.Nodes))
	}
	if sb.Len() == 0 {
		return mcp.NewToolResultText(errNoSessions.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListNodes lists the nodes of a canvas, parents before children.
func (s *Server) handleListNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, sessionID, err := s.loadCanvas(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s: %d node(s)\n", sessionID, c.Len())
	seen := make(map[string]bool)
	var walk func(n *canvas.ChatNode, depth int)
	walk = func(n *canvas.ChatNode, depth int) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		state := "read-only"
		if n.Active {
			state = "active"
		}
		fmt.Fprintf(&sb, "%s- %s [%s] %d message(s), %s\n",
			strings.Repeat("  ", depth), n.DisplayTitle(), n.ID, len(n.Messages), state)
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	for _, n := range c.Nodes() {
		if _, ok := c.Node(n.ParentID); !ok {
			walk(n, 0)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleGetThread(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := request.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: node_id"), nil
	}
	c, _, err := s.loadCanvas(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msgs, err := c.Context(nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(msgs) == 0 {
		return mcp.NewToolResultText("The thread is empty."), nil
	}
	return mcp.NewToolResultText(formatThread(msgs)), nil
}

func (s *Server) handleRenderNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := request.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: node_id"), nil
	}
	c, _, err := s.loadCanvas(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, ok := c.Node(nodeID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", canvas.ErrNodeNotFound, nodeID)), nil
	}

	var sb strings.Builder
	for _, m := range n.Messages {
		html, err := s.renderer.Message(m)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("rendering failed: %v", err)), nil
		}
		fmt.Fprintf(&sb, "<div class=\"message %s\">%s</div>\n", m.Role, html)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// loadCanvas reads the canvas named by the optional session_id argument.
func (s *Server) loadCanvas(ctx context.Context, request mcp.CallToolRequest) (*canvas.Canvas, string, error) {
	sessionID := request.GetString("session_id", "")
	if sessionID == "" {
		ids, err := s.store.Sessions(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("listing sessions: %w", err)
		}
		if len(ids) == 0 {
			return nil, "", errNoSessions
		}
		sessionID = ids[0]
	}
	snap, err := s.store.LoadCanvas(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if snap == nil {
		return nil, "", fmt.Errorf("session %s has no saved canvas", sessionID)
	}
	return snap.Canvas(), sessionID, nil
}

// formatThread writes one block per message for agent consumption.
func formatThread(msgs []canvas.Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s]\n%s\n", m.Role, m.Content)
	}
	return sb.String()
}
