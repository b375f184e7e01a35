package mcp

import "github.com/mark3labs/mcp-go/mcp"

var sessionParam = mcp.WithString("session_id",
	mcp.Description("Session to read. Defaults to the most recently used session."),
)

// listSessionsTool defines the list_sessions MCP tool.
var listSessionsTool = mcp.NewTool("list_sessions",
	mcp.WithDescription("List browser sessions that have a saved canvas, most recent first."),
)

// listNodesTool defines the list_nodes MCP tool.
var listNodesTool = mcp.NewTool("list_nodes",
	mcp.WithDescription("List the chat nodes of a canvas with their titles, parents and message counts."),
	sessionParam,
)

// getThreadTool defines the get_thread MCP tool.
var getThreadTool = mcp.NewTool("get_thread",
	mcp.WithDescription("Get the conversation history a node sends with its next message: every ancestor's messages from the root down, then the node's own."),
	mcp.WithString("node_id",
		mcp.Required(),
		mcp.Description("Id of the chat node"),
	),
	sessionParam,
)

// renderNodeTool defines the render_node MCP tool.
var renderNodeTool = mcp.NewTool("render_node",
	mcp.WithDescription("Render a node's messages to HTML the way the canvas displays them."),
	mcp.WithString("node_id",
		mcp.Required(),
		mcp.Description("Id of the chat node"),
	),
	sessionParam,
)
