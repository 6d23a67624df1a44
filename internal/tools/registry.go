// Package tools exposes the CRM adapter as MCP tools. Each tool validates
// flat arguments, performs one upstream GraphQL operation (two for composite
// reads), and renders a human-readable text result. Upstream failures become
// error-flagged tool results; a tool call never surfaces as a transport
// error.
package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

// NewServer builds a fresh MCP server with the full tool set bound to the
// given upstream client. The router calls this once per inbound request; the
// server carries no cross-request state.
func NewServer(client *twenty.Client, version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"twenty-mcp-server",
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Tools for reading and writing Twenty CRM records: contacts, companies, opportunities, tasks, and notes."),
	)

	registerContactTools(srv, client)
	registerCompanyTools(srv, client)
	registerOpportunityTools(srv, client)
	registerTaskTools(srv, client)
	registerNoteTools(srv, client)
	registerInsightTools(srv, client)

	return srv
}

// errResult renders an upstream failure as a normal, inspectable tool result.
func errResult(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error %s: %v", action, err))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}
