// Package mcpserver exposes the subscription subsystem and the GraphQL
// client as MCP tools and resources over stdio.
package mcpserver

import (
	"context"
	"encoding/json"

	"unraidmcp/internal/graphql"
	"unraidmcp/internal/subscription"
	"unraidmcp/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const logSubsystem = "MCPServer"

// Server wraps the MCP protocol server and the collaborators its tools
// drive: the subscription manager, the diagnostics reporter, and the HTTP
// GraphQL client.
type Server struct {
	manager   *subscription.Manager
	diag      *subscription.Diagnostics
	gqlClient *graphql.Client
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers all tools and resources.
// gqlClient may be nil when the API URL is not configured; the graphql_query
// tool then reports the misconfiguration instead of being absent, so agents
// get an actionable error rather than a missing tool.
func NewServer(version string, manager *subscription.Manager, gqlClient *graphql.Client) *Server {
	mcpServer := server.NewMCPServer(
		"unraid-mcp",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s := &Server{
		manager:   manager,
		diag:      subscription.NewDiagnostics(manager),
		gqlClient: gqlClient,
		mcpServer: mcpServer,
	}

	s.registerTools()
	s.registerResources()
	return s
}

// Start serves MCP over stdio. It blocks until the client closes the
// connection or the process is terminated.
func (s *Server) Start(ctx context.Context) error {
	logging.Info(logSubsystem, "Serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// registerResources registers one read-only resource per catalog
// subscription, returning the cached latest payload.
func (s *Server) registerResources() {
	for _, cfg := range subscription.Catalog() {
		cfg := cfg
		resource := mcp.NewResource(
			cfg.ResourcePath,
			cfg.Name,
			mcp.WithResourceDescription(cfg.Description),
			mcp.WithMIMEType("application/json"),
		)
		s.mcpServer.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return s.handleSubscriptionResource(cfg)
		})
	}
	logging.Info(logSubsystem, "Registered %d subscription resources", len(subscription.Catalog()))
}

// handleSubscriptionResource renders the cached payload for one
// subscription. Absent data yields an explanatory note rather than an error:
// reading a resource before its stream delivered is a normal condition.
func (s *Server) handleSubscriptionResource(cfg subscription.Config) ([]mcp.ResourceContents, error) {
	var body interface{}
	if data, ok := s.manager.GetResourceData(cfg.Name); ok {
		body = data
	} else {
		body = map[string]interface{}{
			"available": false,
			"note":      "no data received yet; start the subscription with start_subscription",
			"state":     string(s.manager.State(cfg.Name)),
		}
	}

	encoded, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      cfg.ResourcePath,
			MIMEType: "application/json",
			Text:     string(encoded),
		},
	}, nil
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v interface{}) *mcp.CallToolResult {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error())
	}
	return mcp.NewToolResultText(string(encoded))
}
