package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"unraidmcp/internal/subscription"
	"unraidmcp/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the subscription lifecycle, diagnostics, and
// GraphQL escape-hatch tools.
func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_subscription",
		mcp.WithDescription("Start a real-time subscription to the Unraid server. Data arrives continuously and is readable via get_subscription_data or the unraid://subscriptions/* resources."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Subscription name, one of the catalog names from get_subscription_status."),
		),
		mcp.WithString("path",
			mcp.Description("Log file path; required for the logFile subscription, ignored otherwise."),
		),
	)
	s.mcpServer.AddTool(startTool, s.handleStartSubscription)

	stopTool := mcp.NewTool("stop_subscription",
		mcp.WithDescription("Stop an active subscription."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Subscription name to stop."),
		),
	)
	s.mcpServer.AddTool(stopTool, s.handleStopSubscription)

	dataTool := mcp.NewTool("get_subscription_data",
		mcp.WithDescription("Return the latest cached payload for a subscription."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Subscription name to read."),
		),
	)
	s.mcpServer.AddTool(dataTool, s.handleGetSubscriptionData)

	listTool := mcp.NewTool("list_active_subscriptions",
		mcp.WithDescription("List subscriptions with a running background task."),
	)
	s.mcpServer.AddTool(listTool, s.handleListActive)

	statusTool := mcp.NewTool("get_subscription_status",
		mcp.WithDescription("Full status snapshot for every configured subscription, including never-started ones."),
	)
	s.mcpServer.AddTool(statusTool, s.handleGetStatus)

	autoStartTool := mcp.NewTool("auto_start_subscriptions",
		mcp.WithDescription("Start every subscription flagged for auto-start."),
	)
	s.mcpServer.AddTool(autoStartTool, s.handleAutoStart)

	diagnoseTool := mcp.NewTool("diagnose_subscriptions",
		mcp.WithDescription("Assemble a troubleshooting report: environment summary, per-subscription status, error list, and recommendations."),
	)
	s.mcpServer.AddTool(diagnoseTool, s.handleDiagnose)

	testTool := mcp.NewTool("test_subscription_query",
		mcp.WithDescription("Validate a subscription document and run it once over a throwaway connection, waiting briefly for a first message."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The subscription document to test."),
		),
	)
	s.mcpServer.AddTool(testTool, s.handleTestQuery)

	graphqlTool := mcp.NewTool("graphql_query",
		mcp.WithDescription("Execute an arbitrary GraphQL query against the Unraid API. Use when direct API access is needed beyond the provided tools."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The GraphQL query or mutation string to execute."),
		),
		mcp.WithString("variables",
			mcp.Description("Optional JSON object string of variables."),
		),
	)
	s.mcpServer.AddTool(graphqlTool, s.handleGraphQLQuery)

	logging.Info(logSubsystem, "Registered subscription and GraphQL tools")
}

func (s *Server) handleStartSubscription(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}

	cfg, ok := subscription.CatalogEntry(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown subscription %q; see get_subscription_status for the catalog", name)), nil
	}

	var variables map[string]interface{}
	if name == subscription.LogFileSubscription {
		path := request.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("the logFile subscription requires a 'path' argument"), nil
		}
		variables = map[string]interface{}{"path": path}
	}

	if err := s.manager.Start(name, cfg.Query, variables); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{
		"started": name,
		"state":   string(s.manager.State(name)),
	}), nil
}

func (s *Server) handleStopSubscription(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}
	if err := s.manager.Stop(name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{
		"stopped": name,
		"state":   string(s.manager.State(name)),
	}), nil
}

func (s *Server) handleGetSubscriptionData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}

	data, ok := s.manager.GetResourceData(name)
	if !ok {
		return jsonResult(map[string]interface{}{
			"available": false,
			"state":     string(s.manager.State(name)),
			"note":      "no data received yet",
		}), nil
	}
	return jsonResult(data), nil
}

func (s *Server) handleListActive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	active := s.manager.ListActive()
	if active == nil {
		active = []string{}
	}
	return jsonResult(map[string]interface{}{"active": active}), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.manager.GetStatus()), nil
}

func (s *Server) handleAutoStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.manager.AutoStartAll()
	return jsonResult(map[string]interface{}{
		"active": s.manager.ListActive(),
	}), nil
}

func (s *Server) handleDiagnose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.diag.Diagnose()), nil
}

func (s *Server) handleTestQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}
	return jsonResult(s.diag.TestSubscriptionQuery(ctx, query)), nil
}

func (s *Server) handleGraphQLQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.gqlClient == nil {
		return mcp.NewToolResultError("GraphQL client unavailable: UNRAID_API_URL is not configured"), nil
	}

	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}

	var variables map[string]interface{}
	if raw := request.GetString("variables", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &variables); err != nil {
			return mcp.NewToolResultError("parse variables JSON: " + err.Error()), nil
		}
	}

	data, err := s.gqlClient.Execute(ctx, query, variables)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var parsed interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return mcp.NewToolResultText(string(data)), nil
	}
	return jsonResult(parsed), nil
}
