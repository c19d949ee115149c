// Package logging provides a structured logging system for unraidmcp with
// unified log handling and level filtering.
//
// The package is built on Go's standard slog package. All log entries carry a
// subsystem identifier so that output from the subscription manager, the MCP
// server, and the bootstrap path can be filtered independently.
//
// # Usage
//
//	import "unraidmcp/pkg/logging"
//
//	// Initialize with Info level logging to stderr. Stdout is reserved for
//	// the MCP stdio transport and must never receive log output.
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Server starting up")
//	logging.Debug("Subscription", "Connecting to %s", wsURL)
//	logging.Error("Subscription", err, "Connection attempt %d failed", attempt)
//
// # Subsystem Organization
//
//   - **Bootstrap**: Application initialization and startup
//   - **Config**: Configuration loading and validation
//   - **Subscription**: WebSocket subscription lifecycle and data delivery
//   - **Diagnostics**: Subscription health reporting and query testing
//   - **MCPServer**: MCP tool and resource handling
//   - **GraphQL**: HTTP GraphQL client operations
//
// # Thread Safety
//
// The logging system is fully thread-safe; concurrent logging from the
// per-subscription goroutines requires no external synchronization.
package logging
