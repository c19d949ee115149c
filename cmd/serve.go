package cmd

import (
	"context"

	"unraidmcp/internal/app"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigFile is an optional YAML configuration file; environment
// variables still take precedence over its values.
var serveConfigFile string

// serveCmd starts the MCP server over stdio.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio for AI assistant integration.",
	Long: `Starts the unraid-mcp server speaking the Model-Context-Protocol over
stdin/stdout. Intended to be launched by an MCP client (Claude Desktop,
Cursor, etc.); all diagnostics go to stderr.

Configuration is read from UNRAID_* environment variables, optionally layered
over a YAML file passed with --config:

  UNRAID_API_URL         Base URL of the Unraid GraphQL API (required)
  UNRAID_API_KEY         API key sent with every request and subscription
  UNRAID_VERIFY_SSL      true, false, or a CA bundle path
  UNRAID_WS_AUTOSTART    Start flagged subscriptions at boot
  UNRAID_WS_MAX_RETRIES  Reconnection attempts per subscription (default 10)
  UNRAID_HTTP_TIMEOUT    HTTP request timeout (seconds or Go duration)
  UNRAID_LOG_LEVEL       debug, info, warn, or error`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := app.Options{
		ConfigFile: serveConfigFile,
		Debug:      serveDebug,
		Version:    GetVersion(),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.Run(ctx, opts)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigFile, "config", "", "Optional YAML configuration file (environment overrides it)")
}
