package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the unraidmcp application.
var rootCmd = &cobra.Command{
	Use:   "unraid-mcp",
	Short: "MCP server exposing an Unraid server's GraphQL API to LLM agents",
	Long: `unraid-mcp is a Model-Context-Protocol server that exposes an Unraid
server's GraphQL API as tools and resources for LLM agents, including a
real-time subscription subsystem that streams system metrics, array status,
and log files over GraphQL WebSocket subscriptions.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "unraid-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
