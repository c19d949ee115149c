// Package app wires the unraidmcp components together: configuration,
// logging, the subscription manager, the GraphQL client, and the MCP server.
package app

import (
	"context"
	"os"

	"unraidmcp/internal/config"
	"unraidmcp/internal/graphql"
	"unraidmcp/internal/mcpserver"
	"unraidmcp/internal/subscription"
	"unraidmcp/pkg/logging"
)

// Options carries command-line settings into the bootstrap.
type Options struct {
	// ConfigFile is an optional YAML configuration file path; the
	// environment still overrides it.
	ConfigFile string

	// Debug forces debug-level logging regardless of configuration.
	Debug bool

	// Version is injected from the build.
	Version string
}

// Run bootstraps and serves until the MCP client disconnects or ctx is
// cancelled. All subscriptions are stopped before returning.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if opts.Debug {
		level = logging.LevelDebug
	}
	// Stdout carries the MCP stdio protocol; logs go to stderr.
	logging.Init(level, os.Stderr)

	logging.Info("Bootstrap", "unraidmcp %s starting (api=%s, autoStart=%v, maxRetries=%d)",
		opts.Version, cfg.MaskedAPIURL(), cfg.AutoStartSubscriptions, cfg.MaxRetries)

	manager := subscription.NewManager(cfg)
	defer manager.StopAll()

	var gqlClient *graphql.Client
	if cfg.APIURL != "" {
		gqlClient, err = graphql.NewClient(cfg)
		if err != nil {
			logging.Error("Bootstrap", err, "GraphQL client unavailable; the graphql_query tool will report the problem")
		}
	} else {
		logging.Warn("Bootstrap", "No API URL configured; set %s to enable API access", config.EnvAPIURL)
	}

	if cfg.AutoStartSubscriptions {
		manager.EnsureAutoStarted()
	}

	srv := mcpserver.NewServer(opts.Version, manager, gqlClient)
	return srv.Start(ctx)
}
