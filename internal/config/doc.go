// Package config loads the unraidmcp configuration.
//
// Configuration is environment-first: every setting can be provided through
// an UNRAID_* environment variable, with an optional YAML file underneath
// (loaded when a path is passed on the command line). Environment variables
// always win over file values, so a stale config file never overrides an
// operator's .env fix.
//
// The configuration is loaded once at startup and treated as immutable for
// the lifetime of the process.
package config
