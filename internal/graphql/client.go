// Package graphql provides the request/response GraphQL HTTP client for the
// Unraid API. The real-time subscription transport lives in
// internal/subscription; this client covers one-shot queries and mutations
// issued through the MCP tool surface.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"unraidmcp/internal/config"
	"unraidmcp/internal/subscription"
	"unraidmcp/pkg/logging"
)

const logSubsystem = "GraphQL"

// Client executes GraphQL operations over HTTP.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// request is the GraphQL-over-HTTP request body.
type request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// response is the GraphQL-over-HTTP response envelope.
type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient builds a client for the configured API. The endpoint path is
// normalized to end with /graphql exactly once, and TLS verification honors
// the same tri-state setting as the WebSocket transport.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, config.ErrAPIURLNotConfigured
	}

	endpoint := strings.TrimRight(cfg.APIURL, "/")
	if !strings.HasSuffix(endpoint, "/graphql") {
		endpoint += "/graphql"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg, err := subscription.TLSConfigFor("wss://placeholder", cfg.VerifySSL)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: transport,
		},
	}, nil
}

// Execute runs one GraphQL operation and returns the raw data object.
// GraphQL errors in an otherwise successful response surface as an error.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned HTTP %d: %s", resp.StatusCode, truncateBody(raw))
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		msgs := make([]string, len(parsed.Errors))
		for i, e := range parsed.Errors {
			msgs[i] = e.Message
		}
		logging.Warn(logSubsystem, "Operation returned %d error(s)", len(parsed.Errors))
		return nil, fmt.Errorf("GraphQL errors: %s", strings.Join(msgs, "; "))
	}

	return parsed.Data, nil
}

func truncateBody(raw []byte) string {
	const max = 512
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
