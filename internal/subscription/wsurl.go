package subscription

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// BuildWebsocketURL derives the ws(s):// GraphQL endpoint from the
// configured HTTP(S) API URL. The path is normalized to end with /graphql
// exactly once.
func BuildWebsocketURL(apiURL string) (string, error) {
	if strings.TrimSpace(apiURL) == "" {
		return "", fmt.Errorf("API URL is not configured")
	}

	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse API URL %q: %w", apiURL, err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported API URL scheme %q", u.Scheme)
	}

	path := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(path, "/graphql") {
		path += "/graphql"
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// TLSConfigFor builds the TLS client configuration for a WebSocket URL.
// Non-wss URLs need no TLS and yield nil. For wss URLs the verify setting is
// tri-state: "true" (or empty) verifies against system roots, "false"
// disables hostname and certificate verification, and any other value is
// treated as a path to a CA bundle file.
func TLSConfigFor(wsURL string, verify string) (*tls.Config, error) {
	if !strings.HasPrefix(wsURL, "wss://") {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(verify)) {
	case "", "true", "1", "yes":
		return &tls.Config{}, nil
	case "false", "0", "no":
		return &tls.Config{InsecureSkipVerify: true}, nil
	}

	pem, err := os.ReadFile(verify)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle %s: %w", verify, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA bundle %s contains no usable certificates", verify)
	}
	return &tls.Config{RootCAs: pool}, nil
}
