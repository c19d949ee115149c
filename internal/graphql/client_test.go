package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"unraidmcp/internal/config"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		APIURL:      url,
		APIKey:      "test-key",
		VerifySSL:   "true",
		HTTPTimeout: 5 * time.Second,
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(&config.Config{}); err == nil {
		t.Error("Expected error for unconfigured API URL")
	}
}

func TestNewClientNormalizesEndpoint(t *testing.T) {
	tests := []struct {
		apiURL   string
		expected string
	}{
		{"https://tower.local", "https://tower.local/graphql"},
		{"https://tower.local/", "https://tower.local/graphql"},
		{"https://tower.local/graphql", "https://tower.local/graphql"},
	}
	for _, test := range tests {
		c, err := NewClient(testConfig(test.apiURL))
		if err != nil {
			t.Fatalf("NewClient(%q) error: %v", test.apiURL, err)
		}
		if c.endpoint != test.expected {
			t.Errorf("endpoint for %q = %q, expected %q", test.apiURL, c.endpoint, test.expected)
		}
	}
}

func TestExecuteSendsAuthHeader(t *testing.T) {
	var gotKey, gotContentType string
	var gotBody request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"data":{"online":true}}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	data, err := c.Execute(context.Background(), "query { online }", map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody.Query != "query { online }" {
		t.Errorf("Query = %q", gotBody.Query)
	}
	if string(data) != `{"online":true}` {
		t.Errorf("data = %s", data)
	}
}

func TestExecuteOmitsAuthHeaderWithoutKey(t *testing.T) {
	var hasHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasHeader = r.Header["X-Api-Key"]
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Execute(context.Background(), "query { x }", nil); err != nil {
		t.Fatal(err)
	}
	if hasHeader {
		t.Error("x-api-key header must be omitted when no key is configured")
	}
}

func TestExecuteGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"field does not exist"},{"message":"second"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Execute(context.Background(), "query { bogus }", nil)
	if err == nil {
		t.Fatal("Expected error for GraphQL errors response")
	}
	if !strings.Contains(err.Error(), "field does not exist") || !strings.Contains(err.Error(), "second") {
		t.Errorf("Expected all error messages, got: %v", err)
	}
}

func TestExecuteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Execute(context.Background(), "query { x }", nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected status code in error, got: %v", err)
	}
}
