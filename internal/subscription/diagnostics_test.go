package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"unraidmcp/internal/config"

	"github.com/gorilla/websocket"
)

func TestDiagnoseWithoutConfiguration(t *testing.T) {
	m := NewManager(&config.Config{MaxRetries: 3})
	d := NewDiagnostics(m)

	report := d.Diagnose()

	env := report.Environment
	if env["apiUrlConfigured"] != false {
		t.Error("Expected apiUrlConfigured=false")
	}
	if env["apiKeyConfigured"] != false {
		t.Error("Expected apiKeyConfigured=false")
	}
	if _, ok := env["websocketUrl"]; ok {
		t.Error("websocketUrl must be absent when the API URL is not derivable")
	}

	if report.Summary["configured"] != len(Catalog()) {
		t.Errorf("Summary configured = %d, expected %d", report.Summary["configured"], len(Catalog()))
	}
	if report.Summary["active"] != 0 {
		t.Errorf("Summary active = %d, expected 0", report.Summary["active"])
	}

	// Missing URL and key are both critical findings.
	criticals := 0
	for _, rec := range report.Recommendations {
		if rec.Severity == "critical" {
			criticals++
		}
	}
	if criticals != 2 {
		t.Errorf("Expected 2 critical recommendations, got %d: %+v", criticals, report.Recommendations)
	}
}

func TestDiagnoseEnvironmentSummary(t *testing.T) {
	m := NewManager(&config.Config{
		APIURL:     "https://tower.local",
		APIKey:     "k",
		VerifySSL:  "false",
		MaxRetries: 7,
	})
	d := NewDiagnostics(m)

	report := d.Diagnose()
	env := report.Environment

	if env["websocketUrl"] != "wss://tower.local/graphql" {
		t.Errorf("websocketUrl = %v", env["websocketUrl"])
	}
	if env["maxRetries"] != 7 {
		t.Errorf("maxRetries = %v", env["maxRetries"])
	}
	if env["apiUrlPreview"] != "https://tower.local/..." {
		t.Errorf("apiUrlPreview = %v", env["apiUrlPreview"])
	}

	// The raw API key must never appear anywhere in the report.
	encoded, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(encoded), `"k"`) {
		t.Error("Report leaked the API key")
	}
}

func TestDiagnoseCollectsErrors(t *testing.T) {
	m := NewManager(&config.Config{APIURL: "https://tower.local", APIKey: "k", MaxRetries: 3})
	m.recordError("arrayStatus", "connection refused")
	m.setState("arrayStatus", StateError)

	report := NewDiagnostics(m).Diagnose()

	if report.Summary["inError"] != 1 {
		t.Fatalf("Summary inError = %d, expected 1", report.Summary["inError"])
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Expected 1 error entry, got %d", len(report.Errors))
	}
	e := report.Errors[0]
	if e.Subscription != "arrayStatus" || e.State != "error" || e.Error != "connection refused" {
		t.Errorf("Unexpected error entry: %+v", e)
	}
}

func TestTestSubscriptionQueryRejectsBeforeIO(t *testing.T) {
	// The manager has no API URL; a forbidden document must be rejected by
	// the validator without ever attempting a connection.
	m := NewManager(&config.Config{MaxRetries: 3})
	d := NewDiagnostics(m)

	result := d.TestSubscriptionQuery(context.Background(), "mutation { reboot }")
	if result.Valid {
		t.Fatal("Forbidden document must be invalid")
	}
	if !strings.Contains(result.Error, "must be a subscription") {
		t.Errorf("Unexpected error: %s", result.Error)
	}
}

func TestTestSubscriptionQueryOneShot(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{ProtocolGraphQLTransportWS}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// connection_init
		_, _, _ = conn.ReadMessage()
		_ = conn.WriteJSON(map[string]interface{}{"type": "connection_ack"})

		// subscribe: echo one data message under the same id
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub wsMessage
		if err := json.Unmarshal(raw, &sub); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]interface{}{
			"id":      sub.ID,
			"type":    "next",
			"payload": map[string]interface{}{"data": map[string]interface{}{"state": "STARTED"}},
		})
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	m := NewManager(&config.Config{APIURL: srv.URL, APIKey: "k", MaxRetries: 3})
	d := NewDiagnostics(m)

	result := d.TestSubscriptionQuery(context.Background(), "subscription { arrayStatus { state } }")
	if !result.Valid {
		t.Fatalf("Expected valid result, got error: %s", result.Error)
	}
	if result.SubscriptionName != "arrayStatus" {
		t.Errorf("SubscriptionName = %q", result.SubscriptionName)
	}
	if result.Protocol != ProtocolGraphQLTransportWS {
		t.Errorf("Protocol = %q", result.Protocol)
	}
	if result.Message == nil {
		t.Fatalf("Expected a first message, got note=%q error=%q", result.Note, result.Error)
	}
	data := result.Message["data"].(map[string]interface{})
	if data["state"] != "STARTED" {
		t.Errorf("Unexpected message payload: %v", result.Message)
	}

	// The one-shot test never touches long-lived manager state.
	if len(m.ListActive()) != 0 {
		t.Error("One-shot test must not start a managed subscription")
	}
	if m.State("arrayStatus") != StateNotStarted {
		t.Errorf("Managed state changed to %s", m.State("arrayStatus"))
	}
}

func TestTestSubscriptionQueryNoImmediateResponse(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{ProtocolGraphQLTransportWS}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
		_ = conn.WriteJSON(map[string]interface{}{"type": "connection_ack"})
		_, _, _ = conn.ReadMessage() // subscribe, then stay silent
		time.Sleep(8 * time.Second)
	}))
	defer srv.Close()

	m := NewManager(&config.Config{APIURL: srv.URL, APIKey: "k", MaxRetries: 3})
	d := NewDiagnostics(m)

	result := d.TestSubscriptionQuery(context.Background(), "subscription { vmState { state } }")
	if !result.Valid {
		t.Fatalf("Expected valid result, got error: %s", result.Error)
	}
	if result.Error != "" {
		t.Errorf("Silence is not an error, got: %s", result.Error)
	}
	if !strings.Contains(result.Note, "no immediate response") {
		t.Errorf("Expected a 'no immediate response' note, got: %q", result.Note)
	}
}
