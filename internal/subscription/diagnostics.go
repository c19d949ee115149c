package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"unraidmcp/pkg/logging"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const diagSubsystem = "Diagnostics"

// TestWaitTimeout is how long the one-shot query tester waits for a first
// data message. Deliberately short: the tester is for troubleshooting, not
// for consuming the stream.
const TestWaitTimeout = 5 * time.Second

// Diagnostics provides read-only health reporting over a Manager plus an
// ad-hoc single-shot subscription tester. It never mutates manager state
// beyond the lazy auto-start trigger, and never raises recorded subscription
// errors to its caller.
type Diagnostics struct {
	manager *Manager
}

// NewDiagnostics creates a Diagnostics reporter for the given manager.
func NewDiagnostics(manager *Manager) *Diagnostics {
	return &Diagnostics{manager: manager}
}

// SubscriptionError is one entry of the diagnosis error list.
type SubscriptionError struct {
	Subscription string `json:"subscription"`
	State        string `json:"state"`
	Error        string `json:"error"`
}

// Recommendation is a human-readable troubleshooting hint.
type Recommendation struct {
	Severity string `json:"severity"` // "info", "warning", "critical"
	Message  string `json:"message"`
}

// Report is the full diagnosis output.
type Report struct {
	Environment     map[string]interface{} `json:"environment"`
	Subscriptions   map[string]Status      `json:"subscriptions"`
	Summary         map[string]int         `json:"summary"`
	Errors          []SubscriptionError    `json:"errors"`
	Recommendations []Recommendation       `json:"recommendations"`
	GeneratedAt     time.Time              `json:"generatedAt"`
}

// Diagnose assembles a best-effort health report. It triggers auto-start
// lazily (idempotent) so that a diagnosis on a freshly booted server reflects
// real connection attempts rather than a wall of not_started entries.
func (d *Diagnostics) Diagnose() *Report {
	d.manager.EnsureAutoStarted()

	cfg := d.manager.Config()
	statuses := d.manager.GetStatus()

	env := map[string]interface{}{
		"apiUrlConfigured": cfg.APIURL != "",
		"apiKeyConfigured": cfg.APIKey != "",
		"apiUrlPreview":    cfg.MaskedAPIURL(),
		"verifySsl":        cfg.VerifySSL,
		"autoStartEnabled": cfg.AutoStartSubscriptions,
		"maxRetries":       cfg.MaxRetries,
	}
	if wsURL, err := BuildWebsocketURL(cfg.APIURL); err == nil {
		env["websocketUrl"] = wsURL
	}

	summary := map[string]int{
		"configured": len(statuses),
		"autoStart":  0,
		"active":     0,
		"withData":   0,
		"inError":    0,
	}
	var errs []SubscriptionError
	for name, st := range statuses {
		if st.Config.AutoStart {
			summary["autoStart"]++
		}
		if st.Runtime.Active {
			summary["active"]++
		}
		if st.Data.Available {
			summary["withData"]++
		}
		if st.Runtime.LastError != "" {
			summary["inError"]++
			errs = append(errs, SubscriptionError{
				Subscription: name,
				State:        st.Runtime.ConnectionState,
				Error:        st.Runtime.LastError,
			})
		}
	}

	return &Report{
		Environment:     env,
		Subscriptions:   statuses,
		Summary:         summary,
		Errors:          errs,
		Recommendations: recommendations(cfg.APIURL != "", cfg.APIKey != "", summary),
		GeneratedAt:     time.Now(),
	}
}

// recommendations derives troubleshooting hints from the environment and
// summary. Severity escalates one way: a worse finding is never downgraded
// by a later, milder one.
func recommendations(urlConfigured, keyConfigured bool, summary map[string]int) []Recommendation {
	var recs []Recommendation

	if !urlConfigured {
		recs = append(recs, Recommendation{
			Severity: "critical",
			Message:  "No API URL configured; set UNRAID_API_URL to the Unraid GraphQL endpoint",
		})
	}
	if !keyConfigured {
		recs = append(recs, Recommendation{
			Severity: "critical",
			Message:  "No API key configured; subscriptions will be rejected by the server. Set UNRAID_API_KEY",
		})
	}
	if summary["inError"] > 0 {
		recs = append(recs, Recommendation{
			Severity: "warning",
			Message:  fmt.Sprintf("%d subscription(s) carry errors; inspect the errors list for details", summary["inError"]),
		})
	}
	if summary["active"] > 0 && summary["withData"] == 0 {
		recs = append(recs, Recommendation{
			Severity: "warning",
			Message:  "No subscriptions have received data yet; check network connectivity to the Unraid server and that the WebSocket port is reachable",
		})
	}
	if summary["active"] == 0 && urlConfigured {
		recs = append(recs, Recommendation{
			Severity: "info",
			Message:  "No subscriptions are active; enable UNRAID_WS_AUTOSTART or start one explicitly",
		})
	}
	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Severity: "info",
			Message:  "Subscription subsystem looks healthy",
		})
	}
	return recs
}

// TestResult is the outcome of a one-shot subscription test.
type TestResult struct {
	Valid            bool                   `json:"valid"`
	SubscriptionName string                 `json:"subscriptionName,omitempty"`
	Protocol         string                 `json:"protocol,omitempty"`
	Message          map[string]interface{} `json:"message,omitempty"`
	Note             string                 `json:"note,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

// TestSubscriptionQuery validates a candidate subscription document and, if
// it passes, runs it once over a throwaway connection, waiting briefly for a
// first message. A silent subscription is not an error: many streams only
// emit when something changes. This path never touches the long-lived
// manager state.
func (d *Diagnostics) TestSubscriptionQuery(ctx context.Context, document string) *TestResult {
	name, err := ValidateQuery(document)
	if err != nil {
		return &TestResult{Valid: false, Error: err.Error()}
	}
	result := &TestResult{Valid: true, SubscriptionName: name}

	cfg := d.manager.Config()
	if cfg.APIURL == "" {
		result.Error = "API URL is not configured"
		return result
	}
	wsURL, err := BuildWebsocketURL(cfg.APIURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	tlsCfg, err := TLSConfigFor(wsURL, cfg.VerifySSL)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: DialTimeout,
		Subprotocols:     OfferedProtocols(),
		TLSClientConfig:  tlsCfg,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		result.Error = "connection failed: " + err.Error()
		return result
	}
	defer conn.Close()

	dialect := DialectFor(conn.Subprotocol())
	result.Protocol = dialect.Protocol

	if err := conn.WriteJSON(initMessage(cfg.APIKey)); err != nil {
		result.Error = "send connection_init: " + err.Error()
		return result
	}

	_ = conn.SetReadDeadline(time.Now().Add(AckTimeout))
	ack, err := readHandshakeReply(conn)
	if err != nil {
		result.Error = "handshake failed: " + err.Error()
		return result
	}
	if ack.Type == "connection_error" {
		result.Error = "Authentication error: " + payloadText(ack.Payload)
		return result
	}

	// Each throwaway test connection gets a unique id so a stray reply from
	// an earlier test can never be mistaken for this one's.
	id := uuid.NewString()
	subscribe := map[string]interface{}{
		"id":   id,
		"type": dialect.SubscribeType,
		"payload": map[string]interface{}{
			"query": document,
		},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		result.Error = "send subscribe: " + err.Error()
		return result
	}

	_ = conn.SetReadDeadline(time.Now().Add(TestWaitTimeout))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			result.Note = "no immediate response; the subscription is valid but may only emit when its data changes"
			return result
		}
		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case dialect.DataType:
			if msg.ID != id {
				continue
			}
			var payload map[string]interface{}
			if err := json.Unmarshal(msg.Payload, &payload); err == nil {
				result.Message = payload
			}
			logging.Debug(diagSubsystem, "Test of %s received a first message", name)
			return result
		case "error":
			result.Error = "subscription error: " + payloadText(msg.Payload)
			return result
		case dialect.CompleteType:
			result.Note = "subscription completed without emitting data"
			return result
		case "ka", "ping", "pong":
			continue
		}
	}
}

// readHandshakeReply reads messages until the first non-keepalive reply.
func readHandshakeReply(conn *websocket.Conn) (*wsMessage, error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "ka", "ping", "pong":
			continue
		}
		return &msg, nil
	}
}
