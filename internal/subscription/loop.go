package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"unraidmcp/pkg/logging"

	"github.com/gorilla/websocket"
)

// Reconnection backoff configuration.
const (
	// InitialBackoff is the delay before the first reconnection attempt.
	InitialBackoff = 2 * time.Second
	// MaxBackoff caps the delay between attempts.
	MaxBackoff = 300 * time.Second
	// BackoffMultiplier is the factor by which the delay grows on each
	// consecutive failure.
	BackoffMultiplier = 1.5
)

// Handshake timeouts.
const (
	// DialTimeout bounds the WebSocket dial and upgrade.
	DialTimeout = 10 * time.Second
	// AckTimeout bounds the wait for the server's reply to
	// connection_init.
	AckTimeout = 30 * time.Second
)

// wsMessage is the envelope shared by both sub-protocol dialects.
type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// dataPayload is the payload of a next/data message.
type dataPayload struct {
	Data   map[string]interface{} `json:"data"`
	Errors []interface{}          `json:"errors"`
}

// loopOutcome classifies how one connection attempt ended.
type loopOutcome int

const (
	// outcomeRetry: transient failure; back off and reconnect.
	outcomeRetry loopOutcome = iota
	// outcomeCompleted: server ended the stream gracefully; no retry.
	outcomeCompleted
	// outcomeCancelled: the task was stopped.
	outcomeCancelled
	// outcomeTerminal: permanent misconfiguration (invalid URI); no retry.
	outcomeTerminal
)

// run is the background loop owning one subscription's full lifecycle. It is
// the only writer of that subscription's state and data.
func (m *Manager) run(ctx context.Context, name string, done chan struct{}) {
	defer close(done)
	defer m.clearHandle(name, done)

	m.setState(name, StateActive)

	delay := m.backoffInitial
	for {
		if ctx.Err() != nil {
			return
		}

		attempt := m.nextAttempt(name)
		if attempt > m.cfg.MaxRetries {
			logging.Warn(logSubsystem, "Subscription %s exceeded %d reconnection attempts, giving up", name, m.cfg.MaxRetries)
			m.setState(name, StateMaxRetriesExceeded)
			return
		}

		outcome, ackReceived := m.connectAndStream(ctx, name, attempt)
		switch outcome {
		case outcomeCompleted:
			m.setState(name, StateCompleted)
			logging.Info(logSubsystem, "Subscription %s completed by server", name)
			return
		case outcomeCancelled:
			return
		case outcomeTerminal:
			return
		}

		// The backoff delay resets only on a successful connection_ack,
		// not on a successful transport connection.
		if ackReceived {
			delay = m.backoffInitial
		}

		m.setState(name, StateReconnecting)
		logging.Debug(logSubsystem, "Subscription %s reconnecting in %s (attempt %d/%d)", name, delay, attempt, m.cfg.MaxRetries)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = nextBackoffDelay(delay, m.backoffMax)
	}
}

// nextBackoffDelay grows the reconnection delay multiplicatively, capped at
// the configured ceiling.
func nextBackoffDelay(delay, ceiling time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * BackoffMultiplier)
	if delay > ceiling {
		delay = ceiling
	}
	return delay
}

// connectAndStream performs one full connection attempt: dial, init/ack,
// subscribe, and the receive loop. ackReceived reports whether the server
// acknowledged the connection, which resets the retry counter and backoff.
func (m *Manager) connectAndStream(ctx context.Context, name string, attempt int) (outcome loopOutcome, ackReceived bool) {
	if m.cfg.APIURL == "" {
		// A late .env fix self-heals on the next attempt.
		m.recordError(name, "API URL is not configured")
		m.setState(name, StateError)
		return outcomeRetry, false
	}

	wsURL, err := BuildWebsocketURL(m.cfg.APIURL)
	if err != nil {
		// Permanent misconfiguration: never retried.
		m.recordError(name, err.Error())
		m.setState(name, StateInvalidURI)
		logging.Error(logSubsystem, err, "Subscription %s has an invalid endpoint URL", name)
		return outcomeTerminal, false
	}

	tlsCfg, err := TLSConfigFor(wsURL, m.cfg.VerifySSL)
	if err != nil {
		m.recordError(name, err.Error())
		m.setState(name, StateError)
		return outcomeRetry, false
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
		return m.classifyConnError(ctx, name, err), false
	}
	defer conn.Close()

	// Close the socket promptly when the task is stopped, interrupting any
	// blocked read or write.
	streamDone := make(chan struct{})
	defer close(streamDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-streamDone:
		}
	}()

	dialect := DialectFor(conn.Subprotocol())
	m.setState(name, StateConnected)
	logging.Debug(logSubsystem, "Subscription %s connected using %s (attempt %d)", name, dialect.Protocol, attempt)

	if err := conn.WriteJSON(initMessage(m.cfg.APIKey)); err != nil {
		return m.classifyConnError(ctx, name, err), false
	}

	acked, out := m.awaitAck(ctx, conn, name)
	if !acked {
		return out, false
	}
	ackReceived = true
	m.resetAttempts(name)
	m.setState(name, StateAuthenticated)

	query, variables := m.subscriptionQuery(name)
	subscribe := map[string]interface{}{
		"id":   name,
		"type": dialect.SubscribeType,
		"payload": map[string]interface{}{
			"query": query,
		},
	}
	if len(variables) > 0 {
		subscribe["payload"].(map[string]interface{})["variables"] = variables
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return m.classifyConnError(ctx, name, err), true
	}
	m.setState(name, StateSubscribed)

	return m.receiveLoop(ctx, conn, name, dialect), true
}

// awaitAck waits for the server's first reply to connection_init. It reports
// whether the server acknowledged the connection; on failure the second
// return value carries the attempt outcome.
func (m *Manager) awaitAck(ctx context.Context, conn *websocket.Conn, name string) (bool, loopOutcome) {
	deadline := time.Now().Add(AckTimeout)
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for time.Now().Before(deadline) {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return false, m.classifyConnError(ctx, name, err)
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logging.Warn(logSubsystem, "Subscription %s received malformed message during handshake, skipping", name)
			continue
		}

		switch msg.Type {
		case "connection_ack":
			return true, outcomeRetry
		case "connection_error":
			errMsg := "Authentication error: " + payloadText(msg.Payload)
			m.recordError(name, errMsg)
			m.setState(name, StateAuthFailed)
			logging.Warn(logSubsystem, "Subscription %s authentication rejected: %s", name, payloadText(msg.Payload))
			return false, outcomeRetry
		case "ka", "ping", "pong":
			// Keepalives may arrive before the ack; keep waiting.
			continue
		default:
			m.recordError(name, "unexpected handshake reply: "+msg.Type)
			m.setState(name, StateError)
			return false, outcomeRetry
		}
	}

	m.recordError(name, "timed out waiting for connection_ack")
	m.setState(name, StateTimeout)
	return false, outcomeRetry
}

// receiveLoop reads subscription messages until the stream completes, the
// connection drops, or the task is cancelled.
func (m *Manager) receiveLoop(ctx context.Context, conn *websocket.Conn, name string, dialect Dialect) loopOutcome {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return m.classifyConnError(ctx, name, err)
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logging.Warn(logSubsystem, "Subscription %s received malformed message, skipping", name)
			continue
		}

		switch msg.Type {
		case dialect.DataType:
			// Id-based routing is mandatory even on a dedicated
			// connection: a mismatched id must never update this
			// subscription's cache.
			if msg.ID != name {
				logging.Debug(logSubsystem, "Subscription %s ignoring data for id %q", name, msg.ID)
				continue
			}
			m.handleData(name, msg.Payload)

		case "ping":
			pong := wsMessage{Type: "pong", Payload: msg.Payload}
			if err := conn.WriteJSON(pong); err != nil {
				return m.classifyConnError(ctx, name, err)
			}

		case "ka", "pong":
			// Keepalives require no reply.

		case "error":
			// Protocol-level error: recorded, but only complete or
			// connection closure ends the stream.
			errMsg := payloadText(msg.Payload)
			m.recordError(name, errMsg)
			m.setState(name, StateError)
			logging.Warn(logSubsystem, "Subscription %s received protocol error: %s", name, errMsg)

		case dialect.CompleteType:
			if msg.ID == name {
				return outcomeCompleted
			}

		default:
			logging.Debug(logSubsystem, "Subscription %s ignoring message type %q", name, msg.Type)
		}
	}
}

// handleData stores a delivered payload, or records payload errors without
// evicting previously cached good data.
func (m *Manager) handleData(name string, payload json.RawMessage) {
	var dp dataPayload
	if err := json.Unmarshal(payload, &dp); err != nil {
		logging.Warn(logSubsystem, "Subscription %s received undecodable data payload, skipping", name)
		return
	}

	if len(dp.Errors) > 0 {
		encoded, _ := json.Marshal(dp.Errors)
		m.recordError(name, "GraphQL errors: "+string(encoded))
		logging.Warn(logSubsystem, "Subscription %s delivered errors instead of data", name)
		return
	}
	if dp.Data == nil {
		return
	}

	m.storeData(name, CapPayload(dp.Data))
	logging.Debug(logSubsystem, "Subscription %s received data update", name)
}

// classifyConnError maps a transport failure onto the state machine and
// decides whether the attempt is retried.
func (m *Manager) classifyConnError(ctx context.Context, name string, err error) loopOutcome {
	if ctx.Err() != nil {
		return outcomeCancelled
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		m.recordError(name, "connection timeout: "+err.Error())
		m.setState(name, StateTimeout)
	case errors.Is(err, websocket.ErrBadHandshake):
		m.recordError(name, "websocket handshake failed: "+err.Error())
		m.setState(name, StateError)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		m.recordError(name, "connection closed: "+err.Error())
		m.setState(name, StateDisconnected)
	default:
		m.recordError(name, err.Error())
		m.setState(name, StateDisconnected)
	}
	return outcomeRetry
}

// initMessage builds the connection_init envelope. When an API key is
// configured it is sent under several header spellings at once because
// server implementations differ on which one they read; when no key is
// configured the payload is omitted entirely rather than sending empty
// credentials.
func initMessage(apiKey string) map[string]interface{} {
	msg := map[string]interface{}{
		"type": "connection_init",
	}
	if apiKey != "" {
		msg["payload"] = map[string]interface{}{
			"x-api-key": apiKey,
			"X-API-KEY": apiKey,
			"apiKey":    apiKey,
		}
	}
	return msg
}

// payloadText renders a message payload for error recording. String payloads
// are unquoted; anything else is reported as raw JSON.
func payloadText(payload json.RawMessage) string {
	if len(payload) == 0 {
		return "(no detail)"
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(payload, &obj); err == nil {
		if msg, ok := obj["message"].(string); ok {
			return msg
		}
	}
	return string(payload)
}
