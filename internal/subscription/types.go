package subscription

import (
	"time"
)

// ConnectionState is the lifecycle state of one subscription. Exactly one
// value is current per subscription name.
type ConnectionState string

const (
	StateNotStarted         ConnectionState = "not_started"
	StateStarting           ConnectionState = "starting"
	StateActive             ConnectionState = "active"
	StateConnected          ConnectionState = "connected"
	StateAuthenticated      ConnectionState = "authenticated"
	StateSubscribed         ConnectionState = "subscribed"
	StateError              ConnectionState = "error"
	StateAuthFailed         ConnectionState = "auth_failed"
	StateTimeout            ConnectionState = "timeout"
	StateInvalidURI         ConnectionState = "invalid_uri"
	StateDisconnected       ConnectionState = "disconnected"
	StateReconnecting       ConnectionState = "reconnecting"
	StateMaxRetriesExceeded ConnectionState = "max_retries_exceeded"
	StateCompleted          ConnectionState = "completed"
	StateStopped            ConnectionState = "stopped"
)

// Config describes one known subscription type. The catalog of Configs is
// static and immutable after process start.
type Config struct {
	// Name is the GraphQL root field of the subscription and the id used
	// for message routing on the wire.
	Name string

	// Query is the full subscription document sent to the server.
	Query string

	// ResourcePath is the MCP resource URI exposing this subscription's
	// cached data.
	ResourcePath string

	// Description is human-readable documentation for the MCP surface.
	Description string

	// AutoStart marks subscriptions started automatically at boot.
	// Parameterized subscriptions (logFile) are never auto-started.
	AutoStart bool
}

// Data is the most recent payload delivered for one subscription. New data
// replaces old; there is no history.
type Data struct {
	Payload     map[string]interface{}
	LastUpdated time.Time
	Name        string
}

// RuntimeStatus is the mutable half of a status snapshot.
type RuntimeStatus struct {
	Active            bool   `json:"active"`
	ConnectionState   string `json:"connectionState"`
	ReconnectAttempts int    `json:"reconnectAttempts"`
	LastError         string `json:"lastError,omitempty"`
}

// DataStatus reports on cached data without exposing the payload itself.
type DataStatus struct {
	Available   bool       `json:"available"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	AgeSeconds  *float64   `json:"ageSeconds,omitempty"`
}

// ConfigStatus is the static half of a status snapshot.
type ConfigStatus struct {
	Description  string `json:"description"`
	ResourcePath string `json:"resourcePath"`
	AutoStart    bool   `json:"autoStart"`
}

// Status is a read-only snapshot for one subscription, covering statically
// configured entries whether or not they were ever started.
type Status struct {
	Config  ConfigStatus  `json:"config"`
	Runtime RuntimeStatus `json:"runtime"`
	Data    DataStatus    `json:"data"`
}
