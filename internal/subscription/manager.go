package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"unraidmcp/internal/config"
	"unraidmcp/pkg/logging"
)

const logSubsystem = "Subscription"

// Manager owns the lifecycle of all subscriptions: one background goroutine
// per active subscription name, the per-name state records, and the cached
// latest payloads. It is constructed once at process start and handed
// explicitly to the diagnostics and MCP layers.
type Manager struct {
	cfg *config.Config

	// mu guards entries and every field inside an entry. The receive loops
	// take it only for short state/data updates, so one slow subscription
	// cannot delay another.
	mu      sync.Mutex
	entries map[string]*entry

	// Backoff bounds, initialized from the package constants. Fields so
	// tests can shrink the delays.
	backoffInitial time.Duration
	backoffMax     time.Duration

	autoStartOnce sync.Once
}

// entry is the full per-subscription record: configuration, connection
// state, retry bookkeeping, cached data, and the task handle. Keeping it in
// one struct prevents parallel maps from drifting out of sync.
type entry struct {
	config    Config
	variables map[string]interface{}

	state             ConnectionState
	reconnectAttempts int
	lastError         string
	data              *Data

	// cancel and done are the task handle; cancel is non-nil exactly while
	// the background goroutine is running.
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a Manager with one entry per catalog subscription, all
// in the not_started state.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		cfg:            cfg,
		entries:        make(map[string]*entry),
		backoffInitial: InitialBackoff,
		backoffMax:     MaxBackoff,
	}
	for _, c := range Catalog() {
		m.entries[c.Name] = &entry{config: c, state: StateNotStarted}
	}
	return m
}

// Start begins the background loop for a subscription. Starting an already
// active subscription is a no-op. Start returns once the task is spawned,
// not once the connection is established.
func (m *Manager) Start(name, query string, variables map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("unknown subscription %q", name)
	}
	if e.cancel != nil {
		logging.Debug(logSubsystem, "Subscription %s already active, ignoring start", name)
		return nil
	}

	if query != "" {
		e.config.Query = query
	}
	e.variables = variables
	e.state = StateStarting
	e.reconnectAttempts = 0
	e.lastError = ""

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	go m.run(ctx, name, done)
	logging.Info(logSubsystem, "Started subscription %s", name)
	return nil
}

// Stop cancels a subscription's task and awaits its termination. Stopping a
// subscription that was never started is a safe no-op.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown subscription %q", name)
	}
	if e.cancel == nil {
		m.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	done := e.done
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	e.state = StateStopped
	m.mu.Unlock()

	logging.Info(logSubsystem, "Stopped subscription %s", name)
	return nil
}

// StopAll stops every active subscription. Used during shutdown.
func (m *Manager) StopAll() {
	for _, name := range m.ListActive() {
		if err := m.Stop(name); err != nil {
			logging.Error(logSubsystem, err, "Failed to stop subscription %s", name)
		}
	}
}

// AutoStartAll starts every catalog subscription flagged AutoStart. A
// failure to start one entry is recorded as that subscription's lastError
// and does not abort the remaining entries.
func (m *Manager) AutoStartAll() {
	for _, c := range Catalog() {
		if !c.AutoStart {
			continue
		}
		if err := m.Start(c.Name, c.Query, nil); err != nil {
			logging.Error(logSubsystem, err, "Auto-start failed for %s", c.Name)
			m.mu.Lock()
			if e, ok := m.entries[c.Name]; ok {
				e.lastError = err.Error()
			}
			m.mu.Unlock()
		}
	}
}

// EnsureAutoStarted triggers AutoStartAll at most once, and only when
// auto-start is enabled in the configuration. Diagnostics uses this as a
// lazy, idempotent trigger.
func (m *Manager) EnsureAutoStarted() {
	if !m.cfg.AutoStartSubscriptions {
		return
	}
	m.autoStartOnce.Do(m.AutoStartAll)
}

// GetResourceData returns the currently cached payload for a subscription,
// or false if no data has arrived yet. The returned map is shared with the
// cache and must be treated as read-only; the capper has already produced a
// fresh structure, so the loop never mutates it after storing.
func (m *Manager) GetResourceData(name string) (map[string]interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok || e.data == nil {
		return nil, false
	}
	return e.data.Payload, true
}

// ListActive returns the names of subscriptions with a live task, in catalog
// order, irrespective of connection sub-state.
func (m *Manager) ListActive() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for _, c := range Catalog() {
		if e, ok := m.entries[c.Name]; ok && e.cancel != nil {
			names = append(names, c.Name)
		}
	}
	return names
}

// GetStatus returns a full read-only snapshot covering every configured
// subscription, so "never started" is visibly distinct from "started but
// errored".
func (m *Manager) GetStatus() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	out := make(map[string]Status, len(m.entries))
	for name, e := range m.entries {
		st := Status{
			Config: ConfigStatus{
				Description:  e.config.Description,
				ResourcePath: e.config.ResourcePath,
				AutoStart:    e.config.AutoStart,
			},
			Runtime: RuntimeStatus{
				Active:            e.cancel != nil,
				ConnectionState:   string(e.state),
				ReconnectAttempts: e.reconnectAttempts,
				LastError:         e.lastError,
			},
		}
		if e.data != nil {
			updated := e.data.LastUpdated
			age := now.Sub(updated).Seconds()
			st.Data = DataStatus{
				Available:   true,
				LastUpdated: &updated,
				AgeSeconds:  &age,
			}
		}
		out[name] = st
	}
	return out
}

// Config returns the manager's configuration. Read-only.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// State returns the current connection state for a subscription.
func (m *Manager) State(name string) ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		return e.state
	}
	return StateNotStarted
}

// LastError returns the recorded last error for a subscription, if any.
func (m *Manager) LastError(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		return e.lastError
	}
	return ""
}

// Locked helpers used by the background loop. Only the owning task writes
// its own name's data, so a new write always wins over an older one and no
// compare-and-swap is needed.

func (m *Manager) setState(name string, s ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.state = s
	}
}

func (m *Manager) recordError(name, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.lastError = msg
	}
}

func (m *Manager) nextAttempt(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return 0
	}
	e.reconnectAttempts++
	return e.reconnectAttempts
}

func (m *Manager) resetAttempts(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.reconnectAttempts = 0
	}
}

func (m *Manager) storeData(name string, payload map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.data = &Data{
			Payload:     payload,
			LastUpdated: time.Now(),
			Name:        name,
		}
	}
}

// subscriptionQuery returns the document and variables the loop should use
// for its subscribe message.
func (m *Manager) subscriptionQuery(name string) (string, map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		return e.config.Query, e.variables
	}
	return "", nil
}

// clearHandle removes the task handle when the loop exits on its own
// (completed, invalid_uri, or retries exhausted), so ListActive reflects
// reality. The done channel passed at spawn time identifies the task; a
// newer task's handle is never cleared by an older task's exit.
func (m *Manager) clearHandle(name string, done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok && e.done == done {
		e.cancel = nil
	}
}
