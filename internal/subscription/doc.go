// Package subscription implements the real-time GraphQL subscription
// subsystem: a long-lived WebSocket client that maintains multiple concurrent
// subscriptions against the Unraid GraphQL API.
//
// # Architecture
//
// The Manager owns one goroutine per active subscription name. Each goroutine
// runs the full connection lifecycle for its name: dial, connection_init with
// socket-level authentication, dialect-appropriate subscribe, receive loop,
// and reconnection with bounded exponential backoff. Subscriptions fail and
// recover independently; a broken subscription never blocks another.
//
// Two incompatible GraphQL-over-WebSocket sub-protocols are supported:
// the modern graphql-transport-ws (subscribe/next/complete) and the legacy
// graphql-ws (start/data/complete). Both are offered during the handshake and the
// server's selection fixes the message vocabulary for the lifetime of that
// connection.
//
// Cached subscription payloads are bounded by a pure recursive capper that
// keeps only the most recent lines of oversized log content, so a long-running
// log tail cannot grow memory without bound.
//
// # State machine
//
// Each subscription carries exactly one ConnectionState at a time:
//
//	not_started -> starting -> active -> connected -> authenticated
//	            -> subscribed -> {completed | disconnected | timeout | error}
//	failures    -> reconnecting -> (retry) ... -> max_retries_exceeded
//	stop()      -> stopped
//
// invalid_uri is terminal (permanent misconfiguration); auth_failed retries
// up to the cap; completed and max_retries_exceeded end the loop until the
// subscription is started again.
package subscription
