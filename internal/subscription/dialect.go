package subscription

// Sub-protocol names offered during the WebSocket handshake, most preferred
// first.
const (
	ProtocolGraphQLTransportWS = "graphql-transport-ws"
	ProtocolGraphQLWS          = "graphql-ws"
)

// Dialect is the message-type vocabulary of one GraphQL-over-WebSocket
// sub-protocol. It is resolved once per connection, right after the
// handshake, and parameterizes message construction and classification for
// the rest of that connection's lifetime.
type Dialect struct {
	// Protocol is the negotiated sub-protocol name.
	Protocol string

	// SubscribeType starts a subscription: "subscribe" (modern) or
	// "start" (legacy).
	SubscribeType string

	// DataType carries subscription payloads: "next" (modern) or "data"
	// (legacy).
	DataType string

	// CompleteType ends a subscription stream. Both dialects use
	// "complete".
	CompleteType string

	// PingPong reports whether the dialect defines ping/pong frames. The
	// legacy dialect uses "ka" keepalives instead, which require no reply.
	PingPong bool
}

var (
	modernDialect = Dialect{
		Protocol:      ProtocolGraphQLTransportWS,
		SubscribeType: "subscribe",
		DataType:      "next",
		CompleteType:  "complete",
		PingPong:      true,
	}
	legacyDialect = Dialect{
		Protocol:      ProtocolGraphQLWS,
		SubscribeType: "start",
		DataType:      "data",
		CompleteType:  "complete",
		PingPong:      false,
	}
)

// DialectFor resolves the vocabulary for the sub-protocol the server
// selected. Servers that select nothing get the modern dialect: every current
// Unraid API release speaks graphql-transport-ws.
func DialectFor(negotiated string) Dialect {
	if negotiated == ProtocolGraphQLWS {
		return legacyDialect
	}
	return modernDialect
}

// OfferedProtocols is the subprotocol list sent during the handshake.
func OfferedProtocols() []string {
	return []string{ProtocolGraphQLTransportWS, ProtocolGraphQLWS}
}
