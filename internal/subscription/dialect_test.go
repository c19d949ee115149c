package subscription

import "testing"

func TestDialectFor(t *testing.T) {
	tests := []struct {
		negotiated    string
		subscribeType string
		dataType      string
		pingPong      bool
	}{
		{ProtocolGraphQLTransportWS, "subscribe", "next", true},
		{ProtocolGraphQLWS, "start", "data", false},
		// Servers that negotiate nothing get the modern dialect.
		{"", "subscribe", "next", true},
	}

	for _, test := range tests {
		d := DialectFor(test.negotiated)
		if d.SubscribeType != test.subscribeType {
			t.Errorf("DialectFor(%q).SubscribeType = %q, expected %q", test.negotiated, d.SubscribeType, test.subscribeType)
		}
		if d.DataType != test.dataType {
			t.Errorf("DialectFor(%q).DataType = %q, expected %q", test.negotiated, d.DataType, test.dataType)
		}
		if d.CompleteType != "complete" {
			t.Errorf("DialectFor(%q).CompleteType = %q, expected complete", test.negotiated, d.CompleteType)
		}
		if d.PingPong != test.pingPong {
			t.Errorf("DialectFor(%q).PingPong = %v, expected %v", test.negotiated, d.PingPong, test.pingPong)
		}
	}
}

func TestOfferedProtocols(t *testing.T) {
	offered := OfferedProtocols()
	if len(offered) != 2 {
		t.Fatalf("Expected 2 offered protocols, got %d", len(offered))
	}
	if offered[0] != ProtocolGraphQLTransportWS {
		t.Errorf("Modern protocol must be offered first, got %q", offered[0])
	}
	if offered[1] != ProtocolGraphQLWS {
		t.Errorf("Legacy protocol expected second, got %q", offered[1])
	}
}

func TestNextBackoffDelay(t *testing.T) {
	// Strictly increasing until the ceiling, never above it.
	delay := InitialBackoff
	prev := delay
	reachedCeiling := false
	for i := 0; i < 50; i++ {
		delay = nextBackoffDelay(delay, MaxBackoff)
		if delay > MaxBackoff {
			t.Fatalf("Delay %s exceeded ceiling %s", delay, MaxBackoff)
		}
		if delay == MaxBackoff {
			reachedCeiling = true
		} else if delay <= prev {
			t.Fatalf("Delay %s did not grow from %s before reaching the ceiling", delay, prev)
		}
		prev = delay
	}
	if !reachedCeiling {
		t.Error("Delay never reached the ceiling after 50 failures")
	}
}
