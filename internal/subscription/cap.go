package subscription

import (
	"fmt"
	"strings"
)

// Thresholds for capping cached log content. Truncation requires BOTH to be
// exceeded: content within the line budget is never touched, even when the
// byte budget is exceeded.
const (
	ContentByteThreshold = 8192
	ContentLineThreshold = 200
)

// CapPayload bounds the size of a cached subscription payload. Every object
// key literally named "content" whose string value exceeds both thresholds is
// replaced by its last ContentLineThreshold lines; the most recent log lines
// matter most. All other keys and values pass through unchanged.
//
// CapPayload is a pure structural copy: it returns new maps and slices at
// every level it touches and never mutates its input.
func CapPayload(payload map[string]interface{}) map[string]interface{} {
	capped := capValue(payload)
	if m, ok := capped.(map[string]interface{}); ok {
		return m
	}
	return payload
}

func capValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if k == "content" {
				if s, ok := inner.(string); ok {
					out[k] = capContent(s)
					continue
				}
			}
			out[k] = capValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = capValue(inner)
		}
		return out
	default:
		return v
	}
}

// capContent applies the last-N-lines rule to one content string.
func capContent(s string) string {
	if len(s) <= ContentByteThreshold {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= ContentLineThreshold {
		return s
	}
	kept := lines[len(lines)-ContentLineThreshold:]
	marker := fmt.Sprintf("... [truncated to last %d lines]", ContentLineThreshold)
	return marker + "\n" + strings.Join(kept, "\n")
}
