package walkflow

import (
	"bytes"
	"encoding/json"
	"time"
)

// CalculateBackoff calculates the delay before an automatic retry.
// It supports four strategies:
//   - CONSTANT: baseDelay for every retry
//   - EXPONENTIAL: baseDelay * 2^(attempt-1)
//   - LINEAR: baseDelay * attempt
//   - NONE: no backoff delay
//
// attempt is the number of failed attempts so far (1 for the first retry).
// Returns 0 for attempt 0.
func CalculateBackoff(baseDelayMs int, attempt int, strategy BackoffStrategy) time.Duration {
	if attempt <= 0 {
		return 0
	}

	baseDelay := time.Duration(baseDelayMs) * time.Millisecond

	switch strategy {
	case BackoffConstant:
		return baseDelay
	case BackoffExponential:
		multiplier := 1 << (attempt - 1) // 2^(attempt-1)
		return baseDelay * time.Duration(multiplier)
	case BackoffLinear:
		return baseDelay * time.Duration(attempt)
	case BackoffNone:
		return 0
	default:
		return baseDelay
	}
}

// cloneFields deep-copies a field map so the copy shares no backing arrays
func cloneFields(src map[string]json.RawMessage) map[string]json.RawMessage {
	dst := make(map[string]json.RawMessage, len(src))
	for k, v := range src {
		valueCopy := make(json.RawMessage, len(v))
		copy(valueCopy, v)
		dst[k] = valueCopy
	}
	return dst
}

// equalFields compares two field maps value by value
func equalFields(a, b map[string]json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !bytes.Equal(av, bv) {
			return false
		}
	}
	return true
}

// isBlankJSON treats null, "", [] and {} as an absent value
func isBlankJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}
