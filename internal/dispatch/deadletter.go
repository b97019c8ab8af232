package dispatch

import (
	"encoding/json"
	"time"
)

const DLQType = "notification.dlq"

// DeadLetter is the envelope published to the dead-letter topic once a
// notification has exhausted its processing attempts.
type DeadLetter struct {
	Type      string          `json:"type"`    // "notification.dlq"
	Version   string          `json:"version"` // schema version
	At        string          `json:"at"`      // RFC3339 time the DLQ was emitted
	Reason    string          `json:"reason"`  // human/debug text
	Attempt   int             `json:"attempt"` // attempt count when DLQ'd
	LastError string          `json:"last_error,omitempty"`
	Body      json.RawMessage `json:"body"` // original notification body
}

func NewDeadLetter(body []byte, attempt int, lastErr, reason string) DeadLetter {
	return DeadLetter{
		Type:      DLQType,
		Version:   "v1",
		At:        time.Now().Format(time.RFC3339Nano),
		Reason:    reason,
		Attempt:   attempt,
		LastError: lastErr,
		Body:      json.RawMessage(body),
	}
}
