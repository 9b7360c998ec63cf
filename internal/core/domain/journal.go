package domain

import (
	"encoding/json"
	"time"
)

// StreamEventRecord is one journaled public event. Records are append-only
// and grouped by StreamID to form the replayable history of a stream.
type StreamEventRecord struct {
	ID        string          `json:"id"`
	StreamID  string          `json:"stream_id"`
	EventID   int64           `json:"event_id"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"` // full envelope-wrapped event as sent on the wire
	CreatedAt time.Time       `json:"created_at"`
}
