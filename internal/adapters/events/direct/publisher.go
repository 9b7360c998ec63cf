// Package direct provides a sink that journals public events straight to storage.
package direct

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
	"github.com/tailfin-ai/tailfin/internal/core/ports"
)

// Sink implements ports.Sink by writing each projected event to the journal.
// This is the default implementation for single-instance deployments.
type Sink struct {
	journal ports.EventJournal
}

// NewSink creates a new direct sink.
func NewSink(journal ports.EventJournal) (*Sink, error) {
	if journal == nil {
		return nil, fmt.Errorf("event journal required")
	}

	return &Sink{
		journal: journal,
	}, nil
}

// Send marshals a public event and appends it to the stream journal.
func (s *Sink) Send(ctx context.Context, event domain.PublicEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal public event: %w", err)
	}

	rec := domain.StreamEventRecord{
		StreamID: event.StreamID,
		EventID:  event.EventID,
		Kind:     event.Kind,
		Payload:  payload,
	}

	return s.journal.AppendStreamEvent(ctx, rec)
}

// Close is a no-op for the direct sink; the journal is owned by the caller.
func (s *Sink) Close() error {
	return nil
}
