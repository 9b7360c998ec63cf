// Package ports defines the interfaces between the projection core and its
// adapters (persistence, delivery, token estimation).
package ports

import (
	"context"
	"errors"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
)

// ErrStreamNotFound is returned by EventJournal implementations when a stream
// has no journaled events.
var ErrStreamNotFound = errors.New("stream not found")

// Sink delivers projected public events somewhere useful (a journal, a
// message bus, a test recorder). The SSE transport writes to the client
// directly and mirrors each event into its configured Sink.
type Sink interface {
	// Send publishes one public event. Implementations must not reorder
	// events within a stream.
	Send(ctx context.Context, event domain.PublicEvent) error

	// Close releases resources owned by the sink. Idempotent.
	Close() error
}

// EventJournal persists the public events of a stream for later replay.
type EventJournal interface {
	// AppendStreamEvent appends one record to the journal.
	AppendStreamEvent(ctx context.Context, record domain.StreamEventRecord) error

	// ListStreamEvents returns a stream's records ordered by event id.
	ListStreamEvents(ctx context.Context, streamID string) ([]domain.StreamEventRecord, error)

	// Close releases the underlying store.
	Close() error
}

// TokenEstimator estimates token counts for text when the upstream run did
// not report usage totals.
type TokenEstimator interface {
	// EstimateTokens returns the approximate token count of text for the
	// given model (empty model selects a default encoding).
	EstimateTokens(model, text string) (int, error)
}
