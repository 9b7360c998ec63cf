package projector

import (
	"time"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
)

// timestampLayout renders ISO-8601 with millisecond precision and a Z suffix
// for UTC times.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// envelope mints the next envelope for this stream, advancing the event-id
// counter. Event ids are strictly increasing by one with no gaps across the
// lifetime of the projector instance; every emission must go through here.
func (p *Projector) envelope(kind domain.EventKind, pctx domain.ProjectionContext, seq *int64, notices []domain.Notice) domain.Envelope {
	p.nextEventID++
	ts := time.Now().UTC()
	if pctx.ServerTimestamp != nil {
		ts = pctx.ServerTimestamp.UTC()
	}
	return domain.Envelope{
		Schema:          domain.Schema,
		Kind:            kind,
		EventID:         p.nextEventID,
		StreamID:        p.streamID,
		ServerTimestamp: ts.Format(timestampLayout),
		ConversationID:  pctx.ConversationID,
		ResponseID:      pctx.ResponseID,
		Agent:           pctx.Agent,
		Workflow:        pctx.Workflow,
		SequenceNumber:  seq,
		Notices:         notices,
	}
}
