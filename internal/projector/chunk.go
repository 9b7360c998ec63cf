package projector

import "github.com/tailfin-ai/tailfin/internal/core/domain"

// envelopeFunc mints the next envelope for an event of the given kind. The
// projector passes its own envelope builder so chunk events share the
// stream's monotonic id sequence.
type envelopeFunc func(kind domain.EventKind) domain.Envelope

// ChunkBase64 splits an oversized base64 payload into bounded chunk.delta
// events followed by exactly one chunk.done, so transports with message-size
// limits never see the full payload in one frame. An empty payload still
// produces the chunk.done marker so consumers can close out the target.
func ChunkBase64(target domain.ChunkTarget, b64 string, maxChunkChars int, env envelopeFunc) []domain.PublicEvent {
	var events []domain.PublicEvent
	for i := 0; i < len(b64); i += maxChunkChars {
		end := i + maxChunkChars
		if end > len(b64) {
			end = len(b64)
		}
		events = append(events, domain.PublicEvent{
			Envelope: env(domain.KindChunkDelta),
			Data: domain.ChunkDeltaData{
				Target:     target,
				ChunkIndex: i / maxChunkChars,
				Encoding:   "base64",
				Data:       b64[i:end],
			},
		})
	}
	events = append(events, domain.PublicEvent{
		Envelope: env(domain.KindChunkDone),
		Data:     domain.ChunkDoneData{Target: target},
	})
	return events
}
