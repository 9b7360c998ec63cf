package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
	"github.com/tailfin-ai/tailfin/internal/core/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndListStreamEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payloads := []string{
		`{"schema":"tailfin.stream.v1","type":"lifecycle","event_id":1}`,
		`{"schema":"tailfin.stream.v1","type":"message.delta","event_id":2}`,
		`{"schema":"tailfin.stream.v1","type":"final","event_id":3}`,
	}
	kinds := []domain.EventKind{"lifecycle", "message.delta", "final"}

	// Insert out of order to verify ordering comes from event_id
	order := []int{2, 0, 1}
	for _, i := range order {
		rec := domain.StreamEventRecord{
			StreamID: "strm_a",
			EventID:  int64(i + 1),
			Kind:     kinds[i],
			Payload:  json.RawMessage(payloads[i]),
		}
		if err := store.AppendStreamEvent(ctx, rec); err != nil {
			t.Fatalf("AppendStreamEvent() error = %v", err)
		}
	}

	records, err := store.ListStreamEvents(ctx, "strm_a")
	if err != nil {
		t.Fatalf("ListStreamEvents() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, rec := range records {
		if rec.EventID != int64(i+1) {
			t.Errorf("record %d event_id = %d, want %d", i, rec.EventID, i+1)
		}
		if rec.Kind != kinds[i] {
			t.Errorf("record %d kind = %q, want %q", i, rec.Kind, kinds[i])
		}
		if string(rec.Payload) != payloads[i] {
			t.Errorf("record %d payload = %s, want %s", i, rec.Payload, payloads[i])
		}
		if rec.ID == "" {
			t.Errorf("record %d has empty id", i)
		}
		if rec.CreatedAt.IsZero() {
			t.Errorf("record %d has zero created_at", i)
		}
	}
}

func TestListStreamEvents_IsolatedByStream(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, streamID := range []string{"strm_a", "strm_b"} {
		rec := domain.StreamEventRecord{
			StreamID: streamID,
			EventID:  1,
			Kind:     "lifecycle",
			Payload:  json.RawMessage(`{}`),
		}
		if err := store.AppendStreamEvent(ctx, rec); err != nil {
			t.Fatalf("AppendStreamEvent() error = %v", err)
		}
	}

	records, err := store.ListStreamEvents(ctx, "strm_a")
	if err != nil {
		t.Fatalf("ListStreamEvents() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].StreamID != "strm_a" {
		t.Errorf("stream_id = %q, want strm_a", records[0].StreamID)
	}
}

func TestListStreamEvents_UnknownStream(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ListStreamEvents(context.Background(), "strm_missing")
	if !errors.Is(err, ports.ErrStreamNotFound) {
		t.Errorf("error = %v, want ErrStreamNotFound", err)
	}
}
