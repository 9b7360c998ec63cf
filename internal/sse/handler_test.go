package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
	"github.com/tailfin-ai/tailfin/internal/core/ports"
)

// recordSink captures every event sent through it.
type recordSink struct {
	events []domain.PublicEvent
}

func (s *recordSink) Send(_ context.Context, event domain.PublicEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordSink) Close() error { return nil }

// memJournal is an in-memory EventJournal.
type memJournal struct {
	records map[string][]domain.StreamEventRecord
}

func newMemJournal() *memJournal {
	return &memJournal{records: make(map[string][]domain.StreamEventRecord)}
}

func (j *memJournal) AppendStreamEvent(_ context.Context, rec domain.StreamEventRecord) error {
	j.records[rec.StreamID] = append(j.records[rec.StreamID], rec)
	return nil
}

func (j *memJournal) ListStreamEvents(_ context.Context, streamID string) ([]domain.StreamEventRecord, error) {
	recs, ok := j.records[streamID]
	if !ok {
		return nil, ports.ErrStreamNotFound
	}
	return recs, nil
}

func (j *memJournal) Close() error { return nil }

// stubEstimator returns a fixed token count.
type stubEstimator struct {
	count int
}

func (e *stubEstimator) EstimateTokens(model, text string) (int, error) {
	return e.count, nil
}

// sseFrame is one parsed SSE frame.
type sseFrame struct {
	event string
	data  string
}

func parseSSE(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	var cur sseFrame
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.event != "" || cur.data != "" {
				frames = append(frames, cur)
				cur = sseFrame{}
			}
		}
	}
	return frames
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postStream(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/streams", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleProjectStream_EndToEnd(t *testing.T) {
	sink := &recordSink{}
	handler := NewHandler(sink, nil, nil, 0)
	router := newTestRouter(handler)

	body := `{
		"conversation_id": "conv_1",
		"events": [
			{"kind": "raw_response_event", "raw_type": "response.created", "raw_event": {"type": "response.created"}},
			{"kind": "raw_response_event", "raw_type": "response.output_text.delta", "raw_event": {"type": "response.output_text.delta"}, "text_delta": "Hello"},
			{"kind": "raw_response_event", "raw_type": "response.completed", "raw_event": {"type": "response.completed"}, "response_text": "Hello", "is_terminal": true}
		]
	}`

	rec := postStream(t, router, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	frames := parseSSE(t, rec.Body.String())
	// response.completed maps to a lifecycle event and, being terminal,
	// also produces the final event.
	wantKinds := []string{"lifecycle", "message.delta", "lifecycle", "final"}
	if len(frames) != len(wantKinds) {
		t.Fatalf("got %d frames, want %d: %+v", len(frames), len(wantKinds), frames)
	}
	for i, want := range wantKinds {
		if frames[i].event != want {
			t.Errorf("frame %d event = %q, want %q", i, frames[i].event, want)
		}
		var env struct {
			Schema  string `json:"schema"`
			EventID int64  `json:"event_id"`
		}
		if err := json.Unmarshal([]byte(frames[i].data), &env); err != nil {
			t.Fatalf("frame %d data unmarshal: %v", i, err)
		}
		if env.Schema != domain.Schema {
			t.Errorf("frame %d schema = %q, want %q", i, env.Schema, domain.Schema)
		}
		if env.EventID != int64(i+1) {
			t.Errorf("frame %d event_id = %d, want %d", i, env.EventID, i+1)
		}
	}

	// Every emitted event is mirrored into the sink.
	if len(sink.events) != len(wantKinds) {
		t.Errorf("sink captured %d events, want %d", len(sink.events), len(wantKinds))
	}
}

func TestHandleProjectStream_MissingConversationID(t *testing.T) {
	handler := NewHandler(nil, nil, nil, 0)
	router := newTestRouter(handler)

	rec := postStream(t, router, `{"events": []}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp.Error.Type != "invalid_request" {
		t.Errorf("error type = %q, want invalid_request", resp.Error.Type)
	}
}

func TestHandleProjectStream_InvalidBody(t *testing.T) {
	handler := NewHandler(nil, nil, nil, 0)
	router := newTestRouter(handler)

	rec := postStream(t, router, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleProjectStream_StopsAfterTerminal(t *testing.T) {
	handler := NewHandler(nil, nil, nil, 0)
	router := newTestRouter(handler)

	body := `{
		"conversation_id": "conv_1",
		"events": [
			{"kind": "raw_response_event", "raw_type": "response.completed", "raw_event": {"type": "response.completed"}, "response_text": "done", "is_terminal": true},
			{"kind": "raw_response_event", "raw_type": "response.output_text.delta", "raw_event": {"type": "response.output_text.delta"}, "text_delta": "late"}
		]
	}`

	rec := postStream(t, router, body)
	frames := parseSSE(t, rec.Body.String())

	wantKinds := []string{"lifecycle", "final"}
	if len(frames) != len(wantKinds) {
		t.Fatalf("got %d frames, want %d: %+v", len(frames), len(wantKinds), frames)
	}
	if frames[len(frames)-1].event != "final" {
		t.Errorf("last frame = %q, want final", frames[len(frames)-1].event)
	}
}

func TestHandleProjectStream_UsageEstimated(t *testing.T) {
	handler := NewHandler(nil, nil, &stubEstimator{count: 42}, 0)
	router := newTestRouter(handler)

	body := `{
		"conversation_id": "conv_1",
		"model": "gpt-4o",
		"events": [
			{"kind": "raw_response_event", "raw_type": "response.output_text.delta", "raw_event": {"type": "response.output_text.delta"}, "text_delta": "Hello"},
			{"kind": "raw_response_event", "raw_type": "response.completed", "raw_event": {"type": "response.completed"}, "response_text": "Hello", "is_terminal": true}
		]
	}`

	rec := postStream(t, router, body)
	frames := parseSSE(t, rec.Body.String())

	var final struct {
		Data struct {
			Usage *domain.Usage `json:"usage"`
		} `json:"data"`
	}
	last := frames[len(frames)-1]
	if last.event != "final" {
		t.Fatalf("last frame = %q, want final", last.event)
	}
	if err := json.Unmarshal([]byte(last.data), &final); err != nil {
		t.Fatalf("unmarshal final: %v", err)
	}
	if final.Data.Usage == nil {
		t.Fatal("expected estimated usage on final event")
	}
	if final.Data.Usage.OutputTokens != 42 || !final.Data.Usage.Estimated {
		t.Errorf("usage = %+v, want output 42 and estimated", final.Data.Usage)
	}
}

func TestHandleProjectStream_ProviderUsageNotOverwritten(t *testing.T) {
	handler := NewHandler(nil, nil, &stubEstimator{count: 42}, 0)
	router := newTestRouter(handler)

	body := `{
		"conversation_id": "conv_1",
		"events": [
			{"kind": "raw_response_event", "raw_type": "response.completed", "raw_event": {"type": "response.completed"}, "response_text": "Hello", "usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15}, "is_terminal": true}
		]
	}`

	rec := postStream(t, router, body)
	frames := parseSSE(t, rec.Body.String())

	var final struct {
		Data struct {
			Usage *domain.Usage `json:"usage"`
		} `json:"data"`
	}
	last := frames[len(frames)-1]
	if err := json.Unmarshal([]byte(last.data), &final); err != nil {
		t.Fatalf("unmarshal final: %v", err)
	}
	if final.Data.Usage == nil {
		t.Fatal("expected provider usage on final event")
	}
	if final.Data.Usage.Estimated {
		t.Error("provider-reported usage must not be marked estimated")
	}
	if final.Data.Usage.OutputTokens != 5 {
		t.Errorf("output_tokens = %d, want 5", final.Data.Usage.OutputTokens)
	}
}

func TestHandleReplayStream(t *testing.T) {
	journal := newMemJournal()
	journal.records["strm_x"] = []domain.StreamEventRecord{
		{StreamID: "strm_x", EventID: 1, Kind: "lifecycle", Payload: json.RawMessage(`{"event_id":1}`)},
		{StreamID: "strm_x", EventID: 2, Kind: "final", Payload: json.RawMessage(`{"event_id":2}`)},
	}
	handler := NewHandler(nil, journal, nil, 0)
	router := newTestRouter(handler)

	req := httptest.NewRequest("GET", "/v1/streams/strm_x/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	frames := parseSSE(t, rec.Body.String())
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].event != "lifecycle" || frames[1].event != "final" {
		t.Errorf("frame kinds = %q, %q; want lifecycle, final", frames[0].event, frames[1].event)
	}
	if frames[0].data != `{"event_id":1}` {
		t.Errorf("frame 0 data = %s", frames[0].data)
	}
}

func TestHandleReplayStream_NotFound(t *testing.T) {
	handler := NewHandler(nil, newMemJournal(), nil, 0)
	router := newTestRouter(handler)

	req := httptest.NewRequest("GET", "/v1/streams/strm_missing/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleReplayStream_JournalDisabled(t *testing.T) {
	handler := NewHandler(nil, nil, nil, 0)
	router := newTestRouter(handler)

	req := httptest.NewRequest("GET", "/v1/streams/strm_x/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}
