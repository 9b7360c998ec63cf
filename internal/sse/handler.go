// Package sse exposes the projection pipeline over HTTP. A client POSTs a
// batch of internal run events and receives the sanitized public stream as
// server-sent events; journaled streams can be replayed afterwards.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
	"github.com/tailfin-ai/tailfin/internal/core/ports"
	"github.com/tailfin-ai/tailfin/internal/projector"
	"github.com/tailfin-ai/tailfin/internal/server"
)

// Handler serves the public stream endpoints.
type Handler struct {
	sink          ports.Sink
	journal       ports.EventJournal
	estimator     ports.TokenEstimator
	maxChunkChars int
	logger        *slog.Logger
}

// NewHandler creates a stream handler. sink and journal may be nil when
// journaling is disabled; estimator may be nil to skip usage estimation.
func NewHandler(sink ports.Sink, journal ports.EventJournal, estimator ports.TokenEstimator, maxChunkChars int) *Handler {
	return &Handler{
		sink:          sink,
		journal:       journal,
		estimator:     estimator,
		maxChunkChars: maxChunkChars,
		logger:        slog.Default(),
	}
}

// RegisterRoutes mounts the stream endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/streams", h.HandleProjectStream)
	r.Get("/v1/streams/{stream_id}/events", h.HandleReplayStream)
}

// projectStreamRequest is the POST /v1/streams body: the run context plus the
// ordered internal events to project.
type projectStreamRequest struct {
	ConversationID string                 `json:"conversation_id"`
	ResponseID     *string                `json:"response_id,omitempty"`
	Agent          *string                `json:"agent,omitempty"`
	Workflow       *domain.WorkflowMeta   `json:"workflow,omitempty"`
	Model          string                 `json:"model,omitempty"`
	Events         []domain.InternalEvent `json:"events"`
}

// HandleProjectStream handles POST /v1/streams
func (h *Handler) HandleProjectStream(w http.ResponseWriter, r *http.Request) {
	var req projectStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return
	}

	if req.ConversationID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "conversation_id is required")
		return
	}

	streamID := "strm_" + uuid.New().String()
	server.AddLogField(r.Context(), "stream_id", streamID)
	server.AddLogField(r.Context(), "conversation_id", req.ConversationID)

	// Set up SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_error", "Streaming not supported")
		return
	}

	proj := projector.New(streamID, h.maxChunkChars)
	pctx := domain.ProjectionContext{
		ConversationID: req.ConversationID,
		ResponseID:     req.ResponseID,
		Agent:          req.Agent,
		Workflow:       req.Workflow,
	}

	// Output text accumulates so usage can be estimated for terminal events
	// that arrive without provider-reported figures.
	var outputText strings.Builder

	for _, ev := range req.Events {
		select {
		case <-r.Context().Done():
			h.logger.Info("client disconnected mid-stream", slog.String("stream_id", streamID))
			return
		default:
		}

		for _, out := range proj.Project(ev, pctx) {
			if delta, ok := out.Data.(domain.MessageDeltaData); ok {
				outputText.WriteString(delta.Delta)
			}
			if final, ok := out.Data.(domain.FinalData); ok && final.Usage == nil {
				if usage := h.estimateUsage(req.Model, &final, outputText.String()); usage != nil {
					final.Usage = usage
					out.Data = final
				}
			}
			h.emit(r.Context(), w, flusher, out)
		}

		if proj.Terminal() {
			break
		}
	}
}

// emit writes one event to the SSE response and mirrors it into the sink.
func (h *Handler) emit(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, event domain.PublicEvent) {
	h.sendSSEEvent(w, flusher, string(event.Kind), event)

	if h.sink == nil {
		return
	}
	if err := h.sink.Send(ctx, event); err != nil {
		h.logger.Error("failed to journal event",
			slog.String("stream_id", event.StreamID),
			slog.Int64("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
	}
}

// estimateUsage fills in output token counts from the accumulated text when
// the run reported none. Returns nil when there is nothing to estimate.
func (h *Handler) estimateUsage(model string, final *domain.FinalData, streamedText string) *domain.Usage {
	if h.estimator == nil {
		return nil
	}

	text := streamedText
	if final.ResponseText != nil {
		text = *final.ResponseText
	}
	if text == "" {
		return nil
	}

	count, err := h.estimator.EstimateTokens(model, text)
	if err != nil {
		h.logger.Warn("token estimation failed", slog.String("error", err.Error()))
		return nil
	}

	return &domain.Usage{
		OutputTokens: count,
		TotalTokens:  count,
		Estimated:    true,
	}
}

// HandleReplayStream handles GET /v1/streams/{stream_id}/events
func (h *Handler) HandleReplayStream(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "stream_id")
	server.AddLogField(r.Context(), "stream_id", streamID)

	if h.journal == nil {
		h.writeError(w, http.StatusNotImplemented, "journal_disabled", "Event journaling is disabled")
		return
	}

	records, err := h.journal.ListStreamEvents(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, ports.ErrStreamNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Unknown stream: "+streamID)
			return
		}
		server.AddError(r.Context(), err)
		h.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load stream events")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_error", "Streaming not supported")
		return
	}

	for _, rec := range records {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", rec.Kind, rec.Payload)
		flusher.Flush()
	}
}

func (h *Handler) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal SSE event", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	flusher.Flush()
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
