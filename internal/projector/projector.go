// Package projector translates the internal, provider-heterogeneous event
// stream of one agent run into the versioned public wire protocol forwarded
// verbatim by SSE/WebSocket transports. It is pure compute: no I/O, no
// logging, no locking. One Projector instance serves exactly one logical
// stream and must be driven from a single goroutine; instances share nothing,
// so any number of streams project in parallel.
package projector

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
)

const (
	// DefaultMaxChunkChars bounds one chunk.delta payload when the caller
	// does not configure a chunk size.
	DefaultMaxChunkChars = 8192

	// Argument sanitization limits: per-string cap inside parsed argument
	// objects, cap for unparseable raw argument text, and the fixed re-chunk
	// width for sanitized argument delta events.
	maxArgObjectStringChars = 4000
	maxArgRawTextChars      = 8000
	argDeltaChunkChars      = 2000

	// Per-string cap applied to sanitized tool outputs.
	maxOutputStringChars = 4000
)

// rawLifecycle maps raw provider event types onto coarse lifecycle states.
// Raw types missing from the table produce no lifecycle event.
var rawLifecycle = map[string]domain.LifecycleStatus{
	"response.created":     domain.LifecycleInProgress,
	"response.in_progress": domain.LifecycleInProgress,
	"response.queued":      domain.LifecycleQueued,
	"response.completed":   domain.LifecycleCompleted,
	"response.failed":      domain.LifecycleFailed,
	"response.incomplete":  domain.LifecycleIncomplete,
}

// builtinToolNames resolves run-item tool names onto the builtin tool
// taxonomy when the run item does not declare a type.
var builtinToolNames = map[string]domain.ToolType{
	"web_search":         domain.ToolWebSearch,
	"web_search_preview": domain.ToolWebSearch,
	"file_search":        domain.ToolFileSearch,
	"code_interpreter":   domain.ToolCodeInterpreter,
	"image_generation":   domain.ToolImageGeneration,
}

// Projector owns the projection state for one logical stream. The zero value
// is not usable; construct with New.
type Projector struct {
	streamID      string
	maxChunkChars int

	nextEventID     int64
	lifecycleStatus domain.LifecycleStatus
	reasoningText   string
	refusalText     string

	tools               toolStateStore
	lastWebSearchCallID string

	attachments       []domain.Attachment
	seenAttachmentIDs map[string]struct{}

	terminalEmitted bool
}

// New creates a projector for one stream. maxChunkChars bounds binary chunk
// payloads; values <= 0 select DefaultMaxChunkChars.
func New(streamID string, maxChunkChars int) *Projector {
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}
	return &Projector{
		streamID:          streamID,
		maxChunkChars:     maxChunkChars,
		tools:             make(toolStateStore),
		seenAttachmentIDs: make(map[string]struct{}),
	}
}

// StreamID returns the opaque identifier of the stream this instance projects.
func (p *Projector) StreamID() string { return p.streamID }

// Terminal reports whether a final or error event has been emitted. Once
// terminal, the instance is inert and Project returns nil for every call.
func (p *Projector) Terminal() bool { return p.terminalEmitted }

// Project consumes one internal event and returns the public events to
// forward, in order. A single internal event may trigger several independent
// rules; unrecognized input is a deliberate no-op rather than an error, so
// upstream protocol additions degrade to silence instead of failures.
func (p *Projector) Project(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	if p.terminalEmitted {
		return nil
	}

	var out []domain.PublicEvent
	isRaw := ev.Kind == domain.KindRawResponse

	// Attachment capture never emits on its own.
	p.captureAttachments(ev.Attachments)

	// Terminal provider/server errors end the stream immediately.
	if (isRaw && ev.RawType == "error") || ev.Kind == domain.KindErrorNotice {
		out = append(out, p.errorEvent(ev, pctx))
		p.terminalEmitted = true
		return out
	}

	mergedCallID, merged := p.mergeToolCall(ev)

	if merged && isRaw && ev.RawType == "response.output_item.done" {
		st := p.tools[mergedCallID]
		status := coerceStatusAtDone(st.toolType, st.lastStatus)
		out = append(out, p.toolStatusEvent(mergedCallID, st, status, ev, pctx))
	}

	if isRaw {
		if status, ok := rawLifecycle[ev.RawType]; ok {
			p.lifecycleStatus = status
			out = append(out, domain.PublicEvent{
				Envelope: p.envelope(domain.KindLifecycle, pctx, ev.SequenceNumber, nil),
				Data:     domain.LifecycleData{Status: status},
			})
		}
	}

	if ev.Kind == domain.KindLifecycleNotice {
		out = append(out, p.projectServiceLifecycle(ev, pctx)...)
	}

	if isRaw && (ev.RawType == "response.output_item.added" || ev.RawType == "response.output_item.done") {
		p.captureItemToolMetadata(ev)
	}

	if isRaw && ev.RawType == "response.output_text.delta" && ev.TextDelta != nil {
		out = append(out, domain.PublicEvent{
			Envelope: p.envelope(domain.KindMessageDelta, pctx, ev.SequenceNumber, nil),
			Data:     domain.MessageDeltaData{Delta: *ev.TextDelta},
		})
	}

	if isRaw && ev.RawType == "response.output_text.annotation.added" {
		out = append(out, p.projectCitations(ev, pctx)...)
	}

	if isRaw && strings.HasPrefix(ev.RawType, "response.reasoning_summary_text.") {
		out = append(out, p.projectReasoning(ev, pctx)...)
	}

	if isRaw && strings.HasPrefix(ev.RawType, "response.refusal.") {
		out = append(out, p.projectRefusal(ev, pctx)...)
	}

	if isRaw {
		out = append(out, p.projectRawToolStatus(ev, pctx)...)
	}

	if isRaw && strings.HasPrefix(ev.RawType, "response.code_interpreter_call_code.") {
		out = append(out, p.projectInterpreterCode(ev, pctx)...)
	}

	if isRaw && (strings.HasPrefix(ev.RawType, "response.function_call_arguments.") ||
		strings.HasPrefix(ev.RawType, "response.mcp_call_arguments.")) {
		out = append(out, p.projectArguments(ev, pctx)...)
	}

	if ev.Kind == domain.KindRunItem {
		out = append(out, p.projectRunItem(ev, pctx)...)
	}

	if ev.IsTerminal {
		out = append(out, p.finalEvent(ev, pctx))
		p.terminalEmitted = true
	}

	return out
}

// ProjectError bypasses the state machine to construct a terminal error
// event directly. Used when the caller detects a failure outside the normal
// event stream, for example a setup failure before any internal event
// arrives. The instance is terminal afterward regardless of prior state.
func (p *Projector) ProjectError(pctx domain.ProjectionContext, code, message string, source domain.ErrorSource, retryable bool) domain.PublicEvent {
	ev := domain.PublicEvent{
		Envelope: p.envelope(domain.KindError, pctx, nil, nil),
		Data: domain.ErrorData{
			Code:      code,
			Message:   message,
			Source:    source,
			Retryable: retryable,
		},
	}
	p.terminalEmitted = true
	return ev
}

func (p *Projector) captureAttachments(atts []domain.Attachment) {
	for _, att := range atts {
		if att.ID == "" {
			continue
		}
		if _, seen := p.seenAttachmentIDs[att.ID]; seen {
			continue
		}
		p.seenAttachmentIDs[att.ID] = struct{}{}
		p.attachments = append(p.attachments, att)
	}
}

func (p *Projector) errorEvent(ev domain.InternalEvent, pctx domain.ProjectionContext) domain.PublicEvent {
	source := domain.ErrorSourceServer
	body := ev.Payload
	if ev.Kind == domain.KindRawResponse {
		source = domain.ErrorSourceProvider
		body = ev.RawEvent
	}
	data := domain.ErrorData{
		Code:      mapString(body, "code"),
		Message:   mapString(body, "message"),
		Source:    source,
		Retryable: false,
	}
	if data.Message == "" {
		data.Message = "upstream stream error"
	}
	return domain.PublicEvent{
		Envelope: p.envelope(domain.KindError, pctx, ev.SequenceNumber, nil),
		Data:     data,
	}
}

// mergeToolCall folds an event's tool-call payload into the state store.
// Returns the call id and whether a merge happened; events whose call id
// cannot be determined are skipped entirely.
func (p *Projector) mergeToolCall(ev domain.InternalEvent) (string, bool) {
	if ev.ToolCall == nil {
		return "", false
	}
	callID := ev.ToolCall.CallID
	if callID == "" {
		callID = ev.ToolCallID
	}
	if callID == "" {
		return "", false
	}
	st := p.tools.getOrCreate(callID, ev.ToolCall.Type)
	st.merge(ev.ToolCall)
	if st.toolType == domain.ToolWebSearch {
		p.lastWebSearchCallID = callID
	}
	return callID, true
}

func (p *Projector) projectServiceLifecycle(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	state := mapString(ev.Metadata, "state")
	if state != "cancelled" && state != "canceled" {
		return nil
	}
	p.lifecycleStatus = domain.LifecycleCancelled
	return []domain.PublicEvent{{
		Envelope: p.envelope(domain.KindLifecycle, pctx, ev.SequenceNumber, nil),
		Data: domain.LifecycleData{
			Status: domain.LifecycleCancelled,
			Reason: mapString(ev.Metadata, "reason"),
		},
	}}
}

// captureItemToolMetadata records tool names (and MCP server labels) from
// output items without emitting anything.
func (p *Projector) captureItemToolMetadata(ev domain.InternalEvent) {
	item, ok := ev.RawEvent["item"].(map[string]any)
	if !ok {
		return
	}
	itemType := mapString(item, "type")
	switch itemType {
	case "function_call", "mcp_call", "custom_tool_call":
	default:
		return
	}
	callID := mapString(item, "call_id")
	if callID == "" {
		callID = mapString(item, "id")
	}
	if callID == "" {
		callID = ev.ToolCallID
	}
	if callID == "" {
		return
	}
	toolType := domain.ToolFunction
	if itemType == "mcp_call" {
		toolType = domain.ToolMCP
	}
	st := p.tools.getOrCreate(callID, toolType)
	if name := mapString(item, "name"); name != "" {
		st.toolName = name
	}
	if itemType == "mcp_call" {
		if label := mapString(item, "server_label"); label != "" {
			st.serverLabel = label
		}
	}
}

func (p *Projector) projectCitations(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	var out []domain.PublicEvent
	for _, ann := range ev.Annotations {
		kind := classifyCitation(ann)

		// New URLs flow back into the owning web-search call's source list,
		// and its status is re-emitted so clients see the updated sources
		// even when the tool already completed. Citations legitimately
		// arrive after tool completion.
		if kind == domain.CitationURL && ann.URL != "" && p.lastWebSearchCallID != "" {
			if st, ok := p.tools[p.lastWebSearchCallID]; ok && st.addSource(ann.URL) {
				status := coerceStatusAtDone(st.toolType, st.lastStatus)
				out = append(out, p.toolStatusEvent(p.lastWebSearchCallID, st, status, ev, pctx))
			}
		}

		out = append(out, domain.PublicEvent{
			Envelope: p.envelope(domain.KindMessageCitation, pctx, ev.SequenceNumber, nil),
			Data: domain.MessageCitationData{
				Kind:        kind,
				URL:         ann.URL,
				Title:       ann.Title,
				FileID:      ann.FileID,
				Filename:    ann.Filename,
				ContainerID: ann.ContainerID,
				StartIndex:  ann.StartIndex,
				EndIndex:    ann.EndIndex,
			},
		})
	}
	return out
}

func classifyCitation(ann domain.Annotation) domain.CitationKind {
	switch ann.Type {
	case string(domain.CitationURL):
		return domain.CitationURL
	case string(domain.CitationContainerFile):
		return domain.CitationContainerFile
	case string(domain.CitationFile):
		return domain.CitationFile
	}
	if ann.URL != "" {
		return domain.CitationURL
	}
	if ann.ContainerID != "" {
		return domain.CitationContainerFile
	}
	return domain.CitationFile
}

// projectReasoning streams reasoning summary deltas and reconciles the done
// snapshot against what was already emitted: only the unseen suffix goes out,
// and a done text that does not extend the accumulated prefix is dropped.
func (p *Projector) projectReasoning(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	switch ev.RawType {
	case "response.reasoning_summary_text.delta":
		if ev.ReasoningDelta == nil || *ev.ReasoningDelta == "" {
			return nil
		}
		p.reasoningText += *ev.ReasoningDelta
		return []domain.PublicEvent{{
			Envelope: p.envelope(domain.KindReasoningDelta, pctx, ev.SequenceNumber, nil),
			Data:     domain.ReasoningDeltaData{Delta: *ev.ReasoningDelta},
		}}
	case "response.reasoning_summary_text.done":
		full := mapString(ev.RawEvent, "text")
		if full == "" {
			return nil
		}
		if p.reasoningText == "" {
			p.reasoningText = full
			return []domain.PublicEvent{{
				Envelope: p.envelope(domain.KindReasoningDelta, pctx, ev.SequenceNumber, nil),
				Data:     domain.ReasoningDeltaData{Delta: full},
			}}
		}
		if !strings.HasPrefix(full, p.reasoningText) {
			return nil
		}
		suffix := full[len(p.reasoningText):]
		p.reasoningText = full
		if suffix == "" {
			return nil
		}
		return []domain.PublicEvent{{
			Envelope: p.envelope(domain.KindReasoningDelta, pctx, ev.SequenceNumber, nil),
			Data:     domain.ReasoningDeltaData{Delta: suffix},
		}}
	}
	return nil
}

func (p *Projector) projectRefusal(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	switch ev.RawType {
	case "response.refusal.delta":
		delta := mapString(ev.RawEvent, "delta")
		if delta == "" {
			return nil
		}
		p.refusalText += delta
		return []domain.PublicEvent{{
			Envelope: p.envelope(domain.KindRefusalDelta, pctx, ev.SequenceNumber, nil),
			Data:     domain.RefusalDeltaData{Delta: delta},
		}}
	case "response.refusal.done":
		full := mapString(ev.RawEvent, "refusal")
		if full == "" {
			return nil
		}
		p.refusalText = full
		return []domain.PublicEvent{{
			Envelope: p.envelope(domain.KindRefusalDone, pctx, ev.SequenceNumber, nil),
			Data: domain.RefusalDoneData{
				MessageID: mapString(ev.RawEvent, "item_id"),
				Refusal:   full,
			},
		}}
	}
	return nil
}

// projectRawToolStatus handles raw per-tool-type status events of the shape
// response.<tool>_call.<status>. Multi-segment suffixes (argument and code
// streams) are handled by their own rules and rejected here.
func (p *Projector) projectRawToolStatus(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	rest, ok := strings.CutPrefix(ev.RawType, "response.")
	if !ok {
		return nil
	}
	toolPart, fragment, ok := strings.Cut(rest, "_call.")
	if !ok || fragment == "" || strings.Contains(fragment, ".") {
		return nil
	}
	var toolType domain.ToolType
	switch toolPart {
	case "web_search":
		toolType = domain.ToolWebSearch
	case "file_search":
		toolType = domain.ToolFileSearch
	case "code_interpreter":
		toolType = domain.ToolCodeInterpreter
	case "image_generation":
		toolType = domain.ToolImageGeneration
	case "mcp":
		toolType = domain.ToolMCP
	default:
		return nil
	}

	callID := mapString(ev.RawEvent, "item_id")
	if callID == "" {
		callID = ev.ToolCallID
	}
	if callID == "" {
		return nil
	}

	st := p.tools.getOrCreate(callID, toolType)
	if toolType == domain.ToolWebSearch {
		p.lastWebSearchCallID = callID
	}
	status := coerceStatus(toolType, fragment)
	st.lastStatus = string(status)

	if toolType == domain.ToolImageGeneration {
		if idx, ok := mapInt(ev.RawEvent, "partial_image_index"); ok {
			st.imagePartialImageIndex = &idx
		}
	}

	out := []domain.PublicEvent{p.toolStatusEvent(callID, st, status, ev, pctx)}

	// Partial images carry a base64 payload that must be streamed in
	// bounded chunks rather than one oversized frame.
	if toolType == domain.ToolImageGeneration && status == domain.ToolStatusPartialImage {
		if b64 := mapString(ev.RawEvent, "partial_image_b64"); b64 != "" {
			target := domain.ChunkTarget{
				EntityKind: "tool_call",
				EntityID:   callID,
				Field:      "partial_image",
				PartIndex:  st.imagePartialImageIndex,
			}
			out = append(out, ChunkBase64(target, b64, p.maxChunkChars, func(kind domain.EventKind) domain.Envelope {
				return p.envelope(kind, pctx, ev.SequenceNumber, nil)
			})...)
		}
	}
	return out
}

func (p *Projector) projectInterpreterCode(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	callID := mapString(ev.RawEvent, "item_id")
	if callID == "" {
		callID = ev.ToolCallID
	}
	if callID == "" {
		return nil
	}
	p.tools.getOrCreate(callID, domain.ToolCodeInterpreter)
	switch ev.RawType {
	case "response.code_interpreter_call_code.delta":
		delta := mapString(ev.RawEvent, "delta")
		if delta == "" {
			return nil
		}
		return []domain.PublicEvent{{
			Envelope: p.envelope(domain.KindToolCodeDelta, pctx, ev.SequenceNumber, nil),
			Data:     domain.ToolCodeDeltaData{ToolCallID: callID, Delta: delta},
		}}
	case "response.code_interpreter_call_code.done":
		return []domain.PublicEvent{{
			Envelope: p.envelope(domain.KindToolCodeDone, pctx, ev.SequenceNumber, nil),
			Data:     domain.ToolCodeDoneData{ToolCallID: callID, Code: mapString(ev.RawEvent, "code")},
		}}
	}
	return nil
}

// projectArguments accumulates streamed function/MCP argument text and, at
// done, sanitizes the full text and re-streams it in fixed-width deltas so
// the public stream never carries unredacted or unbounded argument payloads.
func (p *Projector) projectArguments(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	toolType := domain.ToolFunction
	if strings.HasPrefix(ev.RawType, "response.mcp_call_arguments.") {
		toolType = domain.ToolMCP
	}
	callID := mapString(ev.RawEvent, "item_id")
	if callID == "" {
		callID = ev.ToolCallID
	}
	if callID == "" {
		return nil
	}
	st := p.tools.getOrCreate(callID, toolType)

	if strings.HasSuffix(ev.RawType, ".delta") {
		st.argumentsText += mapString(ev.RawEvent, "delta")
		return nil
	}
	if !strings.HasSuffix(ev.RawType, ".done") {
		return nil
	}

	raw := st.argumentsText
	if full := mapString(ev.RawEvent, "arguments"); full != "" && raw == "" {
		raw = full
	}

	var (
		text    string
		parsed  map[string]any
		notices []domain.Notice
	)
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil && obj != nil {
		sanitized, sn := Sanitize(obj, "arguments_json", maxArgObjectStringChars)
		parsed = sanitized.(map[string]any)
		notices = sn
		encoded, err := json.Marshal(parsed)
		if err != nil {
			// Marshal of a sanitized map cannot realistically fail; degrade
			// to the raw-text path if it somehow does.
			sanitizedText, sn := Sanitize(raw, "arguments_text", maxArgRawTextChars)
			text, notices, parsed = sanitizedText.(string), sn, nil
		} else {
			text = string(encoded)
		}
	} else {
		sanitized, sn := Sanitize(raw, "arguments_text", maxArgRawTextChars)
		text = sanitized.(string)
		notices = sn
	}
	st.argumentsText = text

	var out []domain.PublicEvent

	// Surface an explicit in_progress transition for function calls whose
	// arguments finish before any status was observed.
	if st.toolType == domain.ToolFunction && st.lastStatus == "" {
		st.lastStatus = string(domain.ToolStatusInProgress)
		out = append(out, p.toolStatusEvent(callID, st, domain.ToolStatusInProgress, ev, pctx))
	}

	// Chunk bounds count characters, not bytes, so multibyte text never
	// splits mid-rune and delta concatenation reproduces the done snapshot.
	for start := 0; start < len(text); {
		end := start
		for n := 0; n < argDeltaChunkChars && end < len(text); n++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		out = append(out, domain.PublicEvent{
			Envelope: p.envelope(domain.KindToolArgsDelta, pctx, ev.SequenceNumber, nil),
			Data:     domain.ToolArgsDeltaData{ToolCallID: callID, Delta: text[start:end]},
		})
		start = end
	}
	out = append(out, domain.PublicEvent{
		Envelope: p.envelope(domain.KindToolArgsDone, pctx, ev.SequenceNumber, notices),
		Data: domain.ToolArgsDoneData{
			ToolCallID:    callID,
			ArgumentsText: text,
			ArgumentsJSON: parsed,
		},
	})
	return out
}

// projectRunItem handles run-item tool lifecycle notices from the agent
// runtime: approval requests, call starts, and tool outputs.
func (p *Projector) projectRunItem(ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	switch ev.RunItemName {
	case "tool_called", "tool_output", "mcp_approval_requested":
	default:
		return nil
	}
	callID := ev.ToolCallID
	if callID == "" {
		return nil
	}

	toolType := resolveRunItemToolType(ev)
	st := p.tools.getOrCreate(callID, toolType)
	if ev.ToolName != "" {
		st.toolName = ev.ToolName
	}
	if st.toolType == domain.ToolWebSearch {
		p.lastWebSearchCallID = callID
	}

	switch ev.RunItemName {
	case "mcp_approval_requested":
		if st.lastStatus == string(domain.ToolStatusAwaitingApproval) {
			return nil
		}
		st.lastStatus = string(domain.ToolStatusAwaitingApproval)
		return []domain.PublicEvent{p.toolStatusEvent(callID, st, domain.ToolStatusAwaitingApproval, ev, pctx)}

	case "tool_called":
		if st.toolType != domain.ToolFunction && st.toolType != domain.ToolMCP {
			return nil
		}
		if st.lastStatus != "" {
			return nil
		}
		st.lastStatus = string(domain.ToolStatusInProgress)
		return []domain.PublicEvent{p.toolStatusEvent(callID, st, domain.ToolStatusInProgress, ev, pctx)}

	case "tool_output":
		return p.projectToolOutput(callID, st, ev, pctx)
	}
	return nil
}

func (p *Projector) projectToolOutput(callID string, st *toolState, ev domain.InternalEvent, pctx domain.ProjectionContext) []domain.PublicEvent {
	var out []domain.PublicEvent

	switch st.toolType {
	case domain.ToolWebSearch:
		for _, url := range extractURLs(ev.Payload["output"]) {
			st.addSource(url)
		}
		status := coerceStatusAtDone(st.toolType, mapString(ev.Payload, "status"))
		st.lastStatus = string(status)
		out = append(out, p.toolStatusEvent(callID, st, status, ev, pctx))

	case domain.ToolFunction, domain.ToolMCP:
		if output, ok := ev.Payload["output"]; ok {
			sanitized, notices := Sanitize(output, "output", maxOutputStringChars)
			out = append(out, domain.PublicEvent{
				Envelope: p.envelope(domain.KindToolOutput, pctx, ev.SequenceNumber, notices),
				Data:     domain.ToolOutputData{ToolCallID: callID, Output: sanitized},
			})
		}
		st.lastStatus = string(domain.ToolStatusCompleted)
		out = append(out, p.toolStatusEvent(callID, st, domain.ToolStatusCompleted, ev, pctx))
	}
	return out
}

func resolveRunItemToolType(ev domain.InternalEvent) domain.ToolType {
	if strings.Contains(ev.RunItemType, "mcp") || ev.RunItemName == "mcp_approval_requested" {
		return domain.ToolMCP
	}
	if t, ok := builtinToolNames[ev.ToolName]; ok {
		return t
	}
	return domain.ToolFunction
}

// finalEvent computes the terminal disposition of the run. Precedence:
// refusal beats lifecycle failure modes, which beat the empty-output
// incomplete fallback.
func (p *Projector) finalEvent(ev domain.InternalEvent, pctx domain.ProjectionContext) domain.PublicEvent {
	var status domain.FinalStatus
	switch {
	case p.refusalText != "":
		status = domain.FinalRefused
	case p.lifecycleStatus == domain.LifecycleFailed:
		status = domain.FinalFailed
	case p.lifecycleStatus == domain.LifecycleIncomplete:
		status = domain.FinalIncomplete
	case p.lifecycleStatus == domain.LifecycleCancelled:
		status = domain.FinalCancelled
	case ev.ResponseText == nil && ev.StructuredOutput == nil:
		status = domain.FinalIncomplete
	default:
		status = domain.FinalCompleted
	}

	data := domain.FinalData{
		Status:           status,
		ResponseText:     ev.ResponseText,
		StructuredOutput: ev.StructuredOutput,
		Attachments:      p.attachments,
		Usage:            ev.Usage,
	}
	if p.reasoningText != "" {
		reasoning := p.reasoningText
		data.ReasoningSummary = &reasoning
	}
	if p.refusalText != "" {
		refusal := p.refusalText
		data.RefusalText = &refusal
	}
	return domain.PublicEvent{
		Envelope: p.envelope(domain.KindFinal, pctx, ev.SequenceNumber, nil),
		Data:     data,
	}
}

func (p *Projector) toolStatusEvent(callID string, st *toolState, status domain.ToolStatus, ev domain.InternalEvent, pctx domain.ProjectionContext) domain.PublicEvent {
	return domain.PublicEvent{
		Envelope: p.envelope(domain.KindToolStatus, pctx, ev.SequenceNumber, nil),
		Data:     st.snapshot(callID, status),
	}
}

// extractURLs walks an arbitrary tool output value collecting http(s) URLs:
// values under "url" keys, plus whitespace-separated URL tokens inside
// strings.
func extractURLs(v any) []string {
	var urls []string
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case string:
			for _, tok := range strings.Fields(val) {
				if strings.HasPrefix(tok, "http://") || strings.HasPrefix(tok, "https://") {
					urls = append(urls, tok)
				}
			}
		case map[string]any:
			if u, ok := val["url"].(string); ok && u != "" {
				urls = append(urls, u)
			}
			keys := make([]string, 0, len(val))
			for k := range val {
				if k != "url" {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(val[k])
			}
		case []any:
			for _, child := range val {
				walk(child)
			}
		}
	}
	walk(v)
	return urls
}

func mapString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func mapInt(m map[string]any, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
