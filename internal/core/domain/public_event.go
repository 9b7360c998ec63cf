package domain

// Schema is the wire protocol version tag carried by every public event.
// Clients must ignore events whose schema they do not recognize rather than
// guess at the payload shape.
const Schema = "tailfin.stream.v1"

// EventKind identifies the payload flavor of a public event.
type EventKind string

const (
	KindLifecycle        EventKind = "lifecycle"
	KindError            EventKind = "error"
	KindToolStatus       EventKind = "tool.status"
	KindToolArgsDelta    EventKind = "tool.arguments.delta"
	KindToolArgsDone     EventKind = "tool.arguments.done"
	KindToolCodeDelta    EventKind = "tool.code.delta"
	KindToolCodeDone     EventKind = "tool.code.done"
	KindToolOutput       EventKind = "tool.output"
	KindMessageDelta     EventKind = "message.delta"
	KindMessageCitation  EventKind = "message.citation"
	KindReasoningDelta   EventKind = "reasoning_summary.delta"
	KindRefusalDelta     EventKind = "refusal.delta"
	KindRefusalDone      EventKind = "refusal.done"
	KindChunkDelta       EventKind = "chunk.delta"
	KindChunkDone        EventKind = "chunk.done"
	KindFinal            EventKind = "final"
)

// NoticeType classifies a sanitizer side-channel annotation.
type NoticeType string

const (
	NoticeRedacted  NoticeType = "redacted"
	NoticeTruncated NoticeType = "truncated"
)

// Notice records a safety transform applied to a payload during sanitization.
type Notice struct {
	Type    NoticeType `json:"type"`
	Path    string     `json:"path"`
	Message string     `json:"message,omitempty"`
}

// WorkflowMeta carries orchestration context for the run that produced a
// stream, when the run is part of a larger workflow.
type WorkflowMeta struct {
	WorkflowKey   string `json:"workflow_key,omitempty"`
	WorkflowRunID string `json:"workflow_run_id,omitempty"`
	Stage         string `json:"stage,omitempty"`
	Step          string `json:"step,omitempty"`
	ParallelGroup string `json:"parallel_group,omitempty"`
	BranchIndex   *int   `json:"branch_index,omitempty"`
}

// Envelope is the field superset shared by every public event.
type Envelope struct {
	Schema          string        `json:"schema"`
	Kind            EventKind     `json:"kind"`
	EventID         int64         `json:"event_id"`
	StreamID        string        `json:"stream_id"`
	ServerTimestamp string        `json:"server_timestamp"`
	ConversationID  string        `json:"conversation_id,omitempty"`
	ResponseID      *string       `json:"response_id,omitempty"`
	Agent           *string       `json:"agent,omitempty"`
	Workflow        *WorkflowMeta `json:"workflow,omitempty"`
	SequenceNumber  *int64        `json:"provider_sequence_number,omitempty"`
	Notices         []Notice      `json:"notices,omitempty"`
}

// PublicEvent is one envelope-wrapped event on the public stream. Data holds
// the kind-specific payload struct (LifecycleData, FinalData, ...).
type PublicEvent struct {
	Envelope
	Data any `json:"data,omitempty"`
}

// LifecycleStatus is the coarse run-level state, distinct from per-tool status.
type LifecycleStatus string

const (
	LifecycleQueued     LifecycleStatus = "queued"
	LifecycleInProgress LifecycleStatus = "in_progress"
	LifecycleCompleted  LifecycleStatus = "completed"
	LifecycleFailed     LifecycleStatus = "failed"
	LifecycleIncomplete LifecycleStatus = "incomplete"
	LifecycleCancelled  LifecycleStatus = "cancelled"
)

// LifecycleData is the payload for lifecycle events.
type LifecycleData struct {
	Status LifecycleStatus `json:"status"`
	Reason string          `json:"reason,omitempty"`
}

// ErrorSource identifies which side of the boundary produced a terminal error.
type ErrorSource string

const (
	ErrorSourceProvider ErrorSource = "provider"
	ErrorSourceServer   ErrorSource = "server"
)

// ErrorData is the payload for terminal error events.
type ErrorData struct {
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message"`
	Source    ErrorSource `json:"source"`
	Retryable bool        `json:"is_retryable"`
}

// ToolStatusData is a snapshot of a tool call's accumulated state. Only the
// fields relevant to the call's tool type are populated.
type ToolStatusData struct {
	ToolCallID string     `json:"tool_call_id"`
	ToolType   ToolType   `json:"tool_type"`
	Status     ToolStatus `json:"status"`
	ToolName   string     `json:"tool_name,omitempty"`

	// web_search
	Query   string   `json:"query,omitempty"`
	Sources []string `json:"sources,omitempty"`

	// file_search
	FileSearchQueries []string           `json:"file_search_queries,omitempty"`
	FileSearchResults []FileSearchResult `json:"file_search_results,omitempty"`

	// code_interpreter
	ContainerID   string `json:"container_id,omitempty"`
	ContainerMode string `json:"container_mode,omitempty"`

	// image_generation
	ImageRevisedPrompt     string `json:"image_revised_prompt,omitempty"`
	ImageFormat            string `json:"image_format,omitempty"`
	ImageSize              string `json:"image_size,omitempty"`
	ImageQuality           string `json:"image_quality,omitempty"`
	ImageBackground        string `json:"image_background,omitempty"`
	ImagePartialImageIndex *int   `json:"image_partial_image_index,omitempty"`

	// mcp
	ServerLabel string `json:"server_label,omitempty"`
}

// ToolArgsDeltaData streams a sanitized tool-argument text fragment.
type ToolArgsDeltaData struct {
	ToolCallID string `json:"tool_call_id"`
	Delta      string `json:"delta"`
}

// ToolArgsDoneData carries the full sanitized argument text, with the parsed
// JSON object when the accumulated text was parseable.
type ToolArgsDoneData struct {
	ToolCallID    string         `json:"tool_call_id"`
	ArgumentsText string         `json:"arguments_text"`
	ArgumentsJSON map[string]any `json:"arguments_json,omitempty"`
}

// ToolCodeDeltaData streams a code fragment from a code interpreter call.
type ToolCodeDeltaData struct {
	ToolCallID string `json:"tool_call_id"`
	Delta      string `json:"delta"`
}

// ToolCodeDoneData carries the full code text for a code interpreter call.
type ToolCodeDoneData struct {
	ToolCallID string `json:"tool_call_id"`
	Code       string `json:"code"`
}

// ToolOutputData carries a sanitized tool output payload.
type ToolOutputData struct {
	ToolCallID string `json:"tool_call_id"`
	Output     any    `json:"output"`
}

// MessageDeltaData streams assistant message text.
type MessageDeltaData struct {
	Delta string `json:"delta"`
}

// CitationKind classifies a citation annotation.
type CitationKind string

const (
	CitationURL           CitationKind = "url_citation"
	CitationContainerFile CitationKind = "container_file_citation"
	CitationFile          CitationKind = "file_citation"
)

// MessageCitationData surfaces one citation attached to generated text.
type MessageCitationData struct {
	Kind        CitationKind `json:"kind"`
	URL         string       `json:"url,omitempty"`
	Title       string       `json:"title,omitempty"`
	FileID      string       `json:"file_id,omitempty"`
	Filename    string       `json:"filename,omitempty"`
	ContainerID string       `json:"container_id,omitempty"`
	StartIndex  *int         `json:"start_index,omitempty"`
	EndIndex    *int         `json:"end_index,omitempty"`
}

// ReasoningDeltaData streams reasoning summary text.
type ReasoningDeltaData struct {
	Delta string `json:"delta"`
}

// RefusalDeltaData streams refusal text.
type RefusalDeltaData struct {
	Delta string `json:"delta"`
}

// RefusalDoneData carries the final refusal text.
type RefusalDoneData struct {
	MessageID string `json:"message_id,omitempty"`
	Refusal   string `json:"refusal"`
}

// ChunkTarget describes the entity a binary chunk stream belongs to.
type ChunkTarget struct {
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Field      string `json:"field"`
	PartIndex  *int   `json:"part_index,omitempty"`
}

// ChunkDeltaData is one bounded slice of an oversized base64 payload.
type ChunkDeltaData struct {
	Target     ChunkTarget `json:"target"`
	ChunkIndex int         `json:"chunk_index"`
	Encoding   string      `json:"encoding"`
	Data       string      `json:"data"`
}

// ChunkDoneData terminates a chunk stream for its target.
type ChunkDoneData struct {
	Target ChunkTarget `json:"target"`
}

// FinalStatus is the terminal disposition of a projected run.
type FinalStatus string

const (
	FinalCompleted  FinalStatus = "completed"
	FinalRefused    FinalStatus = "refused"
	FinalFailed     FinalStatus = "failed"
	FinalIncomplete FinalStatus = "incomplete"
	FinalCancelled  FinalStatus = "cancelled"
)

// FinalData is the payload of the single final event that closes a stream.
type FinalData struct {
	Status           FinalStatus  `json:"status"`
	ResponseText     *string      `json:"response_text,omitempty"`
	StructuredOutput any          `json:"structured_output,omitempty"`
	ReasoningSummary *string      `json:"reasoning_summary,omitempty"`
	RefusalText      *string      `json:"refusal_text,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	Usage            *Usage       `json:"usage,omitempty"`
}
