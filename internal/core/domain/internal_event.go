package domain

import "time"

// InternalKind discriminates the upstream event shapes the projector consumes.
type InternalKind string

const (
	// KindRawResponse wraps a raw provider streaming event. RawType and
	// RawEvent carry the provider-specific type and payload.
	KindRawResponse InternalKind = "raw_response_event"
	// KindRunItem wraps a run-item lifecycle notice from the agent runtime
	// (tool_called, tool_output, mcp_approval_requested, ...).
	KindRunItem InternalKind = "run_item_stream_event"
	// KindLifecycleNotice is a service-level lifecycle notice (cancellation).
	KindLifecycleNotice InternalKind = "lifecycle"
	// KindErrorNotice is a service-level terminal error.
	KindErrorNotice InternalKind = "error"
)

// ToolType is the closed tool taxonomy tracked by the projector.
type ToolType string

const (
	ToolWebSearch       ToolType = "web_search"
	ToolFileSearch      ToolType = "file_search"
	ToolCodeInterpreter ToolType = "code_interpreter"
	ToolImageGeneration ToolType = "image_generation"
	ToolFunction        ToolType = "function"
	ToolMCP             ToolType = "mcp"
)

// ToolStatus is a per-tool-call status value. The allowed set depends on the
// tool type; see the projector's coercion tables.
type ToolStatus string

const (
	ToolStatusInProgress       ToolStatus = "in_progress"
	ToolStatusSearching        ToolStatus = "searching"
	ToolStatusInterpreting     ToolStatus = "interpreting"
	ToolStatusGenerating       ToolStatus = "generating"
	ToolStatusPartialImage     ToolStatus = "partial_image"
	ToolStatusCompleted        ToolStatus = "completed"
	ToolStatusFailed           ToolStatus = "failed"
	ToolStatusAwaitingApproval ToolStatus = "awaiting_approval"
)

// FileSearchResult is one (already capped and truncated) file search hit.
type FileSearchResult struct {
	FileID   string  `json:"file_id,omitempty"`
	Filename string  `json:"filename,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Text     string  `json:"text,omitempty"`
}

// ToolCallPayload is the typed tool-call union attached to an internal event,
// keyed by Type. Only the field group matching Type is meaningful; absent
// (zero/nil) fields never erase previously accumulated state.
type ToolCallPayload struct {
	Type   ToolType `json:"type"`
	CallID string   `json:"call_id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Status string   `json:"status,omitempty"`

	// web_search
	Query   string   `json:"query,omitempty"`
	Sources []string `json:"sources,omitempty"`

	// file_search
	Queries []string           `json:"queries,omitempty"`
	Results []FileSearchResult `json:"results,omitempty"`

	// code_interpreter
	ContainerID   string `json:"container_id,omitempty"`
	ContainerMode string `json:"container_mode,omitempty"`

	// image_generation
	RevisedPrompt     string `json:"revised_prompt,omitempty"`
	ImageFormat       string `json:"image_format,omitempty"`
	ImageSize         string `json:"image_size,omitempty"`
	ImageQuality      string `json:"image_quality,omitempty"`
	ImageBackground   string `json:"image_background,omitempty"`
	PartialImageIndex *int   `json:"partial_image_index,omitempty"`

	// mcp
	ServerLabel string `json:"server_label,omitempty"`
}

// Annotation is a citation annotation already pre-filtered to citation types
// by the upstream event source.
type Annotation struct {
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	FileID      string `json:"file_id,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
	StartIndex  *int   `json:"start_index,omitempty"`
	EndIndex    *int   `json:"end_index,omitempty"`
}

// Attachment is a file or object attached to the run.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size_bytes,omitempty"`
}

// Usage carries token usage totals for a run. Estimated is set when the
// totals were computed locally rather than reported upstream.
type Usage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	TotalTokens  int  `json:"total_tokens"`
	Estimated    bool `json:"estimated,omitempty"`
}

// InternalEvent is one provider-heterogeneous event handed to the projector.
// It is a tagged union over the known Kind/RawType combinations; fields not
// consumed by the rules matching Kind are ignored, and unrecognized
// combinations are a deliberate no-op.
type InternalEvent struct {
	Kind InternalKind `json:"kind"`

	// RawType and RawEvent are meaningful only when Kind is KindRawResponse.
	// RawEvent stays an opaque map because its shape is provider-defined.
	RawType  string         `json:"raw_type,omitempty"`
	RawEvent map[string]any `json:"raw_event,omitempty"`

	// Payload is the opaque body of run-item and error notices.
	Payload map[string]any `json:"payload,omitempty"`

	ToolCall    *ToolCallPayload `json:"tool_call,omitempty"`
	Annotations []Annotation     `json:"annotations,omitempty"`

	TextDelta      *string `json:"text_delta,omitempty"`
	ReasoningDelta *string `json:"reasoning_delta,omitempty"`

	ResponseText     *string `json:"response_text,omitempty"`
	StructuredOutput any     `json:"structured_output,omitempty"`
	Usage            *Usage  `json:"usage,omitempty"`
	IsTerminal       bool    `json:"is_terminal,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`

	RunItemName string `json:"run_item_name,omitempty"`
	RunItemType string `json:"run_item_type,omitempty"`

	ToolCallID     string         `json:"tool_call_id,omitempty"`
	ToolName       string         `json:"tool_name,omitempty"`
	SequenceNumber *int64         `json:"sequence_number,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ProjectionContext is the per-call context the transport supplies alongside
// each internal event to populate the public envelope.
type ProjectionContext struct {
	ConversationID  string
	ResponseID      *string
	Agent           *string
	Workflow        *WorkflowMeta
	ServerTimestamp *time.Time
}
