package session

import "time"

// Role constants for event content.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Event is one immutable unit of conversation history: a message, a tool
// call, a tool result, or an error. Events are append-only; the store
// exposes no update operation for them.
//
// JSON tags define the wire form used by the modern single-payload
// schema; field names are stable and must not change.
type Event struct {
	// ID is unique within the owning session. The store assigns a fresh
	// UUID when empty.
	ID string `json:"id"`

	// InvocationID groups the events produced by one request/response
	// cycle.
	InvocationID string `json:"invocation_id,omitempty"`

	// Author tags who produced the event ("user", an agent name, ...).
	Author string `json:"author,omitempty"`

	// Branch names the conversation branch the event belongs to.
	Branch string `json:"branch,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	Content *Content     `json:"content,omitempty"`
	Actions EventActions `json:"actions"`

	// Streaming flags. Partial events are transient chunks and are never
	// persisted.
	Partial      bool `json:"partial,omitempty"`
	TurnComplete bool `json:"turn_complete,omitempty"`
	Interrupted  bool `json:"interrupted,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	LongRunningToolIDs []string `json:"long_running_tool_ids,omitempty"`

	Usage               *Usage `json:"usage,omitempty"`
	InputTranscription  string `json:"input_transcription,omitempty"`
	OutputTranscription string `json:"output_transcription,omitempty"`

	GroundingMetadata map[string]any `json:"grounding_metadata,omitempty"`
	CustomMetadata    map[string]any `json:"custom_metadata,omitempty"`
}

// EventActions carries the side effects attached to an event.
type EventActions struct {
	// StateDelta is a partial key→value patch folded into session, user
	// and app state by key prefix when the event is appended.
	StateDelta map[string]any `json:"state_delta,omitempty"`

	// ArtifactDelta maps artifact names to their new version numbers.
	ArtifactDelta map[string]int64 `json:"artifact_delta,omitempty"`

	TransferToAgent   string `json:"transfer_to_agent,omitempty"`
	Escalate          bool   `json:"escalate,omitempty"`
	SkipSummarization bool   `json:"skip_summarization,omitempty"`

	// Raw holds the opaque action payload of a legacy backend: bytes of
	// unspecified internal structure, round-tripped but never
	// interpreted. Empty everywhere else.
	Raw []byte `json:"-"`
}

// Content is the message body of an event.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is one element of a content body. Exactly one field is set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// FunctionCall records a tool invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse records a tool's result.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// Usage holds token accounting for the model call that produced the
// event.
type Usage struct {
	PromptTokens   int64 `json:"prompt_tokens,omitempty"`
	ResponseTokens int64 `json:"response_tokens,omitempty"`
	TotalTokens    int64 `json:"total_tokens,omitempty"`
}
