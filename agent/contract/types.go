package contract

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a session's conversation history. Assistant
// messages may carry tool calls instead of (or alongside) text content;
// tool messages carry exactly one result, correlated by ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToolCall is a single tool invocation requested by the model. ID is
// assigned by the provider and echoed back on the matching ToolResult.
// Arguments is the raw JSON argument object exactly as the provider
// produced it; the dispatcher owns parsing and validation.
type ToolCall struct {
	ID        string `json:"id"`
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
}

// ToolResult is the structured envelope every dispatch produces, success
// or not. Exactly one result exists per tool call.
type ToolResult struct {
	ToolCallID string     `json:"tool_call_id"`
	Tool       string     `json:"tool"`
	OK         bool       `json:"ok"`
	Data       any        `json:"data,omitempty"`
	Error      *ToolError `json:"error,omitempty"`
}

// ToolError is the machine-readable failure payload fed back to the model
// so it can self-correct (validation) or report honestly (everything else).
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type ErrorKind string

const (
	KindValidation      ErrorKind = "validation_error"
	KindSafetyViolation ErrorKind = "safety_violation"
	KindUnknownProposal ErrorKind = "unknown_proposal"
	KindDomainOperation ErrorKind = "domain_operation_error"
	KindAdapter         ErrorKind = "adapter_error"
	KindIterationLimit  ErrorKind = "iteration_limit_exceeded"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
)

// ParamSpec describes one declared tool parameter.
type ParamSpec struct {
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
}

// ToolSchema declares a tool's calling convention. Immutable after
// registration; the adapter translates it into whatever shape the
// configured provider expects.
type ToolSchema struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters"`
}

// ChatTurn is the adapter's parsed provider response: either a final
// answer (FinalText set, no tool calls) or a batch of tool calls. When a
// provider returns both, tool calls win and the text is discarded,
// because tool results must be fed back before a final answer is trusted.
type ChatTurn struct {
	FinalText string
	ToolCalls []ToolCall
}

// IsFinal reports whether the turn carries a final answer.
func (t ChatTurn) IsFinal() bool {
	return len(t.ToolCalls) == 0
}
