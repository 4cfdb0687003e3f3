package contract

import (
	"context"
	"time"
)

// LLMAdapter abstracts one request/response cycle with a reasoning engine.
// Implementations map the provider's native response into a ChatTurn and
// never leak provider wire types to callers.
type LLMAdapter interface {
	Converse(ctx context.Context, messages []Message, tools []ToolSchema) (ChatTurn, error)
}

// Handler executes one registered tool against already-validated,
// type-coerced arguments. A returned error becomes a domain_operation_error
// result; it is never raised through the dispatcher.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Dispatcher validates and executes tool calls.
type Dispatcher interface {
	Dispatch(ctx context.Context, call ToolCall) ToolResult
	Schemas() []ToolSchema
}

// Ledger is the pending-proposal store. In-process map by default; the
// interface exists so a durable backing store can be swapped in without
// touching the write protocol.
type Ledger interface {
	Put(p *Proposal) error
	Get(id string) (*Proposal, bool)
	Remove(id string)
	Len() int
}

// Proposal is a cached, unexecuted description of an intended write,
// redeemable exactly once through the write gateway.
type Proposal struct {
	ID            string         `json:"id"`
	ActivityID    int64          `json:"activity_id"`
	Changes       map[string]any `json:"changes"`
	CurrentValues map[string]any `json:"current_values"`
	Rationale     string         `json:"rationale"`
	CreatedAt     time.Time      `json:"created_at"`
}
