package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/natthapon/schedpilot/agent/contract"
)

// Registry holds every registered tool schema and its handler, and is the
// single dispatch path for model-requested tool calls. Dispatch never
// returns an error to the caller: every failure mode is folded into the
// ToolResult so the conversation loop can feed it back to the model.
type Registry struct {
	schemas  map[string]contractx.ToolSchema
	handlers map[string]contractx.Handler
	order    []string
}

var _ contractx.Dispatcher = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		schemas:  make(map[string]contractx.ToolSchema, 8),
		handlers: make(map[string]contractx.Handler, 8),
	}
}

// Register adds a tool. Names are unique; re-registration is a wiring bug
// and fails loudly at startup rather than at dispatch time.
func (r *Registry) Register(schema contractx.ToolSchema, handler contractx.Handler) error {
	name := strings.TrimSpace(schema.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if handler == nil {
		return fmt.Errorf("%w: handler for tool=%s is nil", contractx.ErrValidation, name)
	}
	if _, exists := r.schemas[name]; exists {
		return fmt.Errorf("%w: tool=%s already registered", contractx.ErrValidation, name)
	}

	r.schemas[name] = schema
	r.handlers[name] = handler
	r.order = append(r.order, name)
	return nil
}

// MustRegister panics on registration failure; used for startup wiring.
func (r *Registry) MustRegister(schema contractx.ToolSchema, handler contractx.Handler) {
	if err := r.Register(schema, handler); err != nil {
		panic(err)
	}
}

// Schemas returns every registered schema in registration order.
func (r *Registry) Schemas() []contractx.ToolSchema {
	out := make([]contractx.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.schemas[name])
	}
	return out
}

// Dispatch validates the call against its schema and invokes the handler
// exactly once. Argument problems come back as validation_error results;
// handler failures come back with the kind derived from the wrapped
// sentinel, defaulting to domain_operation_error.
func (r *Registry) Dispatch(ctx context.Context, call contractx.ToolCall) contractx.ToolResult {
	schema, ok := r.schemas[call.Tool]
	if !ok {
		return failure(call, contractx.KindValidation, fmt.Sprintf("unknown tool: %s", call.Tool))
	}

	args, err := ParseArguments(schema, call.Arguments)
	if err != nil {
		log.Warn().
			Str("tool", call.Tool).
			Str("tool_call_id", call.ID).
			Err(err).
			Msg("tool call rejected by schema validation")
		return failure(call, contractx.KindValidation, err.Error())
	}

	data, err := r.invoke(ctx, call.Tool, args)
	if err != nil {
		log.Error().
			Str("tool", call.Tool).
			Str("tool_call_id", call.ID).
			Interface("args", Redact(args)).
			Err(err).
			Msg("tool handler failed")
		return failure(call, contractx.KindOf(err), err.Error())
	}

	return contractx.ToolResult{
		ToolCallID: call.ID,
		Tool:       call.Tool,
		OK:         true,
		Data:       data,
	}
}

// invoke runs the handler with a recover guard so a panicking handler
// still yields exactly one result.
func (r *Registry) invoke(ctx context.Context, name string, args map[string]any) (data any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: tool=%s panicked: %v", contractx.ErrDomainOperation, name, rec)
		}
	}()
	return r.handlers[name](ctx, args)
}

func failure(call contractx.ToolCall, kind contractx.ErrorKind, message string) contractx.ToolResult {
	return contractx.ToolResult{
		ToolCallID: call.ID,
		Tool:       call.Tool,
		OK:         false,
		Error: &contractx.ToolError{
			Kind:    kind,
			Message: message,
		},
	}
}

// Redact masks argument values whose key suggests credentials before they
// reach a log line.
func Redact(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "token") || strings.Contains(lower, "secret") || strings.Contains(lower, "key") || strings.Contains(lower, "password") {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}
