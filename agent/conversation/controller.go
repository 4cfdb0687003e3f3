package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/natthapon/schedpilot/agent/contract"
)

const (
	defaultMaxIterations = 5

	apologyReply   = "Sorry, I could not reach the reasoning engine. Nothing was changed; please try again."
	exhaustedReply = "I could not complete the task within the allowed number of tool steps. Nothing further was attempted."
)

// Config is the controller's envconfig surface.
type Config struct {
	MaxIterations int `envconfig:"MAX_ITERATIONS" split_words:"true" default:"5"`
}

// Controller runs the per-turn loop: call the model, dispatch any
// requested tools sequentially, feed the results back, repeat until a
// final answer or the iteration bound. One controller owns one session's
// state; turns on the same session are serialized.
type Controller struct {
	adapter       contractx.LLMAdapter
	tools         contractx.Dispatcher
	systemPrompt  string
	maxIterations int

	mu    sync.Mutex
	state *State
	now   func() time.Time
}

func NewController(adapter contractx.LLMAdapter, tools contractx.Dispatcher, systemPrompt string, cfg Config) (*Controller, error) {
	if adapter == nil {
		return nil, errors.New("llm adapter is required")
	}
	if tools == nil {
		return nil, errors.New("tool dispatcher is required")
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	return &Controller{
		adapter:       adapter,
		tools:         tools,
		systemPrompt:  strings.TrimSpace(systemPrompt),
		maxIterations: maxIterations,
		state:         NewState(),
		now:           time.Now,
	}, nil
}

// SessionID identifies this controller's conversation in logs.
func (c *Controller) SessionID() string {
	return c.state.SessionID
}

// HandleMessage runs one user turn to completion. The returned string is
// always a user-facing reply; the error (when set) wraps ErrAdapter for
// terminal provider failures or the context error on cancellation.
// Exhausting the iteration bound is not an error: the fixed could-not-
// complete reply is returned and recorded.
func (c *Controller) HandleMessage(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.AppendUser(text, c.now())

	for iteration := 0; iteration < c.maxIterations; iteration++ {
		// Abort between iterations; partial history stays for audit.
		if err := ctx.Err(); err != nil {
			log.Warn().
				Str("session_id", c.state.SessionID).
				Int("iteration", iteration).
				Msg("turn aborted before next model call")
			return "", err
		}

		turn, err := c.adapter.Converse(ctx, c.outgoing(), c.tools.Schemas())
		if err != nil {
			log.Error().
				Str("session_id", c.state.SessionID).
				Int("iteration", iteration).
				Err(err).
				Msg("adapter call failed")
			c.state.AppendAssistantText(apologyReply, c.now())
			return apologyReply, fmt.Errorf("%w: %v", contractx.ErrAdapter, err)
		}

		if turn.IsFinal() {
			reply := strings.TrimSpace(turn.FinalText)
			if reply == "" {
				reply = "(no answer)"
			}
			c.state.AppendAssistantText(reply, c.now())
			return reply, nil
		}

		c.state.AppendAssistantToolCalls(turn.ToolCalls, c.now())

		// Sequential, in request order: the next model call must see every
		// prior result, id-correlated.
		for _, call := range turn.ToolCalls {
			result := c.tools.Dispatch(ctx, call)
			c.state.AppendToolResult(result, encodeResult(result), c.now())
		}
	}

	log.Warn().
		Str("session_id", c.state.SessionID).
		Int("max_iterations", c.maxIterations).
		Msg("turn hit the iteration limit")
	c.state.AppendAssistantText(exhaustedReply, c.now())
	return exhaustedReply, nil
}

// History returns a copy of the session transcript.
func (c *Controller) History() []contractx.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Messages()
}

// outgoing builds the adapter message list: system instructions first,
// then the full history.
func (c *Controller) outgoing() []contractx.Message {
	history := c.state.Messages()
	out := make([]contractx.Message, 0, len(history)+1)
	if c.systemPrompt != "" {
		out = append(out, contractx.Message{Role: contractx.RoleSystem, Content: c.systemPrompt})
	}
	return append(out, history...)
}

func encodeResult(result contractx.ToolResult) string {
	payload, err := json.Marshal(result)
	if err != nil {
		// Result payloads are our own types; this indicates a programming
		// error in a tool's output shape.
		return fmt.Sprintf(`{"tool_call_id":%q,"tool":%q,"ok":false,"error":{"kind":"domain_operation_error","message":"result not serializable"}}`,
			result.ToolCallID, result.Tool)
	}
	return string(payload)
}
