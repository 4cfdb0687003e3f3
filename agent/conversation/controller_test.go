package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	contractx "github.com/natthapon/schedpilot/agent/contract"
)

type fakeAdapter struct {
	turns []contractx.ChatTurn
	errs  []error
	calls int
	seen  [][]contractx.Message
}

func (f *fakeAdapter) Converse(_ context.Context, messages []contractx.Message, _ []contractx.ToolSchema) (contractx.ChatTurn, error) {
	copied := make([]contractx.Message, len(messages))
	copy(copied, messages)
	f.seen = append(f.seen, copied)

	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return contractx.ChatTurn{}, f.errs[i]
	}
	if i >= len(f.turns) {
		return f.turns[len(f.turns)-1], nil
	}
	return f.turns[i], nil
}

type fakeDispatcher struct {
	dispatched []contractx.ToolCall
}

func (f *fakeDispatcher) Schemas() []contractx.ToolSchema { return nil }

func (f *fakeDispatcher) Dispatch(_ context.Context, call contractx.ToolCall) contractx.ToolResult {
	f.dispatched = append(f.dispatched, call)
	if call.Tool == "broken.tool" {
		return contractx.ToolResult{
			ToolCallID: call.ID,
			Tool:       call.Tool,
			OK:         false,
			Error:      &contractx.ToolError{Kind: contractx.KindValidation, Message: "bad args"},
		}
	}
	return contractx.ToolResult{
		ToolCallID: call.ID,
		Tool:       call.Tool,
		OK:         true,
		Data:       map[string]any{"echo": call.Tool},
	}
}

func newTestController(t *testing.T, adapter contractx.LLMAdapter, dispatcher contractx.Dispatcher, maxIterations int) *Controller {
	t.Helper()
	c, err := NewController(adapter, dispatcher, "You are a scheduling copilot.", Config{MaxIterations: maxIterations})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestHandleMessageFinalAnswer(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{turns: []contractx.ChatTurn{{FinalText: "Activity 10 lasts 16 hours."}}}
	dispatcher := &fakeDispatcher{}
	c := newTestController(t, adapter, dispatcher, 5)

	reply, err := c.HandleMessage(context.Background(), "how long is activity 10?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Activity 10 lasts 16 hours." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if adapter.calls != 1 {
		t.Fatalf("expected 1 adapter call, got %d", adapter.calls)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Fatal("no tools should have been dispatched")
	}

	history := c.History()
	if len(history) != 2 {
		t.Fatalf("expected user+assistant history, got %d messages", len(history))
	}
	if history[0].Role != contractx.RoleUser || history[1].Role != contractx.RoleAssistant {
		t.Fatalf("unexpected history roles: %v %v", history[0].Role, history[1].Role)
	}
}

func TestHandleMessageToolLoopOrdering(t *testing.T) {
	t.Parallel()

	calls := []contractx.ToolCall{
		{ID: "call_1", Tool: "activity.get", Arguments: `{"activity_id": 10}`},
		{ID: "call_2", Tool: "schedule.health_check", Arguments: `{"project_id": 1}`},
	}
	adapter := &fakeAdapter{turns: []contractx.ChatTurn{
		{ToolCalls: calls},
		{FinalText: "done"},
	}}
	dispatcher := &fakeDispatcher{}
	c := newTestController(t, adapter, dispatcher, 5)

	reply, err := c.HandleMessage(context.Background(), "check the schedule")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "done" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if len(dispatcher.dispatched) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(dispatcher.dispatched))
	}
	if dispatcher.dispatched[0].ID != "call_1" || dispatcher.dispatched[1].ID != "call_2" {
		t.Fatalf("tools dispatched out of order: %+v", dispatcher.dispatched)
	}

	// second adapter call must see: system, user, assistant(tool calls),
	// tool result 1, tool result 2 — in that order
	second := adapter.seen[1]
	if len(second) != 5 {
		t.Fatalf("expected 5 outgoing messages, got %d", len(second))
	}
	if second[0].Role != contractx.RoleSystem {
		t.Fatal("system message must lead every adapter call")
	}
	if second[2].Role != contractx.RoleAssistant || len(second[2].ToolCalls) != 2 {
		t.Fatalf("assistant tool-call message missing: %+v", second[2])
	}
	if second[3].ToolCallID != "call_1" || second[4].ToolCallID != "call_2" {
		t.Fatalf("tool results out of order: %q then %q", second[3].ToolCallID, second[4].ToolCallID)
	}
}

func TestHandleMessageIterationBound(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{turns: []contractx.ChatTurn{
		{ToolCalls: []contractx.ToolCall{{ID: "c", Tool: "activity.get", Arguments: `{"activity_id": 1}`}}},
	}}
	dispatcher := &fakeDispatcher{}
	c := newTestController(t, adapter, dispatcher, 3)

	reply, err := c.HandleMessage(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("exhaustion is not an error, got %v", err)
	}
	if reply != exhaustedReply {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if adapter.calls != 3 {
		t.Fatalf("expected exactly 3 adapter calls, got %d", adapter.calls)
	}
}

func TestHandleMessageToolFailureFeedsBack(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{turns: []contractx.ChatTurn{
		{ToolCalls: []contractx.ToolCall{{ID: "c1", Tool: "broken.tool", Arguments: `{}`}}},
		{FinalText: "I fixed my arguments."},
	}}
	dispatcher := &fakeDispatcher{}
	c := newTestController(t, adapter, dispatcher, 5)

	reply, err := c.HandleMessage(context.Background(), "try something")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "I fixed my arguments." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	second := adapter.seen[1]
	toolMsg := second[len(second)-1]
	if toolMsg.Role != contractx.RoleTool {
		t.Fatalf("expected trailing tool message, got %v", toolMsg.Role)
	}
	if !strings.Contains(toolMsg.Content, string(contractx.KindValidation)) {
		t.Fatalf("model must see the structured error kind, got %q", toolMsg.Content)
	}
}

func TestHandleMessageAdapterFailureEndsTurn(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		turns: []contractx.ChatTurn{{}},
		errs:  []error{fmt.Errorf("%w: connect timeout", contractx.ErrAdapter)},
	}
	c := newTestController(t, adapter, &fakeDispatcher{}, 5)

	reply, err := c.HandleMessage(context.Background(), "hello")
	if !errors.Is(err, contractx.ErrAdapter) {
		t.Fatalf("expected adapter error, got %v", err)
	}
	if reply != apologyReply {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if adapter.calls != 1 {
		t.Fatalf("expected 1 adapter call, got %d", adapter.calls)
	}
}

func TestHandleMessageCancelledBetweenIterations(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	adapter := &cancellingAdapter{cancel: cancel}
	c := newTestController(t, adapter, &fakeDispatcher{}, 5)

	_, err := c.HandleMessage(ctx, "slow work")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("no adapter call may follow cancellation, got %d", adapter.calls)
	}

	// partial history up to the completed iteration is retained
	history := c.History()
	if len(history) != 3 {
		t.Fatalf("expected user+assistant+tool history, got %d", len(history))
	}
}

func TestHandleMessageRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{turns: []contractx.ChatTurn{{FinalText: "x"}}}
	c := newTestController(t, adapter, &fakeDispatcher{}, 5)

	_, err := c.HandleMessage(context.Background(), "   ")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if adapter.calls != 0 {
		t.Fatal("empty input must not reach the adapter")
	}
}

// cancellingAdapter requests one tool call and cancels the context while
// the dispatcher would be running, so the next iteration must not start.
type cancellingAdapter struct {
	cancel context.CancelFunc
	calls  int
}

func (a *cancellingAdapter) Converse(context.Context, []contractx.Message, []contractx.ToolSchema) (contractx.ChatTurn, error) {
	a.calls++
	a.cancel()
	return contractx.ChatTurn{ToolCalls: []contractx.ToolCall{
		{ID: "c1", Tool: "activity.get", Arguments: `{"activity_id": 1}`},
	}}, nil
}
