package conversation

import (
	"time"

	"github.com/google/uuid"

	contractx "github.com/natthapon/schedpilot/agent/contract"
)

// State is one session's ordered conversation history. It grows
// monotonically within a turn and lives as long as the session; the system
// message is not stored here — the controller prepends it on every adapter
// call so prompt changes never rewrite history.
type State struct {
	SessionID string
	messages  []contractx.Message
}

func NewState() *State {
	return &State{
		SessionID: uuid.NewString(),
		messages:  make([]contractx.Message, 0, 16),
	}
}

func (s *State) Append(msg contractx.Message) {
	s.messages = append(s.messages, msg)
}

func (s *State) AppendUser(text string, now time.Time) {
	s.Append(contractx.Message{Role: contractx.RoleUser, Content: text, CreatedAt: now})
}

func (s *State) AppendAssistantText(text string, now time.Time) {
	s.Append(contractx.Message{Role: contractx.RoleAssistant, Content: text, CreatedAt: now})
}

// AppendAssistantToolCalls records the model's requested calls verbatim so
// the next round can correlate results by id.
func (s *State) AppendAssistantToolCalls(calls []contractx.ToolCall, now time.Time) {
	s.Append(contractx.Message{Role: contractx.RoleAssistant, ToolCalls: calls, CreatedAt: now})
}

func (s *State) AppendToolResult(result contractx.ToolResult, payload string, now time.Time) {
	s.Append(contractx.Message{
		Role:       contractx.RoleTool,
		Content:    payload,
		ToolCallID: result.ToolCallID,
		CreatedAt:  now,
	})
}

// Messages returns a copy of the history.
func (s *State) Messages() []contractx.Message {
	out := make([]contractx.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *State) Len() int {
	return len(s.messages)
}
