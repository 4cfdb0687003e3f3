package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog/log"

	contractx "github.com/natthapon/schedpilot/agent/contract"
	openrouterx "github.com/natthapon/schedpilot/pkg/openrouter"
)

// OpenAIAdapter implements contract.LLMAdapter over any OpenAI-compatible
// chat-completions endpoint. Provider wire shapes stay inside this file.
type OpenAIAdapter struct {
	client       *openaisdk.Client
	model        string
	temperature  float64
	maxTokens    int64
	maxRetries   int
	retryBackoff time.Duration

	sleep func(time.Duration)
}

var _ contractx.LLMAdapter = (*OpenAIAdapter)(nil)

func NewOpenAIAdapter(cfg Config) (*OpenAIAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := openrouterx.NewClient(cfg.OpenRouter())
	if client == nil {
		return nil, fmt.Errorf("%w: failed to build llm client", contractx.ErrAdapter)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &OpenAIAdapter{
		client:       client,
		model:        strings.TrimSpace(cfg.Model),
		temperature:  cfg.Temperature,
		maxTokens:    int64(cfg.MaxCompletionToken),
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		sleep:        time.Sleep,
	}, nil
}

// Converse issues one logical request (with bounded transport retries) and
// parses the response into a ChatTurn. A response carrying both text and
// tool calls is treated as tool calls.
func (a *OpenAIAdapter) Converse(ctx context.Context, messages []contractx.Message, tools []contractx.ToolSchema) (contractx.ChatTurn, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(a.model),
		Messages: toProviderMessages(messages),
		Tools:    toProviderTools(tools),
	}
	if a.temperature >= 0 {
		params.Temperature = openaisdk.Float(a.temperature)
	}
	if a.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(a.maxTokens)
	}

	completion, err := a.callWithRetry(ctx, params)
	if err != nil {
		return contractx.ChatTurn{}, err
	}

	if len(completion.Choices) == 0 {
		return contractx.ChatTurn{}, fmt.Errorf("%w: provider returned no choices", contractx.ErrAdapter)
	}

	msg := completion.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return contractx.ChatTurn{FinalText: msg.Content}, nil
	}

	calls := make([]contractx.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		calls = append(calls, contractx.ToolCall{
			ID:        id,
			Tool:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return contractx.ChatTurn{ToolCalls: calls}, nil
}

func (a *OpenAIAdapter) callWithRetry(ctx context.Context, params openaisdk.ChatCompletionNewParams) (*openaisdk.ChatCompletion, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			a.sleep(a.retryBackoff << (attempt - 1))
			log.Debug().Int("attempt", attempt).Msg("retrying chat completion")
		}

		completion, err := a.client.Chat.Completions.New(ctx, params)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", contractx.ErrAdapter, lastErr)
}

func toProviderMessages(messages []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case contractx.RoleUser:
			out = append(out, openaisdk.UserMessage(msg.Content))
		case contractx.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openaisdk.AssistantMessage(msg.Content))
				continue
			}
			out = append(out, assistantToolCallMessage(msg))
		case contractx.RoleTool:
			out = append(out, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func assistantToolCallMessage(msg contractx.Message) openaisdk.ChatCompletionMessageParamUnion {
	calls := make([]openaisdk.ChatCompletionMessageToolCallUnionParam, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, openaisdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Tool,
					Arguments: tc.Arguments,
				},
			},
		})
	}

	assistant := openaisdk.ChatCompletionAssistantMessageParam{
		ToolCalls: calls,
	}
	if strings.TrimSpace(msg.Content) != "" {
		assistant.Content.OfString = openaisdk.String(msg.Content)
	}

	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toProviderTools(tools []contractx.ToolSchema) []openaisdk.ChatCompletionToolUnionParam {
	out := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openaisdk.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openaisdk.String(t.Description),
			Parameters:  toJSONSchema(t.Parameters),
		}))
	}
	return out
}

func toJSONSchema(params map[string]contractx.ParamSpec) shared.FunctionParameters {
	properties := make(map[string]any, len(params))
	var required []string

	for name, spec := range params {
		properties[name] = map[string]any{
			"type":        string(spec.Type),
			"description": spec.Description,
		}
		if spec.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	schema := shared.FunctionParameters{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
