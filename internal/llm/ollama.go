package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
)

const defaultOllamaModel = "llama3.1"

// OllamaClient talks to a local Ollama server through /api/chat.
type OllamaClient struct {
	httpClient *resty.Client
	model      string
}

// NewOllamaClient creates a new Ollama client. The caller bounds each call with its context.
func NewOllamaClient(baseURL, modelName string) *OllamaClient {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = defaultOllamaModel
	}

	return &OllamaClient{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(2 * time.Minute),
		model: modelName,
	}
}

// Name returns the provider name.
func (c *OllamaClient) Name() string {
	return "ollama"
}

// Models returns available models.
func (c *OllamaClient) Models() []string {
	return []string{c.model}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name string `json:"name"`
		// Arguments is an object in Ollama, but some builds send a JSON string.
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Complete sends a completion request.
func (c *OllamaClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	modelName := req.Model
	if modelName == "" {
		modelName = c.model
	}

	body := ollamaChatRequest{
		Model:    modelName,
		Messages: toOllamaMessages(req.System, req.Messages),
		Tools:    toOllamaTools(req.Tools),
		Stream:   false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	var chatResp ollamaChatResponse
	httpResp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&chatResp).
		Post("/api/chat")
	if err != nil {
		return nil, providerError(c.Name(), fmt.Errorf("ollama request failed: %w", err))
	}
	if httpResp.IsError() {
		return nil, providerError(c.Name(), fmt.Errorf("ollama error (%d): %s", httpResp.StatusCode(), httpResp.String()))
	}

	out := &CompletionResponse{
		Content:    chatResp.Message.Content,
		Model:      chatResp.Model,
		TokensIn:   chatResp.PromptEvalCount,
		TokensOut:  chatResp.EvalCount,
		StopReason: chatResp.DoneReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	for _, tc := range chatResp.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: ollamaArguments(tc.Function.Arguments),
		})
	}
	return out, nil
}

// ollamaArguments unwraps arguments sent as a JSON encoded string.
func ollamaArguments(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return normalizeArguments(s)
	}
	return raw
}

func toOllamaMessages(system string, msgs []ChatMessage) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, ollamaMessage{Role: "system", Content: system})
	}
	for _, msg := range msgs {
		m := ollamaMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == model.RoleTool {
			m.ToolName = msg.ToolName
		}
		for _, tc := range msg.ToolCalls {
			var call ollamaToolCall
			call.ID = tc.ID
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			m.ToolCalls = append(m.ToolCalls, call)
		}
		out = append(out, m)
	}
	return out
}

func toOllamaTools(defs []ToolDefinition) []ollamaTool {
	tools := make([]ollamaTool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools
}
