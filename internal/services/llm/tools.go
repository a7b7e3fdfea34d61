package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Tool declares a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes the callable function and its JSON schema.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict,omitempty"`
}

// FunctionTool builds a function tool declaration.
func FunctionTool(name, description string, parameters map[string]any) Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ToolCall is one function invocation returned by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Completion is the decoded result of a chat completion.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	// Raw holds the response body exactly as received so callers can cache it.
	Raw []byte
}

// ToolRequest describes a tool-enabled chat completion.
type ToolRequest struct {
	// Model overrides the client's configured model when set.
	Model        string
	SystemPrompt string
	UserPrompt   string
	Tools        []Tool
	// ToolChoice is "auto", "required", or empty for the provider default.
	ToolChoice string
}

// CompleteToolCalls issues a chat completion with function tools declared and
// returns every tool call the model produced along with any text content.
func (c *Client) CompleteToolCalls(ctx context.Context, req ToolRequest) (Completion, error) {
	system := strings.TrimSpace(req.SystemPrompt)
	user := strings.TrimSpace(req.UserPrompt)
	if system == "" {
		return Completion{}, errors.New("llm tools: system prompt required")
	}
	if user == "" {
		return Completion{}, errors.New("llm tools: user prompt required")
	}
	if len(req.Tools) == 0 {
		return Completion{}, errors.New("llm tools: at least one tool required")
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return Completion{}, errors.New("llm tools: api key required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}
	if model == "" {
		return Completion{}, errors.New("llm tools: model required")
	}
	payload := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
		Tools:       req.Tools,
	}
	if choice := strings.TrimSpace(req.ToolChoice); choice != "" {
		payload.ToolChoice = choice
	}
	completion, body, err := c.completionWithRetry(ctx, payload, "llm tools")
	if err != nil {
		return Completion{}, err
	}
	return buildCompletion(completion, body), nil
}

// ParseCompletion decodes a raw chat completion response body, such as one
// previously stored from Completion.Raw.
func ParseCompletion(raw []byte) (Completion, error) {
	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return Completion{}, fmt.Errorf("llm parse: decode completion: %w", err)
	}
	if completion.Error != nil {
		return Completion{}, fmt.Errorf("llm parse: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return buildCompletion(completion, raw), nil
}

func buildCompletion(completion chatCompletionResponse, body []byte) Completion {
	out := Completion{Raw: body}
	for _, choice := range completion.Choices {
		if out.FinishReason == "" {
			out.FinishReason = strings.TrimSpace(choice.FinishReason)
		}
		if out.Content == "" {
			out.Content = firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text)
		}
		for _, calls := range [][]toolCall{choice.Message.ToolCalls, choice.Delta.ToolCalls} {
			for _, call := range calls {
				out.ToolCalls = append(out.ToolCalls, ToolCall{
					ID:        call.ID,
					Name:      strings.TrimSpace(call.Function.Name),
					Arguments: strings.TrimSpace(call.Function.Arguments),
				})
			}
		}
		for _, fc := range []*functionCall{choice.Message.FunctionCall, choice.Delta.FunctionCall} {
			if fc != nil && strings.TrimSpace(fc.Arguments) != "" {
				out.ToolCalls = append(out.ToolCalls, ToolCall{
					Name:      strings.TrimSpace(fc.Name),
					Arguments: strings.TrimSpace(fc.Arguments),
				})
			}
		}
	}
	return out
}

// Model is one entry from the provider's model listing.
type Model struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ListModels fetches the models visible to the configured API key.
func (c *Client) ListModels(ctx context.Context, modelsURL string) ([]Model, error) {
	modelsURL = strings.TrimSpace(modelsURL)
	if modelsURL == "" {
		return nil, errors.New("llm models: models url required")
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("llm models: api key required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("llm models: new request: %w", err)
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm models: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm models: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var listing struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("llm models: decode response: %w", err)
	}
	return listing.Data, nil
}
