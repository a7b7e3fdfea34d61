package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func annotationTool() Tool {
	return FunctionTool("SegmentAnnotation", "mark a segment", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"segment_type":  map[string]any{"type": "string"},
			"segment_index": map[string]any{"type": "integer"},
		},
	})
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestCompleteToolCallsReturnsEveryCall(t *testing.T) {
	var received chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(t, w, map[string]any{
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"content": "",
				"tool_calls": []any{
					map[string]any{"type": "function", "id": "call_1", "function": map[string]any{
						"name": "SegmentAnnotation", "arguments": `{"segment_type":"content","segment_index":0}`,
					}},
					map[string]any{"type": "function", "id": "call_2", "function": map[string]any{
						"name": "SegmentAnnotation", "arguments": `{"segment_type":"ad","segment_index":3}`,
					}},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "configured"})
	completion, err := client.CompleteToolCalls(context.Background(), ToolRequest{
		Model:        "override-model",
		SystemPrompt: "system",
		UserPrompt:   "user",
		Tools:        []Tool{annotationTool()},
	})
	if err != nil {
		t.Fatalf("CompleteToolCalls returned error: %v", err)
	}
	if received.Model != "override-model" {
		t.Fatalf("expected model override, got %q", received.Model)
	}
	if len(received.Tools) != 1 || received.Tools[0].Function.Name != "SegmentAnnotation" {
		t.Fatalf("expected tool declaration to be sent, got %+v", received.Tools)
	}
	if received.ResponseFormat != nil {
		t.Fatalf("expected no response_format with tools, got %v", received.ResponseFormat)
	}
	if len(completion.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(completion.ToolCalls))
	}
	if completion.ToolCalls[1].ID != "call_2" || !strings.Contains(completion.ToolCalls[1].Arguments, `"ad"`) {
		t.Fatalf("unexpected second call: %+v", completion.ToolCalls[1])
	}
	if completion.FinishReason != "tool_calls" {
		t.Fatalf("unexpected finish reason %q", completion.FinishReason)
	}

	reparsed, err := ParseCompletion(completion.Raw)
	if err != nil {
		t.Fatalf("ParseCompletion returned error: %v", err)
	}
	if len(reparsed.ToolCalls) != 2 {
		t.Fatalf("expected raw body to round-trip tool calls, got %d", len(reparsed.ToolCalls))
	}
}

func TestCompleteToolCallsLegacyFunctionCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{
			"message": map[string]any{
				"function_call": map[string]any{"name": "SegmentAnnotation", "arguments": `{"segment_type":"ad","segment_index":1}`},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	completion, err := client.CompleteToolCalls(context.Background(), ToolRequest{SystemPrompt: "s", UserPrompt: "u", Tools: []Tool{annotationTool()}})
	if err != nil {
		t.Fatalf("CompleteToolCalls returned error: %v", err)
	}
	if len(completion.ToolCalls) != 1 || completion.ToolCalls[0].Name != "SegmentAnnotation" {
		t.Fatalf("unexpected calls: %+v", completion.ToolCalls)
	}
}

func TestCompleteToolCallsValidatesInput(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo"})
	tests := []struct {
		name string
		req  ToolRequest
	}{
		{"system", ToolRequest{UserPrompt: "u", Tools: []Tool{annotationTool()}}},
		{"user", ToolRequest{SystemPrompt: "s", Tools: []Tool{annotationTool()}}},
		{"tools", ToolRequest{SystemPrompt: "s", UserPrompt: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.CompleteToolCalls(context.Background(), tt.req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	noModel := NewClient(Config{APIKey: "test"})
	if _, err := noModel.CompleteToolCalls(context.Background(), ToolRequest{SystemPrompt: "s", UserPrompt: "u", Tools: []Tool{annotationTool()}}); err == nil {
		t.Fatal("expected missing model error")
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientDeltaAndLegacyText(t *testing.T) {
	tests := []struct {
		name   string
		choice map[string]any
	}{
		{"delta", map[string]any{"delta": map[string]any{"content": `{"annotations":[]}`}}},
		{"text", map[string]any{"finish_reason": "stop", "text": `{"annotations":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, tt.choice)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
			content, err := client.CompleteJSON(context.Background(), "system", "user")
			if err != nil {
				t.Fatalf("CompleteJSON returned error: %v", err)
			}
			if content != `{"annotations":[]}` {
				t.Fatalf("unexpected content %q", content)
			}
		})
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = `{"ok":true}`
		}
		writeCompletion(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientDoesNotRetryOnClientError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}, WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{
				map[string]any{"id": "gpt-4o", "created": 100},
				map[string]any{"id": "whisper-1", "created": 50},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test"})
	models, err := client.ListModels(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("ListModels returned error: %v", err)
	}
	if len(models) != 2 || models[0].ID != "gpt-4o" || models[0].Created != 100 {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestDecodeLLMJSONStripsProse(t *testing.T) {
	var target struct {
		Annotations []int `json:"annotations"`
	}
	if err := DecodeLLMJSON("Here you go: {\"annotations\":[1,2]} thanks", &target); err != nil {
		t.Fatalf("DecodeLLMJSON returned error: %v", err)
	}
	if len(target.Annotations) != 2 {
		t.Fatalf("unexpected decode: %+v", target)
	}
}
