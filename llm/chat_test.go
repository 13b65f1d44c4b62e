package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap/zaptest"

	"diagramgen/core"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

// fakeChatServer answers /chat/completions with content and records the last request body.
func fakeChatServer(t *testing.T, status int, content string, lastBody *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if lastBody != nil {
			json.NewDecoder(r.Body).Decode(lastBody)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46},
		})
	}))
}

func newTestClient(t *testing.T, url string, retry *core.RetryPolicy) *OpenAIChatClient {
	t.Helper()
	client := NewClient(ClientConfig{APIKey: "test-key", BaseURL: url})
	return NewOpenAIChatClientWithClient(client, "gpt-4o", retry, zaptest.NewLogger(t))
}

func TestComplete_TextOnly(t *testing.T) {
	var body map[string]interface{}
	server := fakeChatServer(t, http.StatusOK, "  a description  \n", &body)
	defer server.Close()

	got, err := newTestClient(t, server.URL, nil).Complete(context.Background(), Request{
		Text:        "describe",
		Temperature: 0.3,
		MaxTokens:   3000,
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "a description" {
		t.Errorf("Complete() = %q, want trimmed text", got)
	}

	if body["model"] != "gpt-4o" {
		t.Errorf("model = %v, want gpt-4o", body["model"])
	}
	if body["max_tokens"] != float64(3000) {
		t.Errorf("max_tokens = %v, want 3000", body["max_tokens"])
	}
	msg := body["messages"].([]interface{})[0].(map[string]interface{})
	if msg["content"] != "describe" {
		t.Errorf("content = %v, want plain text", msg["content"])
	}
}

func TestComplete_WithImages(t *testing.T) {
	var body map[string]interface{}
	server := fakeChatServer(t, http.StatusOK, "APPROVED", &body)
	defer server.Close()

	_, err := newTestClient(t, server.URL, nil).Complete(context.Background(), Request{
		Text:   "review",
		Images: []ImagePart{{Data: pngHeader, Detail: DetailHigh}, {Data: pngHeader}},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	msg := body["messages"].([]interface{})[0].(map[string]interface{})
	parts := msg["content"].([]interface{})
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want text + 2 images", len(parts))
	}
	if parts[0].(map[string]interface{})["type"] != "text" {
		t.Errorf("first part should be text: %v", parts[0])
	}

	wantDetail := []string{"high", "low"}
	for i, part := range parts[1:] {
		img := part.(map[string]interface{})["image_url"].(map[string]interface{})
		if !strings.HasPrefix(img["url"].(string), "data:image/png;base64,") {
			t.Errorf("part %d url = %.40v", i+1, img["url"])
		}
		if img["detail"] != wantDetail[i] {
			t.Errorf("part %d detail = %v, want %s", i+1, img["detail"], wantDetail[i])
		}
	}
}

func TestComplete_BlankContentIsProviderError(t *testing.T) {
	for _, content := range []string{"", "  \n\t "} {
		server := fakeChatServer(t, http.StatusOK, content, nil)
		_, err := newTestClient(t, server.URL, nil).Complete(context.Background(), Request{Text: "x"})
		server.Close()

		if !errors.Is(err, ErrCompletion) || !core.IsProviderError(err) {
			t.Errorf("content %q: error = %v, want ErrCompletion", content, err)
		}
		if core.IsValidationError(err) {
			t.Errorf("content %q: error = %v must not be a validation error", content, err)
		}
	}
}

func TestComplete_ProviderError(t *testing.T) {
	server := fakeChatServer(t, http.StatusBadRequest, "", nil)
	defer server.Close()

	_, err := newTestClient(t, server.URL, nil).Complete(context.Background(), Request{Text: "x"})
	if !errors.Is(err, ErrCompletion) {
		t.Errorf("error = %v, want ErrCompletion", err)
	}
	if !core.IsProviderError(err) {
		t.Errorf("error should be a provider error: %v", err)
	}
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"503 overloaded"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	retry := core.NewRetryPolicy(core.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 1}, nil)
	got, err := newTestClient(t, server.URL, retry).Complete(context.Background(), Request{Text: "x"})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "ok" || atomic.LoadInt32(&calls) != 2 {
		t.Errorf("got %q after %d calls, want ok after 2", got, calls)
	}
}

func TestNewOpenAIChatClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIChatClient(&core.Config{LLMModel: "gpt-4o"}, nil)
	if _, ok := core.IsConfigError(err); !ok {
		t.Errorf("error = %v, want ConfigError", err)
	}
}

func TestBuildUserMessage_TextOnly(t *testing.T) {
	msg := BuildUserMessage(Request{Text: "hi"})
	if msg.Role != openai.ChatMessageRoleUser || msg.Content != "hi" || msg.MultiContent != nil {
		t.Errorf("BuildUserMessage() = %+v", msg)
	}
}

func TestDataURI(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", pngHeader, "data:image/png;base64,"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F'}, "data:image/jpeg;base64,"},
		{"unknown defaults to png", []byte("plain text"), "data:image/png;base64,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DataURI(tt.data); !strings.HasPrefix(got, tt.want) {
				t.Errorf("DataURI() = %.40s, want prefix %s", got, tt.want)
			}
		})
	}
}

func TestNewClient_Azure(t *testing.T) {
	var path, query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, query = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:          "k",
		AzureEndpoint:   server.URL,
		AzureAPIVersion: "2024-02-15-preview",
		AzureDeployment: "diagram-chat",
	})
	chat := NewOpenAIChatClientWithClient(client, "gpt-4o", nil, nil)
	if _, err := chat.Complete(context.Background(), Request{Text: "x"}); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if path != "/openai/deployments/diagram-chat/chat/completions" {
		t.Errorf("path = %q", path)
	}
	if query != "api-version=2024-02-15-preview" {
		t.Errorf("query = %q", query)
	}
}
