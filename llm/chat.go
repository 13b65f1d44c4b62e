package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/logging"
)

// ErrCompletion marks a failed chat completion. It is a provider error.
var ErrCompletion = fmt.Errorf("chat completion failed: %w", core.ErrProvider)

// Detail is the vision fidelity requested for an attached image.
type Detail string

const (
	DetailLow  Detail = Detail(openai.ImageURLDetailLow)
	DetailHigh Detail = Detail(openai.ImageURLDetailHigh)
)

// ImagePart is an image attached to a chat request.
type ImagePart struct {
	Data   []byte
	Detail Detail
}

// Request is a single-turn user message: text first, then images in order.
type Request struct {
	Text        string
	Images      []ImagePart
	Temperature float32
	MaxTokens   int
}

// ChatClient sends one user message and returns the assistant's text.
type ChatClient interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIChatClient implements ChatClient with go-openai.
//
// Thread Safety: safe for concurrent use.
type OpenAIChatClient struct {
	client *openai.Client
	model  string
	retry  *core.RetryPolicy
	logger *zap.Logger
}

// NewOpenAIChatClient creates a chat client for cfg.LLMModel using the
// OpenAI endpoint (or OPENAI_BASE_URL) and the configured retry policy.
func NewOpenAIChatClient(cfg *core.Config, logger *zap.Logger) (*OpenAIChatClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm: config cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, core.ErrMissingAuth("openai")
	}

	client := NewClient(ClientConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		HTTPClient: core.GetHTTPClient(cfg, cfg.AITimeout),
	})
	return NewOpenAIChatClientWithClient(client, cfg.LLMModel, cfg.RetryPolicy(), logger), nil
}

// NewOpenAIChatClientWithClient wraps an existing client. A nil retry policy
// makes a single attempt.
func NewOpenAIChatClientWithClient(client *openai.Client, model string, retry *core.RetryPolicy, logger *zap.Logger) *OpenAIChatClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIChatClient{client: client, model: model, retry: retry, logger: logger}
}

// Model returns the chat model name.
func (c *OpenAIChatClient) Model() string {
	return c.model
}

// Complete sends req as one multimodal user message.
func (c *OpenAIChatClient) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessage{BuildUserMessage(req)},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("llm: %w: %w", ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: %w: %w", ErrCompletion, errors.New("response contained no choices"))
	}

	c.logger.Debug("chat completion finished",
		append(logging.UsageFields(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
			zap.Int("images", len(req.Images)),
			zap.Duration("elapsed", time.Since(start)))...)

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm: %w: empty response", ErrCompletion)
	}
	return content, nil
}

// BuildUserMessage converts req to a chat message. Text-only requests use
// plain Content; requests with images use MultiContent.
func BuildUserMessage(req Request) openai.ChatCompletionMessage {
	if len(req.Images) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Text}
	}

	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Text})
	for _, img := range req.Images {
		detail := img.Detail
		if detail == "" {
			detail = DetailLow
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    DataURI(img.Data),
				Detail: openai.ImageURLDetail(detail),
			},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

// DataURI encodes data as a base64 data URI with a sniffed MIME type.
func DataURI(data []byte) string {
	return "data:" + SniffMIME(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// SniffMIME returns the image MIME type of data, defaulting to image/png
// when the content is not recognised as an image.
func SniffMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "image/png"
	}
	return mime
}

var _ ChatClient = (*OpenAIChatClient)(nil)
