package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"diagramgen/core"
	"diagramgen/llm"
)

// OpenAIProvider generates images through the OpenAI Images API, either
// against api.openai.com or an Azure OpenAI deployment.
//
// Thread Safety: OpenAIProvider is safe for concurrent use.
type OpenAIProvider struct {
	client     *openai.Client
	kind       ProviderKind
	deployment string
}

// NewOpenAIProvider creates a provider for the public OpenAI endpoint
// (or OPENAI_BASE_URL).
func NewOpenAIProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, core.ErrMissingAuth("openai")
	}

	client := llm.NewClient(llm.ClientConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		HTTPClient: core.GetHTTPClient(cfg, cfg.AITimeout),
	})
	return &OpenAIProvider{client: client, kind: ProviderOpenAI}, nil
}

// NewAzureProvider creates a provider for an Azure OpenAI image deployment.
func NewAzureProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, core.ErrMissingAuth("openai")
	}
	if cfg.AzureOpenAIEndpoint == "" || cfg.AzureOpenAIDeployment == "" {
		return nil, core.ErrMissingAuth("azure")
	}
	if !IsAzureEndpoint(cfg.AzureOpenAIEndpoint) {
		return nil, fmt.Errorf("imagegen: endpoint (%s) is not an Azure OpenAI endpoint", cfg.AzureOpenAIEndpoint)
	}

	client := llm.NewClient(llm.ClientConfig{
		APIKey:          cfg.OpenAIAPIKey,
		AzureEndpoint:   cfg.AzureOpenAIEndpoint,
		AzureAPIVersion: cfg.AzureOpenAIAPIVersion,
		AzureDeployment: cfg.AzureOpenAIDeployment,
		HTTPClient:      core.GetHTTPClient(cfg, cfg.AITimeout),
	})
	return &OpenAIProvider{client: client, kind: ProviderAzure, deployment: cfg.AzureOpenAIDeployment}, nil
}

// NewOpenAIProviderWithClient wraps an existing client; used by tests.
func NewOpenAIProviderWithClient(client *openai.Client, kind ProviderKind, deployment string) *OpenAIProvider {
	return &OpenAIProvider{client: client, kind: kind, deployment: deployment}
}

// Generate requests one image and decodes the base64 payload.
// DALL-E models need response_format=b64_json; gpt-image-1 always answers
// in base64 and rejects the parameter.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Image, error) {
	if req.Prompt == "" {
		return Image{}, core.NewValidationError("prompt", "cannot be empty")
	}

	model := req.Model
	if p.kind == ProviderAzure && p.deployment != "" {
		model = p.deployment
	}

	imgReq := openai.ImageRequest{
		Prompt:  req.Prompt,
		Model:   model,
		N:       1,
		Size:    openAISize(model, req.Size),
		Quality: openAIQuality(model, req.Quality),
	}
	if isDalleModel(model) {
		imgReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := p.client.CreateImage(ctx, imgReq)
	if err != nil {
		return Image{}, newGenerationError(p.kind, model, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Image{}, newGenerationError(p.kind, model, ErrNoImageData)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Image{}, newGenerationError(p.kind, model, fmt.Errorf("invalid base64 payload: %w", err))
	}
	return Image{Data: data, MIMEType: llm.SniffMIME(data)}, nil
}

// Kind reports whether this provider talks to OpenAI or Azure.
func (p *OpenAIProvider) Kind() ProviderKind {
	return p.kind
}

var _ Provider = (*OpenAIProvider)(nil)
