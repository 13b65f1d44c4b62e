package imagegen

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"diagramgen/core"
	"diagramgen/llm"
)

// GoogleProvider generates images with Gemini image models through
// GenerateContent, or with Imagen models through GenerateImages.
type GoogleProvider struct {
	client *genai.Client
}

// NewGoogleProvider creates a Gemini API client from GOOGLE_API_KEY.
func NewGoogleProvider(ctx context.Context, cfg *core.Config) (*GoogleProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if cfg.GoogleAPIKey == "" {
		return nil, core.ErrMissingAuth("google")
	}
	return newGoogleProvider(ctx, cfg.GoogleAPIKey, "", core.GetHTTPClient(cfg, cfg.AITimeout))
}

func newGoogleProvider(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*GoogleProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to create Google client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

// Generate returns the first inline image in the response.
func (p *GoogleProvider) Generate(ctx context.Context, req Request) (Image, error) {
	if req.Prompt == "" {
		return Image{}, core.NewValidationError("prompt", "cannot be empty")
	}
	if strings.HasPrefix(req.Model, "imagen-") {
		return p.generateImagen(ctx, req)
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return Image{}, newGenerationError(ProviderGoogle, req.Model, err)
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return Image{Data: part.InlineData.Data, MIMEType: mimeOrSniff(part.InlineData.MIMEType, part.InlineData.Data)}, nil
			}
		}
		break
	}
	return Image{}, newGenerationError(ProviderGoogle, req.Model, ErrNoImageData)
}

func (p *GoogleProvider) generateImagen(ctx context.Context, req Request) (Image, error) {
	resp, err := p.client.Models.GenerateImages(ctx, req.Model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    imagenAspectRatio(req.Size),
	})
	if err != nil {
		return Image{}, newGenerationError(ProviderGoogle, req.Model, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return Image{}, newGenerationError(ProviderGoogle, req.Model, ErrNoImageData)
	}

	img := resp.GeneratedImages[0].Image
	return Image{Data: img.ImageBytes, MIMEType: mimeOrSniff(img.MIMEType, img.ImageBytes)}, nil
}

func mimeOrSniff(declared string, data []byte) string {
	if declared != "" {
		return declared
	}
	return llm.SniffMIME(data)
}

var _ Provider = (*GoogleProvider)(nil)
