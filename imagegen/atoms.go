package imagegen

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"diagramgen/core"
)

// IsAzureEndpoint checks if the given endpoint URL is an Azure OpenAI endpoint.
//
// Example:
//
//	IsAzureEndpoint("https://myresource.openai.azure.com")        // true
//	IsAzureEndpoint("https://api.openai.com")                     // false
func IsAzureEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "openai.azure.com") ||
		strings.Contains(lower, "cognitiveservices.azure.com")
}

// isDalleModel reports whether model (or an Azure deployment name) is a DALL-E model.
func isDalleModel(model string) bool {
	lower := strings.ToLower(model)
	return strings.Contains(lower, "dall-e") || strings.Contains(lower, "dalle")
}

// openAISize maps the configured size to one the model accepts.
// DALL-E 3 only knows 1792-wide landscapes and portraits; DALL-E 2 only squares.
func openAISize(model string, size core.ImageSize) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "dall-e-2") || strings.Contains(lower, "dalle2"):
		return openai.CreateImageSize1024x1024
	case isDalleModel(model):
		switch size {
		case core.ImageSizeLandscape:
			return openai.CreateImageSize1792x1024
		case core.ImageSizePortrait:
			return openai.CreateImageSize1024x1792
		default:
			return openai.CreateImageSize1024x1024
		}
	default:
		return string(size)
	}
}

// openAIQuality maps low/medium/high to the quality values each model accepts.
func openAIQuality(model string, quality core.ImageQuality) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "dall-e-2") || strings.Contains(lower, "dalle2"):
		return ""
	case isDalleModel(model):
		if quality == core.ImageQualityHigh {
			return openai.CreateImageQualityHD
		}
		return openai.CreateImageQualityStandard
	default:
		return string(quality)
	}
}

// imagenAspectRatio maps the configured size to the nearest Imagen aspect ratio.
func imagenAspectRatio(size core.ImageSize) string {
	switch size {
	case core.ImageSizeLandscape:
		return "4:3"
	case core.ImageSizePortrait:
		return "3:4"
	default:
		return "1:1"
	}
}
