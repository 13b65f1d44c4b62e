package imagegen

import (
	"sort"
	"strings"
)

// Models maps every known image model to the provider that serves it.
var Models = map[string]ProviderKind{
	"gpt-image-1": ProviderOpenAI,
	"dall-e-3":    ProviderOpenAI,
	"dall-e-2":    ProviderOpenAI,

	"gemini-2.0-flash-preview-image-generation": ProviderGoogle,
	"gemini-2.5-flash-image":                    ProviderGoogle,
	"imagen-3.0-generate-002":                   ProviderGoogle,
}

// ResolveProvider picks the provider for model. Models outside the registry
// are treated as Azure deployment names when an Azure endpoint is configured
// and as OpenAI-compatible models otherwise.
func ResolveProvider(model string, azureConfigured bool) ProviderKind {
	if kind, ok := Models[model]; ok {
		if kind == ProviderOpenAI && azureConfigured {
			return ProviderAzure
		}
		return kind
	}
	if azureConfigured {
		return ProviderAzure
	}
	if strings.HasPrefix(model, "gemini-") || strings.HasPrefix(model, "imagen-") {
		return ProviderGoogle
	}
	return ProviderOpenAI
}

// KnownModels returns the registry keys in sorted order.
func KnownModels() []string {
	names := make([]string, 0, len(Models))
	for name := range Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
