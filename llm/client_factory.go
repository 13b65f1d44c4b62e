// Package llm provides the chat-completion transport shared by the
// Planner, Stylist and Critic, plus the OpenAI client factory the image
// providers reuse.
package llm

import (
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ClientConfig holds what is needed to build an OpenAI-compatible client.
type ClientConfig struct {
	// APIKey is the OpenAI or Azure key.
	APIKey string

	// BaseURL overrides the OpenAI endpoint (OPENAI_BASE_URL). Ignored for Azure.
	BaseURL string

	// AzureEndpoint switches the client to Azure OpenAI routing when set.
	AzureEndpoint string

	// AzureAPIVersion is the api-version query parameter for Azure.
	AzureAPIVersion string

	// AzureDeployment replaces the model name in Azure request paths.
	AzureDeployment string

	// HTTPClient should carry TLS settings and timeouts.
	HTTPClient *http.Client
}

// NewClient builds an OpenAI client, or an Azure OpenAI client when
// AzureEndpoint is set.
func NewClient(cfg ClientConfig) *openai.Client {
	var clientConfig openai.ClientConfig
	if cfg.AzureEndpoint != "" {
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureEndpoint)
		if cfg.AzureAPIVersion != "" {
			clientConfig.APIVersion = cfg.AzureAPIVersion
		}
		if deployment := cfg.AzureDeployment; deployment != "" {
			clientConfig.AzureModelMapperFunc = func(string) string { return deployment }
		}
	} else {
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if base := ResolveBaseURL(cfg.BaseURL, ""); base != "" {
			clientConfig.BaseURL = strings.TrimRight(base, "/")
		}
	}

	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	return openai.NewClientWithConfig(clientConfig)
}

// ResolveBaseURL returns the primary URL if non-empty, otherwise the fallback.
func ResolveBaseURL(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
