package imagegen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"diagramgen/core"
)

// ProviderFactory builds a provider on first use.
type ProviderFactory func(ctx context.Context) (Provider, error)

// Router resolves the configured image model to a provider on each call.
// Providers are built lazily and cached per kind, so a missing Google key
// only matters when a Google model is actually selected.
//
// Thread Safety: Router is safe for concurrent use.
type Router struct {
	model   string
	size    core.ImageSize
	quality core.ImageQuality
	azure   bool
	retry   *core.RetryPolicy
	logger  *zap.Logger

	mu        sync.Mutex
	factories map[ProviderKind]ProviderFactory
	providers map[ProviderKind]Provider
}

// NewRouter creates a router over the OpenAI, Azure and Google providers
// configured in cfg.
func NewRouter(cfg *core.Config, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		model:     cfg.ImageModel,
		size:      cfg.ImageSize,
		quality:   cfg.ImageQuality,
		azure:     cfg.AzureOpenAIEndpoint != "",
		retry:     cfg.RetryPolicy(),
		logger:    logger,
		providers: make(map[ProviderKind]Provider),
		factories: make(map[ProviderKind]ProviderFactory),
	}

	for _, kind := range []ProviderKind{ProviderOpenAI, ProviderAzure, ProviderGoogle} {
		kind := kind
		r.factories[kind] = func(ctx context.Context) (Provider, error) {
			return r.newProvider(ctx, kind, cfg)
		}
	}
	return r
}

// newProvider is the exhaustive constructor switch over ProviderKind.
func (r *Router) newProvider(ctx context.Context, kind ProviderKind, cfg *core.Config) (Provider, error) {
	switch kind {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderAzure:
		return NewAzureProvider(cfg)
	case ProviderGoogle:
		return NewGoogleProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("imagegen: unsupported provider %s", kind)
	}
}

// WithProvider installs a provider for kind, replacing the default factory.
func (r *Router) WithProvider(kind ProviderKind, p Provider) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[kind] = p
	return r
}

// Model returns the configured image model.
func (r *Router) Model() string {
	return r.model
}

// Kind returns the provider the configured model resolves to.
func (r *Router) Kind() ProviderKind {
	return ResolveProvider(r.model, r.azure)
}

func (r *Router) providerFor(ctx context.Context, kind ProviderKind) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[kind]; ok {
		return p, nil
	}
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("imagegen: no factory for provider %s", kind)
	}
	p, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	r.providers[kind] = p
	return p, nil
}

// Generate renders prompt with the configured model, size and quality.
func (r *Router) Generate(ctx context.Context, prompt string) (Image, error) {
	kind := r.Kind()
	provider, err := r.providerFor(ctx, kind)
	if err != nil {
		return Image{}, err
	}

	req := Request{Prompt: prompt, Model: r.model, Size: r.size, Quality: r.quality}
	r.logger.Info("generating image",
		zap.String("model", r.model),
		zap.String("provider", kind.String()),
		zap.String("size", string(r.size)),
		zap.String("quality", string(r.quality)))

	start := time.Now()
	var img Image
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		img, genErr = provider.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		return Image{}, err
	}

	r.logger.Info("generated image",
		zap.Int("bytes", len(img.Data)),
		zap.String("mime_type", img.MIMEType),
		zap.Duration("elapsed", time.Since(start)))
	return img, nil
}

// CheckCredentials reports whether the configured model's provider can be
// built. Used by startup validation.
func (r *Router) CheckCredentials(ctx context.Context) error {
	_, err := r.providerFor(ctx, r.Kind())
	return err
}
