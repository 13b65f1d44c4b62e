package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Bounds enforced on pipeline settings.
const (
	MinRefinementRounds = 1
	MaxRefinementRounds = 10
	MinReferences       = 1
	MaxReferences       = 20
)

// ImageSize is the pixel size requested from the image model.
type ImageSize string

const (
	ImageSizeSquare    ImageSize = "1024x1024"
	ImageSizePortrait  ImageSize = "1024x1536"
	ImageSizeLandscape ImageSize = "1536x1024"
)

// Valid reports whether s is one of the supported sizes.
func (s ImageSize) Valid() bool {
	switch s {
	case ImageSizeSquare, ImageSizePortrait, ImageSizeLandscape:
		return true
	}
	return false
}

// ImageQuality is the rendering quality requested from the image model.
type ImageQuality string

const (
	ImageQualityLow    ImageQuality = "low"
	ImageQualityMedium ImageQuality = "medium"
	ImageQualityHigh   ImageQuality = "high"
)

// Valid reports whether q is one of the supported qualities.
func (q ImageQuality) Valid() bool {
	switch q {
	case ImageQualityLow, ImageQualityMedium, ImageQualityHigh:
		return true
	}
	return false
}

// Config holds all configuration values. It is resolved once at startup
// and treated as read-only afterwards.
type Config struct {
	// API Keys
	OpenAIAPIKey string
	GoogleAPIKey string

	// Endpoints
	OpenAIBaseURL         string // Optional override for OpenAI-compatible endpoints
	AzureOpenAIEndpoint   string // Azure OpenAI endpoint (e.g., https://your-resource.openai.azure.com/)
	AzureOpenAIDeployment string // Azure deployment name for image generation
	AzureOpenAIAPIVersion string
	AllowSelfSignedCerts  bool

	// Models
	LLMModel     string
	ImageModel   string
	ImageSize    ImageSize
	ImageQuality ImageQuality

	// Pipeline
	MaxRefinementRounds int
	NumReferences       int

	// Paths (absolute after LoadConfig)
	ProjectRoot    string
	OutputDir      string
	ReferencesDir  string
	StyleGuidePath string
	PromptsPath    string

	// Logging
	LogLevel string
	LogFile  string

	// Provider calls
	AITimeout  time.Duration
	RunTimeout time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// HTTP server
	Host string
	Port int

	// Run history database used by serve; empty disables persistence
	HistoryDB            string
	HistoryRetentionDays int
}

// LoadConfig loads configuration from environment variables. Relative paths
// are resolved against PROJECT_ROOT (or the working directory).
func LoadConfig() (*Config, error) {
	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		return nil, ErrMissingAuth("openai")
	}

	root := os.Getenv("PROJECT_ROOT")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}

	cfg := &Config{
		OpenAIAPIKey: openAIKey,
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),

		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		AzureOpenAIEndpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIDeployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
		AzureOpenAIAPIVersion: GetEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
		AllowSelfSignedCerts:  ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),

		LLMModel:     GetEnvOrDefault("LLM_MODEL", "gpt-4o"),
		ImageModel:   GetEnvOrDefault("IMAGE_MODEL", "gpt-image-1"),
		ImageSize:    ImageSize(GetEnvOrDefault("IMAGE_SIZE", string(ImageSizeLandscape))),
		ImageQuality: ImageQuality(strings.ToLower(GetEnvOrDefault("IMAGE_QUALITY", string(ImageQualityHigh)))),

		MaxRefinementRounds: ParseIntEnv("MAX_REFINEMENT_ROUNDS", 3),
		NumReferences:       ParseIntEnv("NUM_REFERENCES", 5),

		ProjectRoot:    root,
		OutputDir:      resolvePath(root, GetEnvOrDefault("OUTPUT_DIR", "output")),
		ReferencesDir:  resolvePath(root, GetEnvOrDefault("REFERENCES_DIR", "references")),
		StyleGuidePath: resolvePath(root, GetEnvOrDefault("STYLE_GUIDE_PATH", "config/style_guide.md")),
		PromptsPath:    resolvePath(root, GetEnvOrDefault("PROMPTS_PATH", "config/prompts.yaml")),

		LogLevel: GetEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  GetEnvOrDefault("LOG_FILE", "diagramgen.log"),

		// Image models routinely take over a minute for high quality output
		AITimeout:  ParseDurationEnv("AI_TIMEOUT", 120),
		RunTimeout: ParseDurationEnv("RUN_TIMEOUT", 900),
		MaxRetries: ParseIntEnv("MAX_RETRIES", 0),
		RetryDelay: ParseDurationEnv("RETRY_DELAY", 1),

		Host: GetEnvOrDefault("HOST", "0.0.0.0"),
		Port: ParseIntEnv("PORT", 8000),

		HistoryRetentionDays: ParseIntEnv("HISTORY_RETENTION_DAYS", 30),
	}

	if db, ok := os.LookupEnv("HISTORY_DB"); ok {
		if db != "" {
			cfg.HistoryDB = resolvePath(root, db)
		}
	} else {
		cfg.HistoryDB = filepath.Join(cfg.OutputDir, "history.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum values and numeric bounds.
func (c *Config) Validate() error {
	if !c.ImageSize.Valid() {
		return ErrInvalidSetting("IMAGE_SIZE", string(c.ImageSize), "one of 1024x1024, 1024x1536, 1536x1024")
	}
	if !c.ImageQuality.Valid() {
		return ErrInvalidSetting("IMAGE_QUALITY", string(c.ImageQuality), "one of low, medium, high")
	}
	if c.MaxRefinementRounds < MinRefinementRounds || c.MaxRefinementRounds > MaxRefinementRounds {
		return ErrInvalidSetting("MAX_REFINEMENT_ROUNDS", fmt.Sprint(c.MaxRefinementRounds),
			fmt.Sprintf("between %d and %d", MinRefinementRounds, MaxRefinementRounds))
	}
	if c.NumReferences < MinReferences || c.NumReferences > MaxReferences {
		return ErrInvalidSetting("NUM_REFERENCES", fmt.Sprint(c.NumReferences),
			fmt.Sprintf("between %d and %d", MinReferences, MaxReferences))
	}
	if c.HistoryRetentionDays < 0 {
		return ErrInvalidSetting("HISTORY_RETENTION_DAYS", fmt.Sprint(c.HistoryRetentionDays), "zero (keep forever) or more")
	}
	if c.MaxRetries < 0 {
		return ErrInvalidSetting("MAX_RETRIES", fmt.Sprint(c.MaxRetries), "zero or more")
	}
	return nil
}

// RetryPolicy builds the provider retry policy from MAX_RETRIES / RETRY_DELAY.
// MAX_RETRIES=0 means a single attempt.
func (c *Config) RetryPolicy() *RetryPolicy {
	cfg := DefaultRetryConfig
	cfg.MaxAttempts = c.MaxRetries + 1
	if c.RetryDelay > 0 {
		cfg.InitialDelay = c.RetryDelay
	}
	return NewRetryPolicy(cfg, nil)
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on AllowSelfSignedCerts.
// This should be used for all HTTP requests to external APIs to ensure TLS configuration is respected.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg != nil && cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
