// Package config loads application settings from the environment, optional
// .env files and an optional YAML settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"meal-planner-agent/internal/scoring"
	"meal-planner-agent/internal/shared"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderGroq      = "groq"
)

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGemini:    "gemini-1.5-flash",
	ProviderGroq:      "llama-3.3-70b-versatile",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string { return defaultModels[provider] }

// Planner holds the improvement loop settings as configured. They are
// turned into planner settings by the app package.
type Planner struct {
	QualityThreshold float64            `yaml:"quality_threshold"`
	MaxIterations    int                `yaml:"max_iterations"`
	CriterionWeights map[string]float64 `yaml:"criterion_weights"`
	// SessionRetries is how many times a whole session is restarted after
	// the model returns an unreadable reply.
	SessionRetries int `yaml:"session_retries"`
}

// Weights converts the configured weights into scoring weights.
func (p Planner) Weights() (scoring.Weights, error) {
	return scoring.WeightsFromNames(p.CriterionWeights)
}

// LLM holds the model settings shared by every provider.
type LLM struct {
	Provider          string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerMinute int
	// CachePath enables the on-disk response cache when set.
	CachePath string

	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GroqAPIKey      string
	// GroqBaseURL overrides the Groq endpoint; tests point it at a fake.
	GroqBaseURL string
}

// APIKey returns the key of the selected provider.
func (l LLM) APIKey() string {
	switch l.Provider {
	case ProviderAnthropic:
		return l.AnthropicAPIKey
	case ProviderOpenAI:
		return l.OpenAIAPIKey
	case ProviderGemini:
		return l.GeminiAPIKey
	case ProviderGroq:
		return l.GroqAPIKey
	}
	return ""
}

// Config holds the configuration for the application.
type Config struct {
	LLM     LLM
	Planner Planner

	GhostURL      string
	GhostAdminKey string

	// Telegram Config
	TelegramBotToken    string
	TelegramWebhookURL  string
	TelegramAllowUserID int64

	Port string
}

// Default returns the configuration used before the environment and the
// settings file are applied.
func Default() *Config {
	weights := make(map[string]float64)
	for c, w := range scoring.DefaultWeights() {
		weights[string(c)] = w
	}
	return &Config{
		LLM: LLM{
			Provider:    ProviderAnthropic,
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Planner: Planner{
			QualityThreshold: 85.0,
			MaxIterations:    3,
			CriterionWeights: weights,
		},
		Port: "8080",
	}
}

// fileSettings mirrors the YAML settings file. Pointers tell unset fields
// apart from zero values.
type fileSettings struct {
	Planner struct {
		QualityThreshold *float64           `yaml:"quality_threshold"`
		MaxIterations    *int               `yaml:"max_iterations"`
		CriterionWeights map[string]float64 `yaml:"criterion_weights"`
		SessionRetries   *int               `yaml:"session_retries"`
	} `yaml:"planner"`
	LLM struct {
		Provider          *string  `yaml:"provider"`
		Model             *string  `yaml:"model"`
		Temperature       *float64 `yaml:"temperature"`
		MaxTokens         *int     `yaml:"max_tokens"`
		RequestsPerMinute *int     `yaml:"requests_per_minute"`
	} `yaml:"llm"`
}

// Load builds the configuration. envFiles are loaded with godotenv first
// (missing files are skipped, variables already set win), then the YAML
// file at settingsPath is applied if given, and finally environment
// variables override both. The selected provider's API key is required.
func Load(envFiles []string, settingsPath string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	if settingsPath != "" {
		if err := cfg.applyFile(settingsPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewFromEnv loads the configuration from the environment alone.
func NewFromEnv() (*Config, error) {
	return Load(nil, "")
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var fsets fileSettings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fsets); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	p := fsets.Planner
	if p.QualityThreshold != nil {
		c.Planner.QualityThreshold = *p.QualityThreshold
	}
	if p.MaxIterations != nil {
		c.Planner.MaxIterations = *p.MaxIterations
	}
	if p.CriterionWeights != nil {
		c.Planner.CriterionWeights = p.CriterionWeights
	}
	if p.SessionRetries != nil {
		c.Planner.SessionRetries = *p.SessionRetries
	}

	l := fsets.LLM
	if l.Provider != nil {
		c.LLM.Provider = *l.Provider
	}
	if l.Model != nil {
		c.LLM.Model = *l.Model
	}
	if l.Temperature != nil {
		c.LLM.Temperature = *l.Temperature
	}
	if l.MaxTokens != nil {
		c.LLM.MaxTokens = *l.MaxTokens
	}
	if l.RequestsPerMinute != nil {
		c.LLM.RequestsPerMinute = *l.RequestsPerMinute
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", v, err)
		}
		c.LLM.Temperature = f
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_MAX_TOKENS %q: %w", v, err)
		}
		c.LLM.MaxTokens = n
	}
	if v := os.Getenv("LLM_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_REQUESTS_PER_MINUTE %q: %w", v, err)
		}
		c.LLM.RequestsPerMinute = n
	}
	c.LLM.CachePath = os.Getenv("LLM_CACHE_PATH")

	c.LLM.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	c.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.LLM.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.LLM.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.LLM.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	c.LLM.GroqBaseURL = os.Getenv("GROQ_BASE_URL")

	if key, ok := providerKeys[c.LLM.Provider]; ok && c.LLM.APIKey() == "" {
		return fmt.Errorf("%s environment variable not set", key)
	}

	c.GhostURL = os.Getenv("GHOST_API_URL")
	c.GhostAdminKey = os.Getenv("GHOST_ADMIN_API_KEY")

	// Telegram Config (Optional for CLI, required for Bot)
	c.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.TelegramWebhookURL = os.Getenv("TELEGRAM_WEBHOOK_URL")
	if v := os.Getenv("TELEGRAM_ALLOW_USER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_ALLOW_USER_ID %q: %w", v, err)
		}
		c.TelegramAllowUserID = id
	}

	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	return nil
}

var providerKeys = map[string]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
	ProviderGroq:      "GROQ_API_KEY",
}

// Validate checks every setting against its allowed domain.
func (c *Config) Validate() error {
	if _, ok := providerKeys[c.LLM.Provider]; !ok {
		return shared.NewValidationError("llm.provider", "unknown provider %q", c.LLM.Provider)
	}
	if math.IsNaN(c.LLM.Temperature) || c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return shared.NewValidationError("llm.temperature", "must be within [0,2], got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 1 {
		return shared.NewValidationError("llm.max_tokens", "must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return shared.NewValidationError("llm.requests_per_minute", "must not be negative, got %d", c.LLM.RequestsPerMinute)
	}

	p := c.Planner
	if math.IsNaN(p.QualityThreshold) || p.QualityThreshold < 0 || p.QualityThreshold > 100 {
		return shared.NewValidationError("quality_threshold", "must be within [0,100], got %v", p.QualityThreshold)
	}
	if p.MaxIterations < 1 {
		return shared.NewValidationError("max_iterations", "must be at least 1, got %d", p.MaxIterations)
	}
	if p.SessionRetries < 0 {
		return shared.NewValidationError("session_retries", "must not be negative, got %d", p.SessionRetries)
	}
	w, err := p.Weights()
	if err != nil {
		return err
	}
	return w.Validate()
}
