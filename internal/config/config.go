package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for coldmail.
type Config struct {
	LLM         LLMConfig
	Scrape      ScrapeConfig
	Portfolio   PortfolioConfig
	VectorStore VectorStoreConfig
	Embedding   EmbeddingConfig
}

// LLMConfig targets an OpenAI-compatible chat completions endpoint (Groq by default).
type LLMConfig struct {
	BaseURL   string
	Model     string
	APIKey    string        // expanded from env var by Load
	Timeout   time.Duration // per-request timeout
	MaxTokens int           // 0 leaves it to the provider
}

// ScrapeConfig controls the page fetcher and the content-length gate.
type ScrapeConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MinChars     int    // trimmed text shorter than this stops the request
	PreviewChars int    // size of the scraped preview shown to the user
	Format       string // "text" or "markdown"
}

// PortfolioConfig describes the tabular source of portfolio entries.
type PortfolioConfig struct {
	Source          string
	TechStackColumn string
	LinkColumn      string
	TopK            int
}

// VectorStoreConfig locates the on-disk collection.
type VectorStoreConfig struct {
	Path       string // directory holding vectors.db
	Collection string
}

// EmbeddingConfig selects the embedder used to index and query the portfolio.
type EmbeddingConfig struct {
	Provider   string // "hash", "ollama" or "openai"
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int // hash embedder only
}

const (
	defaultLLMBaseURL    = "https://api.groq.com/openai/v1"
	defaultLLMModel      = "llama3-70b-8192"
	defaultUserAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	LLM         rawLLMConfig         `yaml:"llm"`
	Scrape      rawScrapeConfig      `yaml:"scrape"`
	Portfolio   rawPortfolioConfig   `yaml:"portfolio"`
	VectorStore rawVectorStoreConfig `yaml:"vectorstore"`
	Embedding   rawEmbeddingConfig   `yaml:"embedding"`
}

type rawLLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

type rawScrapeConfig struct {
	Timeout      string `yaml:"timeout"`
	UserAgent    string `yaml:"user_agent"`
	MinChars     *int   `yaml:"min_chars"`
	PreviewChars int    `yaml:"preview_chars"`
	Format       string `yaml:"format"`
}

type rawPortfolioConfig struct {
	Source          string `yaml:"source"`
	TechStackColumn string `yaml:"tech_stack_column"`
	LinkColumn      string `yaml:"link_column"`
	TopK            int    `yaml:"top_k"`
}

type rawVectorStoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

type rawEmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	GroqAPIKey      string `env:"GROQ_API_KEY"`
	EmbeddingAPIKey string `env:"OPENAI_API_KEY"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() (*Config, error) {
	return build(rawConfig{})
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	llmTimeout := 60 * time.Second
	if raw.LLM.Timeout != "" {
		d, err := time.ParseDuration(raw.LLM.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse llm.timeout %q: %w", raw.LLM.Timeout, err)
		}
		llmTimeout = d
	}

	scrapeTimeout := 30 * time.Second
	if raw.Scrape.Timeout != "" {
		d, err := time.ParseDuration(raw.Scrape.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse scrape.timeout %q: %w", raw.Scrape.Timeout, err)
		}
		scrapeTimeout = d
	}

	apiKey := raw.LLM.APIKey
	if apiKey == "" {
		apiKey = overrides.GroqAPIKey
	}

	minChars := 100
	if raw.Scrape.MinChars != nil {
		minChars = *raw.Scrape.MinChars
	}

	provider := strings.ToLower(orDefault(raw.Embedding.Provider, "hash"))
	embedBaseURL := raw.Embedding.BaseURL
	if embedBaseURL == "" {
		switch provider {
		case "ollama":
			embedBaseURL = defaultOllamaBaseURL
		case "openai":
			embedBaseURL = defaultOpenAIBaseURL
		}
	}
	embedKey := raw.Embedding.APIKey
	if embedKey == "" && provider == "openai" {
		embedKey = overrides.EmbeddingAPIKey
	}

	cfg := &Config{
		LLM: LLMConfig{
			BaseURL:   strings.TrimRight(orDefault(raw.LLM.BaseURL, defaultLLMBaseURL), "/"),
			Model:     orDefault(raw.LLM.Model, defaultLLMModel),
			APIKey:    apiKey,
			Timeout:   llmTimeout,
			MaxTokens: raw.LLM.MaxTokens,
		},
		Scrape: ScrapeConfig{
			Timeout:      scrapeTimeout,
			UserAgent:    orDefault(raw.Scrape.UserAgent, defaultUserAgent),
			MinChars:     minChars,
			PreviewChars: orDefaultInt(raw.Scrape.PreviewChars, 1500),
			Format:       strings.ToLower(orDefault(raw.Scrape.Format, "text")),
		},
		Portfolio: PortfolioConfig{
			Source:          orDefault(raw.Portfolio.Source, "my_portfolio.csv"),
			TechStackColumn: orDefault(raw.Portfolio.TechStackColumn, "Techstack"),
			LinkColumn:      orDefault(raw.Portfolio.LinkColumn, "Links"),
			TopK:            orDefaultInt(raw.Portfolio.TopK, 2),
		},
		VectorStore: VectorStoreConfig{
			Path:       orDefault(raw.VectorStore.Path, "vectorstore"),
			Collection: orDefault(raw.VectorStore.Collection, "portfolio"),
		},
		Embedding: EmbeddingConfig{
			Provider:   provider,
			BaseURL:    strings.TrimRight(embedBaseURL, "/"),
			Model:      raw.Embedding.Model,
			APIKey:     embedKey,
			Dimensions: orDefaultInt(raw.Embedding.Dimensions, 384),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireLLM reports whether the LLM section is usable. Commands that never
// call the model (portfolio load/query) skip this check.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set GROQ_API_KEY or llm.api_key in config)")
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative, got %v", cfg.LLM.Timeout)
	}
	if cfg.Scrape.Timeout < 0 {
		return fmt.Errorf("scrape.timeout must not be negative, got %v", cfg.Scrape.Timeout)
	}
	if cfg.Scrape.MinChars < 0 {
		return fmt.Errorf("scrape.min_chars must not be negative, got %d", cfg.Scrape.MinChars)
	}
	if cfg.Scrape.PreviewChars <= 0 {
		return fmt.Errorf("scrape.preview_chars must be positive, got %d", cfg.Scrape.PreviewChars)
	}
	switch cfg.Scrape.Format {
	case "text", "markdown":
	default:
		return fmt.Errorf("scrape.format must be \"text\" or \"markdown\", got %q", cfg.Scrape.Format)
	}

	if cfg.Portfolio.TopK <= 0 {
		return fmt.Errorf("portfolio.top_k must be positive, got %d", cfg.Portfolio.TopK)
	}
	if strings.EqualFold(cfg.Portfolio.TechStackColumn, cfg.Portfolio.LinkColumn) {
		return fmt.Errorf("portfolio.tech_stack_column and portfolio.link_column must differ")
	}

	switch cfg.Embedding.Provider {
	case "hash":
		if cfg.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions must be positive, got %d", cfg.Embedding.Dimensions)
		}
	case "ollama", "openai":
		if cfg.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required when embedding.provider is %q", cfg.Embedding.Provider)
		}
		if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key (or OPENAI_API_KEY) is required when embedding.provider is \"openai\"")
		}
	default:
		return fmt.Errorf("unsupported embedding.provider %q", cfg.Embedding.Provider)
	}

	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
