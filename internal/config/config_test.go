package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	path := writeConfig(t, `
llm:
  model: llama-3.3-70b-versatile
  api_key: "secret"
  timeout: 15s
scrape:
  min_chars: 50
  format: markdown
portfolio:
  source: data/portfolio.xlsx
  top_k: 3
vectorstore:
  path: /tmp/vs
  collection: work
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != defaultLLMBaseURL {
		t.Errorf("LLM.BaseURL = %q, want default", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("LLM.Timeout = %v, want 15s", cfg.LLM.Timeout)
	}
	if cfg.Scrape.MinChars != 50 || cfg.Scrape.Format != "markdown" {
		t.Errorf("Scrape = %+v", cfg.Scrape)
	}
	if cfg.Scrape.PreviewChars != 1500 {
		t.Errorf("PreviewChars = %d, want 1500", cfg.Scrape.PreviewChars)
	}
	if cfg.Portfolio.Source != "data/portfolio.xlsx" || cfg.Portfolio.TopK != 3 {
		t.Errorf("Portfolio = %+v", cfg.Portfolio)
	}
	if cfg.Portfolio.TechStackColumn != "Techstack" || cfg.Portfolio.LinkColumn != "Links" {
		t.Errorf("Portfolio columns = %q/%q", cfg.Portfolio.TechStackColumn, cfg.Portfolio.LinkColumn)
	}
	if cfg.VectorStore.Path != "/tmp/vs" || cfg.VectorStore.Collection != "work" {
		t.Errorf("VectorStore = %+v", cfg.VectorStore)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.LLM.Model != defaultLLMModel {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.Scrape.MinChars != 100 {
		t.Errorf("MinChars = %d, want 100", cfg.Scrape.MinChars)
	}
	if cfg.Portfolio.TopK != 2 {
		t.Errorf("TopK = %d, want 2", cfg.Portfolio.TopK)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
	if err := cfg.RequireLLM(); err == nil {
		t.Error("RequireLLM: expected error without api key")
	}
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_from_env")
	path := writeConfig(t, "llm:\n  model: m\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "gsk_from_env" {
		t.Errorf("APIKey = %q, want value from GROQ_API_KEY", cfg.LLM.APIKey)
	}
	if err := cfg.RequireLLM(); err != nil {
		t.Errorf("RequireLLM: %v", err)
	}
}

func TestLoad_ExpandsEnvInFile(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("MY_PORTFOLIO", "/data/mine.csv")
	path := writeConfig(t, "portfolio:\n  source: ${MY_PORTFOLIO}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Portfolio.Source != "/data/mine.csv" {
		t.Errorf("Source = %q", cfg.Portfolio.Source)
	}
}

func TestLoad_ZeroMinCharsIsAllowed(t *testing.T) {
	path := writeConfig(t, "scrape:\n  min_chars: 0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scrape.MinChars != 0 {
		t.Errorf("MinChars = %d, want 0", cfg.Scrape.MinChars)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [broken")

	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"bad timeout":          "llm:\n  timeout: soon\n",
		"bad format":           "scrape:\n  format: pdf\n",
		"negative top_k":       "portfolio:\n  top_k: -1\n",
		"same columns":         "portfolio:\n  tech_stack_column: Links\n",
		"unknown embedder":     "embedding:\n  provider: magic\n",
		"ollama without model": "embedding:\n  provider: ollama\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatalf("Load: expected validation error for %s", name)
			}
		})
	}
}

func TestLoad_OllamaEmbeddingDefaults(t *testing.T) {
	path := writeConfig(t, "embedding:\n  provider: ollama\n  model: nomic-embed-text\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.BaseURL != defaultOllamaBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Embedding.BaseURL, defaultOllamaBaseURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("COLDMAIL_TEST_VAR", "")
	os.Unsetenv("COLDMAIL_TEST_VAR")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COLDMAIL_TEST_VAR=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("COLDMAIL_TEST_VAR"); got != "from-dotenv" {
		t.Errorf("COLDMAIL_TEST_VAR = %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadDotEnv on missing file: %v", err)
	}
}
