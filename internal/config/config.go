package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLLMBaseURL = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
)

// DefaultKeywords are matched against URLs when the model cannot pick pages
var DefaultKeywords = []string{
	"product", "services", "offer", "faq", "help",
	"support", "delivery", "returns", "about", "contact",
}

// Config holds all runtime settings
type Config struct {
	OutputDir string `yaml:"output_dir"`
	ServeAddr string `yaml:"serve_addr"`

	Crawl    CrawlConfig    `yaml:"crawl"`
	Analysis AnalysisConfig `yaml:"analysis"`
	LLM      LLMConfig      `yaml:"llm"`
	Replica  ReplicaConfig  `yaml:"replica"`
}

// CrawlConfig covers discovery and browser navigation
type CrawlConfig struct {
	MaxPages          int           `yaml:"max_pages"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	SitemapTimeout    time.Duration `yaml:"sitemap_timeout"`
	UserAgent         string        `yaml:"user_agent"`
	Headless          *bool         `yaml:"headless"`
}

// AnalysisConfig covers page selection and corpus admission
type AnalysisConfig struct {
	PageDelay        time.Duration `yaml:"page_delay"`
	MaxCandidates    int           `yaml:"max_candidates"`
	MaxRelevant      int           `yaml:"max_relevant"`
	MinContentLength int           `yaml:"min_content_length"`
	MaxContentLength int           `yaml:"max_content_length"`
	Keywords         []string      `yaml:"keywords"`
}

// LLMConfig covers the chat completion endpoint
type LLMConfig struct {
	APIKey  string        `yaml:"-"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReplicaConfig covers the bot platform
type ReplicaConfig struct {
	APIURL     string        `yaml:"api_url"`
	APIKey     string        `yaml:"-"`
	APIVersion string        `yaml:"api_version"`
	OwnerID    string        `yaml:"owner_id"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Default returns a config with default values
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the optional YAML file at path, then .env and the process
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// HeadlessBrowser reports whether Chrome should run without a window
func (c CrawlConfig) HeadlessBrowser() bool {
	return c.Headless == nil || *c.Headless
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("REPLICA_API_URL"); v != "" {
		cfg.Replica.APIURL = v
	}
	if v := os.Getenv("REPLICA_API_KEY"); v != "" {
		cfg.Replica.APIKey = v
	}
	if v := os.Getenv("REPLICA_OWNER_ID"); v != "" {
		cfg.Replica.OwnerID = v
	}
	if v := os.Getenv("SITEBOT_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "analysis"
	}
	if cfg.ServeAddr == "" {
		cfg.ServeAddr = ":8080"
	}

	if cfg.Crawl.MaxPages == 0 {
		cfg.Crawl.MaxPages = 20
	}
	if cfg.Crawl.NavigationTimeout == 0 {
		cfg.Crawl.NavigationTimeout = 10 * time.Second
	}
	if cfg.Crawl.SitemapTimeout == 0 {
		cfg.Crawl.SitemapTimeout = 10 * time.Second
	}
	if cfg.Crawl.UserAgent == "" {
		cfg.Crawl.UserAgent = "Mozilla/5.0 (compatible; sitebot/1.0)"
	}

	if cfg.Analysis.PageDelay == 0 {
		cfg.Analysis.PageDelay = time.Second
	}
	if cfg.Analysis.MaxCandidates == 0 {
		cfg.Analysis.MaxCandidates = 50
	}
	if cfg.Analysis.MaxRelevant == 0 {
		cfg.Analysis.MaxRelevant = 15
	}
	if cfg.Analysis.MinContentLength == 0 {
		cfg.Analysis.MinContentLength = 100
	}
	if cfg.Analysis.MaxContentLength == 0 {
		cfg.Analysis.MaxContentLength = 3000
	}
	if len(cfg.Analysis.Keywords) == 0 {
		cfg.Analysis.Keywords = append([]string(nil), DefaultKeywords...)
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultLLMBaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}

	if cfg.Replica.APIURL == "" {
		cfg.Replica.APIURL = "https://api.sensay.io"
	}
	if cfg.Replica.APIVersion == "" {
		cfg.Replica.APIVersion = "2025-03-25"
	}
	if cfg.Replica.Timeout == 0 {
		cfg.Replica.Timeout = 60 * time.Second
	}
}

// validate checks that values are sensible. Credentials are checked by the
// clients that need them.
func validate(cfg *Config) error {
	if cfg.Crawl.MaxPages < 1 {
		return fmt.Errorf("crawl.max_pages must be >= 1")
	}
	if cfg.Crawl.NavigationTimeout < 0 {
		return fmt.Errorf("crawl.navigation_timeout must not be negative")
	}
	if cfg.Analysis.PageDelay < 0 {
		return fmt.Errorf("analysis.page_delay must not be negative")
	}
	if cfg.Analysis.MaxCandidates < 1 || cfg.Analysis.MaxRelevant < 1 {
		return fmt.Errorf("analysis.max_candidates and analysis.max_relevant must be >= 1")
	}
	if cfg.Analysis.MaxContentLength <= cfg.Analysis.MinContentLength {
		return fmt.Errorf("analysis.max_content_length must exceed analysis.min_content_length")
	}
	return nil
}
