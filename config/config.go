package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath       = "config.yaml"
	DefaultServerAddr = ":8080"
	DefaultDocsDB     = "docs.db"
	DefaultOutputDir  = "out"
	DefaultRPS        = 2
	DefaultBurst      = 2
)

// ErrMissingKey is matched by errors.Is for every MissingKeyError.
var ErrMissingKey = errors.New("missing API key")

// MissingKeyError names the environment variables that could supply a key.
type MissingKeyError struct {
	Service string
	Vars    []string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s API key missing; set %s or the config file", e.Service, strings.Join(e.Vars, " or "))
}

func (e *MissingKeyError) Is(target error) bool { return target == ErrMissingKey }

// Config is the merged configuration of file, .env, environment and flags.
type Config struct {
	LLM        LLM       `yaml:"llm"`
	Alchemyst  Alchemyst `yaml:"alchemyst"`
	ServerAddr string    `yaml:"server_addr,omitempty"`
	DocsDB     string    `yaml:"docs_db,omitempty"`
	OutputDir  string    `yaml:"output_dir,omitempty"`
	RateLimit  RateLimit `yaml:"rate_limit"`
	Tracing    Tracing   `yaml:"tracing"`
	Industries []string  `yaml:"industries,omitempty"`
}

type LLM struct {
	Provider    string  `yaml:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

type Alchemyst struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// RateLimit paces calls to the model. A negative RPS disables pacing.
type RateLimit struct {
	RPS   float64 `yaml:"rps,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

type Tracing struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Overrides carries values given on the command line.
type Overrides struct {
	Provider   string
	Model      string
	ServerAddr string
	OutputDir  string
}

// providerKeys lists the variables checked for each provider, first match wins.
var providerKeys = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"deepseek":  {"DEEPSEEK_API_KEY", "OPENAI_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"google":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"alchemyst": {"ALCHEMYST_AI_API_KEY", "ALCHEMYST_API_KEY"},
}

var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"deepseek":  "deepseek-chat",
	"gemini":    "gemini-2.0-flash",
	"google":    "gemini-2.0-flash",
	"anthropic": "claude-sonnet-4-5",
}

// detectOrder decides the provider when none is configured.
var detectOrder = []string{"openai", "gemini", "anthropic", "alchemyst"}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML file at path and applies the environment. A missing
// file at the default path is not an error.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults(lookup)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	setString := func(dst *string, name string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	setString(&c.LLM.Provider, "AGENTS_LLM_PROVIDER")
	setString(&c.LLM.Model, "AGENTS_LLM_MODEL")
	setString(&c.ServerAddr, "AGENTS_SERVER_ADDR")
	setString(&c.DocsDB, "AGENTS_DOCS_DB")
	setString(&c.Alchemyst.BaseURL, "ALCHEMYST_BASE_URL")
	setString(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if key := firstEnv(lookup, providerKeys["alchemyst"]); key != "" {
		c.Alchemyst.APIKey = key
	}
	if v, ok := lookup("AGENTS_RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AGENTS_RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = rps
	}
	return nil
}

func (c *Config) applyDefaults(lookup func(string) (string, bool)) {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
		for _, p := range detectOrder {
			if firstEnv(lookup, providerKeys[p]) != "" {
				c.LLM.Provider = p
				break
			}
		}
	}
	// a provider key from the environment wins over llm.api_key
	if key := firstEnv(lookup, providerKeys[c.LLM.Provider]); key != "" {
		c.LLM.APIKey = key
	} else if c.LLM.APIKey == "" && c.LLM.Provider == "alchemyst" {
		c.LLM.APIKey = c.Alchemyst.APIKey
	}
	if c.LLM.Provider == "alchemyst" && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = c.Alchemyst.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.DocsDB == "" {
		c.DocsDB = DefaultDocsDB
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = DefaultRPS
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = DefaultBurst
	}
}

// Apply merges command line overrides. A new provider resets the model and
// key unless they were given explicitly.
func (c *Config) Apply(o Overrides) {
	if o.Provider != "" && !strings.EqualFold(o.Provider, c.LLM.Provider) {
		c.LLM.Provider = strings.ToLower(o.Provider)
		c.LLM.Model = ""
		c.LLM.APIKey = ""
		c.applyDefaults(os.LookupEnv)
	}
	if o.Model != "" {
		c.LLM.Model = o.Model
	}
	if o.ServerAddr != "" {
		c.ServerAddr = o.ServerAddr
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
}

// RequireLLMKey fails when the selected provider needs a key and has none.
func (c *Config) RequireLLMKey() error {
	if c.LLM.Provider == "mock" || c.LLM.APIKey != "" {
		return nil
	}
	vars, ok := providerKeys[c.LLM.Provider]
	if !ok {
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	return &MissingKeyError{Service: c.LLM.Provider, Vars: vars}
}

// RequireAlchemystKey fails when no Alchemyst key is configured.
func (c *Config) RequireAlchemystKey() error {
	if c.Alchemyst.APIKey != "" {
		return nil
	}
	return &MissingKeyError{Service: "alchemyst", Vars: providerKeys["alchemyst"]}
}

func firstEnv(lookup func(string) (string, bool), names []string) string {
	for _, n := range names {
		if v, ok := lookup(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
