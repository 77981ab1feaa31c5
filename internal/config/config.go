package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/imdario/mergo"
	yaml "github.com/jesseduffield/yaml"
	"github.com/samber/lo"

	"tskit/internal/domain"
	"tskit/internal/usecase/lint"
)

const (
	AppName   = "tskit"
	EnvPrefix = "TSKIT_"
)

// Config holds the user options. Values are resolved from the defaults, then
// config.yml, then TSKIT_* environment variables. Do not default a boolean to
// true: false is the zero value and would be ignored when merging.
type Config struct {
	// LogLevel is a logrus level name. Debug forces the debug level.
	LogLevel string `yaml:"logLevel,omitempty" env:"LOG_LEVEL"`
	Debug    bool   `yaml:"debug,omitempty" env:"DEBUG"`

	// Database is the SQLite file used by import, export, fill and jobs.
	Database string `yaml:"database,omitempty" env:"DB"`

	// Timeout bounds a single provider HTTP request.
	Timeout time.Duration `yaml:"timeout,omitempty" env:"TIMEOUT"`

	Lint lint.Config `yaml:"lint,omitempty"`

	DefaultProvider string     `yaml:"defaultProvider,omitempty" env:"PROVIDER"`
	Providers       []Provider `yaml:"providers,omitempty"`

	// APIKey is used by providers that have no key of their own.
	APIKey string `yaml:"-" env:"API_KEY"`

	// Prompts overrides builtin prompt templates, keyed "type/role".
	Prompts map[string]string `yaml:"prompts,omitempty"`

	Fill FillConfig `yaml:"fill,omitempty"`
}

type Provider struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	BaseURL string `yaml:"baseURL,omitempty"`
	Model   string `yaml:"model,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

type FillConfig struct {
	SourceLanguage string        `yaml:"sourceLanguage,omitempty" env:"SOURCE_LANGUAGE"`
	MarkFinished   bool          `yaml:"markFinished,omitempty"`
	ItemTimeout    time.Duration `yaml:"itemTimeout,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "warn",
		Database: filepath.Join(xdg.New("", AppName).DataHome(), "tskit.db"),
		Timeout:  20 * time.Second,
		Lint:     lint.Config{Disabled: []string{}},
		Providers: []Provider{
			{Name: "ollama", Type: "ollama", BaseURL: "http://localhost:11434", Model: "llama3.1"},
		},
		DefaultProvider: "ollama",
		Fill: FillConfig{
			SourceLanguage: "English",
			ItemTimeout:    60 * time.Second,
		},
	}
}

// Dir is the directory config.yml is read from.
func Dir() string {
	return xdg.New("", AppName).ConfigHome()
}

// Filename is the default config file path.
func Filename() string {
	return filepath.Join(Dir(), "config.yml")
}

// Load resolves the configuration. An empty path means the default file; a
// missing default file is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = Filename()
	}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := mergeYAML(&cfg, content); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeYAML(cfg *Config, content []byte) error {
	var file Config
	if err := yaml.Unmarshal(content, &file); err != nil {
		return err
	}
	return mergo.Merge(cfg, file, mergo.WithOverride)
}

func mergeEnv(cfg *Config) error {
	var fromEnv Config
	if err := env.ParseWithOptions(&fromEnv, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return mergo.Merge(cfg, fromEnv, mergo.WithOverride)
}

func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("config: provider without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
		if !lo.Contains([]string{"ollama", "openrouter"}, p.Type) {
			return fmt.Errorf("config: provider %q: unknown type %q", p.Name, p.Type)
		}
	}
	if c.DefaultProvider != "" && !seen[c.DefaultProvider] {
		return fmt.Errorf("config: default provider %q is not configured", c.DefaultProvider)
	}
	for _, r := range c.Lint.Disabled {
		if !lo.ContainsBy(lint.Rules, func(rule lint.Rule) bool { return rule.ID == r }) {
			return fmt.Errorf("config: unknown lint rule %q", r)
		}
	}
	return nil
}

// Provider returns the named provider, or the default one when name is empty.
func (c *Config) Provider(name string) (*domain.Provider, error) {
	if name == "" {
		name = c.DefaultProvider
	}
	p, ok := lo.Find(c.Providers, func(p Provider) bool { return p.Name == name })
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", name, domain.ErrNotFound)
	}
	key := p.APIKey
	if key == "" {
		key = c.APIKey
	}
	return &domain.Provider{Name: p.Name, Type: p.Type, BaseURL: p.BaseURL, Model: p.Model, APIKey: key}, nil
}

// YAML renders the configuration the way it would be written to config.yml.
// Redacted marks a secret in printed configuration.
const Redacted = "<redacted>"

// YAML renders the configuration with provider keys redacted.
func (c Config) YAML() (string, error) {
	c.Providers = lo.Map(c.Providers, func(p Provider, _ int) Provider {
		if p.APIKey != "" {
			p.APIKey = Redacted
		}
		return p
	})
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
