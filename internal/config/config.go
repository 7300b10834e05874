// Package config loads the YAML configuration of the scripture resolver.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/resolver"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/source"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/logging"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/validation"
)

// Config is the top-level configuration.
type Config struct {
	DefaultSource  string         `yaml:"default_source"`
	MaxConcurrency int            `yaml:"max_concurrency"`
	Log            LogConfig      `yaml:"log"`
	Cache          CacheConfig    `yaml:"cache"`
	HTTP           HTTPConfig     `yaml:"http"`
	Sources        []SourceConfig `yaml:"sources"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CacheConfig configures the shared cache. TTLs are keyed by category name
// ("verse", "chapter", "not_found", "unavailable", "listing").
type CacheConfig struct {
	DefaultTTL    time.Duration            `yaml:"default_ttl"`
	SweepInterval time.Duration            `yaml:"sweep_interval"`
	TTLs          map[string]time.Duration `yaml:"ttls"`
}

// HTTPConfig applies to every remote source.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// SourceConfig describes one text source.
//
// Provider is "local", "wldeh" or "bolls". Version is the provider's bible
// id ("en-asv" for wldeh, "KJV" for bolls). Dataset and Digest apply to
// local sources; BaseURL overrides a remote provider's endpoint.
type SourceConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Provider    string `yaml:"provider"`
	Version     string `yaml:"version,omitempty"`
	Dataset     string `yaml:"dataset,omitempty"`
	Digest      string `yaml:"digest,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
}

// Default returns the built-in configuration: a local KJV plus the public
// translations of the wldeh and bolls.life providers.
func Default() *Config {
	return &Config{
		DefaultSource: "KJV",
		Log:           LogConfig{Level: "info", Format: "text"},
		Cache: CacheConfig{
			DefaultTTL:    5 * time.Minute,
			SweepInterval: time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: source.DefaultUserAgent,
		},
		Sources: []SourceConfig{
			{Name: "KJV", Description: "King James Version", Provider: source.ProviderLocal},
			{Name: "ASV", Description: "American Standard Version", Provider: source.ProviderWldeh, Version: "en-asv"},
			{Name: "WEB", Description: "World English Bible", Provider: source.ProviderWldeh, Version: "en-web"},
			{Name: "YLT", Description: "Young's Literal Translation", Provider: source.ProviderWldeh, Version: "en-ylt"},
			{Name: "BBE", Description: "Bible in Basic English", Provider: source.ProviderWldeh, Version: "en-bbe"},
			{Name: "DARBY", Description: "Darby Translation", Provider: source.ProviderWldeh, Version: "en-dby"},
			{Name: "BOLLS-KJV", Description: "King James Version (bolls.life)", Provider: source.ProviderBolls, Version: "KJV"},
		},
	}
}

// Load reads path over the defaults and validates the result. Unknown
// keys are an error. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, errors.NewParse("YAML", path, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, errors.NewParse("YAML", "", err.Error())
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidation("log.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return errors.NewValidation("log.format", err.Error())
	}
	if c.MaxConcurrency < 0 {
		return errors.NewValidation("max_concurrency", "must not be negative")
	}
	if c.HTTP.Timeout < 0 {
		return errors.NewValidation("http.timeout", "must not be negative")
	}
	if _, err := c.TTLTable(); err != nil {
		return err
	}

	if len(c.Sources) == 0 {
		return errors.NewValidation("sources", "at least one source is required")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if err := validation.ValidateSourceName(s.Name); err != nil {
			return errors.NewValidation(field+".name", err.Error())
		}
		key := strings.ToUpper(s.Name)
		if seen[key] {
			return errors.NewValidation(field+".name", fmt.Sprintf("duplicate source %q", s.Name))
		}
		seen[key] = true

		switch s.Provider {
		case source.ProviderLocal:
			if s.Dataset != "" {
				if err := validation.ValidatePath(s.Dataset); err != nil {
					return errors.NewValidation(field+".dataset", err.Error())
				}
			}
		case source.ProviderWldeh, source.ProviderBolls:
			if s.Version == "" {
				return errors.NewValidation(field+".version", "required for provider "+s.Provider)
			}
		default:
			return errors.NewValidation(field+".provider", fmt.Sprintf("unknown provider %q", s.Provider))
		}
	}

	if c.DefaultSource != "" && !seen[strings.ToUpper(c.DefaultSource)] {
		return errors.NewValidation("default_source", fmt.Sprintf("%q is not a configured source", c.DefaultSource))
	}
	return nil
}

// TTLTable converts the configured TTL overrides to a resolver table.
func (c *Config) TTLTable() (resolver.TTLTable, error) {
	known := make(map[string]bool, len(resolver.Categories))
	for _, cat := range resolver.Categories {
		known[string(cat)] = true
	}

	t := make(resolver.TTLTable, len(c.Cache.TTLs))
	for name, d := range c.Cache.TTLs {
		if !known[name] {
			return nil, errors.NewValidation("cache.ttls."+name, "unknown category")
		}
		t[resolver.Category(name)] = d
	}
	return t, nil
}

// Source returns the configuration of the named source.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// SetDataset points the default local source, or the first local source,
// at path. It reports false when no local source is configured.
func (c *Config) SetDataset(path string) bool {
	idx := -1
	for i, s := range c.Sources {
		if s.Provider != source.ProviderLocal {
			continue
		}
		if strings.EqualFold(s.Name, c.DefaultSource) {
			idx = i
			break
		}
		if idx < 0 {
			idx = i
		}
	}
	if idx < 0 {
		return false
	}
	c.Sources[idx].Dataset = path
	c.Sources[idx].Digest = ""
	return true
}
