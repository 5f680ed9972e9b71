// Package config loads the persona host configuration.
//
// Precedence, lowest first: Default(), the YAML file, environment variables,
// then command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/ports"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "persona.yaml"

// Providers.
const (
	ProviderKeyword   = "keyword"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Template loaders.
const (
	LoaderFile = "file"
	LoaderLoam = "loam"
)

// Transcript backends.
const (
	TranscriptMemory = "memory"
	TranscriptFile   = "file"
	TranscriptRedis  = "redis"
)

// Config is the complete host configuration.
type Config struct {
	Templates  TemplatesConfig  `yaml:"templates"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	LLM        LLMConfig        `yaml:"llm"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Actions    ActionsConfig    `yaml:"actions"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// TemplatesConfig locates role, agent and target templates.
type TemplatesConfig struct {
	Dir    string `yaml:"dir"`
	Loader string `yaml:"loader"`
}

// PromptsConfig locates prompt overrides. Empty means the built-in prompts only.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// LLMConfig selects and tunes the intent resolver.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Strategy    string  `yaml:"strategy"`
	BaseURL     string  `yaml:"base_url"`
	// APIKey is normally taken from OPENAI_API_KEY or ANTHROPIC_API_KEY.
	APIKey string `yaml:"-"`

	RetryAttempts    int           `yaml:"retry_attempts"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// TranscriptConfig selects where history is mirrored.
type TranscriptConfig struct {
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`
	Redis   RedisConfig   `yaml:"redis"`
	TTL     time.Duration `yaml:"ttl"`

	// MaskPII masks PIIPatterns (or the built-in e-mail, card and phone
	// patterns) in turns before they are stored.
	MaskPII     bool     `yaml:"mask_pii"`
	PIIPatterns []string `yaml:"pii_patterns"`
	// EncryptionKey is a base64 AES-256 key, taken from PERSONA_TRANSCRIPT_KEY.
	EncryptionKey string `yaml:"-"`
	// FallbackKeys decrypt turns written before a key rotation, taken from
	// the comma separated PERSONA_TRANSCRIPT_FALLBACK_KEYS.
	FallbackKeys []string `yaml:"-"`
}

// RedisConfig addresses a Redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ActionsConfig points at the external command actions file.
type ActionsConfig struct {
	File string `yaml:"file"`
}

// HTTPConfig configures `persona serve`.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Templates: TemplatesConfig{Dir: ".", Loader: LoaderFile},
		LLM: LLMConfig{
			Provider:         ProviderKeyword,
			Temperature:      0.2,
			MaxTokens:        1024,
			Strategy:         string(ports.StrategyEvent),
			RetryAttempts:    3,
			BreakerThreshold: 5,
			Timeout:          60 * time.Second,
		},
		Transcript: TranscriptConfig{
			Backend: TranscriptMemory,
			Dir:     ".persona/transcripts",
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "persona:transcript:"},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides values from the environment.
func (c *Config) ApplyEnv() {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set("PERSONA_LOG_LEVEL", &c.Log.Level)
	set("PERSONA_PROVIDER", &c.LLM.Provider)
	set("PERSONA_MODEL", &c.LLM.Model)
	set("PERSONA_STRATEGY", &c.LLM.Strategy)
	set("PERSONA_HTTP_ADDR", &c.HTTP.Addr)
	if v, ok := os.LookupEnv("PERSONA_REDIS_ADDR"); ok && v != "" {
		c.Transcript.Redis.Addr = v
		c.Transcript.Backend = TranscriptRedis
	}
	set("PERSONA_TRANSCRIPT_KEY", &c.Transcript.EncryptionKey)
	if v := os.Getenv("PERSONA_TRANSCRIPT_FALLBACK_KEYS"); v != "" {
		c.Transcript.FallbackKeys = strings.Split(v, ",")
	}
	if v, err := strconv.ParseFloat(os.Getenv("PERSONA_TEMPERATURE"), 64); err == nil {
		c.LLM.Temperature = v
	}
	c.ResolveAPIKey()
}

// ResolveAPIKey reads the API key of the selected provider from the
// environment when none is set.
func (c *Config) ResolveAPIKey() {
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case ProviderOpenAI:
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderKeyword, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be one of keyword, openai, anthropic: got %q", c.LLM.Provider)
	}
	if _, err := ports.ParseStrategy(c.LLM.Strategy); err != nil {
		return fmt.Errorf("llm.strategy: %w", err)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	switch c.Templates.Loader {
	case LoaderFile, LoaderLoam:
	default:
		return fmt.Errorf("templates.loader must be file or loam: got %q", c.Templates.Loader)
	}
	switch c.Transcript.Backend {
	case TranscriptMemory, TranscriptFile, TranscriptRedis:
	default:
		return fmt.Errorf("transcript.backend must be memory, file or redis: got %q", c.Transcript.Backend)
	}
	if c.Transcript.Backend == TranscriptMemory && (c.Transcript.EncryptionKey != "" || c.Transcript.MaskPII) {
		return fmt.Errorf("transcript protection needs the file or redis backend")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
