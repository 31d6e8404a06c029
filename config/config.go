package config

import (
	"fmt"
	"time"

	"github.com/kbukum/speakerkit/logger"
)

// BaseConfig contains essential fields every service needs.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults applies default values to base configuration.
func (c *BaseConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "speakerkitd"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
}

// Validate validates base configuration.
func (c *BaseConfig) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	for _, v := range validEnvs {
		if c.Environment == v {
			return nil
		}
	}
	return fmt.Errorf("base.environment must be one of [development, staging, production] (got: %s)", c.Environment)
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// ApplyDefaults applies default values to server configuration.
func (c *ServerConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8390
	}
}

// TranscriptionConfig configures the transcription backend.
type TranscriptionConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend"`
	URL      string        `yaml:"url" mapstructure:"url"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Language string        `yaml:"language" mapstructure:"language"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DiarizationConfig configures the acoustic diarization backend.
// An empty Backend or Token routes attribution to the text-only fallback.
type DiarizationConfig struct {
	Backend string        `yaml:"backend" mapstructure:"backend"`
	URL     string        `yaml:"url" mapstructure:"url"`
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig configures the language-model backend used by the text-only
// speaker identifier.
type LLMConfig struct {
	Backend string        `yaml:"backend" mapstructure:"backend"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig configures the diarization result cache.
type CacheConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
}

// ApplyDefaults applies default values to cache configuration.
func (c *CacheConfig) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = "diarization_cache"
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 20
	}
}

// TracingConfig configures OTLP trace/metric export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
}

// AppConfig is the full speakerkitd configuration.
type AppConfig struct {
	Base          BaseConfig          `yaml:"base" mapstructure:"base"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
	Diarization   DiarizationConfig   `yaml:"diarization" mapstructure:"diarization"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Tracing       TracingConfig       `yaml:"tracing" mapstructure:"tracing"`
}

// ApplyDefaults applies defaults across all sections.
func (c *AppConfig) ApplyDefaults() {
	c.Base.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Cache.ApplyDefaults()
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = "whisper"
	}
	if c.LLM.Backend == "" {
		c.LLM.Backend = "openai"
	}
}

// Validate validates all sections.
func (c *AppConfig) Validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [0, 65535] (got: %d)", c.Server.Port)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be positive (got: %d)", c.Cache.MaxEntries)
	}
	return nil
}
