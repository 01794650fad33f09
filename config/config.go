package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway      GatewayConfig      `yaml:"gateway"`
	Conversation ConversationConfig `yaml:"conversation"`
	Speech       SpeechConfig       `yaml:"speech"`
	Surface      SurfaceConfig      `yaml:"surface"`
	Log          LogConfig          `yaml:"log"`
}

type GatewayConfig struct {
	Provider       string        `yaml:"provider"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	MaxTokens      int           `yaml:"max_tokens"`
	APIVersion     string        `yaml:"api_version"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ConversationConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

type SpeechConfig struct {
	Source        string        `yaml:"source"`
	HTTPAddr      string        `yaml:"http_addr"`
	AuthToken     string        `yaml:"auth_token"`
	FileDir       string        `yaml:"file_dir"`
	SampleRate    int           `yaml:"sample_rate"`
	ListenTimeout time.Duration `yaml:"listen_timeout"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	Language      string        `yaml:"language"`
}

type SurfaceConfig struct {
	Kind     string `yaml:"kind"`
	HTTPAddr string `yaml:"http_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path, expanding ${VAR} references. A .env file
// next to the config, if present, is loaded into the environment first.
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Gateway.Provider == "" {
		c.Gateway.Provider = "anthropic"
	}
	if c.Gateway.BaseURL == "" && c.Gateway.Provider == "anthropic" {
		c.Gateway.BaseURL = "https://api.anthropic.com"
	}
	if c.Gateway.Model == "" && c.Gateway.Provider == "anthropic" {
		c.Gateway.Model = "claude-sonnet-4-20250514"
	}
	if c.Gateway.MaxTokens == 0 {
		c.Gateway.MaxTokens = 512
	}
	if c.Gateway.APIVersion == "" {
		c.Gateway.APIVersion = "2023-06-01"
	}
	if c.Gateway.ConnectTimeout == 0 {
		c.Gateway.ConnectTimeout = 30 * time.Second
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 60 * time.Second
	}
	if c.Conversation.MaxTurns == 0 {
		c.Conversation.MaxTurns = 10
	}
	if c.Speech.Source == "" {
		c.Speech.Source = "http"
	}
	if c.Speech.HTTPAddr == "" {
		c.Speech.HTTPAddr = ":8080"
	}
	if c.Speech.FileDir == "" {
		c.Speech.FileDir = "./audio"
	}
	if c.Speech.SampleRate == 0 {
		c.Speech.SampleRate = 16000
	}
	if c.Speech.ListenTimeout == 0 {
		c.Speech.ListenTimeout = 30 * time.Second
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en"
	}
	if c.Surface.Kind == "" {
		c.Surface.Kind = "http"
	}
	if c.Surface.HTTPAddr == "" {
		c.Surface.HTTPAddr = ":8081"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Gateway.Provider {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("unknown gateway provider %q", c.Gateway.Provider)
	}
	if c.Gateway.APIKey == "" {
		return fmt.Errorf("gateway.api_key is required")
	}
	if c.Conversation.MaxTurns < 0 {
		return fmt.Errorf("conversation.max_turns must be positive, got %d", c.Conversation.MaxTurns)
	}
	switch c.Surface.Kind {
	case "http", "terminal":
	default:
		return fmt.Errorf("unknown surface kind %q", c.Surface.Kind)
	}
	return nil
}
