// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Keys of the flat value map checked by the transport precondition.
const (
	KeyAPIURL         = "API_URL"
	KeyChatAPIURL     = "CHAT_API_URL"
	KeyMaxChatHistory = "MAX_CHAT_HISTORY"
	KeyUseMock        = "USE_MOCK"
	KeyRedisURL       = "REDIS_URL"
	KeyLogLevel       = "LOG_LEVEL"
	KeyEncryptionKey  = "ENCRYPTION_KEY"
	KeyTimeout        = "ASSISTANT_TIMEOUT"
	KeyAdminAPIKey    = "ADMIN_API_KEY"
	KeyLanguage       = "APP_LANGUAGE"
)

// DefaultMaxChatHistory caps both the history window and the questions per
// conversation when nothing is configured.
const DefaultMaxChatHistory = 10

type RuntimeConfig struct {
	Dev bool
}

type AppConfig struct {
	Name          string `yaml:"name"`
	Environment   string `yaml:"environment"` // development|production
	AssistantName string `yaml:"assistant_name"`
	Language      string `yaml:"language"`     // console messages: en|es
	HistoryFile   string `yaml:"history_file"` // console input history, "off" disables
}

type UploadsConfig struct {
	MaxFileSize       int64    `yaml:"max_file_size"` // bytes, 0 = unlimited
	AllowedFileTypes  []string `yaml:"allowed_file_types"`
	AllowedAudioTypes []string `yaml:"allowed_audio_types"`
	MaxAudioDuration  float64  `yaml:"max_audio_duration"` // seconds, 0 = unlimited
}

type AssistantConfig struct {
	APIURL         string            `yaml:"api_url"`
	ChatURL        string            `yaml:"chat_url"`
	ChatPath       string            `yaml:"chat_path"`
	HealthPath     string            `yaml:"health_path"`
	HealthInterval time.Duration     `yaml:"health_interval"` // 0 = 30s, negative disables polling
	MaxChatHistory int               `yaml:"max_chat_history"` // 0 = 10, negative means unlimited
	Timeout        time.Duration     `yaml:"timeout"`          // 0 = no deadline
	RequiredKeys   []string          `yaml:"required_keys"`
	UseMock        bool              `yaml:"use_mock"`
	MockDelay      time.Duration     `yaml:"mock_delay"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	Uploads        UploadsConfig     `yaml:"uploads"`
	Extra          map[string]string `yaml:"extra"`
}

type AuthConfig struct {
	LoginPath       string `yaml:"login_path"`
	GoogleLoginPath string `yaml:"google_login_path"`
	AppID           string `yaml:"app_id"`
	DevLogin        bool   `yaml:"dev_login"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port   int    `yaml:"port"` // 0 disables the admin API
	APIKey string `yaml:"api_key"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Key      string        `yaml:"key"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type TokensConfig struct {
	Estimate bool   `yaml:"estimate"`
	Encoding string `yaml:"encoding"`
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	Assistant AssistantConfig `yaml:"assistant"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Redis     RedisConfig     `yaml:"redis"`
	Security  SecurityConfig  `yaml:"security"`
	Tokens    TokensConfig    `yaml:"tokens"`

	Runtime RuntimeConfig `yaml:"-"`
}

// FromFlags parses -config, -dev and -env and loads the configuration.
func FromFlags() (*Config, error) {
	var configPath, envPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.StringVar(&envPath, "env", ".env", "path to dotenv file")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	if err := LoadDotEnv(envPath); err != nil {
		return nil, err
	}
	return LoadConfig(configPath, dev)
}

// LoadDotEnv exports the variables of a dotenv file without overriding the
// process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads the YAML file at path (a missing file yields defaults),
// applies environment overrides, fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()

	// Minimal validation
	if !cfg.Assistant.UseMock && cfg.Assistant.ChatURL != "" && !strings.Contains(cfg.Assistant.ChatURL, "://") {
		return nil, fmt.Errorf("assistant.chat_url %q is not an absolute URL", cfg.Assistant.ChatURL)
	}
	if cfg.Assistant.Timeout < 0 {
		return nil, errors.New("assistant.timeout must not be negative")
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str(KeyAPIURL, &c.Assistant.APIURL)
	str(KeyChatAPIURL, &c.Assistant.ChatURL)
	str(KeyRedisURL, &c.Redis.URL)
	str(KeyLogLevel, &c.Log.Level)
	str(KeyEncryptionKey, &c.Security.EncryptionKey)
	str(KeyAdminAPIKey, &c.Admin.APIKey)
	str(KeyLanguage, &c.App.Language)

	if v := os.Getenv(KeyMaxChatHistory); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", KeyMaxChatHistory, err)
		}
		c.Assistant.MaxChatHistory = n
	}
	if v := os.Getenv(KeyUseMock); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", KeyUseMock, err)
		}
		c.Assistant.UseMock = b
	}
	if v := os.Getenv(KeyTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", KeyTimeout, err)
		}
		c.Assistant.Timeout = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "assistant-chat"
	}
	if c.App.Environment == "" {
		if c.Runtime.Dev {
			c.App.Environment = "development"
		} else {
			c.App.Environment = "production"
		}
	}
	if c.App.AssistantName == "" {
		c.App.AssistantName = "Assistant"
	}
	if c.App.Language == "" {
		c.App.Language = "en"
	}
	switch c.App.HistoryFile {
	case "off":
		c.App.HistoryFile = ""
	case "":
		if dir, err := os.UserConfigDir(); err == nil {
			c.App.HistoryFile = filepath.Join(dir, "assistant-chat", "history")
		}
	}
	if c.Assistant.ChatPath == "" {
		c.Assistant.ChatPath = "/consultar"
	}
	if c.Assistant.HealthPath == "" {
		c.Assistant.HealthPath = "/health"
	}
	if len(c.Assistant.RequiredKeys) == 0 {
		c.Assistant.RequiredKeys = []string{KeyAPIURL, KeyChatAPIURL}
	}
	if c.Assistant.MaxChatHistory == 0 {
		c.Assistant.MaxChatHistory = DefaultMaxChatHistory
	}
	if c.Assistant.MockDelay <= 0 {
		c.Assistant.MockDelay = 800 * time.Millisecond
	}
	if c.Assistant.MaxBodyBytes <= 0 {
		c.Assistant.MaxBodyBytes = 4 << 20
	}
	if c.Auth.LoginPath == "" {
		c.Auth.LoginPath = "/login"
	}
	if c.Auth.GoogleLoginPath == "" {
		c.Auth.GoogleLoginPath = "/login/google"
	}
	if c.Auth.AppID == "" {
		c.Auth.AppID = "chatbot1"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "chat-storage"
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)
	if c.Tokens.Encoding == "" {
		c.Tokens.Encoding = "cl100k_base"
	}
}

// Values is the flat key/value view of the configuration used for
// required-key checks. Empty values are omitted.
func (c *Config) Values() map[string]string {
	out := make(map[string]string, len(c.Assistant.Extra)+8)
	for k, v := range c.Assistant.Extra {
		if v != "" {
			out[k] = v
		}
	}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put(KeyAPIURL, c.Assistant.APIURL)
	put(KeyChatAPIURL, c.Assistant.ChatURL)
	put(KeyRedisURL, c.Redis.URL)
	put(KeyLogLevel, c.Log.Level)
	put(KeyEncryptionKey, c.Security.EncryptionKey)
	if c.Assistant.MaxChatHistory != 0 {
		put(KeyMaxChatHistory, strconv.Itoa(c.Assistant.MaxChatHistory))
	}
	put(KeyUseMock, strconv.FormatBool(c.Assistant.UseMock))
	return out
}

// IsDevelopment reports whether error payloads may carry raw detail.
func (c *Config) IsDevelopment() bool {
	return c.Runtime.Dev || c.App.Environment == "development"
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}
