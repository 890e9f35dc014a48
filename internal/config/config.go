package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Notifier backends
const (
	NotifierTelegram = "telegram"
	NotifierWhatsApp = "whatsapp"
)

// Registry backends
const (
	RegistrySQLite = "sqlite"
	RegistryFile   = "file"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Logging configuration
	Log LogConfig

	// Security configuration
	Security SecurityConfig

	// GitHub webhook and REST API configuration
	GitHub GitHubConfig

	// Notifier selects the messaging backend
	Notifier NotifierConfig

	// Telegram configuration
	Telegram TelegramConfig

	// WhatsApp configuration
	WhatsApp WhatsAppConfig

	// Registry configuration
	Registry RegistryConfig

	// Review engine configuration
	Review ReviewConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// SecurityConfig holds security-specific configuration
type SecurityConfig struct {
	// API Keys - sent by clients of the registry admin API
	APIKeys []string
}

// GitHubConfig holds GitHub webhook and API configuration
type GitHubConfig struct {
	WebhookSecret    string // Secret for X-Hub-Signature-256 validation
	Token            string // Token used for the REST API
	APIURL           string
	FetchTimeout     time.Duration // Per request
	FetchConcurrency int
}

// NotifierConfig selects the notification backend
type NotifierConfig struct {
	Backend string // "telegram" or "whatsapp"
}

// TelegramConfig holds Telegram Bot API configuration
type TelegramConfig struct {
	BotToken string
	APIURL   string
	Timeout  time.Duration
}

// WhatsAppConfig holds WhatsApp-specific configuration
type WhatsAppConfig struct {
	DBDriver   string
	DBDSN      string
	LogLevel   string
	DeviceName string // Custom device name that appears in WhatsApp linked devices
}

// RegistryConfig holds repo-to-chat registry configuration
type RegistryConfig struct {
	Backend string // "sqlite" or "file"
	Path    string
}

// ReviewConfig holds review engine configuration
type ReviewConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	MaxTokens      int
	MaxPromptChars int
	Timeout        time.Duration
	PromptPrefix   string
}

// DefaultPromptPrefix is the instruction prepended to the fetched code
const DefaultPromptPrefix = "Проанализируй следующий код:\n\n"

// Load loads configuration from environment variables with sensible defaults.
// A YAML file named by CONFIG_FILE provides values for keys that are not set
// in the environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore errors - it's optional)
	_ = godotenv.Load(".env")

	src := &source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	cfg := src.build()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (s *source) build() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            s.getEnv("SERVER_HOST", ""),
			Port:            s.getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     s.getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    s.getEnvAsDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: s.getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxBodyBytes:    int64(s.getEnvAsInt("SERVER_MAX_BODY_BYTES", 25<<20)),
		},
		Log: LogConfig{
			Level:  s.getEnv("LOG_LEVEL", "info"),
			Format: s.getEnv("LOG_FORMAT", "text"),
		},
		Security: SecurityConfig{
			APIKeys: s.getEnvAsSlice("API_KEYS", []string{}),
		},
		GitHub: GitHubConfig{
			WebhookSecret:    s.getEnv("GITHUB_WEBHOOK_SECRET", ""),
			Token:            s.getEnv("GITHUB_TOKEN", ""),
			APIURL:           s.getEnv("GITHUB_API_URL", "https://api.github.com/"),
			FetchTimeout:     s.getEnvAsDuration("GITHUB_FETCH_TIMEOUT", 30*time.Second),
			FetchConcurrency: s.getEnvAsInt("GITHUB_FETCH_CONCURRENCY", 4),
		},
		Notifier: NotifierConfig{
			Backend: strings.ToLower(s.getEnv("NOTIFIER_BACKEND", NotifierTelegram)),
		},
		Telegram: TelegramConfig{
			BotToken: s.getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIURL:   s.getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			Timeout:  s.getEnvAsDuration("TELEGRAM_TIMEOUT", 10*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			DBDriver:   s.getEnv("WHATSAPP_DB_DRIVER", "sqlite3"),
			DBDSN:      s.getEnv("WHATSAPP_DB_DSN", "file:whatsapp.db?_foreign_keys=on"),
			LogLevel:   s.getEnv("WHATSAPP_LOG_LEVEL", "INFO"),
			DeviceName: s.getEnv("WHATSAPP_DEVICE_NAME", "macOS"),
		},
		Registry: RegistryConfig{
			Backend: strings.ToLower(s.getEnv("REGISTRY_BACKEND", RegistrySQLite)),
			Path:    s.getEnv("REGISTRY_PATH", "data/registry.db"),
		},
		Review: ReviewConfig{
			BaseURL:        s.getEnv("REVIEW_API_URL", "https://api.mistral.ai"),
			APIKey:         s.getEnv("REVIEW_API_KEY", ""),
			Model:          s.getEnv("REVIEW_MODEL", "mistral-large-latest"),
			Temperature:    s.getEnvAsFloat("REVIEW_TEMPERATURE", 0.2),
			MaxTokens:      s.getEnvAsInt("REVIEW_MAX_TOKENS", 4096),
			MaxPromptChars: s.getEnvAsInt("REVIEW_MAX_PROMPT_CHARS", 60000),
			Timeout:        s.getEnvAsDuration("REVIEW_TIMEOUT", 3*time.Minute),
			PromptPrefix:   s.getEnv("REVIEW_PROMPT_PREFIX", DefaultPromptPrefix),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max body size: %d", c.Server.MaxBodyBytes)
	}

	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}

	if c.GitHub.FetchConcurrency < 1 {
		return fmt.Errorf("invalid fetch concurrency: %d", c.GitHub.FetchConcurrency)
	}

	switch c.Notifier.Backend {
	case NotifierTelegram:
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required for the telegram notifier")
		}
	case NotifierWhatsApp:
		if c.WhatsApp.DBDriver == "" || c.WhatsApp.DBDSN == "" {
			return fmt.Errorf("whatsapp database driver and DSN are required")
		}
	default:
		return fmt.Errorf("unknown notifier backend: %q", c.Notifier.Backend)
	}

	if err := c.Registry.Validate(); err != nil {
		return err
	}

	if c.Review.MaxPromptChars < 1 {
		return fmt.Errorf("invalid review max prompt chars: %d", c.Review.MaxPromptChars)
	}

	// Check for default/insecure API keys
	for _, key := range c.Security.APIKeys {
		if key == "default-api-key" || key == "api-key-123" || len(key) < 8 {
			return fmt.Errorf("insecure or default API key detected: '%s'. Please set secure API keys in environment variables", key)
		}
	}

	return nil
}

// Validate validates the registry section on its own, for commands that
// only touch the registry.
func (r *RegistryConfig) Validate() error {
	switch r.Backend {
	case RegistrySQLite, RegistryFile:
	default:
		return fmt.Errorf("unknown registry backend: %q", r.Backend)
	}
	if r.Path == "" {
		return fmt.Errorf("REGISTRY_PATH is required")
	}
	return nil
}

// LoadRegistry loads only the logging and registry sections. Used by the
// registry management commands, which must work without webhook secrets.
func LoadRegistry() (*Config, error) {
	_ = godotenv.Load(".env")

	src := &source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	cfg := src.build()
	if err := cfg.Registry.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Address returns the server address in the format host:port
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// source resolves configuration keys from the environment first and the
// optional config file second.
type source struct {
	file map[string]string
}

// readConfigFile reads a flat YAML mapping of configuration keys, e.g.
//
//	GITHUB_TOKEN: ghp_xxx
//	GITHUB_FETCH_CONCURRENCY: 8
func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			values[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}

	return values, nil
}

// Helper functions to get configuration values

func (s *source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s *source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *source) getEnvAsInt(key string, defaultValue int) int {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func (s *source) getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func (s *source) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func (s *source) getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}

	// Split by comma and trim spaces
	values := make([]string, 0)
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	return values
}
