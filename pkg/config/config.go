package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the inboxflow service.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Templates  TemplatesConfig  `koanf:"templates"  validate:"required"`
	N8N        N8NConfig        `koanf:"n8n"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
	AI         AIConfig         `koanf:"ai"`
	Google     GoogleConfig     `koanf:"google"`
	Graph      GraphConfig      `koanf:"graph"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host    string        `koanf:"host"    validate:"required"        env:"INBOXFLOW_SERVER_HOST"`
	Port    int           `koanf:"port"    validate:"min=1,max=65535" env:"INBOXFLOW_SERVER_PORT"`
	Timeout time.Duration `koanf:"timeout"                            env:"INBOXFLOW_SERVER_TIMEOUT"`
}

// TemplatesConfig controls where base workflow templates come from and how they are cached.
type TemplatesConfig struct {
	Source             string        `koanf:"source"               validate:"oneof=embedded http dir" env:"INBOXFLOW_TEMPLATES_SOURCE"`
	URL                string        `koanf:"url"                                                     env:"INBOXFLOW_TEMPLATES_URL"`
	Dir                string        `koanf:"dir"                                                     env:"INBOXFLOW_TEMPLATES_DIR"`
	CacheSize          int           `koanf:"cache_size"           validate:"min=1"                   env:"INBOXFLOW_TEMPLATES_CACHE_SIZE"`
	FetchTimeout       time.Duration `koanf:"fetch_timeout"                                           env:"INBOXFLOW_TEMPLATES_FETCH_TIMEOUT"`
	RetryAttempts      uint64        `koanf:"retry_attempts"                                          env:"INBOXFLOW_TEMPLATES_RETRY_ATTEMPTS"`
	RetryBaseDelay     time.Duration `koanf:"retry_base_delay"                                        env:"INBOXFLOW_TEMPLATES_RETRY_BASE_DELAY"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"min=1"                   env:"INBOXFLOW_TEMPLATES_BREAKER_MAX_FAILURES"`
	BreakerCooldown    time.Duration `koanf:"breaker_cooldown"                                        env:"INBOXFLOW_TEMPLATES_BREAKER_COOLDOWN"`
}

// N8NConfig contains the workflow engine REST API settings.
type N8NConfig struct {
	URL        string          `koanf:"url"         env:"INBOXFLOW_N8N_URL"`
	APIKey     SensitiveString `koanf:"api_key"     env:"INBOXFLOW_N8N_API_KEY"     sensitive:"true"`
	Timeout    time.Duration   `koanf:"timeout"     env:"INBOXFLOW_N8N_TIMEOUT"`
	RetryCount int             `koanf:"retry_count" env:"INBOXFLOW_N8N_RETRY_COUNT" validate:"min=0"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"INBOXFLOW_RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"INBOXFLOW_RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                    env:"INBOXFLOW_RUNTIME_LOG_JSON"`
}

// AIConfig holds the default AI provider credential bound to language model nodes.
type AIConfig struct {
	CredentialID   string `koanf:"credential_id"   env:"INBOXFLOW_AI_CREDENTIAL_ID"`
	CredentialName string `koanf:"credential_name" env:"INBOXFLOW_AI_CREDENTIAL_NAME"`
}

// GoogleConfig holds the OAuth client used to enumerate Gmail labels.
type GoogleConfig struct {
	ClientID     string          `koanf:"client_id"     env:"INBOXFLOW_GOOGLE_CLIENT_ID"`
	ClientSecret SensitiveString `koanf:"client_secret" env:"INBOXFLOW_GOOGLE_CLIENT_SECRET" sensitive:"true"`
	RedirectURL  string          `koanf:"redirect_url"  env:"INBOXFLOW_GOOGLE_REDIRECT_URL"`
}

// GraphConfig holds Microsoft Graph settings used to enumerate Outlook folders.
type GraphConfig struct {
	BaseURL string        `koanf:"base_url" env:"INBOXFLOW_GRAPH_BASE_URL"`
	Timeout time.Duration `koanf:"timeout"  env:"INBOXFLOW_GRAPH_TIMEOUT"`
}

// MonitoringConfig controls the Prometheus exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"INBOXFLOW_MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"INBOXFLOW_MONITORING_PATH"`
}

// SensitiveString is a string that is redacted when printed or marshaled.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// Service defines the interface for configuration management.
type Service interface {
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Validate(config *Config) error
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata tracks where each configuration key came from.
type Metadata struct {
	Sources  map[string]SourceType
	LoadedAt time.Time
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    5080,
			Timeout: 30 * time.Second,
		},
		Templates: TemplatesConfig{
			Source:             "embedded",
			CacheSize:          8,
			FetchTimeout:       10 * time.Second,
			RetryAttempts:      3,
			RetryBaseDelay:     200 * time.Millisecond,
			BreakerMaxFailures: 5,
			BreakerCooldown:    30 * time.Second,
		},
		N8N: N8NConfig{
			URL:        "http://localhost:5678",
			Timeout:    30 * time.Second,
			RetryCount: 3,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		AI: AIConfig{
			CredentialName: "OpenAI account",
		},
		Graph: GraphConfig{
			BaseURL: "https://graph.microsoft.com/v1.0",
			Timeout: 15 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
