// Package config defines the typed configuration tree for the careplane
// service and its viper-based loader.
package config

import (
	"fmt"
	"time"
)

// Config holds the application's configuration.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	Vault       VaultConfig      `mapstructure:"vault"`
	Security    SecurityConfig   `mapstructure:"security"`
	Assistant   AssistantConfig  `mapstructure:"assistant"`
	Compliance  ComplianceConfig `mapstructure:"compliance"`
	Geo         GeoConfig        `mapstructure:"geo"`
	Log         LogConfig        `mapstructure:"log"`
	Tracing     TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // minutes
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	AuditTopic   string        `mapstructure:"audit_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	MountPath string `mapstructure:"mount_path"`
	SecretKey string `mapstructure:"secret_key"`
}

// SecurityConfig controls the trust-boundary behavior.
type SecurityConfig struct {
	// JWTSecret verifies principal bearer tokens (HS256).
	JWTSecret string `mapstructure:"jwt_secret"`
	// TenantCacheTTL bounds tenant-context cache entries.
	TenantCacheTTL time.Duration `mapstructure:"tenant_cache_ttl"`
	// AllowQueryParamTenant enables the dev-only tenant query parameter.
	// Must be false in production.
	AllowQueryParamTenant bool `mapstructure:"allow_query_param_tenant"`
	// AuditHMACKey signs audit events when Vault is disabled.
	AuditHMACKey string `mapstructure:"audit_hmac_key"`
}

// AssistantConfig bounds the conversational-assistant boundary.
type AssistantConfig struct {
	// BlockHighSeverity additionally blocks on HIGH threat matches.
	BlockHighSeverity bool `mapstructure:"block_high_severity"`
	// MaxTextLength truncates free-text fields beyond this many runes.
	MaxTextLength int `mapstructure:"max_text_length"`
	// RateLimitPerMinute is the per-tenant assistant request budget.
	RateLimitPerMinute int64 `mapstructure:"rate_limit_per_minute"`
}

// ComplianceConfig governs the aggregation fan-out.
type ComplianceConfig struct {
	// AssessmentTimeout bounds each per-jurisdiction provider call.
	AssessmentTimeout time.Duration `mapstructure:"assessment_timeout"`
	// RetryBackoff is the pause before the single transient retry.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// ProviderURLs maps jurisdiction names to assessment provider base URLs.
	ProviderURLs map[string]string `mapstructure:"provider_urls"`
}

// GeoConfig backs the request-origin classifier. Unlisted origins classify
// as UNKNOWN and fail residency checks closed.
type GeoConfig struct {
	// CIDRCountries maps CIDR ranges to ISO country codes.
	CIDRCountries map[string]string `mapstructure:"cidr_countries"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// IsProduction reports whether the service runs in production mode, which
// forces the dev-only tenant query parameter off.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks essential values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.IsProduction() && c.Security.AllowQueryParamTenant {
		return fmt.Errorf("security.allow_query_param_tenant must be false in production")
	}
	if !c.Vault.Enabled && c.Security.AuditHMACKey == "" {
		return fmt.Errorf("security.audit_hmac_key is required when vault is disabled")
	}
	return nil
}
