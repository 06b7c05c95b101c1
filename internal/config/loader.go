package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/careplane/careplane/pkg/constants"
)

// LoadConfig loads configuration from file, environment variables and
// defaults, in increasing priority.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("kafka.audit_topic", "careplane.audit")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.required_acks", -1)
	v.SetDefault("security.tenant_cache_ttl", constants.DefaultTenantCacheTTL)
	v.SetDefault("assistant.max_text_length", constants.DefaultFreeTextLimit)
	v.SetDefault("assistant.rate_limit_per_minute", 60)
	v.SetDefault("compliance.assessment_timeout", constants.DefaultAssessmentTimeout)
	v.SetDefault("compliance.retry_backoff", constants.DefaultAssessmentRetryBackoff)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.service_name", constants.ServiceName)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/careplane/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
