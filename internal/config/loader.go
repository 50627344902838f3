package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "GUILD_DASHBOARD"

// Secrets are read from the environment only, never from the config file
type Secrets struct {
	DatabaseURL string // optional: enables treasury history
	PrivateKey  string // optional: enables allowance requests
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "")
	v.SetDefault("http_port", 8080)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("graph_timeout", "10s")
	v.SetDefault("receipt_timeout", "3m")
	v.SetDefault("token.symbol", "WETH")
	v.SetDefault("token.decimals", 18)

	// 2. Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment: GUILD_DASHBOARD_TOKEN_ADDRESS -> token.address
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("rpc_url", envPrefix+"_RPC_URL", "RPC_URL")
	v.BindEnv("rpc_urls", envPrefix+"_RPC_URLS", "RPC_URLS")
	v.BindEnv("graph_url", envPrefix+"_GRAPH_URL", "GRAPH_URL")
	v.BindEnv("guild_address", envPrefix+"_GUILD_ADDRESS", "GUILD_ADDRESS")
	v.BindEnv("user_address", envPrefix+"_USER_ADDRESS", "USER_ADDRESS")
	v.BindEnv("token.address", envPrefix+"_TOKEN_ADDRESS", "TOKEN_ADDRESS")
	v.BindEnv("token.decimals", envPrefix+"_TOKEN_DECIMALS")
	v.BindEnv("token.symbol", envPrefix+"_TOKEN_SYMBOL")
	v.BindEnv("locale.symbol", envPrefix+"_LOCALE_SYMBOL")
	v.BindEnv("locale.thousands_separator", envPrefix+"_LOCALE_THOUSANDS_SEPARATOR")
	v.BindEnv("locale.decimal_separator", envPrefix+"_LOCALE_DECIMAL_SEPARATOR")
	v.BindEnv("log_level", envPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("interval", envPrefix+"_INTERVAL", "INTERVAL")
	v.BindEnv("http_port", envPrefix+"_HTTP_PORT", "HTTP_PORT")
	v.BindEnv("timezone", envPrefix+"_TIMEZONE", "TIMEZONE")
	v.BindEnv("graph_timeout", envPrefix+"_GRAPH_TIMEOUT")
	v.BindEnv("receipt_timeout", envPrefix+"_RECEIPT_TIMEOUT")

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated RPC_URLS from env
	if rpcURLsEnv := v.GetString("rpc_urls"); strings.Contains(rpcURLsEnv, ",") {
		urls := strings.Split(rpcURLsEnv, ",")
		for i := range urls {
			urls[i] = strings.TrimSpace(urls[i])
		}
		cfg.RPCUrls = urls
	}

	// 6. Normalize
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate
	if err := NewValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadSecrets reads DATABASE_URL and PRIVATE_KEY from the environment
func LoadSecrets() Secrets {
	v := viper.New()
	v.BindEnv("database_url", "DATABASE_URL")
	v.BindEnv("private_key", envPrefix+"_PRIVATE_KEY", "PRIVATE_KEY")
	return Secrets{
		DatabaseURL: v.GetString("database_url"),
		PrivateKey:  v.GetString("private_key"),
	}
}

// LoadWithSecrets loads the config file and the environment secrets
func LoadWithSecrets(configPath string) (*Config, Secrets, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, Secrets{}, err
	}
	return cfg, LoadSecrets(), nil
}

// RequireDatabaseURL returns DATABASE_URL or an error when it is unset
func RequireDatabaseURL() (string, error) {
	dsn := LoadSecrets().DatabaseURL
	if dsn == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	return dsn, nil
}
