package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Solana      SolanaConfig   `mapstructure:"solana"`
	Lulo        LuloConfig     `mapstructure:"lulo"`
	Jupiter     JupiterConfig  `mapstructure:"jupiter"`
	Paj         PajConfig      `mapstructure:"paj"`
	Refresh     RefreshConfig  `mapstructure:"refresh"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// Addr returns the host:port address for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// TokenConfig describes one supported stablecoin mint.
type TokenConfig struct {
	Mint     string `mapstructure:"mint"`
	Decimals int32  `mapstructure:"decimals"`
}

type SolanaConfig struct {
	RPCURL              string                 `mapstructure:"rpc_url"`
	Commitment          string                 `mapstructure:"commitment"`
	TokenProgramID      string                 `mapstructure:"token_program_id"`
	Tokens              map[string]TokenConfig `mapstructure:"tokens"`
	ConfirmPollInterval int                    `mapstructure:"confirm_poll_interval"` // seconds
	ConfirmMaxAttempts  int                    `mapstructure:"confirm_max_attempts"`
	Timeout             int                    `mapstructure:"timeout"` // seconds
}

type LuloConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

type JupiterConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	SlippageBps int    `mapstructure:"slippage_bps"`
	Timeout     int    `mapstructure:"timeout"` // seconds
}

type PajConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"`     // seconds
	SessionTTL int    `mapstructure:"session_ttl"` // seconds
}

// SessionTTLDuration returns the session TTL as a duration.
func (p PajConfig) SessionTTLDuration() time.Duration {
	return time.Duration(p.SessionTTL) * time.Second
}

type RefreshConfig struct {
	OnChainInterval      int    `mapstructure:"onchain_interval"` // seconds
	PoolDataTTL          int    `mapstructure:"pool_data_ttl"`    // seconds
	PoolRefreshSchedule  string `mapstructure:"pool_refresh_schedule"`
	ConnectivityInterval int    `mapstructure:"connectivity_interval"` // seconds
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	// Read from config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)

	// Solana defaults
	viper.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	viper.SetDefault("solana.commitment", "confirmed")
	viper.SetDefault("solana.token_program_id", "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	viper.SetDefault("solana.confirm_poll_interval", 2)
	viper.SetDefault("solana.confirm_max_attempts", 30)
	viper.SetDefault("solana.timeout", 30)
	viper.SetDefault("solana.tokens", map[string]map[string]interface{}{
		"usdc": {"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "decimals": 6},
		"usdt": {"mint": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", "decimals": 6},
	})

	// Lulo defaults
	viper.SetDefault("lulo.base_url", "https://api.lulo.fi/v1")
	viper.SetDefault("lulo.timeout", 30)

	// Jupiter defaults
	viper.SetDefault("jupiter.base_url", "https://api.jup.ag")
	viper.SetDefault("jupiter.slippage_bps", 100)
	viper.SetDefault("jupiter.timeout", 30)

	// Paj defaults
	viper.SetDefault("paj.base_url", "https://api-staging.paj.cash")
	viper.SetDefault("paj.timeout", 30)
	viper.SetDefault("paj.session_ttl", 3600) // 1 hour

	// Refresh defaults
	viper.SetDefault("refresh.onchain_interval", 15)
	viper.SetDefault("refresh.pool_data_ttl", 1200) // 20 minutes
	viper.SetDefault("refresh.pool_refresh_schedule", "@every 20m")
	viper.SetDefault("refresh.connectivity_interval", 10)
}

func overrideFromEnv() {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	// Redis
	if redisURL := os.Getenv("REDIS_HOST"); redisURL != "" {
		viper.Set("redis.host", redisURL)
	}
	if redisPass := os.Getenv("REDIS_PASSWORD"); redisPass != "" {
		viper.Set("redis.password", redisPass)
	}

	// Solana
	if rpcURL := os.Getenv("SOLANA_RPC_URL"); rpcURL != "" {
		viper.Set("solana.rpc_url", rpcURL)
	}

	// Lulo
	if apiKey := os.Getenv("LULO_API_KEY"); apiKey != "" {
		viper.Set("lulo.api_key", apiKey)
	}
	if baseURL := os.Getenv("LULO_BASE_URL"); baseURL != "" {
		viper.Set("lulo.base_url", baseURL)
	}

	// Jupiter
	if baseURL := os.Getenv("JUPITER_BASE_URL"); baseURL != "" {
		viper.Set("jupiter.base_url", baseURL)
	}

	// Paj
	if baseURL := os.Getenv("PAJ_BASE_URL"); baseURL != "" {
		viper.Set("paj.base_url", baseURL)
	}
}

func validate(config *Config) error {
	if config.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	if len(config.Solana.Tokens) == 0 {
		return fmt.Errorf("at least one token mint must be configured")
	}
	for name, token := range config.Solana.Tokens {
		if token.Mint == "" {
			return fmt.Errorf("token %s is missing its mint address", name)
		}
		if token.Decimals <= 0 {
			return fmt.Errorf("token %s has invalid decimals", name)
		}
	}
	if config.Environment == "production" && config.Lulo.APIKey == "" {
		return fmt.Errorf("lulo.api_key is required in production")
	}
	if config.Refresh.OnChainInterval <= 0 {
		return fmt.Errorf("refresh.onchain_interval must be positive")
	}
	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
