package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Oracle      OracleConfig      `mapstructure:"oracle"`
	Facilitator FacilitatorConfig `mapstructure:"facilitator"`
	Platform    PlatformConfig    `mapstructure:"platform"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Reverifier  ReverifierConfig  `mapstructure:"reverifier"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ChainConfig holds blockchain RPC verification settings.
type ChainConfig struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	ChainID          int64         `mapstructure:"chain_id"`
	MinConfirmations uint64        `mapstructure:"min_confirmations"`
	SlippageBps      int64         `mapstructure:"slippage_bps"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// OracleConfig holds price feed settings.
type OracleConfig struct {
	FeedURL        string        `mapstructure:"feed_url"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	FallbackPrice  float64       `mapstructure:"fallback_price"` // last-resort USD/ETH rate
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FacilitatorConfig holds the gasless settlement facilitator endpoint.
// An empty URL disables the gasless path entirely (fail closed).
type FacilitatorConfig struct {
	URL            string        `mapstructure:"url"`
	Network        string        `mapstructure:"network"`
	Currency       string        `mapstructure:"currency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// PlatformConfig holds marketplace revenue settings.
type PlatformConfig struct {
	FeePercent    int    `mapstructure:"fee_percent"`
	PayoutAddress string `mapstructure:"payout_address"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// ReverifierConfig controls the background confirmation sweep.
// Interval must stay below the verification deadline window so a
// legitimately-confirmed purchase is never left in limbo.
type ReverifierConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	DeadlineWindow time.Duration `mapstructure:"deadline_window"`
	BatchSize      int           `mapstructure:"batch_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ASP_ (AgentStore Payments).
// Nested keys use underscore: ASP_CHAIN_RPC_URL, ASP_PLATFORM_FEE_PERCENT, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "agentstore")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("chain.min_confirmations", 2)
	v.SetDefault("chain.slippage_bps", 500)
	v.SetDefault("chain.request_timeout", "15s")
	v.SetDefault("oracle.feed_url", "")
	v.SetDefault("oracle.cache_ttl", "60s")
	v.SetDefault("oracle.fallback_price", 3000.0)
	v.SetDefault("oracle.request_timeout", "10s")
	v.SetDefault("facilitator.url", "")
	v.SetDefault("facilitator.network", "base")
	v.SetDefault("facilitator.currency", "USDC")
	v.SetDefault("facilitator.request_timeout", "30s")
	v.SetDefault("platform.fee_percent", 20)
	v.SetDefault("platform.payout_address", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "agentstore-payments")
	v.SetDefault("reverifier.interval", "1m")
	v.SetDefault("reverifier.deadline_window", "5m")
	v.SetDefault("reverifier.batch_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: ASP_CHAIN_RPC_URL -> chain.rpc_url
	v.SetEnvPrefix("ASP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Platform.FeePercent < 0 || cfg.Platform.FeePercent > 100 {
		return nil, fmt.Errorf("platform.fee_percent must be within [0, 100], got %d", cfg.Platform.FeePercent)
	}

	return &cfg, nil
}
