package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Environment string
		LogDir      string
		HTTPAddr    string
		Debug       bool
	}

	Refresh struct {
		Interval         time.Duration
		CacheTTL         time.Duration
		SweepInterval    time.Duration
		RetryDelay       time.Duration
		DirectMaxRetries uint64 // 0 means retry until cancelled
	}

	Source struct {
		BaseURL string
		Timeout time.Duration
	}

	Storage struct {
		Backend       string // file, postgres or redis
		FilePath      string
		PostgresDSN   string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}
}

func InitConfig(rootCmd *cobra.Command) {
	// Define CLI flags
	rootCmd.PersistentFlags().String("http-addr", ":8080", "Keep-alive HTTP listen address (health, metrics, view feed)")
	rootCmd.PersistentFlags().Duration("refresh-interval", 15*time.Second, "Per-subscriber refresh tick interval")
	rootCmd.PersistentFlags().Duration("cache-ttl", time.Minute, "Price cache entry time-to-live")
	rootCmd.PersistentFlags().Duration("sweep-interval", time.Minute, "Price cache expiry sweep cadence")
	rootCmd.PersistentFlags().Duration("retry-delay", 5*time.Second, "Fixed delay between upstream fetch retries on direct requests")
	rootCmd.PersistentFlags().Uint64("direct-max-retries", 0, "Retry limit for direct fetches (0 = until cancelled)")
	rootCmd.PersistentFlags().String("source-base-url", "https://api.dexscreener.com", "Price source base URL")
	rootCmd.PersistentFlags().Duration("source-timeout", 10*time.Second, "Per-request price source timeout")
	rootCmd.PersistentFlags().String("storage", "file", "Persistence backend: file, postgres or redis")
	rootCmd.PersistentFlags().String("storage-path", "data/subscribers.json", "State file path for the file backend")
	rootCmd.PersistentFlags().String("postgres-dsn", "", "Postgres DSN for the postgres backend")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Redis address for the redis backend")
	rootCmd.PersistentFlags().String("redis-password", "", "Redis password")
	rootCmd.PersistentFlags().Int("redis-db", 0, "Redis database number")
	rootCmd.PersistentFlags().String("log-dir", "logs", "Directory for rotated log files")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// Bind CLI flags to viper
	viper.BindPFlags(rootCmd.PersistentFlags())

	// Set environment variable prefix
	viper.SetEnvPrefix("HYPRICE")
	viper.AutomaticEnv()

	// Replace hyphens with underscores in env var names
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	viper.SetDefault("environment", "production")
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.App.Environment = viper.GetString("environment")
	cfg.App.LogDir = viper.GetString("log-dir")
	cfg.App.HTTPAddr = viper.GetString("http-addr")
	cfg.App.Debug = viper.GetBool("debug")

	cfg.Refresh.Interval = viper.GetDuration("refresh-interval")
	cfg.Refresh.CacheTTL = viper.GetDuration("cache-ttl")
	cfg.Refresh.SweepInterval = viper.GetDuration("sweep-interval")
	cfg.Refresh.RetryDelay = viper.GetDuration("retry-delay")
	cfg.Refresh.DirectMaxRetries = viper.GetUint64("direct-max-retries")

	cfg.Source.BaseURL = strings.TrimRight(viper.GetString("source-base-url"), "/")
	cfg.Source.Timeout = viper.GetDuration("source-timeout")

	cfg.Storage.Backend = strings.ToLower(viper.GetString("storage"))
	cfg.Storage.FilePath = viper.GetString("storage-path")
	cfg.Storage.PostgresDSN = viper.GetString("postgres-dsn")
	cfg.Storage.RedisAddr = viper.GetString("redis-addr")
	cfg.Storage.RedisPassword = viper.GetString("redis-password")
	cfg.Storage.RedisDB = viper.GetInt("redis-db")

	if cfg.Refresh.Interval <= 0 {
		return nil, fmt.Errorf("refresh-interval must be positive, got %s", cfg.Refresh.Interval)
	}
	if cfg.Refresh.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache-ttl must be positive, got %s", cfg.Refresh.CacheTTL)
	}
	if cfg.Refresh.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep-interval must be positive, got %s", cfg.Refresh.SweepInterval)
	}

	switch cfg.Storage.Backend {
	case "file":
		if cfg.Storage.FilePath == "" {
			return nil, fmt.Errorf("storage-path is required for the file backend")
		}
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres-dsn is required for the postgres backend. Use --postgres-dsn or HYPRICE_POSTGRES_DSN")
		}
	case "redis":
		if cfg.Storage.RedisAddr == "" {
			return nil, fmt.Errorf("redis-addr is required for the redis backend")
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q, expected file, postgres or redis", cfg.Storage.Backend)
	}

	return cfg, nil
}
