package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"walletMonitor/internal/httpclient"
	"walletMonitor/internal/model"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var (
	DefaultExcludedSources = []string{"PUMP_FUN"}
	DefaultAllowPrograms   = []string{
		"pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA", // Pump AMM
		"LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo", // Meteora DLMM
		"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4", // Jupiter v6
	}
	DefaultDenyPrograms = []string{
		"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", // Pump.fun
	}
	DefaultBaseTokens = []string{model.SOLMint, model.USDCMint}
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Listen        string
	WebhookSecret string
	Store         string
	PGDSN         string
	SolanaRPC     string

	TelegramToken     string
	TelegramChannelID string
	TelegramURL       string
	WeComKey          string
	WeComURL          string
	DexScreenerURL    string
	RugCheckURL       string

	Window          time.Duration
	MinMarketCap    float64
	MaxAge          time.Duration
	SentinelWallet  string
	ExcludedSources []string
	AllowPrograms   []string
	DenyPrograms    []string
	BaseTokens      []string

	QueueInterval  time.Duration
	QueueBatchSize int
	CacheTTL       time.Duration

	HTTPTimeout    time.Duration
	HTTPMaxRetries int
	HTTPMaxBackoff time.Duration

	Workers     int
	TaskTimeout time.Duration
	JournalDir  string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":3000")
	v.SetDefault("store", StorePostgres)
	v.SetDefault("window", 6*time.Hour)
	v.SetDefault("min-market-cap", 100_000.0)
	v.SetDefault("max-age", 7*24*time.Hour)
	v.SetDefault("excluded-sources", DefaultExcludedSources)
	v.SetDefault("allow-programs", DefaultAllowPrograms)
	v.SetDefault("deny-programs", DefaultDenyPrograms)
	v.SetDefault("base-tokens", DefaultBaseTokens)
	v.SetDefault("queue-interval", time.Second)
	v.SetDefault("queue-batch-size", 5)
	v.SetDefault("cache-ttl", 30*time.Second)
	v.SetDefault("http-timeout", 30*time.Second)
	v.SetDefault("http-max-retries", httpclient.DefaultMaxRetries)
	v.SetDefault("http-max-backoff", 10*time.Second)
	v.SetDefault("workers", 4)
	v.SetDefault("task-timeout", 2*time.Minute)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Listen:            v.GetString("listen"),
		WebhookSecret:     v.GetString("webhook-secret"),
		Store:             strings.ToLower(v.GetString("store")),
		PGDSN:             v.GetString("pg-dsn"),
		SolanaRPC:         v.GetString("solana-rpc"),
		TelegramToken:     v.GetString("telegram-token"),
		TelegramChannelID: v.GetString("telegram-channel-id"),
		TelegramURL:       v.GetString("telegram-url"),
		WeComKey:          v.GetString("wecom-key"),
		WeComURL:          v.GetString("wecom-url"),
		DexScreenerURL:    v.GetString("dexscreener-url"),
		RugCheckURL:       v.GetString("rugcheck-url"),
		Window:            v.GetDuration("window"),
		MinMarketCap:      v.GetFloat64("min-market-cap"),
		MaxAge:            v.GetDuration("max-age"),
		SentinelWallet:    strings.TrimSpace(v.GetString("sentinel-wallet")),
		ExcludedSources:   getStringSlice(v, "excluded-sources"),
		AllowPrograms:     getStringSlice(v, "allow-programs"),
		DenyPrograms:      getStringSlice(v, "deny-programs"),
		BaseTokens:        getStringSlice(v, "base-tokens"),
		QueueInterval:     v.GetDuration("queue-interval"),
		QueueBatchSize:    v.GetInt("queue-batch-size"),
		CacheTTL:          v.GetDuration("cache-ttl"),
		HTTPTimeout:       v.GetDuration("http-timeout"),
		HTTPMaxRetries:    v.GetInt("http-max-retries"),
		HTTPMaxBackoff:    v.GetDuration("http-max-backoff"),
		Workers:           v.GetInt("workers"),
		TaskTimeout:       v.GetDuration("task-timeout"),
		JournalDir:        v.GetString("journal-dir"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks values every command depends on.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for store %q", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	if c.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("max-age must be positive")
	}
	if c.MinMarketCap < 0 {
		return fmt.Errorf("min-market-cap must not be negative")
	}
	if c.HTTPMaxRetries < 0 {
		return fmt.Errorf("http-max-retries must not be negative")
	}

	for key, ids := range map[string][]string{
		"allow-programs": c.AllowPrograms,
		"deny-programs":  c.DenyPrograms,
		"base-tokens":    c.BaseTokens,
	} {
		for _, id := range ids {
			if err := ValidatePublicKey(id); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if c.SentinelWallet != "" {
		if err := ValidatePublicKey(c.SentinelWallet); err != nil {
			return fmt.Errorf("sentinel-wallet: %w", err)
		}
	}
	return nil
}

// ValidateServe adds the checks needed to run the webhook server.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("webhook-secret is required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

// ValidatePublicKey checks that key is a base58 encoded 32-byte Solana key.
func ValidatePublicKey(key string) error {
	raw, err := base58.Decode(key)
	if err != nil {
		return fmt.Errorf("invalid base58 key %q: %w", key, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("key %q decodes to %d bytes, want 32", key, len(raw))
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
