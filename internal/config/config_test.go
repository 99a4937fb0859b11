package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Listen)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 6*time.Hour, cfg.Window)
	assert.Equal(t, 7*24*time.Hour, cfg.MaxAge)
	assert.InDelta(t, 100_000, cfg.MinMarketCap, 0)
	assert.Equal(t, DefaultAllowPrograms, cfg.AllowPrograms)
	assert.Equal(t, DefaultDenyPrograms, cfg.DenyPrograms)
	assert.Equal(t, DefaultExcludedSources, cfg.ExcludedSources)
	assert.Equal(t, DefaultBaseTokens, cfg.BaseTokens)
	assert.Equal(t, 5, cfg.QueueBatchSize)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 2, cfg.HTTPMaxRetries)
	assert.Equal(t, 10*time.Second, cfg.HTTPMaxBackoff)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("MONITOR_WINDOW", "2h")
	t.Setenv("MONITOR_DENY_PROGRAMS", "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P, 11111111111111111111111111111111")
	t.Setenv("MONITOR_STORE", "MEMORY")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("sentinel-wallet", "", "")
	flags.Int("queue-batch-size", 5, "")
	require.NoError(t, flags.Parse([]string{"--sentinel-wallet", "DNfuF1L62WWyW3pNakVkyGGFzVVhj4Yr52jSmdTyeBHm", "--queue-batch-size", "9"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Window)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, []string{"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", "11111111111111111111111111111111"}, cfg.DenyPrograms)
	assert.Equal(t, "DNfuF1L62WWyW3pNakVkyGGFzVVhj4Yr52jSmdTyeBHm", cfg.SentinelWallet)
	assert.Equal(t, 9, cfg.QueueBatchSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: memory\nmin-market-cap: 50000\nexcluded-sources:\n  - PUMP_FUN\n  - MOONSHOT\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.InDelta(t, 50_000, cfg.MinMarketCap, 0)
	assert.Equal(t, []string{"PUMP_FUN", "MOONSHOT"}, cfg.ExcludedSources)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		cfg.Store = StoreMemory
		return cfg
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Store = StorePostgres
	assert.ErrorContains(t, cfg.Validate(), "pg-dsn")

	cfg = base()
	cfg.Store = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.AllowPrograms = []string{"not-base58-0OIl"}
	assert.ErrorContains(t, cfg.Validate(), "allow-programs")

	cfg = base()
	cfg.SentinelWallet = "3yZe7d"
	assert.ErrorContains(t, cfg.Validate(), "sentinel-wallet")

	cfg = base()
	assert.ErrorContains(t, cfg.ValidateServe(), "webhook-secret")
	cfg.WebhookSecret = "x"
	assert.NoError(t, cfg.ValidateServe())
}
