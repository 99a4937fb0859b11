package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"walletMonitor/internal/config"
)

func TestBuildPipelineWithMemoryStore(t *testing.T) {
	cfg := config.Config{
		Store:          config.StoreMemory,
		Window:         6 * time.Hour,
		MinMarketCap:   100_000,
		MaxAge:         7 * 24 * time.Hour,
		BaseTokens:     config.DefaultBaseTokens,
		QueueInterval:  10 * time.Millisecond,
		QueueBatchSize: 5,
		CacheTTL:       time.Second,
		HTTPTimeout:    time.Second,
	}

	p, err := buildPipeline(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	families, err := p.registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["wallet_monitor_request_queue_pending"])
	assert.True(t, names["wallet_monitor_request_queue_cached"])

	ctx, cancel := context.WithCancel(context.Background())
	queues := p.runQueues(ctx)
	cancel()
	assert.NoError(t, queues.Wait())
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	_, _, err := openStore(context.Background(), config.Config{Store: "sqlite"})
	require.Error(t, err)
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = newLogger("loud")
	require.Error(t, err)
}
