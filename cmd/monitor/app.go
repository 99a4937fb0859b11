package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"walletMonitor/internal/alert"
	"walletMonitor/internal/config"
	"walletMonitor/internal/consensus"
	"walletMonitor/internal/enrich"
	"walletMonitor/internal/httpclient"
	"walletMonitor/internal/metrics"
	"walletMonitor/internal/model"
	"walletMonitor/internal/monitor"
	"walletMonitor/internal/notify"
	"walletMonitor/internal/reqqueue"
	"walletMonitor/internal/storage"
	"walletMonitor/internal/storage/memory"
	"walletMonitor/internal/storage/postgres"
)

// pipeline holds the components shared by serve and check.
type pipeline struct {
	store    storage.Store
	http     *httpclient.Client
	tokens   *reqqueue.Queue[*model.TokenInfo]
	risks    *reqqueue.Queue[*model.RiskReport]
	alerter  *monitor.Alerter
	detector *consensus.Detector
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	closers []func()
}

func newHTTPClient(cfg config.Config, logger *zap.Logger) *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.HTTPMaxRetries,
		MaxBackoff: cfg.HTTPMaxBackoff,
	}, logger.Named("http"))
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), func() {}, nil
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func buildPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pipeline, error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry, metrics.DefaultNamespace)

	client := newHTTPClient(cfg, logger)
	queueCfg := reqqueue.Config{
		Interval:  cfg.QueueInterval,
		BatchSize: cfg.QueueBatchSize,
		TTL:       cfg.CacheTTL,
	}
	tokens := reqqueue.New[*model.TokenInfo](queueCfg, logger.Named("token-queue"))
	risks := reqqueue.New[*model.RiskReport](queueCfg, logger.Named("risk-queue"))
	m.RegisterQueue("token", tokens.Stats)
	m.RegisterQueue("risk", risks.Stats)

	enricher := enrich.NewService(
		enrich.NewDexScreener(cfg.DexScreenerURL, client),
		enrich.NewRugCheck(cfg.RugCheckURL, client),
		tokens,
		risks,
	)

	var sinks []notify.Sink
	if cfg.TelegramToken != "" && cfg.TelegramChannelID != "" {
		sinks = append(sinks, notify.NewTelegram(cfg.TelegramURL, cfg.TelegramToken, cfg.TelegramChannelID, client))
	}
	if cfg.WeComKey != "" {
		sinks = append(sinks, notify.NewWeCom(cfg.WeComURL, cfg.WeComKey, client))
	}
	if len(sinks) == 0 {
		logger.Warn("no notification sinks configured")
	}
	dispatcher := notify.NewDispatcher(logger.Named("notify"), sinks...)

	tracker := alert.NewTracker(store, logger.Named("alert"))
	alerter := monitor.NewAlerter(monitor.AlerterConfig{
		MinMarketCap: cfg.MinMarketCap,
		MaxAge:       cfg.MaxAge,
		Window:       cfg.Window,
	}, enricher, store, tracker, dispatcher, logger.Named("alerter"), m)

	detector := consensus.NewDetector(consensus.Config{
		BaseTokens:     cfg.BaseTokens,
		Window:         cfg.Window,
		SentinelWallet: cfg.SentinelWallet,
	}, store, logger.Named("consensus"))

	return &pipeline{
		store:    store,
		http:     client,
		tokens:   tokens,
		risks:    risks,
		alerter:  alerter,
		detector: detector,
		registry: registry,
		metrics:  m,
		closers:  []func(){closeStore},
	}, nil
}

// runQueues drives both request queues until ctx is done.
func (p *pipeline) runQueues(ctx context.Context) *errgroup.Group {
	var g errgroup.Group
	g.Go(func() error { return ignoreCanceled(p.tokens.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(p.risks.Run(ctx)) })
	return &g
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
