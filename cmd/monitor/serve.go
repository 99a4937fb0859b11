package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"walletMonitor/internal/filter"
	"walletMonitor/internal/monitor"
	"walletMonitor/internal/server"
	"walletMonitor/internal/solana"
	"walletMonitor/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	var parser filter.Parser
	if cfg.SolanaRPC != "" {
		solanaClient, err := solana.NewClient(ctx, cfg.SolanaRPC, p.http.HTTPClient())
		if err != nil {
			return fmt.Errorf("connect solana rpc: %w", err)
		}
		defer solanaClient.Close()
		if err := solanaClient.Health(ctx); err != nil {
			logger.Warn("solana rpc unhealthy", zap.Error(err))
		}
		parser = solana.NewParser(solanaClient, logger.Named("solana"))
	} else {
		logger.Warn("solana rpc not configured, signature-only events will be rejected")
	}

	eventFilter := filter.New(filter.Config{
		ExcludedSources: cfg.ExcludedSources,
		AllowPrograms:   cfg.AllowPrograms,
		DenyPrograms:    cfg.DenyPrograms,
	}, parser, logger.Named("filter"))

	var journal storage.Journal
	if cfg.JournalDir != "" {
		daily := storage.NewDailyJournal(cfg.JournalDir)
		defer daily.Close()
		journal = daily
	}

	executor := monitor.NewExecutor(monitor.ExecutorConfig{
		Workers:     cfg.Workers,
		TaskTimeout: cfg.TaskTimeout,
	}, logger.Named("executor"), p.metrics)
	p.metrics.RegisterGauge("executor_pending_tasks", "Background tasks waiting for a worker", func() float64 {
		return float64(executor.Pending())
	})

	mon := monitor.New(monitor.Deps{
		Filter:    eventFilter,
		Store:     p.store,
		Journal:   journal,
		Consensus: p.detector,
		Alerter:   p.alerter,
		Executor:  executor,
		Logger:    logger.Named("monitor"),
		Metrics:   p.metrics,
	})

	srv := server.New(server.Config{
		Listen:        cfg.Listen,
		WebhookSecret: cfg.WebhookSecret,
		Gatherer:      p.registry,
	}, mon, logger.Named("server"))

	queueCtx, cancelQueues := context.WithCancel(context.Background())
	defer cancelQueues()
	queues := p.runQueues(queueCtx)

	logger.Info("monitor start",
		zap.String("listen", cfg.Listen),
		zap.String("store", cfg.Store),
		zap.Duration("window", cfg.Window),
		zap.Float64("min_market_cap", cfg.MinMarketCap),
		zap.Duration("max_age", cfg.MaxAge),
		zap.Bool("sentinel", cfg.SentinelWallet != ""),
		zap.Bool("deep_parse", parser != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		executor.Close()
		cancelQueues()
		return err
	})

	err = g.Wait()
	if qerr := queues.Wait(); err == nil {
		err = qerr
	}
	logger.Info("monitor stopped")
	return err
}
