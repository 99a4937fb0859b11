package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"walletMonitor/internal/config"
)

// checkReport is the JSON printed by the check command.
type checkReport struct {
	Token      string   `json:"token"`
	Sent       bool     `json:"sent"`
	SkipReason string   `json:"skip_reason,omitempty"`
	Symbol     string   `json:"symbol,omitempty"`
	MarketCap  float64  `json:"market_cap,omitempty"`
	AlertNum   int64    `json:"alert_num,omitempty"`
	Sinks      []string `json:"sinks,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	token := args[0]
	if err := config.ValidatePublicKey(token); err != nil {
		return fmt.Errorf("token: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	queueCtx, cancelQueues := context.WithCancel(ctx)
	queues := p.runQueues(queueCtx)

	result, evalErr := p.alerter.Evaluate(ctx, token)
	cancelQueues()
	if err := queues.Wait(); err != nil {
		logger.Warn("request queue stopped with error", zap.Error(err))
	}

	report := checkReport{
		Token:      token,
		Sent:       result.Sent,
		SkipReason: result.SkipReason,
		AlertNum:   result.Escalation.Current.AlertCount,
	}
	if result.Info != nil {
		report.Symbol = result.Info.Symbol
		report.MarketCap = result.Info.MarketCap
	}
	for _, d := range result.Deliveries {
		if d.Err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", d.Sink, d.Err))
			continue
		}
		report.Sinks = append(report.Sinks, d.Sink)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return evalErr
}
