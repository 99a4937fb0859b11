package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"walletMonitor/internal/alert"
	"walletMonitor/internal/metrics"
	"walletMonitor/internal/model"
	"walletMonitor/internal/notify"
	"walletMonitor/internal/storage"
)

const (
	DefaultMinMarketCap = 100_000
	DefaultMaxAge       = 7 * 24 * time.Hour
	DefaultBuyerLimit   = 20

	SkipTooOld     = "pair too old"
	SkipUnknownAge = "unknown pair age"
	SkipLowMarket  = "market cap below minimum"
)

// Enricher supplies market data and risk reports for a token.
type Enricher interface {
	TokenInfo(ctx context.Context, address string) (*model.TokenInfo, error)
	RiskReport(ctx context.Context, address string) (*model.RiskReport, error)
}

// Notifier delivers a composed alert.
type Notifier interface {
	Dispatch(ctx context.Context, msg notify.Message) ([]notify.Delivery, error)
}

type AlerterConfig struct {
	MinMarketCap float64
	MaxAge       time.Duration
	// Window bounds the buyer list shown in the alert.
	Window     time.Duration
	BuyerLimit int
	Now        func() time.Time
}

// AlertResult describes one evaluation.
type AlertResult struct {
	Sent       bool
	SkipReason string
	Info       *model.TokenInfo
	Escalation model.Escalation
	Message    string
	Deliveries []notify.Delivery
}

// Alerter applies the alert thresholds to an enriched token and dispatches
// the message.
type Alerter struct {
	cfg      AlerterConfig
	enricher Enricher
	buyers   storage.TransactionStore
	tracker  *alert.Tracker
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewAlerter(cfg AlerterConfig, enricher Enricher, buyers storage.TransactionStore, tracker *alert.Tracker, notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *Alerter {
	if cfg.MinMarketCap <= 0 {
		cfg.MinMarketCap = DefaultMinMarketCap
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.BuyerLimit <= 0 {
		cfg.BuyerLimit = DefaultBuyerLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{
		cfg:      cfg,
		enricher: enricher,
		buyers:   buyers,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// Evaluate enriches token, checks the thresholds and, when they pass,
// records the escalation and dispatches the alert.
func (a *Alerter) Evaluate(ctx context.Context, token string) (AlertResult, error) {
	info, err := a.enricher.TokenInfo(ctx, token)
	if err != nil {
		a.metrics.AlertResult("enrich_error")
		return AlertResult{}, fmt.Errorf("token info %s: %w", token, err)
	}
	if info == nil {
		a.metrics.AlertResult("enrich_error")
		return AlertResult{}, fmt.Errorf("token info %s: empty result", token)
	}

	now := a.cfg.Now()
	result := AlertResult{Info: info}
	if reason := a.skipReason(info, now); reason != "" {
		result.SkipReason = reason
		a.metrics.AlertResult("skipped")
		a.logger.Info("alert skipped",
			zap.String("token", token),
			zap.String("reason", reason),
			zap.Float64("market_cap", info.MarketCap),
		)
		return result, nil
	}

	risk, riskErr := a.enricher.RiskReport(ctx, token)
	if riskErr != nil {
		a.logger.Warn("risk report failed", zap.String("token", token), zap.Error(riskErr))
	}

	var buyers []model.TransactionRecord
	if a.buyers != nil && a.cfg.Window > 0 {
		window := model.ConsensusWindow{TokenAddress: token, Cutoff: now.Add(-a.cfg.Window).Unix()}
		buyers, err = a.buyers.WindowBuyers(ctx, window, a.cfg.BuyerLimit)
		if err != nil {
			a.logger.Warn("window buyers failed", zap.String("token", token), zap.Error(err))
			buyers = nil
		}
	}

	esc, err := a.tracker.RecordAlert(ctx, token, info.Symbol, info.MarketCap)
	if err != nil {
		a.metrics.AlertResult("record_error")
		return result, err
	}
	result.Escalation = esc

	result.Message = notify.ComposeAlert(notify.AlertContent{
		Info:       info,
		Risk:       risk,
		RiskErr:    riskErr,
		Buyers:     buyers,
		Escalation: esc,
		Now:        now,
	})

	deliveries, err := a.notifier.Dispatch(ctx, notify.Text{Content: result.Message, HTML: true})
	result.Deliveries = deliveries
	for _, d := range deliveries {
		a.metrics.Notification(d.Sink, d.Err)
		if d.Err == nil {
			result.Sent = true
		}
	}
	if result.Sent {
		a.metrics.AlertResult("sent")
	} else {
		a.metrics.AlertResult("undelivered")
	}
	if err != nil {
		return result, fmt.Errorf("dispatch alert %s: %w", token, err)
	}
	return result, nil
}

func (a *Alerter) skipReason(info *model.TokenInfo, now time.Time) string {
	if info.CreatedAt <= 0 {
		return SkipUnknownAge
	}
	if now.Sub(time.Unix(info.CreatedAt, 0)) > a.cfg.MaxAge {
		return SkipTooOld
	}
	if info.MarketCap < a.cfg.MinMarketCap {
		return SkipLowMarket
	}
	return ""
}
