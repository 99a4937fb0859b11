package consensus

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"walletMonitor/internal/model"
	"walletMonitor/internal/storage"
)

const DefaultWindow = 6 * time.Hour

// Reasons attached to a Decision.
const (
	ReasonBaseAsset  = "base asset"
	ReasonSentinel   = "sentinel wallet"
	ReasonOtherBuyer = "other buyer in window"
	ReasonAlone      = "no other buyer in window"
	ReasonQueryError = "query failed"
)

type Config struct {
	BaseTokens     []string
	Window         time.Duration
	SentinelWallet string
}

// Decision is the outcome of a consensus check.
type Decision struct {
	Consensus bool
	Reason    string
}

// Detector decides whether a stored swap is part of a multi-wallet buy.
type Detector struct {
	store    storage.TransactionStore
	base     map[string]struct{}
	window   time.Duration
	sentinel string
	logger   *zap.Logger
}

func NewDetector(cfg Config, store storage.TransactionStore, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	base := make(map[string]struct{}, len(cfg.BaseTokens))
	for _, token := range cfg.BaseTokens {
		if token = strings.TrimSpace(token); token != "" {
			base[token] = struct{}{}
		}
	}
	return &Detector{
		store:    store,
		base:     base,
		window:   cfg.Window,
		sentinel: strings.TrimSpace(cfg.SentinelWallet),
		logger:   logger,
	}
}

// Window returns the lookback used for the store query.
func (d *Detector) Window() time.Duration {
	return d.window
}

// Check evaluates the swap. Store failures are logged and treated as no consensus.
func (d *Detector) Check(ctx context.Context, swap model.NormalizedSwap) Decision {
	if _, ok := d.base[swap.TokenOutAddress]; ok {
		return Decision{Reason: ReasonBaseAsset}
	}
	if d.sentinel != "" && swap.Account == d.sentinel {
		return Decision{Consensus: true, Reason: ReasonSentinel}
	}

	window := model.NewConsensusWindow(swap, d.window)
	found, err := d.store.HasOtherBuyer(ctx, window)
	if err != nil {
		d.logger.Warn("consensus query failed",
			zap.String("token", swap.TokenOutAddress),
			zap.String("account", swap.Account),
			zap.Error(err),
		)
		return Decision{Reason: ReasonQueryError}
	}
	if !found {
		return Decision{Reason: ReasonAlone}
	}
	return Decision{Consensus: true, Reason: ReasonOtherBuyer}
}
