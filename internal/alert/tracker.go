package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"walletMonitor/internal/model"
	"walletMonitor/internal/storage"
)

// Tracker records how many times each token has been alerted.
type Tracker struct {
	store  storage.AlertStore
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used for LastAlertedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTracker(store storage.AlertStore, logger *zap.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{store: store, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordAlert increments the counter for a token in one atomic store call.
func (t *Tracker) RecordAlert(ctx context.Context, tokenAddress, symbol string, marketCap float64) (model.Escalation, error) {
	if tokenAddress == "" {
		return model.Escalation{}, fmt.Errorf("token address is required")
	}
	esc, err := t.store.IncrementAlert(ctx, model.AlertUpdate{
		TokenAddress: tokenAddress,
		Symbol:       symbol,
		MarketCap:    marketCap,
		AlertedAt:    t.now().UTC(),
	})
	if err != nil {
		return model.Escalation{}, fmt.Errorf("record alert %s: %w", tokenAddress, err)
	}
	t.logger.Info("alert recorded",
		zap.String("token", tokenAddress),
		zap.String("symbol", symbol),
		zap.Int64("alert_num", esc.Current.AlertCount),
	)
	return esc, nil
}

// Lookup returns the current record. ok is false when the token was never alerted.
func (t *Tracker) Lookup(ctx context.Context, tokenAddress string) (model.AlertRecord, bool, error) {
	rec, err := t.store.GetAlert(ctx, tokenAddress)
	if errors.Is(err, storage.ErrNotFound) {
		return model.AlertRecord{}, false, nil
	}
	if err != nil {
		return model.AlertRecord{}, false, err
	}
	return rec, true, nil
}
