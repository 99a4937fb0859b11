package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"walletMonitor/internal/consensus"
	"walletMonitor/internal/filter"
	"walletMonitor/internal/metrics"
	"walletMonitor/internal/model"
	"walletMonitor/internal/storage"
)

// Skip reasons set by the orchestrator itself.
const (
	ReasonDuplicate        = "duplicate"
	ReasonMissingSignature = "missing signature"
)

// Webhook outcome labels.
const (
	OutcomeStored    = "stored"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

type Classifier interface {
	Classify(ctx context.Context, event model.WebhookEvent) filter.Result
}

type ConsensusChecker interface {
	Check(ctx context.Context, swap model.NormalizedSwap) consensus.Decision
}

type Evaluator interface {
	Evaluate(ctx context.Context, token string) (AlertResult, error)
}

type Submitter interface {
	Submit(name string, fn func(ctx context.Context)) bool
}

// Outcome is what the ingestion caller learns about an event.
type Outcome struct {
	Skipped   bool
	Reason    string
	Signature string
}

// Deps wires the orchestrator. Journal, Metrics and Now may be nil.
type Deps struct {
	Filter    Classifier
	Store     storage.TransactionStore
	Journal   storage.Journal
	Consensus ConsensusChecker
	Alerter   Evaluator
	Executor  Submitter
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Monitor persists accepted swaps and schedules consensus checks.
type Monitor struct {
	filter    Classifier
	store     storage.TransactionStore
	journal   storage.Journal
	consensus ConsensusChecker
	alerter   Evaluator
	executor  Submitter
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(deps Deps) *Monitor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		filter:    deps.Filter,
		store:     deps.Store,
		journal:   deps.Journal,
		consensus: deps.Consensus,
		alerter:   deps.Alerter,
		executor:  deps.Executor,
		logger:    logger,
		metrics:   deps.Metrics,
		now:       now,
	}
}

// Handle classifies and stores one event. Only persistence failures are
// returned; consensus and alerting run later on the executor.
func (m *Monitor) Handle(ctx context.Context, event model.WebhookEvent) (Outcome, error) {
	outcome := Outcome{Signature: event.Signature}

	result := m.filter.Classify(ctx, event)
	if !result.Accepted() {
		m.metrics.FilterRejected(result.Reason)
		m.metrics.WebhookEvent(OutcomeSkipped)
		m.logger.Debug("event filtered",
			zap.String("signature", event.Signature),
			zap.String("source", event.Source),
			zap.String("reason", result.Reason),
		)
		outcome.Skipped = true
		outcome.Reason = result.Reason
		m.record(event, nil, OutcomeSkipped, result.Reason)
		return outcome, nil
	}
	if event.Signature == "" {
		m.metrics.WebhookEvent(OutcomeSkipped)
		outcome.Skipped = true
		outcome.Reason = ReasonMissingSignature
		m.record(event, result.Swap, OutcomeSkipped, ReasonMissingSignature)
		return outcome, nil
	}

	rec := model.NewTransactionRecord(event.Signature, *result.Swap)
	if err := m.store.InsertTransaction(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			m.metrics.WebhookEvent(OutcomeDuplicate)
			m.logger.Info("duplicate signature", zap.String("signature", rec.Signature))
			outcome.Skipped = true
			outcome.Reason = ReasonDuplicate
			m.record(event, result.Swap, OutcomeDuplicate, ReasonDuplicate)
			return outcome, nil
		}
		m.metrics.WebhookEvent(OutcomeError)
		m.record(event, result.Swap, OutcomeError, err.Error())
		return outcome, fmt.Errorf("insert transaction %s: %w", rec.Signature, err)
	}
	m.metrics.WebhookEvent(OutcomeStored)
	m.logger.Info("swap stored",
		zap.String("signature", rec.Signature),
		zap.String("account", rec.Account),
		zap.String("token_in", rec.TokenInAddress),
		zap.String("token_out", rec.TokenOutAddress),
		zap.String("amount_in", rec.AmountIn.String()),
		zap.String("source", rec.SourceProtocol),
	)

	m.record(event, result.Swap, OutcomeStored, "")

	if m.executor != nil {
		swap := rec.Swap()
		m.executor.Submit("consensus:"+rec.Signature, func(ctx context.Context) {
			m.AfterInsert(ctx, swap)
		})
	}
	return outcome, nil
}

func (m *Monitor) record(event model.WebhookEvent, swap *model.NormalizedSwap, outcome, reason string) {
	if m.journal == nil {
		return
	}
	entry := model.JournalEntry{
		ReceivedAt: m.now(),
		Signature:  event.Signature,
		Source:     event.Source,
		Account:    event.FeePayer,
		Outcome:    outcome,
		Reason:     reason,
	}
	if swap != nil {
		entry.Account = swap.Account
		entry.TokenOut = swap.TokenOutAddress
	}
	if err := m.journal.Record(entry); err != nil {
		m.logger.Warn("journal append failed", zap.String("signature", event.Signature), zap.Error(err))
	}
}

// AfterInsert runs the consensus check for a stored swap and evaluates an
// alert when it is positive. Failures are logged.
func (m *Monitor) AfterInsert(ctx context.Context, swap model.NormalizedSwap) {
	if m.consensus == nil {
		return
	}
	decision := m.consensus.Check(ctx, swap)
	m.metrics.ConsensusChecked(decision.Reason)
	if !decision.Consensus {
		return
	}
	m.logger.Info("consensus detected",
		zap.String("token", swap.TokenOutAddress),
		zap.String("account", swap.Account),
		zap.String("reason", decision.Reason),
	)
	if m.alerter == nil {
		return
	}

	result, err := m.alerter.Evaluate(ctx, swap.TokenOutAddress)
	if err != nil {
		m.logger.Warn("alert evaluation failed", zap.String("token", swap.TokenOutAddress), zap.Error(err))
		return
	}
	if result.Sent {
		m.logger.Info("alert sent",
			zap.String("token", swap.TokenOutAddress),
			zap.Int64("alert_num", result.Escalation.Current.AlertCount),
		)
	}
}
