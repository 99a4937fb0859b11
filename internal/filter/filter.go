package filter

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"walletMonitor/internal/model"
)

// Verdict is the outcome of rule evaluation.
type Verdict int

const (
	Reject Verdict = iota
	Accept
	// Provisional means the event only carries a signature and needs a
	// deep parse before it can be accepted.
	Provisional
)

// Rejection reasons.
const (
	ReasonExcludedSource = "excluded source"
	ReasonNotRouted      = "transfer without allowed program"
	ReasonDeniedProgram  = "transfer touches denied program"
	ReasonMalformedSwap  = "malformed swap"
	ReasonUnparseable    = "unparseable"
	ReasonNoSwapData     = "no swap data"
)

// Parser deep-parses a transaction by signature. A nil swap with a nil
// error means the transaction holds no recognizable swap.
type Parser interface {
	Parse(ctx context.Context, signature string) (*model.NormalizedSwap, error)
}

// Config lists the source and program ids used by the rules.
type Config struct {
	ExcludedSources []string
	AllowPrograms   []string
	DenyPrograms    []string
}

// Result is a classification decision.
type Result struct {
	Verdict Verdict
	Swap    *model.NormalizedSwap
	Reason  string
}

// Accepted reports whether the event produced a swap.
func (r Result) Accepted() bool {
	return r.Verdict == Accept && r.Swap != nil
}

// Filter classifies and normalizes webhook events.
type Filter struct {
	excluded map[string]struct{}
	allow    map[string]struct{}
	deny     map[string]struct{}
	parser   Parser
	logger   *zap.Logger
}

func New(cfg Config, parser Parser, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludedSources))
	for _, source := range cfg.ExcludedSources {
		if source = strings.TrimSpace(source); source != "" {
			excluded[strings.ToUpper(source)] = struct{}{}
		}
	}
	return &Filter{
		excluded: excluded,
		allow:    toSet(cfg.AllowPrograms),
		deny:     toSet(cfg.DenyPrograms),
		parser:   parser,
		logger:   logger,
	}
}

// Evaluate applies the rules in order without any I/O. Events that only
// carry a signature come back as Provisional.
func (f *Filter) Evaluate(event model.WebhookEvent) Result {
	if _, ok := f.excluded[strings.ToUpper(event.Source)]; ok {
		return rejected(ReasonExcludedSource)
	}

	if strings.EqualFold(event.Type, model.EventTypeTransfer) {
		if !event.HasAccount(f.allow) {
			return rejected(ReasonNotRouted)
		}
		if event.HasAccount(f.deny) {
			return rejected(ReasonDeniedProgram)
		}
	}

	if event.Events.Swap != nil {
		swap, err := NormalizeSwap(event)
		if err != nil {
			f.logger.Debug("normalize swap failed", zap.String("signature", event.Signature), zap.Error(err))
			return rejected(ReasonMalformedSwap)
		}
		return Result{Verdict: Accept, Swap: &swap}
	}

	if event.Signature != "" {
		return Result{Verdict: Provisional}
	}

	return rejected(ReasonNoSwapData)
}

// Classify evaluates the rules and resolves provisional events through the
// deep-parse collaborator. A failed parse is a rejection and is not retried.
// A deep-parsed swap without a block time takes the event timestamp.
func (f *Filter) Classify(ctx context.Context, event model.WebhookEvent) Result {
	result := f.Evaluate(event)
	if result.Verdict != Provisional {
		return result
	}

	if f.parser == nil {
		return rejected(ReasonUnparseable)
	}

	swap, err := f.parser.Parse(ctx, event.Signature)
	if err != nil {
		f.logger.Warn("deep parse failed", zap.String("signature", event.Signature), zap.Error(err))
		return rejected(ReasonUnparseable)
	}
	if swap == nil {
		f.logger.Info("deep parse found no swap", zap.String("signature", event.Signature))
		return rejected(ReasonUnparseable)
	}
	if swap.SourceProtocol == "" {
		swap.SourceProtocol = event.Source
	}
	// blockTime may be null
	if swap.Timestamp == 0 {
		swap.Timestamp = event.Timestamp
	}
	return Result{Verdict: Accept, Swap: swap}
}

func rejected(reason string) Result {
	return Result{Verdict: Reject, Reason: reason}
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = struct{}{}
	}
	return out
}
