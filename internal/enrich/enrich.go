package enrich

import (
	"context"
	"errors"
	"strings"

	"walletMonitor/internal/model"
	"walletMonitor/internal/reqqueue"
)

const (
	DefaultDexScreenerURL = "https://api.dexscreener.com/latest/dex"
	DefaultRugCheckURL    = "https://api.rugcheck.xyz/v1"
)

// ErrNoPairs is returned when DexScreener knows no pair for a token.
var ErrNoPairs = errors.New("no pairs found")

// JSONGetter is the subset of httpclient.Client used by the enrichers.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, out any) error
}

// Service serves token info and risk reports through request queues so
// concurrent lookups of one token share a single upstream call.
type Service struct {
	dex    *DexScreener
	rug    *RugCheck
	tokens *reqqueue.Queue[*model.TokenInfo]
	risks  *reqqueue.Queue[*model.RiskReport]
}

func NewService(dex *DexScreener, rug *RugCheck, tokens *reqqueue.Queue[*model.TokenInfo], risks *reqqueue.Queue[*model.RiskReport]) *Service {
	return &Service{dex: dex, rug: rug, tokens: tokens, risks: risks}
}

// TokenInfo resolves market data for address.
func (s *Service) TokenInfo(ctx context.Context, address string) (*model.TokenInfo, error) {
	return s.tokens.AddRequest("token-"+address, func(ctx context.Context) (*model.TokenInfo, error) {
		return s.dex.TokenInfo(ctx, address)
	}).Wait(ctx)
}

// RiskReport resolves the risk analysis for address.
func (s *Service) RiskReport(ctx context.Context, address string) (*model.RiskReport, error) {
	return s.risks.AddRequest("risk-"+address, func(ctx context.Context) (*model.RiskReport, error) {
		return s.rug.RiskReport(ctx, address)
	}).Wait(ctx)
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
