package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known Solana mints.
const (
	SOLMint  = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// LamportsPerSOL is the native decimals scale.
const LamportsPerSOL = 9

// NormalizedSwap is a swap reduced to one input leg and one output leg.
type NormalizedSwap struct {
	Account         string          `json:"account"`
	TokenInAddress  string          `json:"token_in_address"`
	TokenOutAddress string          `json:"token_out_address"`
	AmountIn        decimal.Decimal `json:"amount_in"`
	AmountOut       decimal.Decimal `json:"amount_out"`
	Timestamp       int64           `json:"timestamp"`
	SourceProtocol  string          `json:"source_protocol"`
}

// TransactionRecord is the persisted form of a swap. Records are never
// mutated once stored.
type TransactionRecord struct {
	Signature       string          `json:"signature"`
	Account         string          `json:"account"`
	TokenInAddress  string          `json:"token_in_address"`
	TokenOutAddress string          `json:"token_out_address"`
	AmountIn        decimal.Decimal `json:"amount_in"`
	AmountOut       decimal.Decimal `json:"amount_out"`
	Timestamp       int64           `json:"timestamp"`
	SourceProtocol  string          `json:"source_protocol"`
}

// NewTransactionRecord binds a signature to a normalized swap.
func NewTransactionRecord(signature string, swap NormalizedSwap) TransactionRecord {
	return TransactionRecord{
		Signature:       signature,
		Account:         swap.Account,
		TokenInAddress:  swap.TokenInAddress,
		TokenOutAddress: swap.TokenOutAddress,
		AmountIn:        swap.AmountIn,
		AmountOut:       swap.AmountOut,
		Timestamp:       swap.Timestamp,
		SourceProtocol:  swap.SourceProtocol,
	}
}

// Swap returns the normalized view of the record.
func (r TransactionRecord) Swap() NormalizedSwap {
	return NormalizedSwap{
		Account:         r.Account,
		TokenInAddress:  r.TokenInAddress,
		TokenOutAddress: r.TokenOutAddress,
		AmountIn:        r.AmountIn,
		AmountOut:       r.AmountOut,
		Timestamp:       r.Timestamp,
		SourceProtocol:  r.SourceProtocol,
	}
}

// ConsensusWindow selects buys of TokenAddress by accounts other than
// ExcludedAccount at or after Cutoff (unix seconds).
type ConsensusWindow struct {
	TokenAddress    string
	ExcludedAccount string
	Cutoff          int64
}

// NewConsensusWindow builds the window ending at the swap timestamp.
func NewConsensusWindow(swap NormalizedSwap, window time.Duration) ConsensusWindow {
	return ConsensusWindow{
		TokenAddress:    swap.TokenOutAddress,
		ExcludedAccount: swap.Account,
		Cutoff:          swap.Timestamp - int64(window/time.Second),
	}
}

// Matches reports whether rec falls inside the window.
func (w ConsensusWindow) Matches(rec TransactionRecord) bool {
	return rec.TokenOutAddress == w.TokenAddress &&
		rec.Account != w.ExcludedAccount &&
		rec.Timestamp >= w.Cutoff
}
