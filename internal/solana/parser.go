package solana

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"walletMonitor/internal/model"
)

// minNativeDelta ignores SOL movements that are only rent or tips.
var minNativeDelta = decimal.RequireFromString("0.005")

// TransactionSource fetches a parsed transaction by signature.
type TransactionSource interface {
	Transaction(ctx context.Context, signature string) (*Transaction, error)
}

// Parser rebuilds a swap from balance changes of the fee payer.
type Parser struct {
	source TransactionSource
	logger *zap.Logger
}

func NewParser(source TransactionSource, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{source: source, logger: logger}
}

// Parse returns nil without error when the transaction is unknown, failed,
// or does not move value in both directions.
func (p *Parser) Parse(ctx context.Context, signature string) (*model.NormalizedSwap, error) {
	tx, err := p.source.Transaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		p.logger.Info("transaction not found", zap.String("signature", signature))
		return nil, nil
	}
	swap := SwapFromTransaction(tx)
	if swap == nil {
		p.logger.Debug("no swap in transaction", zap.String("signature", signature))
	}
	return swap, nil
}

// SwapFromTransaction derives the swap legs of the first signer. SPL tokens
// take precedence; SOL (native plus wrapped) fills a side only when no token
// moved on it.
func SwapFromTransaction(tx *Transaction) *model.NormalizedSwap {
	if tx == nil || tx.Meta == nil || tx.Meta.Failed() {
		return nil
	}
	keys := tx.Transaction.Message.AccountKeys
	if len(keys) == 0 {
		return nil
	}
	owner := keys[0].Pubkey
	for _, key := range keys {
		if key.Signer {
			owner = key.Pubkey
			break
		}
	}

	deltas := tokenDeltas(tx.Meta, owner)
	sol := deltas[model.SOLMint]
	delete(deltas, model.SOLMint)
	sol = sol.Add(nativeDelta(tx, owner))

	in, inAmount := pickSide(deltas, false)
	out, outAmount := pickSide(deltas, true)
	if in == "" && sol.LessThanOrEqual(minNativeDelta.Neg()) {
		in, inAmount = model.SOLMint, sol.Neg()
	}
	if out == "" && sol.GreaterThanOrEqual(minNativeDelta) {
		out, outAmount = model.SOLMint, sol
	}
	if in == "" || out == "" || in == out {
		return nil
	}

	var ts int64
	if tx.BlockTime != nil {
		ts = *tx.BlockTime
	}
	return &model.NormalizedSwap{
		Account:         owner,
		TokenInAddress:  in,
		TokenOutAddress: out,
		AmountIn:        inAmount,
		AmountOut:       outAmount,
		Timestamp:       ts,
	}
}

func tokenDeltas(meta *Meta, owner string) map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal)
	apply := func(balances []TokenBalance, sign int64) {
		for _, b := range balances {
			if b.Owner != owner || b.Mint == "" {
				continue
			}
			raw, err := decimal.NewFromString(b.UITokenAmount.Amount)
			if err != nil {
				continue
			}
			amount := raw.Shift(-b.UITokenAmount.Decimals).Mul(decimal.NewFromInt(sign))
			deltas[b.Mint] = deltas[b.Mint].Add(amount)
		}
	}
	apply(meta.PreTokenBalances, -1)
	apply(meta.PostTokenBalances, 1)
	return deltas
}

// nativeDelta is the lamport change of owner with the fee added back.
func nativeDelta(tx *Transaction, owner string) decimal.Decimal {
	keys := tx.Transaction.Message.AccountKeys
	for i, key := range keys {
		if key.Pubkey != owner {
			continue
		}
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			return decimal.Zero
		}
		post := decimal.NewFromInt(int64(tx.Meta.PostBalances[i]))
		pre := decimal.NewFromInt(int64(tx.Meta.PreBalances[i]))
		lamports := post.Sub(pre)
		if i == 0 {
			lamports = lamports.Add(decimal.NewFromInt(int64(tx.Meta.Fee)))
		}
		return lamports.Shift(-model.LamportsPerSOL)
	}
	return decimal.Zero
}

// pickSide returns the mint with the largest gain (positive) or loss.
func pickSide(deltas map[string]decimal.Decimal, positive bool) (string, decimal.Decimal) {
	mints := make([]string, 0, len(deltas))
	for mint := range deltas {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	var best string
	var bestAmount decimal.Decimal
	for _, mint := range mints {
		d := deltas[mint]
		if positive && !d.IsPositive() || !positive && !d.IsNegative() {
			continue
		}
		if d.Abs().GreaterThan(bestAmount) {
			best, bestAmount = mint, d.Abs()
		}
	}
	return best, bestAmount
}
