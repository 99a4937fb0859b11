package filter

import (
	"fmt"

	"github.com/shopspring/decimal"

	"walletMonitor/internal/model"
)

type leg struct {
	account string
	mint    string
	amount  decimal.Decimal
}

// NormalizeSwap reduces an embedded swap payload to one input and one
// output leg. Native SOL legs are reported under the SOL mint.
func NormalizeSwap(event model.WebhookEvent) (model.NormalizedSwap, error) {
	swap := event.Events.Swap
	if swap == nil {
		return model.NormalizedSwap{}, fmt.Errorf("missing swap payload")
	}

	in, err := pickLeg(swap.NativeInput, swap.TokenInputs)
	if err != nil {
		return model.NormalizedSwap{}, fmt.Errorf("input leg: %w", err)
	}
	out, err := pickLeg(swap.NativeOutput, swap.TokenOutputs)
	if err != nil {
		return model.NormalizedSwap{}, fmt.Errorf("output leg: %w", err)
	}
	if in.mint == out.mint {
		return model.NormalizedSwap{}, fmt.Errorf("input and output share mint %s", in.mint)
	}

	account := in.account
	if account == "" {
		account = out.account
	}
	if account == "" {
		account = event.FeePayer
	}
	if account == "" {
		return model.NormalizedSwap{}, fmt.Errorf("missing account")
	}

	return model.NormalizedSwap{
		Account:         account,
		TokenInAddress:  in.mint,
		TokenOutAddress: out.mint,
		AmountIn:        in.amount,
		AmountOut:       out.amount,
		Timestamp:       event.Timestamp,
		SourceProtocol:  event.Source,
	}, nil
}

func pickLeg(native *model.NativeAmount, tokens []model.TokenAmount) (leg, error) {
	if native != nil && native.Amount != "" {
		lamports, err := decimal.NewFromString(native.Amount)
		if err != nil {
			return leg{}, fmt.Errorf("native amount %q: %w", native.Amount, err)
		}
		if lamports.IsPositive() {
			return leg{
				account: native.Account,
				mint:    model.SOLMint,
				amount:  lamports.Shift(-model.LamportsPerSOL),
			}, nil
		}
	}

	for _, token := range tokens {
		if token.Mint == "" {
			continue
		}
		raw, err := decimal.NewFromString(token.RawTokenAmount.TokenAmount)
		if err != nil {
			return leg{}, fmt.Errorf("token amount %q: %w", token.RawTokenAmount.TokenAmount, err)
		}
		return leg{
			account: token.UserAccount,
			mint:    token.Mint,
			amount:  raw.Shift(-token.RawTokenAmount.Decimals),
		}, nil
	}

	return leg{}, fmt.Errorf("no native or token amount")
}
