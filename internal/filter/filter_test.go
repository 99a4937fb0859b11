package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletMonitor/internal/model"
)

const (
	pumpAMM    = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	jupiterV6  = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	pumpFun    = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	wallet     = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	memeMint   = "5sTUgEVTcRvPNK6CFpHBgVfDm6Vb7yKhb9ovMbvUpump"
	randomProg = "11111111111111111111111111111111"
)

type stubParser struct {
	swap  *model.NormalizedSwap
	err   error
	calls int
}

func (p *stubParser) Parse(ctx context.Context, signature string) (*model.NormalizedSwap, error) {
	p.calls++
	return p.swap, p.err
}

func newTestFilter(parser Parser) *Filter {
	return New(Config{
		ExcludedSources: []string{"PUMP_FUN"},
		AllowPrograms:   []string{pumpAMM, jupiterV6},
		DenyPrograms:    []string{pumpFun},
	}, parser, nil)
}

func buyEvent() model.WebhookEvent {
	return model.WebhookEvent{
		Signature: "sig-buy",
		Type:      model.EventTypeSwap,
		Source:    "JUPITER",
		Timestamp: 1_700_000_000,
		FeePayer:  wallet,
		Events: model.EventPayloads{Swap: &model.SwapPayload{
			NativeInput: &model.NativeAmount{Account: wallet, Amount: "1500000000"},
			TokenOutputs: []model.TokenAmount{{
				UserAccount:    wallet,
				Mint:           memeMint,
				RawTokenAmount: model.RawTokenAmount{TokenAmount: "123456789", Decimals: 6},
			}},
		}},
	}
}

func TestClassifyRejectsExcludedSource(t *testing.T) {
	f := newTestFilter(nil)
	for _, source := range []string{"PUMP_FUN", "pump_fun"} {
		event := buyEvent()
		event.Source = source
		result := f.Classify(context.Background(), event)
		assert.Equal(t, Reject, result.Verdict, source)
		assert.Equal(t, ReasonExcludedSource, result.Reason)
	}
}

func TestClassifyTransferRequiresAllowedProgram(t *testing.T) {
	f := newTestFilter(nil)

	event := buyEvent()
	event.Type = model.EventTypeTransfer
	event.AccountData = []model.AccountData{{Account: wallet}, {Account: randomProg}}
	result := f.Classify(context.Background(), event)
	assert.Equal(t, Reject, result.Verdict)
	assert.Equal(t, ReasonNotRouted, result.Reason)

	event.AccountData = append(event.AccountData, model.AccountData{Account: jupiterV6})
	result = f.Classify(context.Background(), event)
	require.True(t, result.Accepted())
}

func TestClassifyTransferWithDeniedProgram(t *testing.T) {
	f := newTestFilter(nil)

	event := buyEvent()
	event.Type = model.EventTypeTransfer
	event.AccountData = []model.AccountData{{Account: pumpAMM}, {Account: pumpFun}}
	result := f.Classify(context.Background(), event)
	assert.Equal(t, Reject, result.Verdict)
	assert.Equal(t, ReasonDeniedProgram, result.Reason)
}

func TestClassifyNormalizesEmbeddedSwap(t *testing.T) {
	f := newTestFilter(nil)

	result := f.Classify(context.Background(), buyEvent())
	require.True(t, result.Accepted())

	swap := result.Swap
	assert.Equal(t, wallet, swap.Account)
	assert.Equal(t, model.SOLMint, swap.TokenInAddress)
	assert.Equal(t, memeMint, swap.TokenOutAddress)
	assert.True(t, swap.AmountIn.Equal(decimal.RequireFromString("1.5")), swap.AmountIn.String())
	assert.True(t, swap.AmountOut.Equal(decimal.RequireFromString("123.456789")), swap.AmountOut.String())
	assert.EqualValues(t, 1_700_000_000, swap.Timestamp)
	assert.Equal(t, "JUPITER", swap.SourceProtocol)
}

func TestClassifyTokenToTokenSwap(t *testing.T) {
	f := newTestFilter(nil)

	event := buyEvent()
	event.Events.Swap = &model.SwapPayload{
		TokenInputs: []model.TokenAmount{{
			UserAccount:    wallet,
			Mint:           model.USDCMint,
			RawTokenAmount: model.RawTokenAmount{TokenAmount: "2500000", Decimals: 6},
		}},
		TokenOutputs: []model.TokenAmount{{
			UserAccount:    wallet,
			Mint:           memeMint,
			RawTokenAmount: model.RawTokenAmount{TokenAmount: "10", Decimals: 0},
		}},
	}
	result := f.Classify(context.Background(), event)
	require.True(t, result.Accepted())
	assert.Equal(t, model.USDCMint, result.Swap.TokenInAddress)
	assert.True(t, result.Swap.AmountIn.Equal(decimal.RequireFromString("2.5")))
}

func TestClassifyRejectsMalformedSwap(t *testing.T) {
	f := newTestFilter(nil)

	event := buyEvent()
	event.Events.Swap.TokenOutputs = nil
	result := f.Classify(context.Background(), event)
	assert.Equal(t, Reject, result.Verdict)
	assert.Equal(t, ReasonMalformedSwap, result.Reason)
}

func TestClassifyDeepParsesSignatureOnly(t *testing.T) {
	parsed := &model.NormalizedSwap{Account: wallet, TokenInAddress: model.SOLMint, TokenOutAddress: memeMint, Timestamp: 42}
	parser := &stubParser{swap: parsed}
	f := newTestFilter(parser)

	event := model.WebhookEvent{Signature: "sig-only", Type: model.EventTypeSwap, Source: "RAYDIUM"}
	assert.Equal(t, Provisional, f.Evaluate(event).Verdict)

	result := f.Classify(context.Background(), event)
	require.True(t, result.Accepted())
	assert.Same(t, parsed, result.Swap)
	assert.Equal(t, "RAYDIUM", result.Swap.SourceProtocol)
	assert.Equal(t, 1, parser.calls)
}

func TestClassifyDeepParseWithoutBlockTimeUsesEventTimestamp(t *testing.T) {
	parser := &stubParser{swap: &model.NormalizedSwap{Account: wallet, TokenInAddress: model.SOLMint, TokenOutAddress: memeMint}}
	event := model.WebhookEvent{Signature: "sig-only", Type: model.EventTypeSwap, Timestamp: 1_700_000_123}

	result := newTestFilter(parser).Classify(context.Background(), event)
	require.True(t, result.Accepted())
	assert.EqualValues(t, 1_700_000_123, result.Swap.Timestamp)
}

func TestClassifyDeepParseFailureIsSingleAttempt(t *testing.T) {
	event := model.WebhookEvent{Signature: "sig-only", Type: model.EventTypeSwap}

	failing := &stubParser{err: errors.New("rpc down")}
	result := newTestFilter(failing).Classify(context.Background(), event)
	assert.Equal(t, Reject, result.Verdict)
	assert.Equal(t, ReasonUnparseable, result.Reason)
	assert.Equal(t, 1, failing.calls)

	empty := &stubParser{}
	result = newTestFilter(empty).Classify(context.Background(), event)
	assert.Equal(t, ReasonUnparseable, result.Reason)

	result = newTestFilter(nil).Classify(context.Background(), event)
	assert.Equal(t, ReasonUnparseable, result.Reason)
}

func TestClassifyWithoutSwapData(t *testing.T) {
	result := newTestFilter(nil).Classify(context.Background(), model.WebhookEvent{Type: model.EventTypeSwap})
	assert.Equal(t, Reject, result.Verdict)
	assert.Equal(t, ReasonNoSwapData, result.Reason)
}
