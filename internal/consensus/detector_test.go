package consensus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletMonitor/internal/model"
	"walletMonitor/internal/storage/memory"
)

const (
	token    = "5sTUgEVTcRvPNK6CFpHBgVfDm6Vb7yKhb9ovMbvUpump"
	walletA  = "wallet-a"
	walletB  = "wallet-b"
	sentinel = "DNfuF1L62WWyW3pNakVkyGGFzVVhj4Yr52jSmdTyeBHm"
)

func buy(sig, account string, ts int64) model.TransactionRecord {
	return model.TransactionRecord{
		Signature:       sig,
		Account:         account,
		TokenInAddress:  model.SOLMint,
		TokenOutAddress: token,
		AmountIn:        decimal.NewFromInt(1),
		AmountOut:       decimal.NewFromInt(1000),
		Timestamp:       ts,
	}
}

func newDetector(store *memory.Store) *Detector {
	return NewDetector(Config{
		BaseTokens:     []string{model.SOLMint, model.USDCMint},
		SentinelWallet: sentinel,
	}, store, nil)
}

func TestCheckWindowBoundaryIsInclusive(t *testing.T) {
	const now = int64(1_700_100_000)
	window := int64(DefaultWindow / time.Second)

	cases := []struct {
		name  string
		other int64
		want  bool
	}{
		{"exactly at cutoff", now - window, true},
		{"one second before cutoff", now - window - 1, false},
		{"recent", now - 60, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			require.NoError(t, store.InsertTransaction(context.Background(), buy("sig-b", walletB, tc.other)))

			swap := buy("sig-a", walletA, now).Swap()
			decision := newDetector(store).Check(context.Background(), swap)
			assert.Equal(t, tc.want, decision.Consensus, decision.Reason)
		})
	}
}

func TestCheckIgnoresSameAccount(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.InsertTransaction(ctx, buy("sig-1", walletA, 1_700_000_000)))
	require.NoError(t, store.InsertTransaction(ctx, buy("sig-2", walletA, 1_700_000_100)))

	decision := newDetector(store).Check(ctx, buy("sig-2", walletA, 1_700_000_100).Swap())
	assert.False(t, decision.Consensus)
	assert.Equal(t, ReasonAlone, decision.Reason)
}

func TestCheckSentinelWallet(t *testing.T) {
	store := memory.NewStore()
	store.FailQueries(errors.New("must not be queried"))

	decision := newDetector(store).Check(context.Background(), buy("sig", sentinel, 1_700_000_000).Swap())
	assert.True(t, decision.Consensus)
	assert.Equal(t, ReasonSentinel, decision.Reason)

	disabled := NewDetector(Config{}, memory.NewStore(), nil)
	assert.False(t, disabled.Check(context.Background(), buy("sig", sentinel, 1_700_000_000).Swap()).Consensus)
}

func TestCheckBaseAssetNeverConsensus(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	rec := buy("sig-b", walletB, 1_700_000_000)
	rec.TokenOutAddress = model.USDCMint
	require.NoError(t, store.InsertTransaction(ctx, rec))

	swap := buy("sig-a", sentinel, 1_700_000_010).Swap()
	swap.TokenOutAddress = model.USDCMint
	decision := newDetector(store).Check(ctx, swap)
	assert.False(t, decision.Consensus)
	assert.Equal(t, ReasonBaseAsset, decision.Reason)
}

func TestCheckQueryFailureIsNoConsensus(t *testing.T) {
	store := memory.NewStore()
	store.FailQueries(errors.New("connection reset"))

	decision := newDetector(store).Check(context.Background(), buy("sig", walletA, 1_700_000_000).Swap())
	assert.False(t, decision.Consensus)
	assert.Equal(t, ReasonQueryError, decision.Reason)
}
