package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletMonitor/internal/model"
	"walletMonitor/internal/storage"
)

func TestInsertRejectsDuplicateSignature(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	rec := model.TransactionRecord{Signature: "sig", Account: "a", TokenOutAddress: "t", Timestamp: 100}

	require.NoError(t, s.InsertTransaction(ctx, rec))
	require.ErrorIs(t, s.InsertTransaction(ctx, rec), storage.ErrDuplicate)
	assert.Len(t, s.Transactions(), 1)
}

func TestWindowBuyersLatestPerAccount(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, rec := range []model.TransactionRecord{
		{Signature: "1", Account: "a", TokenOutAddress: "t", Timestamp: 100},
		{Signature: "2", Account: "b", TokenOutAddress: "t", Timestamp: 200},
		{Signature: "3", Account: "a", TokenOutAddress: "t", Timestamp: 300},
		{Signature: "4", Account: "c", TokenOutAddress: "t", Timestamp: 50},
		{Signature: "5", Account: "d", TokenOutAddress: "other", Timestamp: 300},
		{Signature: "6", Account: "self", TokenOutAddress: "t", Timestamp: 300},
	} {
		require.NoError(t, s.InsertTransaction(ctx, rec))
	}

	window := model.ConsensusWindow{TokenAddress: "t", ExcludedAccount: "self", Cutoff: 100}
	buyers, err := s.WindowBuyers(ctx, window, 10)
	require.NoError(t, err)
	require.Len(t, buyers, 2)
	assert.Equal(t, "3", buyers[0].Signature)
	assert.Equal(t, "2", buyers[1].Signature)

	limited, err := s.WindowBuyers(ctx, window, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	ok, err := s.HasOtherBuyer(ctx, window)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIncrementAlertIsAtomic(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	ordinals := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			esc, err := s.IncrementAlert(ctx, model.AlertUpdate{TokenAddress: "t", Symbol: "TKN", AlertedAt: time.Unix(1, 0)})
			assert.NoError(t, err)
			ordinals <- esc.Ordinal()
		}()
	}
	wg.Wait()
	close(ordinals)

	seen := make(map[int64]bool)
	for o := range ordinals {
		assert.False(t, seen[o], "ordinal %d handed out twice", o)
		seen[o] = true
	}
	assert.Len(t, seen, n)

	rec, err := s.GetAlert(ctx, "t")
	require.NoError(t, err)
	assert.EqualValues(t, n, rec.AlertCount)

	_, err = s.GetAlert(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
