package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletMonitor/internal/storage/memory"
)

const token = "5sTUgEVTcRvPNK6CFpHBgVfDm6Vb7yKhb9ovMbvUpump"

func TestRecordAlertEscalates(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(memory.NewStore(), nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, ok, err := tracker.Lookup(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := tracker.RecordAlert(ctx, token, "MEME", 150_000)
	require.NoError(t, err)
	assert.EqualValues(t, 0, first.Previous.AlertCount)
	assert.EqualValues(t, 1, first.Current.AlertCount)
	assert.False(t, first.IsRepeat())
	assert.Equal(t, now, first.Current.LastAlertedAt)

	now = now.Add(time.Hour)
	second, err := tracker.RecordAlert(ctx, token, "MEME", 420_000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, second.Previous.AlertCount)
	assert.InDelta(t, 150_000, second.Previous.MarketCapAtLastAlert, 0.001)
	assert.EqualValues(t, 2, second.Current.AlertCount)
	assert.EqualValues(t, 2, second.Ordinal())
	assert.True(t, second.IsRepeat())

	rec, ok, err := tracker.Lookup(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, rec.AlertCount)
	assert.InDelta(t, 420_000, rec.MarketCapAtLastAlert, 0.001)
	assert.Equal(t, now, rec.LastAlertedAt)
}

func TestRecordAlertConcurrentOrdinalsAreUnique(t *testing.T) {
	tracker := NewTracker(memory.NewStore(), nil)
	ctx := context.Background()

	const callers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			esc, err := tracker.RecordAlert(ctx, token, "MEME", 1)
			if err != nil {
				return
			}
			mu.Lock()
			seen[esc.Previous.AlertCount] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, callers)
	for i := int64(0); i < callers; i++ {
		assert.True(t, seen[i], "missing previous count %d", i)
	}
}

func TestRecordAlertRequiresToken(t *testing.T) {
	_, err := NewTracker(memory.NewStore(), nil).RecordAlert(context.Background(), "", "X", 0)
	require.Error(t, err)
}
