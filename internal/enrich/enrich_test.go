package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletMonitor/internal/httpclient"
	"walletMonitor/internal/model"
	"walletMonitor/internal/reqqueue"
)

const memeMint = "5sTUgEVTcRvPNK6CFpHBgVfDm6Vb7yKhb9ovMbvUpump"

const dexBody = `{"schemaVersion":"1.0.0","pairs":[{
  "chainId":"solana",
  "baseToken":{"address":"` + memeMint + `","name":"Meme Coin","symbol":"MEME"},
  "priceUsd":"0.0012",
  "liquidity":{"usd":45000.5},
  "marketCap":250000,
  "fdv":260000,
  "pairCreatedAt":1700000000123,
  "volume":{"m5":10,"h1":100,"h6":600,"h24":2400},
  "priceChange":{"h6":12.5},
  "info":{"websites":[{"url":"https://meme.example"}],"socials":[{"type":"telegram","url":"https://t.me/meme"},{"type":"twitter","url":"https://x.com/meme"}]}
},{"chainId":"solana","baseToken":{"symbol":"OTHER"}}]}`

const rugBody = `{
  "mint":"` + memeMint + `",
  "topHolders":[{"address":"ata1","owner":"holder1","pct":12.5,"insider":true},{"address":"ata2","owner":"","pct":3.25,"insider":false}],
  "totalHolders":812,
  "markets":[{"lp":{"lpLockedUSD":30000,"lpLockedPct":99.5}}],
  "risks":[{"name":"Low Liquidity","level":"warn"},{"name":"Mutable metadata","level":"high"}],
  "rugged":false,
  "transferFee":{"pct":0}
}`

func newUpstream(t *testing.T, dexHits, rugHits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dex/tokens/"+memeMint, func(w http.ResponseWriter, r *http.Request) {
		dexHits.Add(1)
		_, _ = w.Write([]byte(dexBody))
	})
	mux.HandleFunc("/dex/tokens/unknown", func(w http.ResponseWriter, r *http.Request) {
		dexHits.Add(1)
		_, _ = w.Write([]byte(`{"pairs":null}`))
	})
	mux.HandleFunc("/rug/tokens/"+memeMint+"/report", func(w http.ResponseWriter, r *http.Request) {
		rugHits.Add(1)
		_, _ = w.Write([]byte(rugBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, srv *httptest.Server) *Service {
	t.Helper()
	client := httpclient.New(httpclient.Config{Timeout: time.Second, MaxRetries: 0}, nil)
	qcfg := reqqueue.Config{Interval: 5 * time.Millisecond, TTL: time.Minute}
	tokens := reqqueue.New[*model.TokenInfo](qcfg, nil)
	risks := reqqueue.New[*model.RiskReport](qcfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = tokens.Run(ctx) }()
	go func() { defer wg.Done(); _ = risks.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return NewService(
		NewDexScreener(srv.URL+"/dex", client),
		NewRugCheck(srv.URL+"/rug", client),
		tokens,
		risks,
	)
}

func TestTokenInfoMapsFirstPair(t *testing.T) {
	var dexHits, rugHits atomic.Int32
	svc := newTestService(t, newUpstream(t, &dexHits, &rugHits))

	info, err := svc.TokenInfo(context.Background(), memeMint)
	require.NoError(t, err)
	assert.Equal(t, "MEME", info.Symbol)
	assert.Equal(t, "Meme Coin", info.Name)
	assert.Equal(t, "solana", info.Chain)
	assert.InDelta(t, 250000, info.MarketCap, 0.001)
	assert.InDelta(t, 45000.5, info.LiquidityUSD, 0.001)
	assert.EqualValues(t, 1_700_000_000, info.CreatedAt)
	assert.Equal(t, "https://meme.example", info.Website)
	assert.Equal(t, "https://x.com/meme", info.Twitter)
	assert.InDelta(t, 12.5, info.ChangeH6, 0.001)
}

func TestTokenInfoConcurrentCallersShareOneRequest(t *testing.T) {
	var dexHits, rugHits atomic.Int32
	svc := newTestService(t, newUpstream(t, &dexHits, &rugHits))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*model.TokenInfo, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := svc.TokenInfo(context.Background(), memeMint)
			assert.NoError(t, err)
			results[i] = info
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, dexHits.Load())
	for _, info := range results {
		assert.Same(t, results[0], info)
	}
}

func TestTokenInfoWithoutPairs(t *testing.T) {
	var dexHits, rugHits atomic.Int32
	svc := newTestService(t, newUpstream(t, &dexHits, &rugHits))

	_, err := svc.TokenInfo(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPairs))
}

func TestRiskReportMapsFields(t *testing.T) {
	var dexHits, rugHits atomic.Int32
	svc := newTestService(t, newUpstream(t, &dexHits, &rugHits))

	report, err := svc.RiskReport(context.Background(), memeMint)
	require.NoError(t, err)
	require.Len(t, report.TopHolders, 2)
	assert.Equal(t, "holder1", report.TopHolders[0].Owner)
	assert.True(t, report.TopHolders[0].Insider)
	assert.Equal(t, "ata2", report.TopHolders[1].Owner)
	assert.InDelta(t, 15.75, report.TopHoldersPct(10), 0.0001)
	assert.EqualValues(t, 812, report.TotalHolders)
	require.NotNil(t, report.LPLockedPct)
	assert.InDelta(t, 99.5, *report.LPLockedPct, 0.001)
	require.Len(t, report.Risks, 2)
	assert.Equal(t, "high", report.Risks[1].Level)
	assert.False(t, report.Rugged)
	assert.EqualValues(t, 1, rugHits.Load())
}
