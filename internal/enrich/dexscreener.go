package enrich

import (
	"context"
	"fmt"
	"net/url"

	"walletMonitor/internal/model"
)

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap     float64 `json:"marketCap"`
	FDV           float64 `json:"fdv"`
	PairCreatedAt int64   `json:"pairCreatedAt"`
	Volume        struct {
		M5  float64 `json:"m5"`
		H1  float64 `json:"h1"`
		H6  float64 `json:"h6"`
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H6 float64 `json:"h6"`
	} `json:"priceChange"`
	Info *struct {
		Websites []struct {
			URL string `json:"url"`
		} `json:"websites"`
		Socials []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"socials"`
	} `json:"info"`
}

// DexScreener reads token pairs from the DexScreener API.
type DexScreener struct {
	baseURL string
	http    JSONGetter
}

func NewDexScreener(baseURL string, http JSONGetter) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	return &DexScreener{baseURL: baseURL, http: http}
}

// TokenInfo returns data from the first listed pair of address.
func (d *DexScreener) TokenInfo(ctx context.Context, address string) (*model.TokenInfo, error) {
	var resp dexTokensResponse
	if err := d.http.GetJSON(ctx, joinURL(d.baseURL, "tokens", url.PathEscape(address)), &resp); err != nil {
		return nil, fmt.Errorf("dexscreener %s: %w", address, err)
	}
	if len(resp.Pairs) == 0 {
		return nil, fmt.Errorf("dexscreener %s: %w", address, ErrNoPairs)
	}

	pair := resp.Pairs[0]
	info := &model.TokenInfo{
		Name:      pair.BaseToken.Name,
		Symbol:    pair.BaseToken.Symbol,
		Address:   pair.BaseToken.Address,
		Chain:     pair.ChainID,
		MarketCap: pair.MarketCap,
		PriceUSD:  pair.PriceUSD,
		CreatedAt: pair.PairCreatedAt / 1000,
		VolumeM5:  pair.Volume.M5,
		VolumeH1:  pair.Volume.H1,
		VolumeH6:  pair.Volume.H6,
		VolumeH24: pair.Volume.H24,
		ChangeH6:  pair.PriceChange.H6,
	}
	if info.MarketCap == 0 {
		info.MarketCap = pair.FDV
	}
	if pair.Liquidity != nil {
		info.LiquidityUSD = pair.Liquidity.USD
	}
	if pair.Info != nil {
		if len(pair.Info.Websites) > 0 {
			info.Website = pair.Info.Websites[0].URL
		}
		for _, social := range pair.Info.Socials {
			if social.Type == "twitter" {
				info.Twitter = social.URL
				break
			}
		}
	}
	return info, nil
}
