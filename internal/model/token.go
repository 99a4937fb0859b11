package model

// TokenInfo is market data for a token taken from its most relevant pair.
type TokenInfo struct {
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Address      string  `json:"address"`
	Chain        string  `json:"chain"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	MarketCap    float64 `json:"market_cap"`
	PriceUSD     string  `json:"price_usd"`
	CreatedAt    int64   `json:"created_at"`
	VolumeM5     float64 `json:"volume_m5"`
	VolumeH1     float64 `json:"volume_h1"`
	VolumeH6     float64 `json:"volume_h6"`
	VolumeH24    float64 `json:"volume_h24"`
	ChangeH6     float64 `json:"change_h6"`
	Website      string  `json:"website,omitempty"`
	Twitter      string  `json:"twitter,omitempty"`
}

// RiskReport summarizes a token risk analysis.
type RiskReport struct {
	TopHolders     []Holder `json:"top_holders"`
	TotalHolders   int64    `json:"total_holders"`
	LPLockedUSD    *float64 `json:"lp_locked_usd,omitempty"`
	LPLockedPct    *float64 `json:"lp_locked_pct,omitempty"`
	Risks          []Risk   `json:"risks"`
	Rugged         bool     `json:"rugged"`
	TransferFeePct float64  `json:"transfer_fee_pct"`
}

// Holder is a top token holder.
type Holder struct {
	Owner   string  `json:"owner"`
	Pct     float64 `json:"pct"`
	Insider bool    `json:"insider"`
}

// Risk is a single flagged risk.
type Risk struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// TopHoldersPct sums the share of the first n holders.
func (r RiskReport) TopHoldersPct(n int) float64 {
	var sum float64
	for i, h := range r.TopHolders {
		if i >= n {
			break
		}
		sum += h.Pct
	}
	return sum
}
