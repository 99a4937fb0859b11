package enrich

import (
	"context"
	"fmt"
	"net/url"

	"walletMonitor/internal/model"
)

type rugReport struct {
	Mint       string `json:"mint"`
	TopHolders []struct {
		Address string  `json:"address"`
		Owner   string  `json:"owner"`
		Pct     float64 `json:"pct"`
		Insider bool    `json:"insider"`
	} `json:"topHolders"`
	TotalHolders int64 `json:"totalHolders"`
	Markets      []struct {
		LP *struct {
			LPLockedUSD float64 `json:"lpLockedUSD"`
			LPLockedPct float64 `json:"lpLockedPct"`
		} `json:"lp"`
	} `json:"markets"`
	Risks []struct {
		Name  string `json:"name"`
		Level string `json:"level"`
	} `json:"risks"`
	Rugged      bool `json:"rugged"`
	TransferFee *struct {
		Pct float64 `json:"pct"`
	} `json:"transferFee"`
}

// RugCheck reads token risk reports from the RugCheck API.
type RugCheck struct {
	baseURL string
	http    JSONGetter
}

func NewRugCheck(baseURL string, http JSONGetter) *RugCheck {
	if baseURL == "" {
		baseURL = DefaultRugCheckURL
	}
	return &RugCheck{baseURL: baseURL, http: http}
}

func (r *RugCheck) RiskReport(ctx context.Context, address string) (*model.RiskReport, error) {
	var raw rugReport
	if err := r.http.GetJSON(ctx, joinURL(r.baseURL, "tokens", url.PathEscape(address), "report"), &raw); err != nil {
		return nil, fmt.Errorf("rugcheck %s: %w", address, err)
	}

	report := &model.RiskReport{
		TotalHolders: raw.TotalHolders,
		Rugged:       raw.Rugged,
	}
	for _, h := range raw.TopHolders {
		owner := h.Owner
		if owner == "" {
			owner = h.Address
		}
		report.TopHolders = append(report.TopHolders, model.Holder{Owner: owner, Pct: h.Pct, Insider: h.Insider})
	}
	if len(raw.Markets) > 0 && raw.Markets[0].LP != nil {
		usd, pct := raw.Markets[0].LP.LPLockedUSD, raw.Markets[0].LP.LPLockedPct
		report.LPLockedUSD = &usd
		report.LPLockedPct = &pct
	}
	for _, risk := range raw.Risks {
		report.Risks = append(report.Risks, model.Risk{Name: risk.Name, Level: risk.Level})
	}
	if raw.TransferFee != nil {
		report.TransferFeePct = raw.TransferFee.Pct
	}
	return report, nil
}
