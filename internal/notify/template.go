package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"walletMonitor/internal/model"
)

const (
	topHolderCount = 10
	maxBuyerLines  = 10
)

// AlertContent is everything rendered into an alert.
type AlertContent struct {
	Info       *model.TokenInfo
	Risk       *model.RiskReport
	RiskErr    error
	Buyers     []model.TransactionRecord
	Escalation model.Escalation
	Now        time.Time
}

// ComposeAlert renders the Telegram-style HTML alert. Repeat alerts are
// prefixed with their ordinal.
func ComposeAlert(c AlertContent) string {
	var b strings.Builder
	if c.Escalation.IsRepeat() {
		fmt.Fprintf(&b, "🔄 Alert #%d\n\n", c.Escalation.Ordinal())
	}

	info := c.Info
	if info == nil {
		info = &model.TokenInfo{}
	}
	fmt.Fprintf(&b, "<b>🚀 %s</b> (%s)\n", esc(info.Symbol), esc(info.Name))
	fmt.Fprintf(&b, "<code>%s</code>\n\n", esc(info.Address))
	fmt.Fprintf(&b, "<b>💰 Market Cap:</b> $%s\n", FormatCompact(info.MarketCap))
	fmt.Fprintf(&b, "<b>💧 Liquidity:</b> $%s\n", FormatCompact(info.LiquidityUSD))
	if info.PriceUSD != "" {
		fmt.Fprintf(&b, "<b>💵 Price:</b> $%s\n", esc(info.PriceUSD))
	}
	if info.CreatedAt > 0 && !c.Now.IsZero() {
		fmt.Fprintf(&b, "<b>⏰ Pair Age:</b> %s\n", formatAge(c.Now.Sub(time.Unix(info.CreatedAt, 0))))
	}
	fmt.Fprintf(&b, "<b>📊 Volume:</b> 5m $%s | 1h $%s | 6h $%s | 24h $%s\n",
		FormatCompact(info.VolumeM5), FormatCompact(info.VolumeH1), FormatCompact(info.VolumeH6), FormatCompact(info.VolumeH24))
	fmt.Fprintf(&b, "<b>📈 6h Change:</b> %.2f%%\n", info.ChangeH6)

	var links []string
	if info.Website != "" {
		links = append(links, fmt.Sprintf(`<a href="%s">Website</a>`, esc(info.Website)))
	}
	if info.Twitter != "" {
		links = append(links, fmt.Sprintf(`<a href="%s">Twitter</a>`, esc(info.Twitter)))
	}
	if len(links) > 0 {
		fmt.Fprintf(&b, "<b>🔗 Links:</b> %s\n", strings.Join(links, " | "))
	}

	if len(c.Buyers) > 0 {
		fmt.Fprintf(&b, "\n<b>👛 Wallets (%d):</b>\n", len(c.Buyers))
		for i, rec := range c.Buyers {
			if i >= maxBuyerLines {
				break
			}
			fmt.Fprintf(&b, "   -- <a href=\"https://gmgn.ai/sol/address/%s\">%s</a> %s %s\n",
				esc(rec.Account), esc(ShortAddress(rec.Account)), rec.AmountIn.Round(4).String(), esc(assetLabel(rec.TokenInAddress)))
		}
	}

	b.WriteString("\n")
	if c.RiskErr != nil || c.Risk == nil {
		b.WriteString("<b>Error:</b> Could not retrieve token information.\n")
	} else {
		b.WriteString(RiskHTML(c.Risk))
	}

	fmt.Fprintf(&b, "\n<a href=\"https://gmgn.ai/sol/token/%s\">GMGN</a> | <a href=\"https://dexscreener.com/solana/%s\">DexScreener</a>",
		esc(info.Address), esc(info.Address))
	return b.String()
}

// RiskHTML renders the holder, liquidity and risk summary of a report.
func RiskHTML(r *model.RiskReport) string {
	var b strings.Builder
	if len(r.TopHolders) > 0 {
		fmt.Fprintf(&b, "<b>👥 Top 10 Holders:</b> %.2f%%\n", r.TopHoldersPct(topHolderCount))
		for i, h := range r.TopHolders {
			if i >= topHolderCount {
				break
			}
			insider := ""
			if h.Insider {
				insider = " ⚠️"
			}
			fmt.Fprintf(&b, "   -- <a href=\"https://gmgn.ai/sol/address/%s\">%s: </a>%.2f%%%s\n",
				esc(h.Owner), esc(ShortAddress(h.Owner)), h.Pct, insider)
		}
	}

	if r.TotalHolders > 0 {
		fmt.Fprintf(&b, "<b>👤 Holders:</b> %d\n", r.TotalHolders)
	} else {
		b.WriteString("<b>👤 Holders:</b> N/A\n")
	}

	if r.LPLockedUSD != nil && r.LPLockedPct != nil {
		fmt.Fprintf(&b, "<b>💧 LP Locked:</b> $%.2f (%.2f%%)\n", *r.LPLockedUSD, *r.LPLockedPct)
	}

	levels := make([]string, 0, len(r.Risks))
	for _, risk := range r.Risks {
		levels = append(levels, riskMarker(risk.Level))
	}
	if len(levels) == 0 {
		levels = append(levels, riskMarker(""))
	}
	fmt.Fprintf(&b, "<b>⚠️ Risks:</b> %s\n", strings.Join(levels, " "))

	rugged := "No"
	if r.Rugged {
		rugged = "Yes"
	}
	fmt.Fprintf(&b, "<b>🚨 Rugged:</b> %s\n", rugged)

	if r.TransferFeePct > 0 {
		fmt.Fprintf(&b, "<b>💸 Transfer Fee:</b> %.2f%%\n", r.TransferFeePct)
	}
	return b.String()
}

func riskMarker(level string) string {
	switch level {
	case "high":
		return "🔴"
	case "medium":
		return "🟠"
	case "low":
		return "🟡"
	default:
		return "🟢"
	}
}

// ShortAddress keeps the first and last four characters.
func ShortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "......" + addr[len(addr)-4:]
}

// FormatCompact renders v with a K/M/B suffix and two decimals.
func FormatCompact(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	days := minutes / (24 * 60)
	hours := minutes / 60 % 24
	minutes %= 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func assetLabel(mint string) string {
	switch mint {
	case model.SOLMint:
		return "SOL"
	case model.USDCMint:
		return "USDC"
	default:
		return ShortAddress(mint)
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}
