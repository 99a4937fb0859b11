package model

import "time"

// AlertRecord tracks how often a token has been alerted.
type AlertRecord struct {
	TokenAddress         string    `json:"address"`
	Symbol               string    `json:"symbol"`
	AlertCount           int64     `json:"alert_num"`
	MarketCapAtLastAlert float64   `json:"marketcap"`
	LastAlertedAt        time.Time `json:"last_alerted_at"`
}

// AlertUpdate is the input of an escalation increment.
type AlertUpdate struct {
	TokenAddress string
	Symbol       string
	MarketCap    float64
	AlertedAt    time.Time
}

// Escalation holds the alert record before and after an increment.
// Previous.AlertCount is zero for the first alert of a token.
type Escalation struct {
	Previous AlertRecord
	Current  AlertRecord
}

// IsRepeat reports whether the token was alerted before.
func (e Escalation) IsRepeat() bool {
	return e.Previous.AlertCount > 0
}

// Ordinal is the position of the alert being sent, starting at 1.
func (e Escalation) Ordinal() int64 {
	return e.Previous.AlertCount + 1
}
