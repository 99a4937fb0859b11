package model

import "time"

// JournalEntry records what happened to one webhook event.
type JournalEntry struct {
	ReceivedAt time.Time `json:"received_at"`
	Signature  string    `json:"signature,omitempty"`
	Source     string    `json:"source,omitempty"`
	Account    string    `json:"account,omitempty"`
	TokenOut   string    `json:"token_out,omitempty"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
}
