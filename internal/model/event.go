package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event kinds and sources reported by the webhook provider.
const (
	EventTypeSwap     = "SWAP"
	EventTypeTransfer = "TRANSFER"
)

// WebhookEvent is an enhanced transaction delivered by the webhook provider.
type WebhookEvent struct {
	Signature   string        `json:"signature"`
	Type        string        `json:"type"`
	Source      string        `json:"source"`
	Timestamp   int64         `json:"timestamp"`
	FeePayer    string        `json:"feePayer"`
	Description string        `json:"description,omitempty"`
	AccountData []AccountData `json:"accountData,omitempty"`
	Events      EventPayloads `json:"events"`
}

// AccountData lists an account touched by the transaction.
type AccountData struct {
	Account             string               `json:"account"`
	NativeBalanceChange int64                `json:"nativeBalanceChange"`
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges,omitempty"`
}

// TokenBalanceChange is a token balance delta for a user account.
type TokenBalanceChange struct {
	UserAccount    string         `json:"userAccount"`
	TokenAccount   string         `json:"tokenAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// EventPayloads carries parsed program events.
type EventPayloads struct {
	Swap *SwapPayload `json:"swap,omitempty"`
}

// SwapPayload is the provider-parsed swap.
type SwapPayload struct {
	NativeInput  *NativeAmount `json:"nativeInput,omitempty"`
	NativeOutput *NativeAmount `json:"nativeOutput,omitempty"`
	TokenInputs  []TokenAmount `json:"tokenInputs,omitempty"`
	TokenOutputs []TokenAmount `json:"tokenOutputs,omitempty"`
}

// NativeAmount is a SOL leg in lamports.
type NativeAmount struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// TokenAmount is an SPL token leg.
type TokenAmount struct {
	UserAccount    string         `json:"userAccount"`
	TokenAccount   string         `json:"tokenAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// RawTokenAmount is an integer amount with its decimals.
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int32  `json:"decimals"`
}

// HasAccount reports whether any entry of accountData matches one of ids.
func (e WebhookEvent) HasAccount(ids map[string]struct{}) bool {
	for _, acc := range e.AccountData {
		if _, ok := ids[acc.Account]; ok {
			return true
		}
	}
	return false
}

// DecodeWebhookBody accepts a single event object or a list and returns the
// first event. It returns nil when the body carries no event.
func DecodeWebhookBody(body []byte) (*WebhookEvent, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	if body[0] == '[' {
		var events []json.RawMessage
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, fmt.Errorf("decode event list: %w", err)
		}
		if len(events) == 0 {
			return nil, nil
		}
		return DecodeWebhookBody(events[0])
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}
