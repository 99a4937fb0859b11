package solana

import "encoding/json"

// Transaction is the jsonParsed result of getTransaction.
type Transaction struct {
	Slot        uint64          `json:"slot"`
	BlockTime   *int64          `json:"blockTime"`
	Meta        *Meta           `json:"meta"`
	Transaction TransactionBody `json:"transaction"`
}

type Meta struct {
	Err               json.RawMessage `json:"err"`
	Fee               uint64          `json:"fee"`
	PreBalances       []uint64        `json:"preBalances"`
	PostBalances      []uint64        `json:"postBalances"`
	PreTokenBalances  []TokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance  `json:"postTokenBalances"`
}

// Failed reports whether the transaction was committed with an error.
func (m *Meta) Failed() bool {
	return len(m.Err) > 0 && string(m.Err) != "null"
}

type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

type TokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int32  `json:"decimals"`
}

type TransactionBody struct {
	Signatures []string `json:"signatures"`
	Message    Message  `json:"message"`
}

type Message struct {
	AccountKeys []AccountKey `json:"accountKeys"`
}

type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}
