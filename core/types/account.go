package types

import "math/big"

// Account tracks the settlement-asset holdings for a single address. The
// gateway ledger only needs the spendable balance and a nonce for bookkeeping;
// both are persisted through the state manager.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
