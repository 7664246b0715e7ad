package gateway

import (
	"fmt"
	"math/big"
)

// Balance helpers for the per-business settlement balances. Balances only
// grow through settlement credits and only shrink through withdrawals and
// refunds, each bounded by the current value, so a stored balance is never
// negative.

func (e *Engine) balanceOf(owner [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := e.st.KVGet(balanceKey(owner), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (e *Engine) creditBalance(owner [20]byte, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("gateway: invalid credit amount")
	}
	balance, err := e.balanceOf(owner)
	if err != nil {
		return nil, err
	}
	balance = new(big.Int).Add(balance, amount)
	if err := e.st.KVPut(balanceKey(owner), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (e *Engine) debitBalance(owner [20]byte, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	balance, err := e.balanceOf(owner)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	balance = new(big.Int).Sub(balance, amount)
	if err := e.st.KVPut(balanceKey(owner), balance); err != nil {
		return nil, err
	}
	return balance, nil
}
