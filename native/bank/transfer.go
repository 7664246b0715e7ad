package bank

import (
	"errors"
	"fmt"
	"math/big"

	"paygate/core/types"
)

var (
	// ErrInsufficientFunds is returned when the debited account cannot cover
	// the transfer amount.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")

	errNilState = errors.New("bank: state not configured")
)

type transferState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine moves the settlement asset between accounts held in ledger state. It
// is the in-process implementation of the asset-transfer collaborator the
// gateway engine depends on; tests substitute failing mocks through the same
// interface.
type Engine struct {
	state transferState
}

// NewEngine creates a transfer engine backed by the provided state accessor.
func NewEngine(state transferState) *Engine {
	return &Engine{state: state}
}

// Transfer moves amount from one account to the other. Zero amounts are a
// no-op; negative amounts are rejected. The memo is accepted for parity with
// external transfer rails and ignored by the in-process engine.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int, memo string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("bank: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %x has %s, needs %s", ErrInsufficientFunds, from, fromAcc.Balance, amount)
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// Mint credits freshly issued settlement units to the target account. Used by
// genesis tooling and tests to fund payer accounts.
func (e *Engine) Mint(to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("bank: mint amount must be positive")
	}
	account, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return e.state.PutAccount(to[:], account)
}

// Balance reports the current holdings of the provided address.
func (e *Engine) Balance(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}
