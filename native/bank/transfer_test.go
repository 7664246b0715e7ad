package bank

import (
	"errors"
	"math/big"
	"testing"

	"paygate/core/state"
	"paygate/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewEngine(state.NewManager(db))
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestTransferMovesFunds(t *testing.T) {
	engine := newTestEngine(t)
	alice := testAddr(0x01)
	bob := testAddr(0x02)

	if err := engine.Mint(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Transfer(alice, bob, big.NewInt(400), "invoice"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	aliceBal, err := engine.Balance(alice)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	bobBal, err := engine.Balance(bob)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if aliceBal.Cmp(big.NewInt(600)) != 0 || bobBal.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected balances: %s / %s", aliceBal, bobBal)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	engine := newTestEngine(t)
	alice := testAddr(0x01)
	bob := testAddr(0x02)

	if err := engine.Mint(alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := engine.Transfer(alice, bob, big.NewInt(11), "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	aliceBal, _ := engine.Balance(alice)
	if aliceBal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("failed transfer must not mutate balances")
	}
}

func TestTransferEdgeAmounts(t *testing.T) {
	engine := newTestEngine(t)
	alice := testAddr(0x01)
	bob := testAddr(0x02)

	if err := engine.Transfer(alice, bob, big.NewInt(0), ""); err != nil {
		t.Fatalf("zero transfer must be a no-op: %v", err)
	}
	if err := engine.Transfer(alice, bob, nil, ""); err != nil {
		t.Fatalf("nil amount must be a no-op: %v", err)
	}
	if err := engine.Transfer(alice, bob, big.NewInt(-5), ""); err == nil {
		t.Fatalf("negative transfer must be rejected")
	}
	if err := engine.Mint(alice, big.NewInt(0)); err == nil {
		t.Fatalf("zero mint must be rejected")
	}
}
