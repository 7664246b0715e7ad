package state

import (
	"math/big"
	"testing"

	"paygate/core/types"
	"paygate/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func TestKVRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	type record struct {
		Name    string
		Counter uint64
	}
	if err := mgr.KVPut([]byte("gateway/test"), record{Name: "shop", Counter: 7}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got record
	ok, err := mgr.KVGet([]byte("gateway/test"), &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if got.Name != "shop" || got.Counter != 7 {
		t.Fatalf("unexpected record: %+v", got)
	}

	ok, err = mgr.KVGet([]byte("gateway/absent"), &got)
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if ok {
		t.Fatalf("expected absent key")
	}
}

func TestOverlayCommitAndRollback(t *testing.T) {
	mgr := newTestManager(t)

	mgr.Begin()
	if err := mgr.KVPut([]byte("k"), uint64(1)); err != nil {
		t.Fatalf("put in txn: %v", err)
	}
	var v uint64
	ok, err := mgr.KVGet([]byte("k"), &v)
	if err != nil || !ok || v != 1 {
		t.Fatalf("txn read-your-write failed: ok=%v v=%d err=%v", ok, v, err)
	}
	mgr.Rollback()

	ok, err = mgr.KVGet([]byte("k"), &v)
	if err != nil {
		t.Fatalf("get after rollback: %v", err)
	}
	if ok {
		t.Fatalf("rollback must discard buffered writes")
	}

	mgr.Begin()
	if err := mgr.KVPut([]byte("k"), uint64(2)); err != nil {
		t.Fatalf("put in txn: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	ok, err = mgr.KVGet([]byte("k"), &v)
	if err != nil || !ok || v != 2 {
		t.Fatalf("committed value not visible: ok=%v v=%d err=%v", ok, v, err)
	}
}

func TestKVAppendDeduplicates(t *testing.T) {
	mgr := newTestManager(t)

	key := []byte("gateway/index")
	if err := mgr.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mgr.KVAppend(key, []byte{0x02}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mgr.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}
	var list [][]byte
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}

	var empty [][]byte
	if err := mgr.KVGetList([]byte("gateway/empty"), &empty); err != nil {
		t.Fatalf("get empty list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected initialised empty slice")
	}
}

func TestAccountDefaultsAndValidation(t *testing.T) {
	mgr := newTestManager(t)

	addr := []byte{0xAA, 0xBB}
	account, err := mgr.GetAccount(addr)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Balance == nil || account.Balance.Sign() != 0 {
		t.Fatalf("expected zero default balance")
	}

	account.Balance = big.NewInt(100)
	if err := mgr.PutAccount(addr, account); err != nil {
		t.Fatalf("put account: %v", err)
	}
	reloaded, err := mgr.GetAccount(addr)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.Balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected balance: %s", reloaded.Balance)
	}

	if err := mgr.PutAccount(addr, &types.Account{Balance: big.NewInt(-1)}); err == nil {
		t.Fatalf("expected negative balance rejection")
	}
}
