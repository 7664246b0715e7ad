package gateway

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"paygate/core/state"
	"paygate/storage"
)

func newTestRegistry(t *testing.T) (*Registry, *state.Manager) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := state.NewManager(db)
	return NewRegistry(mgr), mgr
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestRegisterCreatesBusiness(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := testAddr(0x01)

	business, err := registry.Register(owner, "  Shop  ", "https://shop.example/hook", 42)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if business.Name != "Shop" {
		t.Fatalf("name not trimmed: %q", business.Name)
	}
	if business.FeeBps != 0 || !business.Active {
		t.Fatalf("fresh business must start active with zero fee rate")
	}
	if business.TotalProcessed.Sign() != 0 {
		t.Fatalf("fresh business must start with zero total")
	}
	if business.RegisteredAt != 42 {
		t.Fatalf("registration height mismatch: %d", business.RegisteredAt)
	}

	stored, ok, err := registry.Get(owner)
	if err != nil || !ok {
		t.Fatalf("get after register: ok=%v err=%v", ok, err)
	}
	if stored.Name != "Shop" {
		t.Fatalf("stored name mismatch: %q", stored.Name)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := testAddr(0x01)

	if _, err := registry.Register(owner, "Shop", "", 10); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := registry.Register(owner, "Other", "", 20); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}
	// The duplicate check wins over input validation: a registered identity
	// always gets ErrAlreadyRegistered, even with an invalid profile.
	if _, err := registry.Register(owner, "", "", 20); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate with empty name must still report already registered, got %v", err)
	}
	longHook := strings.Repeat("u", maxWebhookLength+1)
	if _, err := registry.Register(owner, "Other", longHook, 20); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate with oversized webhook must still report already registered, got %v", err)
	}
	stored, _, err := registry.Get(owner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Name != "Shop" || stored.RegisteredAt != 10 {
		t.Fatalf("failed duplicate registration must not mutate the record")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := testAddr(0x01)

	if _, err := registry.Register(owner, "", "", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty name: %v", err)
	}
	if _, err := registry.Register(owner, "   ", "", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: %v", err)
	}
	longName := strings.Repeat("n", maxNameLength+1)
	if _, err := registry.Register(owner, longName, "", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized name: %v", err)
	}
	longHook := strings.Repeat("u", maxWebhookLength+1)
	if _, err := registry.Register(owner, "Shop", longHook, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized webhook: %v", err)
	}
}

func TestUpdateReplacesProfileOnly(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := testAddr(0x01)

	if _, err := registry.Register(owner, "Shop", "", 10); err != nil {
		t.Fatalf("register: %v", err)
	}
	stored, _, _ := registry.Get(owner)
	stored.TotalProcessed = big.NewInt(777)
	if err := registry.put(stored); err != nil {
		t.Fatalf("seed total: %v", err)
	}

	updated, err := registry.Update(owner, "New Shop", "https://new.example", 250)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "New Shop" || updated.WebhookURL != "https://new.example" || updated.FeeBps != 250 {
		t.Fatalf("profile fields not replaced: %+v", updated)
	}
	if updated.RegisteredAt != 10 {
		t.Fatalf("registration height must be immutable")
	}
	if updated.TotalProcessed.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("cumulative total must be untouched by update")
	}
	if !updated.Active {
		t.Fatalf("active flag must be untouched by update")
	}
}

func TestUpdateValidation(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := testAddr(0x01)

	if _, err := registry.Update(owner, "Shop", "", 0); !errors.Is(err, ErrBusinessNotRegistered) {
		t.Fatalf("unregistered update: %v", err)
	}
	if _, err := registry.Register(owner, "Shop", "", 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := registry.Update(owner, "Shop", "", 1000); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("fee rate at 1000 bps must be rejected: %v", err)
	}
	if _, err := registry.Update(owner, "Shop", "", 999); err != nil {
		t.Fatalf("fee rate at 999 bps must be accepted: %v", err)
	}
	if _, err := registry.Update(owner, "", "", 100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty name on update: %v", err)
	}
}

func TestSetActive(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := testAddr(0x01)

	if _, err := registry.SetActive(owner, false); !errors.Is(err, ErrBusinessNotRegistered) {
		t.Fatalf("set active on missing business: %v", err)
	}
	if _, err := registry.Register(owner, "Shop", "", 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	business, err := registry.SetActive(owner, false)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if business.Active {
		t.Fatalf("expected inactive business")
	}
	business, err = registry.SetActive(owner, true)
	if err != nil || !business.Active {
		t.Fatalf("reactivate: %v", err)
	}
}
