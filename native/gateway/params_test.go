package gateway

import (
	"errors"
	"testing"

	"paygate/core/state"
	"paygate/storage"
)

func newTestParamsState(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return state.NewManager(db)
}

func TestInitializeOnce(t *testing.T) {
	st := newTestParamsState(t)
	cfg := InitConfig{Owner: testAddr(0xAA), FeeCollector: testAddr(0xBB), PlatformFeeBps: 250}

	if err := Initialize(st, cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	params, err := loadParams(st)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if params.Owner != cfg.Owner || params.FeeCollector != cfg.FeeCollector || params.PlatformFeeBps != 250 {
		t.Fatalf("unexpected params: %+v", params)
	}

	cfg.PlatformFeeBps = 500
	if err := Initialize(st, cfg); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second initialize must fail, got %v", err)
	}
	params, err = loadParams(st)
	if err != nil || params.PlatformFeeBps != 250 {
		t.Fatalf("repeat initialize must not mutate params: %+v err=%v", params, err)
	}
}

func TestInitializeDefaultsAndBounds(t *testing.T) {
	t.Run("zero bps falls back to default", func(t *testing.T) {
		st := newTestParamsState(t)
		if err := Initialize(st, InitConfig{Owner: testAddr(0x01), FeeCollector: testAddr(0x02)}); err != nil {
			t.Fatalf("initialize: %v", err)
		}
		params, err := loadParams(st)
		if err != nil || params.PlatformFeeBps != defaultPlatformFeeBps {
			t.Fatalf("expected default %d bps: %+v err=%v", defaultPlatformFeeBps, params, err)
		}
	})
	t.Run("max bps accepted", func(t *testing.T) {
		st := newTestParamsState(t)
		if err := Initialize(st, InitConfig{Owner: testAddr(0x01), FeeCollector: testAddr(0x02), PlatformFeeBps: maxFeeBps}); err != nil {
			t.Fatalf("initialize: %v", err)
		}
	})
	t.Run("over max rejected", func(t *testing.T) {
		st := newTestParamsState(t)
		err := Initialize(st, InitConfig{Owner: testAddr(0x01), FeeCollector: testAddr(0x02), PlatformFeeBps: maxFeeBps + 1})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
	t.Run("zero owner rejected", func(t *testing.T) {
		st := newTestParamsState(t)
		err := Initialize(st, InitConfig{FeeCollector: testAddr(0x02)})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
	t.Run("zero collector rejected", func(t *testing.T) {
		st := newTestParamsState(t)
		err := Initialize(st, InitConfig{Owner: testAddr(0x01)})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestLoadParamsUninitialized(t *testing.T) {
	st := newTestParamsState(t)
	if _, err := loadParams(st); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}
