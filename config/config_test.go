package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ownerHex = "0x1111111111111111111111111111111111111111"
const collectorHex = "0x2222222222222222222222222222222222222222"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paygate.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paygate.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlatformFeeBps != 100 {
		t.Fatalf("default platform fee should be 100 bps, got %d", cfg.PlatformFeeBps)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("default config must fail validation until owner is set")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "Owner = \""+ownerHex+"\"\nOwnerTypo = \"x\"\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "OwnerTypo") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestGatewayInit(t *testing.T) {
	path := writeConfig(t, `
DataDir = "/tmp/gw"
Owner = "`+ownerHex+`"
FeeCollector = "`+collectorHex+`"
PlatformFeeBps = 250
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuditPath != filepath.Join("/tmp/gw", "audit.db") {
		t.Fatalf("audit path not derived from data dir: %s", cfg.AuditPath)
	}
	init, err := cfg.GatewayInit()
	if err != nil {
		t.Fatalf("gateway init: %v", err)
	}
	if init.PlatformFeeBps != 250 {
		t.Fatalf("unexpected platform fee: %d", init.PlatformFeeBps)
	}
	if init.Owner[0] != 0x11 || init.FeeCollector[0] != 0x22 {
		t.Fatalf("addresses not decoded")
	}
}

func TestValidateRejectsBadInputs(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing owner", Config{FeeCollector: collectorHex}},
		{"missing collector", Config{Owner: ownerHex}},
		{"null collector", Config{Owner: ownerHex, FeeCollector: "0x0000000000000000000000000000000000000000"}},
		{"fee too high", Config{Owner: ownerHex, FeeCollector: collectorHex, PlatformFeeBps: 1000}},
		{"short address", Config{Owner: "0x1234", FeeCollector: collectorHex}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("parse without prefix: %v", err)
	}
	if addr[19] != 0x11 {
		t.Fatalf("unexpected address bytes")
	}
	if _, err := ParseAddress("0xzz11111111111111111111111111111111111111"); err == nil {
		t.Fatalf("expected hex error")
	}
	if _, err := ParseAddress(" "); err == nil {
		t.Fatalf("expected empty address error")
	}
}
