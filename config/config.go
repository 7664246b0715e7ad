package config

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"paygate/native/gateway"
)

// Config captures the deployment-time settings for a gateway instance: where
// state lives, who owns the platform parameters, and the initial fee setup.
type Config struct {
	DataDir        string `toml:"DataDir"`
	AuditPath      string `toml:"AuditPath"`
	Owner          string `toml:"Owner"`
	FeeCollector   string `toml:"FeeCollector"`
	PlatformFeeBps uint32 `toml:"PlatformFeeBps"`
	Service        string `toml:"Service"`
	Environment    string `toml:"Environment"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Unknown keys are rejected so typos fail loudly.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %q", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./paygate-data"
	}
	if strings.TrimSpace(cfg.AuditPath) == "" {
		cfg.AuditPath = filepath.Join(cfg.DataDir, "audit.db")
	}
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = "paygate"
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file. The owner and
// fee collector are left empty on purpose: Validate rejects the default until
// the operator fills them in.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        "./paygate-data",
		AuditPath:      "./paygate-data/audit.db",
		PlatformFeeBps: 100,
		Service:        "paygate",
		Environment:    "local",
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate checks that the configuration can initialize a gateway.
func (c *Config) Validate() error {
	if _, err := ParseAddress(c.Owner); err != nil {
		return fmt.Errorf("config: Owner: %w", err)
	}
	collector, err := ParseAddress(c.FeeCollector)
	if err != nil {
		return fmt.Errorf("config: FeeCollector: %w", err)
	}
	if collector == ([20]byte{}) {
		return fmt.Errorf("config: FeeCollector must not be the null identity")
	}
	if c.PlatformFeeBps > 999 {
		return fmt.Errorf("config: PlatformFeeBps %d exceeds 999", c.PlatformFeeBps)
	}
	return nil
}

// GatewayInit converts the configuration into the one-time initialization
// payload for the gateway parameters.
func (c *Config) GatewayInit() (gateway.InitConfig, error) {
	if err := c.Validate(); err != nil {
		return gateway.InitConfig{}, err
	}
	owner, err := ParseAddress(c.Owner)
	if err != nil {
		return gateway.InitConfig{}, err
	}
	collector, err := ParseAddress(c.FeeCollector)
	if err != nil {
		return gateway.InitConfig{}, err
	}
	return gateway.InitConfig{
		Owner:          owner,
		FeeCollector:   collector,
		PlatformFeeBps: c.PlatformFeeBps,
	}, nil
}

// ParseAddress decodes a 20-byte identity from its hex form, with or without
// a 0x prefix.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return addr, fmt.Errorf("address required")
	}
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address: %w", err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes (got %d)", len(addr), len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}
