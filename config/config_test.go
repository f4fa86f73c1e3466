package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketfront/crypto"
)

const testPassphrase = "test-passphrase"

func TestLoadCreatesDefaultProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marketctl.toml")

	cfg, err := Load(path, testPassphrase)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LedgerEndpoint != DefaultLedgerEndpoint || cfg.IPFSAPI != DefaultIPFSAPI {
		t.Fatalf("unexpected endpoints: %+v", cfg)
	}
	if cfg.KeystorePath != filepath.Join(dir, "account.keystore") {
		t.Fatalf("unexpected keystore path %q", cfg.KeystorePath)
	}
	if _, err := crypto.LoadFromKeystore(cfg.KeystorePath, testPassphrase); err != nil {
		t.Fatalf("keystore not readable: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("profile not persisted: %v", err)
	}

	again, err := Load(path, testPassphrase)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.KeystorePath != cfg.KeystorePath || again.SnapshotPath != cfg.SnapshotPath {
		t.Fatalf("reload mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadParsesProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marketctl.toml")
	keystorePath := filepath.Join(dir, "mine.keystore")
	contents := `LedgerEndpoint = "http://ledger:8545"
ContractAddress = "0x00000000000000000000000000000000000000aa"
ChainID = 1337
KeystorePath = "` + keystorePath + `"
IPFSAPI = "http://ipfs:5001"
SnapshotBackend = "leveldb"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, testPassphrase)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 1337 || cfg.SnapshotBackend != "leveldb" || cfg.PassphraseEnv != DefaultPassphraseEnv {
		t.Fatalf("unexpected profile: %+v", cfg)
	}
	addr, err := cfg.ContractAddr()
	if err != nil || !strings.EqualFold(addr.Hex(), "0x00000000000000000000000000000000000000aa") {
		t.Fatalf("contract addr: %s %v", addr.Hex(), err)
	}
	if _, err := os.Stat(keystorePath); err != nil {
		t.Fatalf("expected keystore at configured path: %v", err)
	}
}

func TestLoadRejectsRawPrivateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketctl.toml")
	if err := os.WriteFile(path, []byte("PrivateKey = \"0xabc\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path, testPassphrase)
	if err == nil || !strings.Contains(err.Error(), "PrivateKey") {
		t.Fatalf("expected PrivateKey rejection, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	base := Config{LedgerEndpoint: DefaultLedgerEndpoint, IPFSAPI: DefaultIPFSAPI, SnapshotBackend: "bolt"}
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad endpoint", func(c *Config) { c.LedgerEndpoint = "::" }, false},
		{"bad contract", func(c *Config) { c.ContractAddress = "0x12" }, false},
		{"bad backend", func(c *Config) { c.SnapshotBackend = "sqlite" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tc.ok != (err == nil) {
				t.Fatalf("ok=%v err=%v", tc.ok, err)
			}
		})
	}
	if _, err := (&base).ContractAddr(); err == nil {
		t.Fatalf("expected missing contract address error")
	}
}
