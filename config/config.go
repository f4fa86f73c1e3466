package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"marketfront/crypto"

	"github.com/BurntSushi/toml"
)

const (
	DefaultLedgerEndpoint  = "http://127.0.0.1:8545"
	DefaultIPFSAPI         = "http://127.0.0.1:5001"
	DefaultPassphraseEnv   = "MARKETFRONT_PASSPHRASE"
	DefaultSnapshotBackend = "bolt"
)

// Config is the marketctl profile. It is created with defaults on first use.
type Config struct {
	LedgerEndpoint  string `toml:"LedgerEndpoint"`
	ContractAddress string `toml:"ContractAddress"`
	ChainID         uint64 `toml:"ChainID"`
	KeystorePath    string `toml:"KeystorePath"`
	PassphraseEnv   string `toml:"PassphraseEnv"`
	IPFSAPI         string `toml:"IPFSAPI"`
	SnapshotBackend string `toml:"SnapshotBackend"`
	SnapshotPath    string `toml:"SnapshotPath"`
	ReceiptTimeout  int    `toml:"ReceiptTimeoutSeconds"`
}

// Load loads the profile from path. A missing file is created with defaults
// and a fresh account keystore encrypted with passphrase.
func Load(path, passphrase string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, passphrase)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	for _, undecoded := range meta.Undecoded() {
		if len(undecoded) == 1 && undecoded[0] == "PrivateKey" {
			return nil, fmt.Errorf("config file %s stores a raw PrivateKey; move it into a keystore", path)
		}
	}

	applyDefaults(path, cfg)
	if err := ensureKeystore(path, cfg, passphrase); err != nil {
		return nil, err
	}
	if err := ValidateConfig(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(configPath string, cfg *Config) {
	if strings.TrimSpace(cfg.LedgerEndpoint) == "" {
		cfg.LedgerEndpoint = DefaultLedgerEndpoint
	}
	if strings.TrimSpace(cfg.IPFSAPI) == "" {
		cfg.IPFSAPI = DefaultIPFSAPI
	}
	if strings.TrimSpace(cfg.PassphraseEnv) == "" {
		cfg.PassphraseEnv = DefaultPassphraseEnv
	}
	if strings.TrimSpace(cfg.SnapshotBackend) == "" {
		cfg.SnapshotBackend = DefaultSnapshotBackend
	}
	if strings.TrimSpace(cfg.SnapshotPath) == "" {
		cfg.SnapshotPath = filepath.Join(configDir(configPath), "snapshots.db")
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 120
	}
}

func ensureKeystore(configPath string, cfg *Config, passphrase string) error {
	keystorePath := cfg.KeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, passphrase); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.KeystorePath != keystorePath {
		cfg.KeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default profile.
func createDefault(path, passphrase string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, passphrase); err != nil {
		return nil, err
	}

	cfg := &Config{KeystorePath: keystorePath}
	applyDefaults(path, cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func configDir(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." {
		return ""
	}
	return dir
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(configDir(configPath), "account.keystore")
}
