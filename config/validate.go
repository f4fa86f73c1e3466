package config

import (
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"

	"marketfront/storage"
)

// ValidateConfig rejects profiles that cannot reach a marketplace contract.
// An empty ContractAddress is allowed so that a fresh profile loads; commands
// that talk to the ledger check it through ContractAddr.
func ValidateConfig(cfg Config) error {
	if _, err := url.ParseRequestURI(cfg.LedgerEndpoint); err != nil {
		return fmt.Errorf("LedgerEndpoint: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.IPFSAPI); err != nil {
		return fmt.Errorf("IPFSAPI: %w", err)
	}
	if cfg.ContractAddress != "" && !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("ContractAddress: %q is not a hex address", cfg.ContractAddress)
	}
	switch cfg.SnapshotBackend {
	case storage.BackendMemory, storage.BackendBolt, storage.BackendLevelDB:
	default:
		return fmt.Errorf("SnapshotBackend: unknown backend %q", cfg.SnapshotBackend)
	}
	return nil
}

// ContractAddr returns the configured marketplace address.
func (c *Config) ContractAddr() (common.Address, error) {
	if !common.IsHexAddress(c.ContractAddress) {
		return common.Address{}, fmt.Errorf("ContractAddress not configured")
	}
	return common.HexToAddress(c.ContractAddress), nil
}
