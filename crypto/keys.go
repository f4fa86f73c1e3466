package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKey is a secp256k1 account key able to sign marketplace
// transactions.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// GeneratePrivateKey creates a fresh random account key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// PrivateKeyFromHex parses a hex-encoded key, with or without 0x.
func PrivateKeyFromHex(raw string) (*PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return nil, errors.New("crypto: empty private key")
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// Address returns the account address derived from the key.
func (k *PrivateKey) Address() common.Address {
	return crypto.PubkeyToAddress(k.PublicKey)
}

// SignTx signs tx for chainID with the latest signer the chain supports.
func (k *PrivateKey) SignTx(tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error) {
	if k == nil || k.PrivateKey == nil {
		return nil, errors.New("crypto: nil private key")
	}
	if chainID == nil {
		return nil, errors.New("crypto: chain id required")
	}
	return gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), k.PrivateKey)
}

// Hex returns the 0x-prefixed private key. Callers must never log it.
func (k *PrivateKey) Hex() string {
	return "0x" + common.Bytes2Hex(crypto.FromECDSA(k.PrivateKey))
}
