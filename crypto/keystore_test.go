package crypto

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

func TestKeystoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "account.keystore")
	key, created, err := EnsureKeystore(path, "secret")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !created {
		t.Fatalf("expected a new key")
	}
	again, created, err := EnsureKeystore(path, "secret")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if created || again.Address() != key.Address() {
		t.Fatalf("expected the same key to be loaded")
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected wrong passphrase to fail")
	}
}

func TestSignTxRecoversSender(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	to := common.HexToAddress("0x1234")
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000, To: &to, Value: big.NewInt(0)})
	chainID := big.NewInt(1337)
	signed, err := key.SignTx(tx, chainID)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	if sender != key.Address() {
		t.Fatalf("sender mismatch: %s vs %s", sender.Hex(), key.Address().Hex())
	}
	parsed, err := PrivateKeyFromHex(key.Hex())
	if err != nil || parsed.Address() != key.Address() {
		t.Fatalf("hex round trip failed: %v", err)
	}
}
