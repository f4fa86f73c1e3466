package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"marketfront/core/events"
)

var contractAddr = common.HexToAddress("0x0000000000000000000000000000000000001234")

type keySigner struct {
	key *ecdsa.PrivateKey
}

func (s keySigner) Address() common.Address { return gethcrypto.PubkeyToAddress(s.key.PublicKey) }

func (s keySigner) SignTx(tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error) {
	return gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), s.key)
}

type fakeBackend struct {
	mu          sync.Mutex
	callOutput  []byte
	lastCall    ethereum.CallMsg
	sent        []*gethtypes.Transaction
	misses      int
	status      uint64
	logs        []*gethtypes.Log
	estimateErr error
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.lastCall = msg
	return b.callOutput, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return 90_000, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.misses > 0 {
		b.misses--
		return nil, ethereum.NotFound
	}
	return &gethtypes.Receipt{
		Status:      b.status,
		TxHash:      hash,
		BlockNumber: big.NewInt(11),
		GasUsed:     21_000,
		Logs:        b.logs,
	}, nil
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1337), nil }

func newTestLedger(t *testing.T, backend *fakeBackend) (*EthLedger, common.Address) {
	t.Helper()
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := keySigner{key: key}
	ledger, err := NewEthLedger(backend, contractAddr,
		WithSigner(signer),
		WithReceiptPolling(time.Millisecond, time.Second))
	require.NoError(t, err)
	return ledger, signer.Address()
}

func TestEthLedgerCallUnpacksOutputs(t *testing.T) {
	parsed, err := ParsedABI()
	require.NoError(t, err)
	packed, err := parsed.Methods[MethodGetUsers].Outputs.Pack(
		[]common.Address{common.HexToAddress("0xa1")}, []uint8{2})
	require.NoError(t, err)

	backend := &fakeBackend{callOutput: packed}
	ledger, from := newTestLedger(t, backend)
	out, err := ledger.Call(context.Background(), from, MethodGetUsers)
	require.NoError(t, err)
	require.Equal(t, contractAddr, *backend.lastCall.To)

	raw, err := usersResponse(out)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, raw.StatusCodes)
	require.Equal(t, common.HexToAddress("0xa1"), raw.Addresses[0])
}

func TestEthLedgerTransactDecodesEvents(t *testing.T) {
	parsed, err := ParsedABI()
	require.NoError(t, err)
	withdraw := parsed.Events[events.TypeFundsWithdrawn]
	data, err := withdraw.Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(500))
	require.NoError(t, err)

	backend := &fakeBackend{status: gethtypes.ReceiptStatusSuccessful, misses: 2}
	ledger, from := newTestLedger(t, backend)
	backend.logs = []*gethtypes.Log{
		{Address: common.HexToAddress("0xdead"), Topics: []common.Hash{withdraw.ID}},
		{Address: contractAddr, Topics: []common.Hash{withdraw.ID, common.BytesToHash(from.Bytes())}, Data: data},
	}

	receipt, err := ledger.Transact(context.Background(), TxOpts{From: from}, MethodWithdrawFunds, big.NewInt(1), big.NewInt(500))
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, contractAddr, *tx.To())
	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(big.NewInt(1337)), tx)
	require.NoError(t, err)
	require.Equal(t, from, sender)

	require.Equal(t, uint64(11), receipt.BlockNumber)
	require.Len(t, receipt.Events, 1)
	evt, err := events.Decode(receipt.Events[0].Name, receipt.Events[0].Fields)
	require.NoError(t, err)
	withdrawn := evt.(events.FundsWithdrawn)
	require.Equal(t, from, withdrawn.Addr)
	require.Equal(t, int64(500), withdrawn.Amount.Int64())
}

func TestEthLedgerUndecodableLogsKeepReceipt(t *testing.T) {
	parsed, err := ParsedABI()
	require.NoError(t, err)
	withdraw := parsed.Events[events.TypeFundsWithdrawn]

	backend := &fakeBackend{status: gethtypes.ReceiptStatusSuccessful}
	ledger, from := newTestLedger(t, backend)
	backend.logs = []*gethtypes.Log{
		{Address: contractAddr, Topics: []common.Hash{withdraw.ID, common.BytesToHash(from.Bytes())}, Data: []byte{1, 2, 3}},
	}

	receipt, err := ledger.Transact(context.Background(), TxOpts{From: from}, MethodWithdrawFunds, big.NewInt(1), big.NewInt(500))
	require.NoError(t, err)
	require.Error(t, receipt.DecodeErr)
	require.Empty(t, receipt.Events)
	require.Equal(t, uint64(11), receipt.BlockNumber)
}

func TestEthLedgerReceiptTimeoutIsPending(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := keySigner{key: key}
	backend := &fakeBackend{status: gethtypes.ReceiptStatusSuccessful, misses: 1 << 20}
	ledger, err := NewEthLedger(backend, contractAddr,
		WithSigner(signer),
		WithReceiptPolling(time.Millisecond, 20*time.Millisecond))
	require.NoError(t, err)

	_, err = ledger.Transact(context.Background(), TxOpts{From: signer.Address()}, MethodToggleContractActive)
	require.ErrorIs(t, err, ErrPending)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	var pending *PendingError
	require.ErrorAs(t, err, &pending)
	require.Len(t, backend.sent, 1)
	require.Equal(t, backend.sent[0].Hash(), pending.TxHash)
	require.False(t, errors.Is(err, ErrReverted))
}

func TestEthLedgerRevertedIsError(t *testing.T) {
	backend := &fakeBackend{status: gethtypes.ReceiptStatusFailed}
	ledger, from := newTestLedger(t, backend)
	_, err := ledger.Transact(context.Background(), TxOpts{From: from}, MethodToggleContractActive)
	require.ErrorIs(t, err, ErrReverted)
}

func TestEthLedgerEstimateFailureIsError(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("execution reverted: not admin")}
	ledger, from := newTestLedger(t, backend)
	_, err := ledger.Transact(context.Background(), TxOpts{From: from}, MethodEmergencyWithdraw)
	require.Error(t, err)
	require.Empty(t, backend.sent)
}

func TestEthLedgerRequiresSigner(t *testing.T) {
	backend := &fakeBackend{status: gethtypes.ReceiptStatusSuccessful}
	ledger, _ := newTestLedger(t, backend)
	_, err := ledger.Transact(context.Background(), TxOpts{From: common.HexToAddress("0xbeef")}, MethodRequestStoreOwnerStatus)
	require.Error(t, err)
	require.Empty(t, backend.sent)
}

func TestMarketplaceABIExposesEveryEvent(t *testing.T) {
	parsed, err := ParsedABI()
	require.NoError(t, err)
	for _, name := range []string{
		events.TypeRightsRequested, events.TypeShopOwnerRightsGranted, events.TypeAdminRightsGranted,
		events.TypeUserDeleted, events.TypeStorefrontCreated, events.TypeStorefrontRemoved,
		events.TypeProductAdded, events.TypeProductRemoved, events.TypeContentIDUpdated,
		events.TypePurchaseLogged, events.TypeFundsWithdrawn,
	} {
		_, ok := parsed.Events[name]
		require.True(t, ok, name)
	}
	require.True(t, parsed.Methods[MethodPurchaseProduct].IsPayable())
}
