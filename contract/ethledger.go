package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultReceiptTimeout = 2 * time.Minute
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("contract: transaction reverted")

// Backend defines the subset of the Ethereum RPC used by EthLedger.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Signer signs transactions for one account.
type Signer interface {
	Address() common.Address
	SignTx(tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error)
}

// EthLedger implements Ledger against an Ethereum JSON-RPC node.
type EthLedger struct {
	backend        Backend
	address        common.Address
	abi            abi.ABI
	signers        map[common.Address]Signer
	pollInterval   time.Duration
	receiptTimeout time.Duration
	logger         *slog.Logger

	mu      sync.Mutex
	chainID *big.Int
}

// LedgerOption customises an EthLedger.
type LedgerOption func(*EthLedger)

// WithSigner registers a signing account. Transact refuses senders without one.
func WithSigner(signer Signer) LedgerOption {
	return func(l *EthLedger) {
		if signer != nil {
			l.signers[signer.Address()] = signer
		}
	}
}

// WithChainID pins the chain id instead of asking the node.
func WithChainID(id *big.Int) LedgerOption {
	return func(l *EthLedger) {
		if id != nil && id.Sign() > 0 {
			l.chainID = new(big.Int).Set(id)
		}
	}
}

// WithReceiptPolling overrides how often and for how long receipts are polled.
func WithReceiptPolling(interval, timeout time.Duration) LedgerOption {
	return func(l *EthLedger) {
		if interval > 0 {
			l.pollInterval = interval
		}
		if timeout > 0 {
			l.receiptTimeout = timeout
		}
	}
}

// WithLedgerLogger sets the logger used for transaction lifecycle messages.
func WithLedgerLogger(logger *slog.Logger) LedgerOption {
	return func(l *EthLedger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewEthLedger binds the Marketplace ABI to the contract at address.
func NewEthLedger(backend Backend, address common.Address, opts ...LedgerOption) (*EthLedger, error) {
	if backend == nil {
		return nil, fmt.Errorf("contract: backend required")
	}
	if (address == common.Address{}) {
		return nil, fmt.Errorf("contract: contract address required")
	}
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	l := &EthLedger{
		backend:        backend,
		address:        address,
		abi:            parsed,
		signers:        make(map[common.Address]Signer),
		pollInterval:   defaultPollInterval,
		receiptTimeout: defaultReceiptTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Accounts lists the addresses this ledger can sign for.
func (l *EthLedger) Accounts() []common.Address {
	out := make([]common.Address, 0, len(l.signers))
	for addr := range l.signers {
		out = append(out, addr)
	}
	return out
}

// Call executes a read method and returns its unpacked outputs.
func (l *EthLedger) Call(ctx context.Context, from common.Address, method string, args ...any) ([]any, error) {
	input, err := l.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("contract: pack %s: %w", method, err)
	}
	to := l.address
	output, err := l.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract: call %s: %w", method, err)
	}
	values, err := l.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("contract: unpack %s: %w", method, err)
	}
	return values, nil
}

// Transact signs and sends a state-changing request, waits for it to be
// mined and decodes the contract's events from the receipt.
func (l *EthLedger) Transact(ctx context.Context, opts TxOpts, method string, args ...any) (*Receipt, error) {
	signer, ok := l.signers[opts.From]
	if !ok {
		return nil, fmt.Errorf("contract: no signer for %s", opts.From.Hex())
	}
	input, err := l.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("contract: pack %s: %w", method, err)
	}
	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}
	chainID, err := l.resolveChainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := l.backend.PendingNonceAt(ctx, opts.From)
	if err != nil {
		return nil, fmt.Errorf("contract: fetch nonce: %w", err)
	}
	gasPrice, err := l.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("contract: suggest gas price: %w", err)
	}
	to := l.address
	gas, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{From: opts.From, To: &to, Value: value, Data: input})
	if err != nil {
		return nil, fmt.Errorf("contract: estimate gas for %s: %w", method, err)
	}
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     input,
	})
	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("contract: sign %s: %w", method, err)
	}
	if err := l.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("contract: send %s: %w", method, err)
	}
	l.logger.Debug("transaction sent", slog.String("method", method), slog.String("tx", signed.Hash().Hex()))
	receipt, err := l.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, &PendingError{TxHash: signed.Hash(), Err: err}
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s in tx %s", ErrReverted, method, signed.Hash().Hex())
	}
	decoded, decodeErr := l.DecodeLogs(receipt.Logs)
	if decodeErr != nil {
		l.logger.Warn("mined transaction has undecodable logs",
			slog.String("method", method),
			slog.String("tx", signed.Hash().Hex()),
			slog.Any("error", decodeErr))
	}
	out := &Receipt{TxHash: receipt.TxHash, GasUsed: receipt.GasUsed, Events: decoded, DecodeErr: decodeErr}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if (out.TxHash == common.Hash{}) {
		out.TxHash = signed.Hash()
	}
	return out, nil
}

// DecodeLogs decodes the logs emitted by the marketplace contract. Logs from
// other contracts and unknown topics are skipped. On error the events decoded
// so far are returned with it.
func (l *EthLedger) DecodeLogs(logs []*gethtypes.Log) ([]RawEvent, error) {
	out := make([]RawEvent, 0, len(logs))
	for _, entry := range logs {
		if entry == nil || entry.Address != l.address || len(entry.Topics) == 0 {
			continue
		}
		event, err := l.abi.EventByID(entry.Topics[0])
		if err != nil {
			continue
		}
		fields := make(map[string]any, len(event.Inputs))
		if len(entry.Data) > 0 {
			if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, entry.Data); err != nil {
				return out, fmt.Errorf("contract: decode %s data: %w", event.Name, err)
			}
		}
		var indexed abi.Arguments
		for _, input := range event.Inputs {
			if input.Indexed {
				indexed = append(indexed, input)
			}
		}
		if len(indexed) > 0 {
			if err := abi.ParseTopicsIntoMap(fields, indexed, entry.Topics[1:]); err != nil {
				return out, fmt.Errorf("contract: decode %s topics: %w", event.Name, err)
			}
		}
		out = append(out, RawEvent{Name: event.Name, Fields: fields})
	}
	return out, nil
}

func (l *EthLedger) resolveChainID(ctx context.Context) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.chainID != nil {
		return l.chainID, nil
	}
	id, err := l.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("contract: fetch chain id: %w", err)
	}
	l.chainID = id
	return id, nil
}

func (l *EthLedger) waitMined(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, l.receiptTimeout)
	defer cancel()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := l.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("contract: fetch receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("contract: wait for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
