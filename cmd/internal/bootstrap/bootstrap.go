// Package bootstrap assembles the marketplace session shared by the daemon
// and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"marketfront/contract"
	"marketfront/core/events"
	"marketfront/core/session"
	"marketfront/crypto"
	"marketfront/observability/logging"
	"marketfront/storage"
	"marketfront/storage/contentstore"
	"marketfront/storage/snapshots"
)

// Params names every collaborator a Runtime needs.
type Params struct {
	LedgerEndpoint  string
	Contract        common.Address
	ChainID         uint64
	KeystorePath    string
	Passphrase      string
	IPFSAPI         string
	CheckTimeout    time.Duration
	SnapshotBackend string
	SnapshotPath    string
	PollInterval    time.Duration
	ReceiptTimeout  time.Duration
	Logger          *slog.Logger
	Metrics         contract.Metrics
	Emitter         events.Emitter
}

// Runtime owns the connections opened for one account.
type Runtime struct {
	Account   common.Address
	Session   *session.Session
	Client    *ethclient.Client
	Content   *contentstore.Client
	Snapshots *snapshots.Store
	logger    *slog.Logger
}

// Open decrypts the account key, dials the ledger and wires a session with
// the content store and snapshot cache. A cached snapshot for the account is
// restored when present.
func Open(ctx context.Context, p Params) (*Runtime, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("unlocking account key",
		logging.MaskField("keystore", p.KeystorePath),
		logging.MaskField("passphrase", p.Passphrase))
	key, err := crypto.LoadFromKeystore(p.KeystorePath, p.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("load account key: %w", err)
	}
	account := key.Address()

	client, err := contract.Dial(ctx, p.LedgerEndpoint)
	if err != nil {
		return nil, err
	}
	ledgerOpts := []contract.LedgerOption{
		contract.WithSigner(key),
		contract.WithReceiptPolling(p.PollInterval, p.ReceiptTimeout),
		contract.WithLedgerLogger(logger),
	}
	if p.ChainID != 0 {
		ledgerOpts = append(ledgerOpts, contract.WithChainID(new(big.Int).SetUint64(p.ChainID)))
	}
	ledger, err := contract.NewEthLedger(client, p.Contract, ledgerOpts...)
	if err != nil {
		client.Close()
		return nil, err
	}

	gatewayOpts := []contract.Option{contract.WithLogger(logger)}
	if p.Metrics != nil {
		gatewayOpts = append(gatewayOpts, contract.WithMetrics(p.Metrics))
	}
	gatewayOpts = append(gatewayOpts, contract.WithEmitter(events.Fanout{logging.EventEmitter(logger), p.Emitter}))
	gateway := contract.NewGateway(ledger, gatewayOpts...)

	rt := &Runtime{Account: account, Client: client, logger: logger}
	sessionOpts := []session.Option{session.WithLogger(logger)}

	if p.IPFSAPI != "" {
		content, err := contentstore.New(p.IPFSAPI, p.CheckTimeout, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Content = content
		sessionOpts = append(sessionOpts, session.WithContentStore(content))
	}

	if p.SnapshotPath != "" || p.SnapshotBackend == storage.BackendMemory {
		store, err := snapshots.Open(p.SnapshotBackend, p.SnapshotPath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		rt.Snapshots = store
		sessionOpts = append(sessionOpts, session.WithSnapshotStore(store))
		cached, err := store.Load(account)
		switch {
		case err == nil:
			sessionOpts = append(sessionOpts, session.WithRestoredState(cached))
			logger.Info("restored cached snapshot", "account", account.Hex(), "version", cached.Version)
		case !errors.Is(err, snapshots.ErrNotFound):
			logger.Warn("cached snapshot unreadable", "account", account.Hex(), "error", err)
		}
	}

	rt.Session = session.New(account, gateway, sessionOpts...)
	return rt, nil
}

// Healthy reports whether the ledger endpoint answers.
func (rt *Runtime) Healthy(ctx context.Context) error {
	if _, err := rt.Client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("ledger unreachable: %w", err)
	}
	return nil
}

// Close releases the snapshot store and the ledger connection.
func (rt *Runtime) Close() {
	if rt.Snapshots != nil {
		if err := rt.Snapshots.Close(); err != nil {
			rt.logger.Warn("close snapshot store", "error", err)
		}
	}
	if rt.Client != nil {
		rt.Client.Close()
	}
}
