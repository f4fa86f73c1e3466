// Package session owns the client-side view of the marketplace for one
// account. The current State is only ever replaced by a command handler, and
// a handler publishes a new snapshot only after the ledger confirmed the
// change it reconciles.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"marketfront/contract"
	"marketfront/core/events"
	"marketfront/core/types"
)

// Per-owner limits enforced for non-admin accounts.
const (
	MaxStorefrontsPerOwner   = 5
	MaxProductsPerStorefront = 10
)

var (
	ErrForbidden               = errors.New("session: not permitted for this account")
	ErrNoSelection             = errors.New("session: no storefront selected")
	ErrInvalidArgument         = errors.New("session: invalid argument")
	ErrLimitReached            = errors.New("session: limit reached")
	ErrInsufficientPayment     = errors.New("session: payment below price")
	ErrInsufficientQuantity    = errors.New("session: not enough units available")
	ErrInsufficientBalance     = errors.New("session: storefront balance too low")
	ErrContentStoreUnavailable = errors.New("session: content store unavailable")
	ErrNothingStaged           = errors.New("session: no image staged")
	ErrUnknownCommand          = errors.New("session: unknown command")
)

// Gateway is the subset of contract.Gateway a session drives.
type Gateway interface {
	UserStatus(ctx context.Context, caller, addr common.Address) (types.UserStatus, error)
	Users(ctx context.Context, caller common.Address) ([]types.User, error)
	AllStorefronts(ctx context.Context, caller common.Address) ([]types.Storefront, error)
	StorefrontsForOwner(ctx context.Context, caller, owner common.Address) ([]types.Storefront, error)
	AllProducts(ctx context.Context, caller, owner common.Address, storefrontIndex int) ([]types.Product, error)
	UserBalance(ctx context.Context, caller, owner common.Address) (*uint256.Int, error)

	RequestShopOwnerStatus(ctx context.Context, caller common.Address) (events.RightsRequested, error)
	GrantShopOwnerRights(ctx context.Context, caller, target common.Address) (events.ShopOwnerRightsGranted, error)
	GrantAdminRights(ctx context.Context, caller, target common.Address) (events.AdminRightsGranted, error)
	DeleteUser(ctx context.Context, caller, target common.Address) (events.UserDeleted, error)
	AddStorefront(ctx context.Context, caller common.Address, name string) (events.StorefrontCreated, error)
	RemoveStorefront(ctx context.Context, caller, owner common.Address, storefrontIndex int) (events.StorefrontRemoved, error)
	AddProduct(ctx context.Context, caller common.Address, storefrontIndex int, name string, price *uint256.Int, quantity uint64) (events.ProductAdded, error)
	RemoveProduct(ctx context.Context, caller, owner common.Address, storefrontIndex, productIndex int) (events.ProductRemoved, error)
	UpdatePrice(ctx context.Context, caller common.Address, storefrontIndex, productIndex int, price *uint256.Int) (*contract.Receipt, error)
	SetProductContentID(ctx context.Context, caller common.Address, storefrontIndex, productIndex int, digest common.Hash) (events.ContentIDUpdated, error)
	Purchase(ctx context.Context, caller, owner common.Address, storefrontIndex, productIndex int, quantity uint64, payment *uint256.Int) (events.PurchaseLogged, error)
	WithdrawFunds(ctx context.Context, caller common.Address, storefrontIndex int, amount *uint256.Int) (events.FundsWithdrawn, error)
	ToggleContractActive(ctx context.Context, caller common.Address) (*contract.Receipt, error)
	EmergencyWithdraw(ctx context.Context, caller common.Address) (*contract.Receipt, error)
}

// ContentStore stores picture bytes and returns their content identifier.
type ContentStore interface {
	Add(ctx context.Context, data []byte) (string, error)
	Available(ctx context.Context) bool
}

// SnapshotStore persists published snapshots.
type SnapshotStore interface {
	Save(account common.Address, state State) error
}

// subscriberBuffer bounds the snapshots queued for a slow subscriber; further
// snapshots are dropped for it until it catches up.
const subscriberBuffer = 16

// Session serialises command handlers against one account's State. Readers
// never wait for an in-flight command: the published State is swapped under a
// short read/write lock while cmdMu is held for the whole ledger round trip.
type Session struct {
	cmdMu   sync.Mutex
	account common.Address
	gateway Gateway
	content ContentStore
	store   SnapshotStore
	logger  *slog.Logger

	mu      sync.RWMutex
	state   State
	subs    map[uint64]chan State
	nextSub uint64
}

// Option customises a Session.
type Option func(*Session)

// WithContentStore enables picture uploads.
func WithContentStore(store ContentStore) Option {
	return func(s *Session) { s.content = store }
}

// WithSnapshotStore persists every published snapshot.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *Session) { s.store = store }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRestoredState seeds the session with a previously saved snapshot of the
// same account. Capabilities and any staged upload are not restored.
func WithRestoredState(state State) Option {
	return func(s *Session) {
		if !types.SameAddress(state.Account, s.state.Account) {
			return
		}
		state.Upload = nil
		state.Capabilities = Capabilities{}
		s.state = state
	}
}

// New creates a session for account.
func New(account common.Address, gateway Gateway, opts ...Option) *Session {
	s := &Session{
		account: account,
		gateway: gateway,
		logger:  slog.Default(),
		state:   State{Account: account, Status: types.StatusUnknown},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Account returns the address the session acts for.
func (s *Session) Account() common.Address {
	return s.account
}

// Snapshot returns the current State. Callers must treat its slices as
// read-only.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers for every snapshot published after the call. The
// returned cancel function must be called to release the subscription.
func (s *Session) Subscribe() (<-chan State, func()) {
	updates := make(chan State, subscriberBuffer)
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan State)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = updates
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(updates)
		})
	}
	return updates, cancel
}

// Balance returns the ledger's total balance for owner.
func (s *Session) Balance(ctx context.Context, owner common.Address) (*uint256.Int, error) {
	return s.gateway.UserBalance(ctx, s.Account(), owner)
}

// Dispatch runs cmd and returns the snapshot published by it. On error the
// returned State is the unchanged current snapshot.
func (s *Session) Dispatch(ctx context.Context, cmd Command) (State, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	cur := s.Snapshot()
	var (
		next State
		err  error
	)
	switch c := cmd.(type) {
	case Load:
		next, err = s.load(ctx, cur)
	case RefreshUsers:
		next, err = s.refreshUsers(ctx, cur)
	case RefreshStorefronts:
		next, err = s.refreshStorefronts(ctx, cur, c)
	case Select:
		next, err = s.selectStorefront(ctx, cur, c)
	case RequestShopOwner:
		next, err = s.requestShopOwner(ctx, cur)
	case GrantShopOwner:
		next, err = s.grantShopOwner(ctx, cur, c)
	case GrantAdmin:
		next, err = s.grantAdmin(ctx, cur, c)
	case DeleteUser:
		next, err = s.deleteUser(ctx, cur, c)
	case AddStorefront:
		next, err = s.addStorefront(ctx, cur, c)
	case RemoveStorefront:
		next, err = s.removeStorefront(ctx, cur, c)
	case AddProduct:
		next, err = s.addProduct(ctx, cur, c)
	case RemoveProduct:
		next, err = s.removeProduct(ctx, cur, c)
	case UpdatePrice:
		next, err = s.updatePrice(ctx, cur, c)
	case StageImage:
		next, err = s.stageImage(ctx, cur, c)
	case SubmitImage:
		next, err = s.submitImage(ctx, cur)
	case Purchase:
		next, err = s.purchase(ctx, cur, c)
	case Withdraw:
		next, err = s.withdraw(ctx, cur, c)
	case ToggleContractActive:
		next, err = s.toggleContractActive(ctx, cur)
	case EmergencyWithdraw:
		next, err = s.emergencyWithdraw(ctx, cur)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	if err != nil {
		name := fmt.Sprintf("%T", cmd)
		if cmd != nil {
			name = cmd.CommandName()
		}
		s.logger.Warn("command failed",
			slog.String("command", name),
			slog.String("account", cur.Account.Hex()),
			slog.Any("error", err))
		return cur, err
	}
	return s.publish(cmd, cur, next), nil
}

func (s *Session) publish(cmd Command, cur, next State) State {
	next.Version = cur.Version + 1
	s.mu.Lock()
	s.state = next
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
		}
	}
	s.mu.Unlock()
	if s.store != nil {
		if err := s.store.Save(next.Account, next); err != nil {
			s.logger.Warn("persist snapshot failed",
				slog.String("account", next.Account.Hex()),
				slog.Any("error", err))
		}
	}
	s.logger.Debug("snapshot published",
		slog.String("command", cmd.CommandName()),
		slog.Uint64("version", next.Version))
	return next
}
