package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "marketfront/core/errors"
	"marketfront/core/events"
	"marketfront/core/projection"
	"marketfront/core/types"
)

// Call outcomes reported to Metrics.
const (
	OutcomeOK           = "ok"
	OutcomeFailed       = "failed"
	OutcomeInconsistent = "inconsistent"
	OutcomeUnconfirmed  = "unconfirmed"
)

// Metrics records gateway call outcomes.
type Metrics interface {
	ObserveCall(method, outcome string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCall(string, string, time.Duration) {}

// Gateway exposes the marketplace contract as typed queries and commands.
// Queries return projected domain entities; commands return the confirmation
// event the caller reconciles against.
type Gateway struct {
	ledger  Ledger
	logger  *slog.Logger
	metrics Metrics
	emitter events.Emitter
	tracer  trace.Tracer
	clock   func() time.Time
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the call metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(g *Gateway) {
		if metrics != nil {
			g.metrics = metrics
		}
	}
}

// WithEmitter forwards every confirmed event to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(g *Gateway) {
		if emitter != nil {
			g.emitter = emitter
		}
	}
}

// WithClock overrides the clock used for latency measurement.
func WithClock(clock func() time.Time) Option {
	return func(g *Gateway) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// NewGateway wraps a ledger.
func NewGateway(ledger Ledger, opts ...Option) *Gateway {
	g := &Gateway{
		ledger:  ledger,
		logger:  slog.Default(),
		metrics: noopMetrics{},
		emitter: events.NoopEmitter{},
		tracer:  otel.Tracer("marketfront/contract"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Users lists every registered account with its role.
func (g *Gateway) Users(ctx context.Context, caller common.Address) ([]types.User, error) {
	out, err := g.call(ctx, caller, MethodGetUsers)
	if err != nil {
		return nil, err
	}
	raw, err := usersResponse(out)
	if err != nil {
		return nil, err
	}
	return projection.Users(raw)
}

// UserStatus returns the role of addr.
func (g *Gateway) UserStatus(ctx context.Context, caller, addr common.Address) (types.UserStatus, error) {
	out, err := g.call(ctx, caller, MethodGetUserStatus, addr)
	if err != nil {
		return types.StatusUnknown, err
	}
	if err := expectOutputs(MethodGetUserStatus, out, 1); err != nil {
		return types.StatusUnknown, err
	}
	code, err := asCode(out[0])
	if err != nil {
		return types.StatusUnknown, err
	}
	return types.StatusFromCode(code), nil
}

// StorefrontsForOwner lists one owner's storefronts in on-chain order.
func (g *Gateway) StorefrontsForOwner(ctx context.Context, caller, owner common.Address) ([]types.Storefront, error) {
	out, err := g.call(ctx, caller, MethodGetStorefronts, owner)
	if err != nil {
		return nil, err
	}
	raw, err := storefrontsResponse(out)
	if err != nil {
		return nil, err
	}
	return projection.Storefronts(owner, raw)
}

// AllStorefronts flattens the storefronts of every store owner. Owners follow
// user-list order and storefronts follow on-chain order within each owner.
func (g *Gateway) AllStorefronts(ctx context.Context, caller common.Address) ([]types.Storefront, error) {
	users, err := g.Users(ctx, caller)
	if err != nil {
		return nil, err
	}
	all := []types.Storefront{}
	for _, owner := range projection.StoreOwnerAddresses(users) {
		fronts, err := g.StorefrontsForOwner(ctx, caller, owner)
		if err != nil {
			return nil, err
		}
		all = append(all, fronts...)
	}
	return all, nil
}

// AllProducts lists the products of one storefront.
func (g *Gateway) AllProducts(ctx context.Context, caller, owner common.Address, storefrontIndex int) ([]types.Product, error) {
	out, err := g.call(ctx, caller, MethodGetAllProductsFromStorefront, owner, index(storefrontIndex))
	if err != nil {
		return nil, err
	}
	raw, err := productsResponse(out)
	if err != nil {
		return nil, err
	}
	return projection.Products(raw)
}

// UserBalance returns the sum of owner's storefront balances.
func (g *Gateway) UserBalance(ctx context.Context, caller, owner common.Address) (*uint256.Int, error) {
	out, err := g.call(ctx, caller, MethodGetUserBalance, owner)
	if err != nil {
		return nil, err
	}
	if err := expectOutputs(MethodGetUserBalance, out, 1); err != nil {
		return nil, err
	}
	value, err := asBig(out[0])
	if err != nil {
		return nil, err
	}
	return types.AmountFromBig(value)
}

// RequestShopOwnerStatus asks the admins for shop owner rights.
func (g *Gateway) RequestShopOwnerStatus(ctx context.Context, caller common.Address) (events.RightsRequested, error) {
	return expect[events.RightsRequested](ctx, g, TxOpts{From: caller}, MethodRequestStoreOwnerStatus, events.TypeRightsRequested)
}

// GrantShopOwnerRights promotes target to shop owner.
func (g *Gateway) GrantShopOwnerRights(ctx context.Context, caller, target common.Address) (events.ShopOwnerRightsGranted, error) {
	return expect[events.ShopOwnerRightsGranted](ctx, g, TxOpts{From: caller}, MethodAddStoreOwner, events.TypeShopOwnerRightsGranted, target)
}

// GrantAdminRights promotes target to admin.
func (g *Gateway) GrantAdminRights(ctx context.Context, caller, target common.Address) (events.AdminRightsGranted, error) {
	return expect[events.AdminRightsGranted](ctx, g, TxOpts{From: caller}, MethodAddAdmin, events.TypeAdminRightsGranted, target)
}

// DeleteUser removes target from the user registry.
func (g *Gateway) DeleteUser(ctx context.Context, caller, target common.Address) (events.UserDeleted, error) {
	return expect[events.UserDeleted](ctx, g, TxOpts{From: caller}, MethodDeleteUser, events.TypeUserDeleted, target)
}

// AddStorefront creates a storefront owned by caller.
func (g *Gateway) AddStorefront(ctx context.Context, caller common.Address, name string) (events.StorefrontCreated, error) {
	return expect[events.StorefrontCreated](ctx, g, TxOpts{From: caller}, MethodAddStorefront, events.TypeStorefrontCreated, name)
}

// RemoveStorefront removes owner's storefront at storefrontIndex.
func (g *Gateway) RemoveStorefront(ctx context.Context, caller, owner common.Address, storefrontIndex int) (events.StorefrontRemoved, error) {
	return expect[events.StorefrontRemoved](ctx, g, TxOpts{From: caller}, MethodRemoveStorefront, events.TypeStorefrontRemoved,
		owner, index(storefrontIndex))
}

// AddProduct lists a product in caller's storefront.
func (g *Gateway) AddProduct(ctx context.Context, caller common.Address, storefrontIndex int, name string, price *uint256.Int, quantity uint64) (events.ProductAdded, error) {
	return expect[events.ProductAdded](ctx, g, TxOpts{From: caller}, MethodAddProductToStoreFront, events.TypeProductAdded,
		index(storefrontIndex), name, types.CloneAmount(price).ToBig(), new(big.Int).SetUint64(quantity))
}

// RemoveProduct delists a product from owner's storefront.
func (g *Gateway) RemoveProduct(ctx context.Context, caller, owner common.Address, storefrontIndex, productIndex int) (events.ProductRemoved, error) {
	return expect[events.ProductRemoved](ctx, g, TxOpts{From: caller}, MethodRemoveProductFromStorefront, events.TypeProductRemoved,
		owner, index(storefrontIndex), index(productIndex))
}

// UpdatePrice changes a product price. The contract emits no event for it,
// so only the receipt is returned.
func (g *Gateway) UpdatePrice(ctx context.Context, caller common.Address, storefrontIndex, productIndex int, price *uint256.Int) (*Receipt, error) {
	return g.sendReceipt(ctx, TxOpts{From: caller}, MethodUpdatePrice,
		index(storefrontIndex), index(productIndex), types.CloneAmount(price).ToBig())
}

// SetProductContentID stores a picture digest for a product.
func (g *Gateway) SetProductContentID(ctx context.Context, caller common.Address, storefrontIndex, productIndex int, digest common.Hash) (events.ContentIDUpdated, error) {
	return expect[events.ContentIDUpdated](ctx, g, TxOpts{From: caller}, MethodUpdateIpfsHashForProductPic, events.TypeContentIDUpdated,
		index(storefrontIndex), index(productIndex), [32]byte(digest))
}

// Purchase buys quantity units, paying payment.
func (g *Gateway) Purchase(ctx context.Context, caller, owner common.Address, storefrontIndex, productIndex int, quantity uint64, payment *uint256.Int) (events.PurchaseLogged, error) {
	opts := TxOpts{From: caller, Value: types.CloneAmount(payment).ToBig()}
	return expect[events.PurchaseLogged](ctx, g, opts, MethodPurchaseProduct, events.TypePurchaseLogged,
		owner, index(storefrontIndex), index(productIndex), new(big.Int).SetUint64(quantity))
}

// WithdrawFunds moves amount out of caller's storefront balance.
func (g *Gateway) WithdrawFunds(ctx context.Context, caller common.Address, storefrontIndex int, amount *uint256.Int) (events.FundsWithdrawn, error) {
	return expect[events.FundsWithdrawn](ctx, g, TxOpts{From: caller}, MethodWithdrawFunds, events.TypeFundsWithdrawn,
		index(storefrontIndex), types.CloneAmount(amount).ToBig())
}

// ToggleContractActive flips the contract's circuit breaker.
func (g *Gateway) ToggleContractActive(ctx context.Context, caller common.Address) (*Receipt, error) {
	return g.sendReceipt(ctx, TxOpts{From: caller}, MethodToggleContractActive)
}

// EmergencyWithdraw drains the contract to the owner while it is paused.
func (g *Gateway) EmergencyWithdraw(ctx context.Context, caller common.Address) (*Receipt, error) {
	return g.sendReceipt(ctx, TxOpts{From: caller}, MethodEmergencyWithdraw)
}

func (g *Gateway) call(ctx context.Context, caller common.Address, method string, args ...any) ([]any, error) {
	start := g.clock()
	ctx, span := g.tracer.Start(ctx, "contract."+method, trace.WithAttributes(
		attribute.String("contract.method", method),
		attribute.String("contract.caller", caller.Hex()),
	))
	defer span.End()
	out, err := g.ledger.Call(ctx, caller, method, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.metrics.ObserveCall(method, OutcomeFailed, g.clock().Sub(start))
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	g.metrics.ObserveCall(method, OutcomeOK, g.clock().Sub(start))
	return out, nil
}

// send issues a state-changing request. Rejections become
// OperationFailedError, sent requests without a receipt UnconfirmedError and
// mined requests with undecodable logs InconsistentStateError. Otherwise the
// returned function finishes the span and metrics once the caller has checked
// the confirmation.
func (g *Gateway) send(ctx context.Context, opts TxOpts, method string, args ...any) (*Receipt, func(outcome string, err error), error) {
	start := g.clock()
	correlation := uuid.NewString()
	ctx, span := g.tracer.Start(ctx, "contract."+method, trace.WithAttributes(
		attribute.String("contract.method", method),
		attribute.String("contract.caller", opts.From.Hex()),
		attribute.String("correlation.id", correlation),
	))
	finish := func(outcome string, err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("contract.outcome", outcome))
		span.End()
		g.metrics.ObserveCall(method, outcome, g.clock().Sub(start))
	}
	g.logger.Info("sending contract command",
		slog.String("method", method),
		slog.String("from", opts.From.Hex()),
		slog.String("correlation_id", correlation))
	receipt, err := g.ledger.Transact(ctx, opts, method, args...)
	var pending *PendingError
	if errors.As(err, &pending) {
		unconfirmed := &coreerrors.UnconfirmedError{Method: method, TxHash: pending.TxHash.Hex(), Err: pending.Err}
		g.logger.Error("contract command unconfirmed",
			slog.String("method", method),
			slog.String("tx", pending.TxHash.Hex()),
			slog.String("correlation_id", correlation),
			slog.Any("error", pending.Err))
		finish(OutcomeUnconfirmed, unconfirmed)
		return nil, nil, unconfirmed
	}
	if err != nil {
		failure := &coreerrors.OperationFailedError{Method: method, Err: err}
		g.logger.Error("contract command rejected",
			slog.String("method", method),
			slog.String("correlation_id", correlation),
			slog.Any("error", err))
		finish(OutcomeFailed, failure)
		return nil, nil, failure
	}
	if receipt == nil {
		receipt = &Receipt{}
	}
	span.SetAttributes(attribute.String("tx.hash", receipt.TxHash.Hex()))
	g.logger.Info("contract command confirmed",
		slog.String("method", method),
		slog.String("tx", receipt.TxHash.Hex()),
		slog.Int("events", len(receipt.Events)),
		slog.String("correlation_id", correlation))
	if receipt.DecodeErr != nil {
		err := g.inconsistent(method, "", receipt, receipt.DecodeErr.Error())
		finish(OutcomeInconsistent, err)
		return nil, nil, err
	}
	return receipt, finish, nil
}

// sendReceipt is send for commands that have no confirmation event.
func (g *Gateway) sendReceipt(ctx context.Context, opts TxOpts, method string, args ...any) (*Receipt, error) {
	receipt, finish, err := g.send(ctx, opts, method, args...)
	if err != nil {
		return nil, err
	}
	finish(OutcomeOK, nil)
	return receipt, nil
}

func (g *Gateway) inconsistent(method, event string, receipt *Receipt, reason string) error {
	err := &coreerrors.InconsistentStateError{
		Method: method,
		Event:  event,
		TxHash: receipt.TxHash.Hex(),
		Reason: reason,
	}
	g.logger.Warn("contract confirmation inconsistent",
		slog.String("method", method),
		slog.String("event", event),
		slog.String("tx", receipt.TxHash.Hex()),
		slog.String("reason", reason))
	return err
}

// expect sends a command and extracts its confirmation event of type E.
func expect[E events.Event](ctx context.Context, g *Gateway, opts TxOpts, method, eventName string, args ...any) (E, error) {
	var zero E
	receipt, finish, err := g.send(ctx, opts, method, args...)
	if err != nil {
		return zero, err
	}
	raw, ok := receipt.Find(eventName)
	if !ok {
		err := g.inconsistent(method, eventName, receipt, "expected event missing")
		finish(OutcomeInconsistent, err)
		return zero, err
	}
	decoded, err := events.Decode(raw.Name, raw.Fields)
	if err != nil {
		err = g.inconsistent(method, eventName, receipt, err.Error())
		finish(OutcomeInconsistent, err)
		return zero, err
	}
	typed, ok := decoded.(E)
	if !ok {
		err := g.inconsistent(method, eventName, receipt, fmt.Sprintf("unexpected event type %T", decoded))
		finish(OutcomeInconsistent, err)
		return zero, err
	}
	finish(OutcomeOK, nil)
	g.emitter.Emit(typed)
	return typed, nil
}

func index(i int) *big.Int { return big.NewInt(int64(i)) }
