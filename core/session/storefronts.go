package session

import (
	"context"
	"fmt"
	"strings"

	"marketfront/contract"
	"marketfront/core/reconcile"
	"marketfront/core/types"
)

func (s *Session) addStorefront(ctx context.Context, cur State, cmd AddStorefront) (State, error) {
	if !cur.Status.CanOwnStorefronts() {
		return cur, fmt.Errorf("%w: %s cannot own storefronts", ErrForbidden, cur.Status)
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return cur, fmt.Errorf("%w: storefront name required", ErrInvalidArgument)
	}
	if !cur.Status.IsAdmin() && cur.OwnedStorefronts(cur.Account) >= MaxStorefrontsPerOwner {
		return cur, fmt.Errorf("%w: at most %d storefronts per owner", ErrLimitReached, MaxStorefrontsPerOwner)
	}
	evt, err := s.gateway.AddStorefront(ctx, cur.Account, name)
	if err != nil {
		return cur, err
	}
	if !types.SameAddress(evt.Owner, cur.Account) {
		return cur, inconsistent(contract.MethodAddStorefront, evt.EventType(),
			"storefront created for %s, not %s", evt.Owner.Hex(), cur.Account.Hex())
	}
	balance, ok := amountOf(evt.Balance)
	if !ok {
		return cur, inconsistent(contract.MethodAddStorefront, evt.EventType(), "balance %v out of range", evt.Balance)
	}
	count, ok := uint64Of(evt.ProductCount)
	if !ok {
		return cur, inconsistent(contract.MethodAddStorefront, evt.EventType(), "product count %v out of range", evt.ProductCount)
	}
	next := cur
	next.Storefronts = reconcile.AppendStorefront(cur.Storefronts, evt.Owner, evt.Name, balance, count)
	return next, nil
}

func (s *Session) removeStorefront(ctx context.Context, cur State, cmd RemoveStorefront) (State, error) {
	if !types.SameAddress(cmd.Owner, cur.Account) && !cur.Status.IsAdmin() {
		return cur, fmt.Errorf("%w: only the owner or an admin can remove a storefront", ErrForbidden)
	}
	if _, ok := cur.Storefront(cmd.Owner, cmd.Index); !ok {
		return cur, fmt.Errorf("%w: storefront %d of %s is not loaded", ErrInvalidArgument, cmd.Index, cmd.Owner.Hex())
	}
	evt, err := s.gateway.RemoveStorefront(ctx, cur.Account, cmd.Owner, cmd.Index)
	if err != nil {
		return cur, err
	}
	removed, ok := intOf(evt.StoreIndex)
	if !ok || !types.SameAddress(evt.StoreOwner, cmd.Owner) || removed != cmd.Index {
		return cur, inconsistent(contract.MethodRemoveStorefront, evt.EventType(),
			"removed storefront %v of %s, requested %d of %s", evt.StoreIndex, evt.StoreOwner.Hex(), cmd.Index, cmd.Owner.Hex())
	}
	oldLen := cur.OwnedStorefronts(evt.StoreOwner)
	fronts, err := reconcile.RemoveStorefront(cur.Storefronts, evt.StoreOwner, removed)
	if err != nil {
		return cur, reconcileFailed(contract.MethodRemoveStorefront, evt.EventType(), err)
	}
	next := cur
	next.Storefronts = fronts
	if cur.Selection != nil && types.SameAddress(cur.Selection.Owner, evt.StoreOwner) {
		idx := reconcile.RemapCursor(cur.Selection.Index, removed, oldLen)
		if idx == reconcile.NoCursor {
			next.Selection, next.Products, next.Upload = nil, []types.Product{}, nil
		} else {
			sel := *cur.Selection
			sel.Index = idx
			next.Selection = &sel
		}
	}
	return next, nil
}

func (s *Session) withdraw(ctx context.Context, cur State, cmd Withdraw) (State, error) {
	front, ok := cur.Storefront(cur.Account, cmd.StorefrontIndex)
	if !ok {
		return cur, fmt.Errorf("%w: storefront %d is not one of this account's loaded storefronts", ErrForbidden, cmd.StorefrontIndex)
	}
	amount := cmd.Amount
	if amount == nil {
		amount = types.CloneAmount(front.Balance)
	}
	if amount.IsZero() {
		return cur, fmt.Errorf("%w: nothing to withdraw", ErrInvalidArgument)
	}
	if types.CloneAmount(front.Balance).Lt(amount) {
		return cur, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, types.CloneAmount(front.Balance).Dec(), amount.Dec())
	}
	evt, err := s.gateway.WithdrawFunds(ctx, cur.Account, cmd.StorefrontIndex, amount)
	if err != nil {
		return cur, err
	}
	index, ok := intOf(evt.StoreIndex)
	withdrawn, amountOK := amountOf(evt.Amount)
	if !ok || !amountOK || !types.SameAddress(evt.Addr, cur.Account) {
		return cur, inconsistent(contract.MethodWithdrawFunds, evt.EventType(),
			"withdrawal by %s from storefront %v does not match", evt.Addr.Hex(), evt.StoreIndex)
	}
	fronts, err := reconcile.DebitStorefront(cur.Storefronts, evt.Addr, index, withdrawn)
	if err != nil {
		return cur, reconcileFailed(contract.MethodWithdrawFunds, evt.EventType(), err)
	}
	next := cur
	next.Storefronts = fronts
	return next, nil
}
