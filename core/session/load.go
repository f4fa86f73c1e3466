package session

import (
	"context"
	"fmt"

	"marketfront/core/types"
)

func (s *Session) load(ctx context.Context, cur State) (State, error) {
	status, err := s.gateway.UserStatus(ctx, cur.Account, cur.Account)
	if err != nil {
		return cur, err
	}
	next := cur
	next.Status = status
	next.Users = []types.User{}
	if status.IsAdmin() {
		if next.Users, err = s.gateway.Users(ctx, cur.Account); err != nil {
			return cur, err
		}
	}
	if next.Storefronts, err = s.storefrontsFor(ctx, next, false); err != nil {
		return cur, err
	}
	next.Capabilities = Capabilities{ContentStore: s.content != nil && s.content.Available(ctx)}
	next.Selection = revalidate(next.Selection, next)
	if next.Selection != nil {
		if next.Products, err = s.gateway.AllProducts(ctx, cur.Account, next.Selection.Owner, next.Selection.Index); err != nil {
			return cur, err
		}
	} else {
		next.Products = []types.Product{}
	}
	next.Upload = nil
	return next, nil
}

// storefrontsFor loads the storefronts the account's role works with: a shop
// owner manages its own, everyone else sees every owner's.
func (s *Session) storefrontsFor(ctx context.Context, st State, all bool) ([]types.Storefront, error) {
	if st.Status.IsShopOwner() && !all {
		return s.gateway.StorefrontsForOwner(ctx, st.Account, st.Account)
	}
	return s.gateway.AllStorefronts(ctx, st.Account)
}

func (s *Session) refreshUsers(ctx context.Context, cur State) (State, error) {
	if !cur.Status.IsAdmin() {
		return cur, fmt.Errorf("%w: listing users requires admin rights", ErrForbidden)
	}
	users, err := s.gateway.Users(ctx, cur.Account)
	if err != nil {
		return cur, err
	}
	next := cur
	next.Users = users
	return next, nil
}

func (s *Session) refreshStorefronts(ctx context.Context, cur State, cmd RefreshStorefronts) (State, error) {
	fronts, err := s.storefrontsFor(ctx, cur, cmd.All)
	if err != nil {
		return cur, err
	}
	next := cur
	next.Storefronts = fronts
	if next.Selection != nil {
		if front, ok := next.Storefront(next.Selection.Owner, next.Selection.Index); ok {
			sel := *next.Selection
			sel.Name = front.Name
			next.Selection = &sel
		}
	}
	return next, nil
}

func (s *Session) selectStorefront(ctx context.Context, cur State, cmd Select) (State, error) {
	if cmd.Index < 0 {
		return cur, fmt.Errorf("%w: storefront index %d", ErrInvalidArgument, cmd.Index)
	}
	products, err := s.gateway.AllProducts(ctx, cur.Account, cmd.Owner, cmd.Index)
	if err != nil {
		return cur, err
	}
	next := cur
	sel := &Selection{Owner: cmd.Owner, Index: cmd.Index}
	if front, ok := cur.Storefront(cmd.Owner, cmd.Index); ok {
		sel.Name = front.Name
	}
	next.Selection = sel
	next.Products = products
	next.Upload = nil
	return next, nil
}

// revalidate checks a cached selection against freshly loaded storefronts.
// Removals elsewhere may have moved another storefront into the selected
// index, so a selection that is gone or whose name no longer matches is
// discarded.
func revalidate(sel *Selection, st State) *Selection {
	if sel == nil {
		return nil
	}
	front, ok := st.Storefront(sel.Owner, sel.Index)
	if !ok {
		return nil
	}
	if sel.Name != "" && front.Name != sel.Name {
		return nil
	}
	out := *sel
	out.Name = front.Name
	return &out
}
