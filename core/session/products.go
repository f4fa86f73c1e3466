package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"marketfront/codec/contentid"
	"marketfront/contract"
	"marketfront/core/reconcile"
	"marketfront/core/types"
)

func (s *Session) requireOwnSelection(cur State, action string) error {
	if cur.Selection == nil {
		return ErrNoSelection
	}
	if !cur.ownsSelection() {
		return fmt.Errorf("%w: %s requires owning the selected storefront", ErrForbidden, action)
	}
	return nil
}

func (s *Session) addProduct(ctx context.Context, cur State, cmd AddProduct) (State, error) {
	if err := s.requireOwnSelection(cur, "adding products"); err != nil {
		return cur, err
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return cur, fmt.Errorf("%w: product name required", ErrInvalidArgument)
	}
	if cmd.Price == nil {
		return cur, fmt.Errorf("%w: product price required", ErrInvalidArgument)
	}
	if !cur.Status.IsAdmin() && len(cur.Products) >= MaxProductsPerStorefront {
		return cur, fmt.Errorf("%w: at most %d products per storefront", ErrLimitReached, MaxProductsPerStorefront)
	}
	evt, err := s.gateway.AddProduct(ctx, cur.Account, cur.Selection.Index, name, cmd.Price, cmd.Quantity)
	if err != nil {
		return cur, err
	}
	price, priceOK := amountOf(evt.Price)
	quantity, quantityOK := uint64Of(evt.Quantity)
	if !priceOK || !quantityOK {
		return cur, inconsistent(contract.MethodAddProductToStoreFront, evt.EventType(),
			"price %v or quantity %v out of range", evt.Price, evt.Quantity)
	}
	next := cur
	next.Products = reconcile.AppendProduct(cur.Products, evt.Name, price, quantity)
	if fronts, err := reconcile.AdjustProductCount(cur.Storefronts, cur.Selection.Owner, cur.Selection.Index, 1); err == nil {
		next.Storefronts = fronts
	}
	return next, nil
}

func (s *Session) removeProduct(ctx context.Context, cur State, cmd RemoveProduct) (State, error) {
	if cur.Selection == nil {
		return cur, ErrNoSelection
	}
	if !cur.ownsSelection() && !cur.Status.IsAdmin() {
		return cur, fmt.Errorf("%w: only the owner or an admin can remove products", ErrForbidden)
	}
	if _, ok := cur.Product(cmd.Index); !ok {
		return cur, fmt.Errorf("%w: product %d of %d", ErrInvalidArgument, cmd.Index, len(cur.Products))
	}
	sel := *cur.Selection
	evt, err := s.gateway.RemoveProduct(ctx, cur.Account, sel.Owner, sel.Index, cmd.Index)
	if err != nil {
		return cur, err
	}
	store, storeOK := intOf(evt.StoreIndex)
	removed, indexOK := intOf(evt.Index)
	if !storeOK || !indexOK || !cur.selects(evt.StoreOwner, store) {
		return cur, inconsistent(contract.MethodRemoveProductFromStorefront, evt.EventType(),
			"removal from storefront %v of %s does not match the selection", evt.StoreIndex, evt.StoreOwner.Hex())
	}
	products, err := reconcile.RemoveProduct(cur.Products, removed)
	if err != nil {
		return cur, reconcileFailed(contract.MethodRemoveProductFromStorefront, evt.EventType(), err)
	}
	next := cur
	next.Products = products
	if cur.Upload != nil {
		idx := reconcile.RemapCursor(cur.Upload.ProductIndex, removed, len(cur.Products))
		if idx == reconcile.NoCursor {
			next.Upload = nil
		} else {
			upload := *cur.Upload
			upload.ProductIndex = idx
			next.Upload = &upload
		}
	}
	if fronts, err := reconcile.AdjustProductCount(cur.Storefronts, sel.Owner, sel.Index, -1); err == nil {
		next.Storefronts = fronts
	}
	return next, nil
}

// updatePrice applies the new price once the request is accepted. The ledger
// emits no confirmation event for price changes.
func (s *Session) updatePrice(ctx context.Context, cur State, cmd UpdatePrice) (State, error) {
	if err := s.requireOwnSelection(cur, "updating prices"); err != nil {
		return cur, err
	}
	if _, ok := cur.Product(cmd.Index); !ok {
		return cur, fmt.Errorf("%w: product %d of %d", ErrInvalidArgument, cmd.Index, len(cur.Products))
	}
	if cmd.Price == nil {
		return cur, fmt.Errorf("%w: price required", ErrInvalidArgument)
	}
	if _, err := s.gateway.UpdatePrice(ctx, cur.Account, cur.Selection.Index, cmd.Index, cmd.Price); err != nil {
		return cur, err
	}
	products, err := reconcile.SetProductPrice(cur.Products, cmd.Index, cmd.Price)
	if err != nil {
		return cur, reconcileFailed(contract.MethodUpdatePrice, "", err)
	}
	next := cur
	next.Products = products
	return next, nil
}

func (s *Session) stageImage(_ context.Context, cur State, cmd StageImage) (State, error) {
	if err := s.requireOwnSelection(cur, "uploading pictures"); err != nil {
		return cur, err
	}
	if !cur.Capabilities.ContentStore || s.content == nil {
		return cur, ErrContentStoreUnavailable
	}
	product, ok := cur.Product(cmd.Index)
	if !ok {
		return cur, fmt.Errorf("%w: product %d of %d", ErrInvalidArgument, cmd.Index, len(cur.Products))
	}
	if product.HasImage() {
		return cur, fmt.Errorf("%w: product %d already has a picture", ErrInvalidArgument, cmd.Index)
	}
	if len(cmd.Data) == 0 {
		return cur, fmt.Errorf("%w: empty picture", ErrInvalidArgument)
	}
	data := make([]byte, len(cmd.Data))
	copy(data, cmd.Data)
	next := cur
	next.Upload = &Upload{ProductIndex: cmd.Index, Size: len(data), Data: data}
	return next, nil
}

func (s *Session) submitImage(ctx context.Context, cur State) (State, error) {
	if err := s.requireOwnSelection(cur, "uploading pictures"); err != nil {
		return cur, err
	}
	if cur.Upload == nil {
		return cur, ErrNothingStaged
	}
	if !cur.Capabilities.ContentStore || s.content == nil {
		return cur, ErrContentStoreUnavailable
	}
	cid, err := s.content.Add(ctx, cur.Upload.Data)
	if err != nil {
		return cur, fmt.Errorf("%w: %v", ErrContentStoreUnavailable, err)
	}
	digest, err := contentid.Encode(cid)
	if err != nil {
		return cur, err
	}
	evt, err := s.gateway.SetProductContentID(ctx, cur.Account, cur.Selection.Index, cur.Upload.ProductIndex, digest)
	if err != nil {
		return cur, err
	}
	store, storeOK := intOf(evt.StoreIndex)
	index, indexOK := intOf(evt.Index)
	if !storeOK || !indexOK || !cur.selects(evt.StoreOwner, store) {
		return cur, inconsistent(contract.MethodUpdateIpfsHashForProductPic, evt.EventType(),
			"picture for storefront %v of %s does not match the selection", evt.StoreIndex, evt.StoreOwner.Hex())
	}
	recorded := contentid.Decode(evt.Digest)
	if recorded == "" {
		recorded = cid
	}
	products, err := reconcile.SetProductContentID(cur.Products, index, recorded)
	if err != nil {
		return cur, reconcileFailed(contract.MethodUpdateIpfsHashForProductPic, evt.EventType(), err)
	}
	next := cur
	next.Products = products
	next.Upload = nil
	return next, nil
}

func (s *Session) purchase(ctx context.Context, cur State, cmd Purchase) (State, error) {
	if cur.Selection == nil {
		return cur, ErrNoSelection
	}
	product, ok := cur.Product(cmd.Index)
	if !ok {
		return cur, fmt.Errorf("%w: product %d of %d", ErrInvalidArgument, cmd.Index, len(cur.Products))
	}
	if cmd.Quantity == 0 {
		return cur, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}
	if cmd.Quantity > product.Quantity {
		return cur, fmt.Errorf("%w: %d requested, %d available", ErrInsufficientQuantity, cmd.Quantity, product.Quantity)
	}
	cost, overflow := new(uint256.Int).MulOverflow(types.CloneAmount(product.Price), uint256.NewInt(cmd.Quantity))
	if overflow {
		return cur, fmt.Errorf("%w: total price overflows", ErrInvalidArgument)
	}
	payment := cmd.Payment
	if payment == nil {
		payment = cost
	}
	if payment.Lt(cost) {
		return cur, fmt.Errorf("%w: paying %s for a total of %s", ErrInsufficientPayment, payment.Dec(), cost.Dec())
	}
	sel := *cur.Selection
	evt, err := s.gateway.Purchase(ctx, cur.Account, sel.Owner, sel.Index, cmd.Index, cmd.Quantity, payment)
	if err != nil {
		return cur, err
	}
	store, storeOK := intOf(evt.StoreIndex)
	index, indexOK := intOf(evt.ProductIndex)
	bought, quantityOK := uint64Of(evt.Quantity)
	if !storeOK || !indexOK || !quantityOK || !cur.selects(evt.StoreOwner, store) {
		return cur, inconsistent(contract.MethodPurchaseProduct, evt.EventType(),
			"purchase from storefront %v of %s does not match the selection", evt.StoreIndex, evt.StoreOwner.Hex())
	}
	products, err := reconcile.DecrementQuantity(cur.Products, index, bought)
	if err != nil {
		return cur, reconcileFailed(contract.MethodPurchaseProduct, evt.EventType(), err)
	}
	next := cur
	next.Products = products
	if credited, ok := cur.Product(index); ok {
		earned, overflow := new(uint256.Int).MulOverflow(types.CloneAmount(credited.Price), uint256.NewInt(bought))
		if !overflow {
			if fronts, err := reconcile.CreditStorefront(cur.Storefronts, sel.Owner, sel.Index, earned); err == nil {
				next.Storefronts = fronts
			}
		}
	}
	return next, nil
}
