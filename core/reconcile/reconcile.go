// Package reconcile applies confirmed ledger events to cached collections.
//
// Every function returns a new slice and leaves its input untouched, so a
// caller holding an older snapshot never observes a partial update. Removal
// follows the ledger's swap-and-pop rule: the last element moves into the
// vacated slot and takes over its index.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"marketfront/core/types"
)

// NoCursor marks a cursor that points at nothing.
const NoCursor = -1

var (
	// ErrIndexOutOfRange reports an index outside the cached collection.
	ErrIndexOutOfRange = errors.New("reconcile: index out of range")
	// ErrQuantityUnderflow reports a decrement larger than the cached quantity.
	ErrQuantityUnderflow = errors.New("reconcile: quantity underflow")
	// ErrBalanceUnderflow reports a debit larger than the cached balance.
	ErrBalanceUnderflow = errors.New("reconcile: balance underflow")
	// ErrNotFound reports that no cached entity matched.
	ErrNotFound = errors.New("reconcile: entity not cached")
)

// SwapRemove removes items[i] by moving the last element into slot i.
// reindex, when set, is called on the moved element with its new position.
func SwapRemove[T any](items []T, i int, reindex func(*T, int)) ([]T, error) {
	n := len(items)
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, n)
	}
	out := make([]T, n-1)
	copy(out, items[:n-1])
	if i < n-1 {
		out[i] = items[n-1]
		if reindex != nil {
			reindex(&out[i], i)
		}
	}
	return out, nil
}

// RemapCursor returns where a cursor into a collection of oldLen elements
// points after the element at removed was swap-and-popped.
func RemapCursor(cursor, removed, oldLen int) int {
	switch {
	case cursor == NoCursor:
		return NoCursor
	case cursor == removed:
		return NoCursor
	case cursor == oldLen-1:
		return removed
	default:
		return cursor
	}
}

// RemoveProduct swap-and-pops the product at index.
func RemoveProduct(products []types.Product, index int) ([]types.Product, error) {
	return SwapRemove(cloneProducts(products), index, func(p *types.Product, i int) { p.Index = i })
}

// RemoveStorefront removes owner's storefront at index from a list that may
// hold several owners' storefronts. Only that owner's storefronts are
// reindexed; the storefront with the owner's highest index takes the
// removed position within the flattened list.
func RemoveStorefront(fronts []types.Storefront, owner common.Address, index int) ([]types.Storefront, error) {
	removedPos, lastPos, count := -1, -1, 0
	for pos, front := range fronts {
		if !types.SameAddress(front.Owner, owner) {
			continue
		}
		count++
		if front.Index == index {
			removedPos = pos
		}
		if lastPos == -1 || front.Index > fronts[lastPos].Index {
			lastPos = pos
		}
	}
	if removedPos == -1 {
		return nil, fmt.Errorf("%w: storefront %d of %s (%d cached)", ErrIndexOutOfRange, index, owner.Hex(), count)
	}
	if fronts[lastPos].Index != count-1 {
		return nil, fmt.Errorf("reconcile: storefronts of %s are not contiguous", owner.Hex())
	}
	out := make([]types.Storefront, 0, len(fronts)-1)
	for pos, front := range fronts {
		switch pos {
		case lastPos:
			continue
		case removedPos:
			moved := cloneStorefront(fronts[lastPos])
			moved.Index = index
			out = append(out, moved)
		default:
			out = append(out, cloneStorefront(front))
		}
	}
	return out, nil
}

// DecrementQuantity subtracts amount from the product at index. Products at
// zero stay listed.
func DecrementQuantity(products []types.Product, index int, amount uint64) ([]types.Product, error) {
	if index < 0 || index >= len(products) {
		return nil, fmt.Errorf("%w: product %d of %d", ErrIndexOutOfRange, index, len(products))
	}
	if products[index].Quantity < amount {
		return nil, fmt.Errorf("%w: product %d has %d, want %d", ErrQuantityUnderflow, index, products[index].Quantity, amount)
	}
	out := cloneProducts(products)
	out[index].Quantity -= amount
	return out, nil
}

// SetProductPrice replaces the price of the product at index.
func SetProductPrice(products []types.Product, index int, price *uint256.Int) ([]types.Product, error) {
	if index < 0 || index >= len(products) {
		return nil, fmt.Errorf("%w: product %d of %d", ErrIndexOutOfRange, index, len(products))
	}
	out := cloneProducts(products)
	out[index].Price = types.CloneAmount(price)
	return out, nil
}

// SetProductContentID replaces the content identifier of the product at index.
func SetProductContentID(products []types.Product, index int, cid string) ([]types.Product, error) {
	if index < 0 || index >= len(products) {
		return nil, fmt.Errorf("%w: product %d of %d", ErrIndexOutOfRange, index, len(products))
	}
	out := cloneProducts(products)
	out[index].ContentID = cid
	return out, nil
}

// AppendProduct adds a product at the end of the collection.
func AppendProduct(products []types.Product, name string, price *uint256.Int, quantity uint64) []types.Product {
	out := cloneProducts(products)
	return append(out, types.Product{
		Name:     name,
		Price:    types.CloneAmount(price),
		Quantity: quantity,
		Index:    len(out),
	})
}

// AppendStorefront adds a storefront for owner. Its index is the number of
// storefronts owner already has in the list.
func AppendStorefront(fronts []types.Storefront, owner common.Address, name string, balance *uint256.Int, productCount uint64) []types.Storefront {
	index := 0
	for _, front := range fronts {
		if types.SameAddress(front.Owner, owner) {
			index++
		}
	}
	out := cloneStorefronts(fronts)
	return append(out, types.Storefront{
		Owner:        owner,
		Name:         name,
		Balance:      types.CloneAmount(balance),
		ProductCount: productCount,
		Index:        index,
	})
}

// DebitStorefront subtracts amount from the balance of owner's storefront.
func DebitStorefront(fronts []types.Storefront, owner common.Address, index int, amount *uint256.Int) ([]types.Storefront, error) {
	amount = types.CloneAmount(amount)
	return updateStorefront(fronts, owner, index, func(front *types.Storefront) error {
		if front.Balance.Lt(amount) {
			return fmt.Errorf("%w: storefront %d has %s, want %s", ErrBalanceUnderflow, index, front.Balance.Dec(), amount.Dec())
		}
		front.Balance = new(uint256.Int).Sub(front.Balance, amount)
		return nil
	})
}

// CreditStorefront adds amount to the balance of owner's storefront.
func CreditStorefront(fronts []types.Storefront, owner common.Address, index int, amount *uint256.Int) ([]types.Storefront, error) {
	amount = types.CloneAmount(amount)
	return updateStorefront(fronts, owner, index, func(front *types.Storefront) error {
		front.Balance = new(uint256.Int).Add(front.Balance, amount)
		return nil
	})
}

// AdjustProductCount adds delta to the product count of owner's storefront,
// stopping at zero.
func AdjustProductCount(fronts []types.Storefront, owner common.Address, index int, delta int) ([]types.Storefront, error) {
	return updateStorefront(fronts, owner, index, func(front *types.Storefront) error {
		switch {
		case delta >= 0:
			front.ProductCount += uint64(delta)
		case uint64(-delta) > front.ProductCount:
			front.ProductCount = 0
		default:
			front.ProductCount -= uint64(-delta)
		}
		return nil
	})
}

func updateStorefront(fronts []types.Storefront, owner common.Address, index int, update func(*types.Storefront) error) ([]types.Storefront, error) {
	for pos, front := range fronts {
		if !types.SameAddress(front.Owner, owner) || front.Index != index {
			continue
		}
		out := cloneStorefronts(fronts)
		if err := update(&out[pos]); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: storefront %d of %s", ErrNotFound, index, owner.Hex())
}

// UpdateByAddress applies update to every element whose key matches addr.
// It reports whether anything matched; no match is not an error.
func UpdateByAddress[T any](items []T, addr common.Address, key func(T) common.Address, update func(*T)) ([]T, bool) {
	out := make([]T, len(items))
	copy(out, items)
	matched := false
	for i := range out {
		if types.SameAddress(key(out[i]), addr) {
			update(&out[i])
			matched = true
		}
	}
	return out, matched
}

// UpdateUserStatus sets the status of the user matching addr.
func UpdateUserStatus(users []types.User, addr common.Address, status types.UserStatus) []types.User {
	out, _ := UpdateByAddress(users, addr,
		func(u types.User) common.Address { return u.Address },
		func(u *types.User) { u.Status = status })
	return out
}

// RemoveUser drops the user matching addr, preserving the order of the rest.
func RemoveUser(users []types.User, addr common.Address) []types.User {
	out := make([]types.User, 0, len(users))
	for _, user := range users {
		if !types.SameAddress(user.Address, addr) {
			out = append(out, user)
		}
	}
	return out
}

func cloneStorefront(front types.Storefront) types.Storefront {
	front.Balance = types.CloneAmount(front.Balance)
	return front
}

func cloneStorefronts(fronts []types.Storefront) []types.Storefront {
	out := make([]types.Storefront, len(fronts))
	for i, front := range fronts {
		out[i] = cloneStorefront(front)
	}
	return out
}

func cloneProducts(products []types.Product) []types.Product {
	out := make([]types.Product, len(products))
	for i, product := range products {
		product.Price = types.CloneAmount(product.Price)
		out[i] = product
	}
	return out
}
