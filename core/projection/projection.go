// Package projection turns the positional arrays returned by the marketplace
// read methods into domain entities. Raw response records never leave this
// package's callers un-projected.
package projection

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"marketfront/codec/contentid"
	"marketfront/codec/packedstr"
	"marketfront/core/types"
)

// ErrMalformedResponse reports parallel arrays that do not line up.
var ErrMalformedResponse = errors.New("projection: malformed ledger response")

// UsersResponse is the decoded output of getUsers.
type UsersResponse struct {
	Addresses   []common.Address
	StatusCodes []int64
}

// StorefrontsResponse is the decoded output of getStorefronts.
type StorefrontsResponse struct {
	NamesBlob     []byte
	Balances      []*big.Int
	ProductCounts []*big.Int
}

// ProductsResponse is the decoded output of getAllProductsFromStorefront.
type ProductsResponse struct {
	NamesBlob  []byte
	Prices     []*big.Int
	Quantities []*big.Int
	ContentIDs []common.Hash
}

// Users zips addresses with their status codes.
func Users(raw UsersResponse) ([]types.User, error) {
	if len(raw.StatusCodes) < len(raw.Addresses) {
		return nil, fmt.Errorf("%w: %d addresses but %d status codes",
			ErrMalformedResponse, len(raw.Addresses), len(raw.StatusCodes))
	}
	users := make([]types.User, 0, len(raw.Addresses))
	for i, addr := range raw.Addresses {
		users = append(users, types.User{Address: addr, Status: types.StatusFromCode(raw.StatusCodes[i])})
	}
	return users, nil
}

// Storefronts projects one owner's storefronts. Rows are driven by the product
// counts array, so an empty ProductCounts means the owner has no storefronts.
func Storefronts(owner common.Address, raw StorefrontsResponse) ([]types.Storefront, error) {
	if len(raw.ProductCounts) == 0 {
		return []types.Storefront{}, nil
	}
	names := packedstr.DecodeBytes(raw.NamesBlob)
	rows := len(raw.ProductCounts)
	if len(names) < rows || len(raw.Balances) < rows {
		return nil, fmt.Errorf("%w: %d storefronts for %s but %d names and %d balances",
			ErrMalformedResponse, rows, owner.Hex(), len(names), len(raw.Balances))
	}
	out := make([]types.Storefront, 0, rows)
	for i := 0; i < rows; i++ {
		balance, err := types.AmountFromBig(raw.Balances[i])
		if err != nil {
			return nil, fmt.Errorf("projection: storefront %d balance: %w", i, err)
		}
		count, err := uint64Of(raw.ProductCounts[i])
		if err != nil {
			return nil, fmt.Errorf("projection: storefront %d product count: %w", i, err)
		}
		out = append(out, types.Storefront{
			Owner:        owner,
			Name:         names[i],
			Balance:      balance,
			ProductCount: count,
			Index:        i,
		})
	}
	return out, nil
}

// Products projects a storefront's product list. Rows are driven by the
// number of decoded names.
func Products(raw ProductsResponse) ([]types.Product, error) {
	names := packedstr.DecodeBytes(raw.NamesBlob)
	rows := len(names)
	if len(raw.Prices) < rows || len(raw.Quantities) < rows || len(raw.ContentIDs) < rows {
		return nil, fmt.Errorf("%w: %d product names but %d prices, %d quantities and %d content ids",
			ErrMalformedResponse, rows, len(raw.Prices), len(raw.Quantities), len(raw.ContentIDs))
	}
	out := make([]types.Product, 0, rows)
	for i, name := range names {
		price, err := types.AmountFromBig(raw.Prices[i])
		if err != nil {
			return nil, fmt.Errorf("projection: product %d price: %w", i, err)
		}
		quantity, err := uint64Of(raw.Quantities[i])
		if err != nil {
			return nil, fmt.Errorf("projection: product %d quantity: %w", i, err)
		}
		out = append(out, types.Product{
			Name:      name,
			Price:     price,
			Quantity:  quantity,
			ContentID: contentid.Decode(raw.ContentIDs[i]),
			Index:     i,
		})
	}
	return out, nil
}

// StoreOwnerAddresses returns the addresses of users allowed to hold
// storefronts, in user-list order.
func StoreOwnerAddresses(users []types.User) []common.Address {
	owners := make([]common.Address, 0, len(users))
	for _, user := range users {
		if user.Status.CanOwnStorefronts() {
			owners = append(owners, user.Address)
		}
	}
	return owners
}

func uint64Of(value *big.Int) (uint64, error) {
	if value == nil {
		return 0, nil
	}
	if value.Sign() < 0 || !value.IsUint64() {
		return 0, fmt.Errorf("value %s out of range", value.String())
	}
	return value.Uint64(), nil
}
