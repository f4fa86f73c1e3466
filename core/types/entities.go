package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// User is an account known to the marketplace ledger.
type User struct {
	Address common.Address `json:"address"`
	Status  UserStatus     `json:"status"`
}

// Storefront is a shop held by an owner. Index is the storefront's position in
// the owner's on-chain collection and is reassigned by swap-and-pop removals,
// so it must not be treated as a stable identifier.
type Storefront struct {
	Owner        common.Address `json:"owner"`
	Name         string         `json:"name"`
	Balance      *uint256.Int   `json:"balance"`
	ProductCount uint64         `json:"productCount"`
	Index        int            `json:"index"`
}

// Product is an item listed in a storefront. Index carries the same caveat as
// Storefront.Index, scoped to the storefront's product collection.
type Product struct {
	Name      string       `json:"name"`
	Price     *uint256.Int `json:"price"`
	Quantity  uint64       `json:"quantity"`
	ContentID string       `json:"contentId"`
	Index     int          `json:"index"`
}

// HasImage reports whether a content identifier is attached to the product.
func (p Product) HasImage() bool { return p.ContentID != "" }

// SoldOut reports whether no units remain. Sold out products stay listed.
func (p Product) SoldOut() bool { return p.Quantity == 0 }

// SameAddress compares two account addresses. Addresses are compared as bytes,
// so the hex casing they were parsed from never matters.
func SameAddress(a, b common.Address) bool { return a == b }

// EqualHex compares two hex address strings after uppercasing them.
func EqualHex(a, b string) bool {
	return strings.ToUpper(strings.TrimSpace(a)) == strings.ToUpper(strings.TrimSpace(b))
}

// ParseAddress parses a 0x-prefixed hex account address in any letter case.
func ParseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("types: invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}
