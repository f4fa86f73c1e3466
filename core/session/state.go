package session

import (
	"github.com/ethereum/go-ethereum/common"

	"marketfront/core/types"
)

// State is an immutable snapshot of one account's view of the marketplace.
// Handlers never modify a published State; they build a new one.
type State struct {
	Account      common.Address     `json:"account"`
	Status       types.UserStatus   `json:"status"`
	Users        []types.User       `json:"users"`
	Storefronts  []types.Storefront `json:"storefronts"`
	Selection    *Selection         `json:"selection,omitempty"`
	Products     []types.Product    `json:"products"`
	Upload       *Upload            `json:"upload,omitempty"`
	Capabilities Capabilities       `json:"capabilities"`
	Version      uint64             `json:"version"`
}

// Selection identifies the storefront whose products are loaded.
type Selection struct {
	Owner common.Address `json:"owner"`
	Index int            `json:"index"`
	Name  string         `json:"name"`
}

// Upload is a picture staged for one product of the selected storefront.
type Upload struct {
	ProductIndex int    `json:"productIndex"`
	Size         int    `json:"size"`
	Data         []byte `json:"-"`
}

// Capabilities lists optional collaborators that were reachable at load time.
type Capabilities struct {
	ContentStore bool `json:"contentStore"`
}

// Storefront returns the cached storefront of owner at index.
func (s State) Storefront(owner common.Address, index int) (types.Storefront, bool) {
	for _, front := range s.Storefronts {
		if types.SameAddress(front.Owner, owner) && front.Index == index {
			return front, true
		}
	}
	return types.Storefront{}, false
}

// OwnedStorefronts counts the cached storefronts held by owner.
func (s State) OwnedStorefronts(owner common.Address) int {
	n := 0
	for _, front := range s.Storefronts {
		if types.SameAddress(front.Owner, owner) {
			n++
		}
	}
	return n
}

// User returns the cached user matching addr.
func (s State) User(addr common.Address) (types.User, bool) {
	for _, user := range s.Users {
		if types.SameAddress(user.Address, addr) {
			return user, true
		}
	}
	return types.User{}, false
}

// Product returns the cached product of the selected storefront at index.
func (s State) Product(index int) (types.Product, bool) {
	if index < 0 || index >= len(s.Products) {
		return types.Product{}, false
	}
	return s.Products[index], true
}

func (s State) ownsSelection() bool {
	return s.Selection != nil && types.SameAddress(s.Selection.Owner, s.Account)
}

func (s State) selects(owner common.Address, index int) bool {
	return s.Selection != nil && types.SameAddress(s.Selection.Owner, owner) && s.Selection.Index == index
}
