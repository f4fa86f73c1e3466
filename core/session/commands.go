package session

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Command is the closed set of operations a Session accepts. Dispatch matches
// every implementation exhaustively.
type Command interface {
	CommandName() string
	command()
}

// Load fetches the account's status and the collections its role can see.
type Load struct{}

// RefreshUsers reloads the user list. Admin only.
type RefreshUsers struct{}

// RefreshStorefronts reloads storefronts. All forces every owner's
// storefronts regardless of role.
type RefreshStorefronts struct {
	All bool
}

// Select loads the products of one storefront.
type Select struct {
	Owner common.Address
	Index int
}

type RequestShopOwner struct{}

type GrantShopOwner struct {
	Target common.Address
}

type GrantAdmin struct {
	Target common.Address
}

type DeleteUser struct {
	Target common.Address
}

type AddStorefront struct {
	Name string
}

type RemoveStorefront struct {
	Owner common.Address
	Index int
}

// AddProduct lists a product in the selected storefront.
type AddProduct struct {
	Name     string
	Price    *uint256.Int
	Quantity uint64
}

// RemoveProduct delists a product of the selected storefront.
type RemoveProduct struct {
	Index int
}

type UpdatePrice struct {
	Index int
	Price *uint256.Int
}

// StageImage holds picture bytes for a product until SubmitImage.
type StageImage struct {
	Index int
	Data  []byte
}

// SubmitImage stores the staged picture and records its digest on the ledger.
type SubmitImage struct{}

// Purchase buys from the selected storefront. A nil Payment pays exactly
// price times quantity.
type Purchase struct {
	Index    int
	Quantity uint64
	Payment  *uint256.Int
}

// Withdraw moves funds out of one of the account's storefronts. A nil Amount
// withdraws the whole cached balance.
type Withdraw struct {
	StorefrontIndex int
	Amount          *uint256.Int
}

type ToggleContractActive struct{}

type EmergencyWithdraw struct{}

func (Load) CommandName() string                 { return "load" }
func (RefreshUsers) CommandName() string         { return "refresh_users" }
func (RefreshStorefronts) CommandName() string   { return "refresh_storefronts" }
func (Select) CommandName() string               { return "select" }
func (RequestShopOwner) CommandName() string     { return "request_shop_owner" }
func (GrantShopOwner) CommandName() string       { return "grant_shop_owner" }
func (GrantAdmin) CommandName() string           { return "grant_admin" }
func (DeleteUser) CommandName() string           { return "delete_user" }
func (AddStorefront) CommandName() string        { return "add_storefront" }
func (RemoveStorefront) CommandName() string     { return "remove_storefront" }
func (AddProduct) CommandName() string           { return "add_product" }
func (RemoveProduct) CommandName() string        { return "remove_product" }
func (UpdatePrice) CommandName() string          { return "update_price" }
func (StageImage) CommandName() string           { return "stage_image" }
func (SubmitImage) CommandName() string          { return "submit_image" }
func (Purchase) CommandName() string             { return "purchase" }
func (Withdraw) CommandName() string             { return "withdraw" }
func (ToggleContractActive) CommandName() string { return "toggle_contract_active" }
func (EmergencyWithdraw) CommandName() string    { return "emergency_withdraw" }

func (Load) command()                 {}
func (RefreshUsers) command()         {}
func (RefreshStorefronts) command()   {}
func (Select) command()               {}
func (RequestShopOwner) command()     {}
func (GrantShopOwner) command()       {}
func (GrantAdmin) command()           {}
func (DeleteUser) command()           {}
func (AddStorefront) command()        {}
func (RemoveStorefront) command()     {}
func (AddProduct) command()           {}
func (RemoveProduct) command()        {}
func (UpdatePrice) command()          {}
func (StageImage) command()           {}
func (SubmitImage) command()          {}
func (Purchase) command()             {}
func (Withdraw) command()             {}
func (ToggleContractActive) command() {}
func (EmergencyWithdraw) command()    {}
