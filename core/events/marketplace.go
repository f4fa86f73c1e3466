package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"marketfront/codec/contentid"
)

const (
	// TypeRightsRequested is emitted when a shopper asks for shop owner rights.
	TypeRightsRequested = "LogStoreOwnerRightsRequested"
	// TypeShopOwnerRightsGranted is emitted when an admin promotes a shop owner.
	TypeShopOwnerRightsGranted = "LogStoreOwnerRightsGranted"
	// TypeAdminRightsGranted is emitted when an admin promotes another admin.
	TypeAdminRightsGranted = "LogAdminRightsGranted"
	// TypeUserDeleted is emitted when an admin deletes a user.
	TypeUserDeleted = "LogDeleteUser"
	// TypeStorefrontCreated is emitted for every new storefront.
	TypeStorefrontCreated = "LogNewStorefrontCreated"
	// TypeStorefrontRemoved is emitted when a storefront is removed.
	TypeStorefrontRemoved = "LogStorefrontRemoved"
	// TypeProductAdded is emitted when a product is listed.
	TypeProductAdded = "LogNewProductAdded"
	// TypeProductRemoved is emitted when a product is delisted.
	TypeProductRemoved = "LogProductRemoved"
	// TypeContentIDUpdated is emitted when a product picture digest is stored.
	TypeContentIDUpdated = "LogProductPictureIpfsHashAdded"
	// TypePurchaseLogged is emitted for every purchase.
	TypePurchaseLogged = "LogPurchaseProduct"
	// TypeFundsWithdrawn is emitted when an owner withdraws storefront funds.
	TypeFundsWithdrawn = "LogWithdraw"
)

type RightsRequested struct {
	Addr common.Address
}

func (RightsRequested) EventType() string { return TypeRightsRequested }

func (e RightsRequested) Record() *Record {
	return &Record{Type: TypeRightsRequested, Attributes: map[string]string{"addr": e.Addr.Hex()}}
}

type ShopOwnerRightsGranted struct {
	Addr common.Address
}

func (ShopOwnerRightsGranted) EventType() string { return TypeShopOwnerRightsGranted }

func (e ShopOwnerRightsGranted) Record() *Record {
	return &Record{Type: TypeShopOwnerRightsGranted, Attributes: map[string]string{"addr": e.Addr.Hex()}}
}

type AdminRightsGranted struct {
	Addr common.Address
}

func (AdminRightsGranted) EventType() string { return TypeAdminRightsGranted }

func (e AdminRightsGranted) Record() *Record {
	return &Record{Type: TypeAdminRightsGranted, Attributes: map[string]string{"addr": e.Addr.Hex()}}
}

type UserDeleted struct {
	Addr common.Address
}

func (UserDeleted) EventType() string { return TypeUserDeleted }

func (e UserDeleted) Record() *Record {
	return &Record{Type: TypeUserDeleted, Attributes: map[string]string{"addr": e.Addr.Hex()}}
}

// StorefrontCreated carries the full initial state of the new storefront.
type StorefrontCreated struct {
	Owner        common.Address
	Name         string
	Balance      *big.Int
	ProductCount *big.Int
}

func (StorefrontCreated) EventType() string { return TypeStorefrontCreated }

func (e StorefrontCreated) Record() *Record {
	return &Record{Type: TypeStorefrontCreated, Attributes: map[string]string{
		"owner":        e.Owner.Hex(),
		"name":         e.Name,
		"balance":      formatAmount(e.Balance),
		"productCount": formatAmount(e.ProductCount),
	}}
}

type StorefrontRemoved struct {
	StoreOwner common.Address
	StoreIndex *big.Int
}

func (StorefrontRemoved) EventType() string { return TypeStorefrontRemoved }

func (e StorefrontRemoved) Record() *Record {
	return &Record{Type: TypeStorefrontRemoved, Attributes: map[string]string{
		"storeOwner": e.StoreOwner.Hex(),
		"storeIndex": formatAmount(e.StoreIndex),
	}}
}

// ProductAdded does not name the storefront; the issuer's selection does.
type ProductAdded struct {
	Name     string
	Price    *big.Int
	Quantity *big.Int
}

func (ProductAdded) EventType() string { return TypeProductAdded }

func (e ProductAdded) Record() *Record {
	return &Record{Type: TypeProductAdded, Attributes: map[string]string{
		"name":     e.Name,
		"price":    formatAmount(e.Price),
		"quantity": formatAmount(e.Quantity),
	}}
}

type ProductRemoved struct {
	StoreOwner common.Address
	StoreIndex *big.Int
	Index      *big.Int
}

func (ProductRemoved) EventType() string { return TypeProductRemoved }

func (e ProductRemoved) Record() *Record {
	return &Record{Type: TypeProductRemoved, Attributes: map[string]string{
		"storeOwner": e.StoreOwner.Hex(),
		"storeIndex": formatAmount(e.StoreIndex),
		"index":      formatAmount(e.Index),
	}}
}

type ContentIDUpdated struct {
	StoreOwner common.Address
	StoreIndex *big.Int
	Index      *big.Int
	Digest     common.Hash
}

func (ContentIDUpdated) EventType() string { return TypeContentIDUpdated }

func (e ContentIDUpdated) Record() *Record {
	return &Record{Type: TypeContentIDUpdated, Attributes: map[string]string{
		"storeOwner": e.StoreOwner.Hex(),
		"storeIndex": formatAmount(e.StoreIndex),
		"index":      formatAmount(e.Index),
		"contentId":  contentid.Decode(e.Digest),
	}}
}

type PurchaseLogged struct {
	StoreOwner   common.Address
	StoreIndex   *big.Int
	ProductIndex *big.Int
	Quantity     *big.Int
}

func (PurchaseLogged) EventType() string { return TypePurchaseLogged }

func (e PurchaseLogged) Record() *Record {
	return &Record{Type: TypePurchaseLogged, Attributes: map[string]string{
		"storeOwner":   e.StoreOwner.Hex(),
		"storeIndex":   formatAmount(e.StoreIndex),
		"productIndex": formatAmount(e.ProductIndex),
		"quantity":     formatAmount(e.Quantity),
	}}
}

type FundsWithdrawn struct {
	Addr       common.Address
	StoreIndex *big.Int
	Amount     *big.Int
}

func (FundsWithdrawn) EventType() string { return TypeFundsWithdrawn }

func (e FundsWithdrawn) Record() *Record {
	return &Record{Type: TypeFundsWithdrawn, Attributes: map[string]string{
		"addr":       e.Addr.Hex(),
		"storeIndex": formatAmount(e.StoreIndex),
		"amount":     formatAmount(e.Amount),
	}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
