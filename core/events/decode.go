package events

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownEvent is returned by Decode for event names outside the
// marketplace set.
var ErrUnknownEvent = errors.New("events: unknown event")

// Decode builds a typed event from a named log and its argument map, as
// produced by ABI log unpacking.
func Decode(name string, fields map[string]any) (Event, error) {
	f := fieldReader{event: name, fields: fields}
	var evt Event
	switch name {
	case TypeRightsRequested:
		evt = RightsRequested{Addr: f.address("addr")}
	case TypeShopOwnerRightsGranted:
		evt = ShopOwnerRightsGranted{Addr: f.address("addr")}
	case TypeAdminRightsGranted:
		evt = AdminRightsGranted{Addr: f.address("addr")}
	case TypeUserDeleted:
		evt = UserDeleted{Addr: f.address("addr")}
	case TypeStorefrontCreated:
		evt = StorefrontCreated{
			Owner:        f.address("owner"),
			Name:         f.string("name"),
			Balance:      f.big("balance"),
			ProductCount: f.big("productCount"),
		}
	case TypeStorefrontRemoved:
		evt = StorefrontRemoved{StoreOwner: f.address("storeOwner"), StoreIndex: f.big("storeIndex")}
	case TypeProductAdded:
		evt = ProductAdded{Name: f.string("name"), Price: f.big("price"), Quantity: f.big("quantity")}
	case TypeProductRemoved:
		evt = ProductRemoved{
			StoreOwner: f.address("storeOwner"),
			StoreIndex: f.big("storeIndex"),
			Index:      f.big("index"),
		}
	case TypeContentIDUpdated:
		evt = ContentIDUpdated{
			StoreOwner: f.address("storeOwner"),
			StoreIndex: f.big("storeIndex"),
			Index:      f.big("index"),
			Digest:     f.hash("ipfsHash"),
		}
	case TypePurchaseLogged:
		evt = PurchaseLogged{
			StoreOwner:   f.address("storeOwner"),
			StoreIndex:   f.big("storeIndex"),
			ProductIndex: f.big("productIndex"),
			Quantity:     f.big("quantity"),
		}
	case TypeFundsWithdrawn:
		evt = FundsWithdrawn{Addr: f.address("addr"), StoreIndex: f.big("storeIndex"), Amount: f.big("amount")}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	if f.err != nil {
		return nil, f.err
	}
	return evt, nil
}

// fieldReader collects the first type mismatch so Decode can stay flat.
type fieldReader struct {
	event  string
	fields map[string]any
	err    error
}

func (f *fieldReader) lookup(key string) (any, bool) {
	if f.err != nil {
		return nil, false
	}
	v, ok := f.fields[key]
	if !ok {
		f.err = fmt.Errorf("events: %s missing field %q", f.event, key)
	}
	return v, ok
}

func (f *fieldReader) fail(key string, v any) {
	f.err = fmt.Errorf("events: %s field %q has unexpected type %T", f.event, key, v)
}

func (f *fieldReader) address(key string) common.Address {
	v, ok := f.lookup(key)
	if !ok {
		return common.Address{}
	}
	switch addr := v.(type) {
	case common.Address:
		return addr
	case [20]byte:
		return common.Address(addr)
	case string:
		if common.IsHexAddress(addr) {
			return common.HexToAddress(addr)
		}
	}
	f.fail(key, v)
	return common.Address{}
}

func (f *fieldReader) big(key string) *big.Int {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return new(big.Int)
		}
		return new(big.Int).Set(n)
	case uint8:
		return new(big.Int).SetUint64(uint64(n))
	case uint64:
		return new(big.Int).SetUint64(n)
	case int64:
		return big.NewInt(n)
	case int:
		return big.NewInt(int64(n))
	}
	f.fail(key, v)
	return nil
}

func (f *fieldReader) string(key string) string {
	v, ok := f.lookup(key)
	if !ok {
		return ""
	}
	s, isString := v.(string)
	if !isString {
		f.fail(key, v)
	}
	return s
}

func (f *fieldReader) hash(key string) common.Hash {
	v, ok := f.lookup(key)
	if !ok {
		return common.Hash{}
	}
	switch h := v.(type) {
	case common.Hash:
		return h
	case [32]byte:
		return common.Hash(h)
	case []byte:
		if len(h) == common.HashLength {
			return common.BytesToHash(h)
		}
	}
	f.fail(key, v)
	return common.Hash{}
}
