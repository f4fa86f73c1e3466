package projection

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"marketfront/codec/contentid"
	"marketfront/codec/packedstr/packedstrtest"
	"marketfront/core/types"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func bigs(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestUsersZipsStatuses(t *testing.T) {
	users, err := Users(UsersResponse{
		Addresses:   []common.Address{alice, bob, carol},
		StatusCodes: []int64{2, 3, 9},
	})
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	want := []types.UserStatus{types.StatusAdmin, types.StatusShopperWaitingApproval, types.StatusUnknown}
	for i, user := range users {
		if user.Status != want[i] {
			t.Fatalf("user %d: got %s want %s", i, user.Status, want[i])
		}
	}
}

func TestUsersRejectsShortStatusArray(t *testing.T) {
	_, err := Users(UsersResponse{Addresses: []common.Address{alice, bob}, StatusCodes: []int64{0}})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestStorefrontsDrivenByProductCounts(t *testing.T) {
	raw := StorefrontsResponse{
		NamesBlob:     packedstrtest.Encode("Fruit store", "Weapon store"),
		Balances:      bigs(100, 0),
		ProductCounts: bigs(3, 0),
	}
	fronts, err := Storefronts(alice, raw)
	if err != nil {
		t.Fatalf("storefronts: %v", err)
	}
	if len(fronts) != 2 {
		t.Fatalf("expected 2 storefronts, got %d", len(fronts))
	}
	if fronts[1].Name != "Weapon store" || fronts[1].Index != 1 || fronts[1].Owner != alice {
		t.Fatalf("unexpected storefront: %+v", fronts[1])
	}
	if fronts[0].Balance.Uint64() != 100 || fronts[0].ProductCount != 3 {
		t.Fatalf("unexpected storefront: %+v", fronts[0])
	}
}

func TestStorefrontsEmptyCountsMeansNone(t *testing.T) {
	fronts, err := Storefronts(alice, StorefrontsResponse{NamesBlob: packedstrtest.Encode("ghost")})
	if err != nil {
		t.Fatalf("storefronts: %v", err)
	}
	if fronts == nil || len(fronts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", fronts)
	}
}

func TestStorefrontsRejectsMissingNames(t *testing.T) {
	_, err := Storefronts(alice, StorefrontsResponse{
		NamesBlob:     packedstrtest.Encode("only"),
		Balances:      bigs(0, 0),
		ProductCounts: bigs(0, 0),
	})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestProductsDecodesContentIDs(t *testing.T) {
	digest, err := contentid.Encode("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	products, err := Products(ProductsResponse{
		NamesBlob:  packedstrtest.Encode("apple", "pear"),
		Prices:     bigs(10, 20),
		Quantities: bigs(5, 0),
		ContentIDs: []common.Hash{digest, {}},
	})
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if products[0].ContentID != "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG" || !products[0].HasImage() {
		t.Fatalf("unexpected content id %q", products[0].ContentID)
	}
	if products[1].HasImage() || !products[1].SoldOut() || products[1].Index != 1 {
		t.Fatalf("unexpected product: %+v", products[1])
	}
	if products[1].Price.Uint64() != 20 {
		t.Fatalf("unexpected price %s", products[1].Price)
	}
}

func TestProductsRejectsNegativeQuantity(t *testing.T) {
	_, err := Products(ProductsResponse{
		NamesBlob:  packedstrtest.Encode("x"),
		Prices:     bigs(1),
		Quantities: bigs(-1),
		ContentIDs: []common.Hash{{}},
	})
	if err == nil {
		t.Fatalf("expected error for negative quantity")
	}
}

func TestStoreOwnerAddressesPreservesOrder(t *testing.T) {
	users := []types.User{
		{Address: alice, Status: types.StatusShopper},
		{Address: bob, Status: types.StatusAdmin},
		{Address: carol, Status: types.StatusShopOwner},
		{Address: common.HexToAddress("0xd4"), Status: types.StatusShopperWaitingApproval},
	}
	owners := StoreOwnerAddresses(users)
	if len(owners) != 2 || owners[0] != bob || owners[1] != carol {
		t.Fatalf("unexpected owners %v", owners)
	}
}
