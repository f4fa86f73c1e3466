package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"marketfront/core/projection"
)

func expectOutputs(method string, out []any, n int) error {
	if len(out) != n {
		return fmt.Errorf("%w: %s returned %d values, want %d", projection.ErrMalformedResponse, method, len(out), n)
	}
	return nil
}

func usersResponse(out []any) (projection.UsersResponse, error) {
	if err := expectOutputs(MethodGetUsers, out, 2); err != nil {
		return projection.UsersResponse{}, err
	}
	addrs, err := asAddresses(out[0])
	if err != nil {
		return projection.UsersResponse{}, err
	}
	codes, err := asCodes(out[1])
	if err != nil {
		return projection.UsersResponse{}, err
	}
	return projection.UsersResponse{Addresses: addrs, StatusCodes: codes}, nil
}

func storefrontsResponse(out []any) (projection.StorefrontsResponse, error) {
	if err := expectOutputs(MethodGetStorefronts, out, 3); err != nil {
		return projection.StorefrontsResponse{}, err
	}
	names, err := asBytes(out[0])
	if err != nil {
		return projection.StorefrontsResponse{}, err
	}
	balances, err := asBigInts(out[1])
	if err != nil {
		return projection.StorefrontsResponse{}, err
	}
	counts, err := asBigInts(out[2])
	if err != nil {
		return projection.StorefrontsResponse{}, err
	}
	return projection.StorefrontsResponse{NamesBlob: names, Balances: balances, ProductCounts: counts}, nil
}

func productsResponse(out []any) (projection.ProductsResponse, error) {
	if err := expectOutputs(MethodGetAllProductsFromStorefront, out, 4); err != nil {
		return projection.ProductsResponse{}, err
	}
	names, err := asBytes(out[0])
	if err != nil {
		return projection.ProductsResponse{}, err
	}
	prices, err := asBigInts(out[1])
	if err != nil {
		return projection.ProductsResponse{}, err
	}
	quantities, err := asBigInts(out[2])
	if err != nil {
		return projection.ProductsResponse{}, err
	}
	hashes, err := asHashes(out[3])
	if err != nil {
		return projection.ProductsResponse{}, err
	}
	return projection.ProductsResponse{NamesBlob: names, Prices: prices, Quantities: quantities, ContentIDs: hashes}, nil
}

func asAddresses(v any) ([]common.Address, error) {
	addrs, ok := v.([]common.Address)
	if !ok {
		return nil, unexpected("address[]", v)
	}
	return addrs, nil
}

func asCodes(v any) ([]int64, error) {
	switch codes := v.(type) {
	case []uint8:
		out := make([]int64, len(codes))
		for i, c := range codes {
			out[i] = int64(c)
		}
		return out, nil
	case []*big.Int:
		out := make([]int64, len(codes))
		for i, c := range codes {
			if c == nil || !c.IsInt64() {
				out[i] = -1
				continue
			}
			out[i] = c.Int64()
		}
		return out, nil
	}
	return nil, unexpected("uint8[]", v)
}

func asCode(v any) (int64, error) {
	switch code := v.(type) {
	case uint8:
		return int64(code), nil
	case *big.Int:
		if code == nil || !code.IsInt64() {
			return -1, nil
		}
		return code.Int64(), nil
	}
	return 0, unexpected("uint8", v)
}

func asBytes(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, unexpected("bytes", v)
	}
	return b, nil
}

func asBigInts(v any) ([]*big.Int, error) {
	values, ok := v.([]*big.Int)
	if !ok {
		return nil, unexpected("uint256[]", v)
	}
	return values, nil
}

func asBig(v any) (*big.Int, error) {
	value, ok := v.(*big.Int)
	if !ok {
		return nil, unexpected("uint256", v)
	}
	return value, nil
}

func asHashes(v any) ([]common.Hash, error) {
	switch hashes := v.(type) {
	case [][32]byte:
		out := make([]common.Hash, len(hashes))
		for i, h := range hashes {
			out[i] = common.Hash(h)
		}
		return out, nil
	case []common.Hash:
		return hashes, nil
	}
	return nil, unexpected("bytes32[]", v)
}

func unexpected(want string, got any) error {
	return fmt.Errorf("%w: expected %s, got %T", projection.ErrMalformedResponse, want, got)
}
