// Package contentid converts content identifiers between their human-facing
// base58 form and the 32-byte digest stored by the marketplace contract.
//
// The on-chain field holds only the sha2-256 digest; the two-byte multihash
// prefix (0x12 0x20) is implied. An all-zero digest means "no content".
package contentid

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"

	coreerrors "marketfront/core/errors"
)

// DigestLength is the size of the on-chain digest.
const DigestLength = common.HashLength

// multihashPrefix is sha2-256 (0x12) with a 32 byte length (0x20).
var multihashPrefix = []byte{0x12, 0x20}

// Unset is the sentinel stored on-chain for products without content.
var Unset = common.Hash{}

// Encode decodes a base58 content identifier and returns its 32-byte digest.
func Encode(cid string) (common.Hash, error) {
	trimmed := strings.TrimSpace(cid)
	if trimmed == "" {
		return common.Hash{}, fmt.Errorf("%w: empty identifier", coreerrors.ErrInvalidContentID)
	}
	raw := base58.Decode(trimmed)
	if len(raw) == 0 {
		return common.Hash{}, fmt.Errorf("%w: %q is not base58", coreerrors.ErrInvalidContentID, trimmed)
	}
	digest := bytes.TrimPrefix(raw, multihashPrefix)
	if len(digest) != DigestLength {
		return common.Hash{}, fmt.Errorf("%w: %q decodes to %d digest bytes, want %d",
			coreerrors.ErrInvalidContentID, trimmed, len(digest), DigestLength)
	}
	return common.BytesToHash(digest), nil
}

// Decode returns the base58 identifier for an on-chain digest, or the empty
// string for the unset sentinel.
func Decode(digest common.Hash) string {
	if IsUnset(digest) {
		return ""
	}
	buf := make([]byte, 0, len(multihashPrefix)+DigestLength)
	buf = append(buf, multihashPrefix...)
	buf = append(buf, digest.Bytes()...)
	return base58.Encode(buf)
}

// IsUnset reports whether digest is the all-zero sentinel.
func IsUnset(digest common.Hash) bool { return digest == Unset }
