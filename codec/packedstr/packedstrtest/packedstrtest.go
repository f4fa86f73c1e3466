// Package packedstrtest builds packed name blobs for tests that fake the
// marketplace contract.
package packedstrtest

import (
	"encoding/hex"

	"marketfront/codec/packedstr"
)

// Encode builds a blob the way the contract does: each name followed by a
// single separator.
func Encode(names ...string) []byte {
	size := 0
	for _, name := range names {
		size += len(name) + 1
	}
	out := make([]byte, 0, size)
	for _, name := range names {
		out = append(out, name...)
		out = append(out, packedstr.Separator)
	}
	return out
}

// EncodeHex is Encode rendered as a 0x-prefixed hex string.
func EncodeHex(names ...string) string {
	return "0x" + hex.EncodeToString(Encode(names...))
}
