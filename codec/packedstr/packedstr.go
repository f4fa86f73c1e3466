// Package packedstr decodes the compact string arrays returned by the
// marketplace contract: UTF-8 names concatenated into one byte blob, each
// terminated by a control byte.
package packedstr

import (
	"encoding/hex"
	"strings"
)

// Separator is the terminator the contract writes after every name.
const Separator byte = 0x1F

// maxControl is the highest byte value treated as a terminator.
const maxControl byte = 0x1F

// Decode parses a hex string, with or without a 0x prefix, and returns the
// names it contains. Pairs that are not valid hex are skipped.
func Decode(blob string) []string {
	s := strings.TrimPrefix(strings.TrimPrefix(blob, "0x"), "0X")
	raw := make([]byte, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		var b [1]byte
		if _, err := hex.Decode(b[:], []byte(s[i:i+2])); err != nil {
			continue
		}
		raw = append(raw, b[0])
	}
	return DecodeBytes(raw)
}

// DecodeBytes splits raw on control bytes. Zero bytes are padding and are
// dropped. Every terminator emits the accumulated name, even when empty.
// Bytes after the last terminator are discarded.
func DecodeBytes(raw []byte) []string {
	names := []string{}
	var acc []byte
	for _, b := range raw {
		switch {
		case b == 0:
		case b <= maxControl:
			names = append(names, string(acc))
			acc = acc[:0]
		default:
			acc = append(acc, b)
		}
	}
	return names
}
