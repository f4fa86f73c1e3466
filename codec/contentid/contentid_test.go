package contentid

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"

	coreerrors "marketfront/core/errors"
)

func TestKnownIdentifierRoundTrip(t *testing.T) {
	const cid = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	digest, err := Encode(cid)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if IsUnset(digest) {
		t.Fatalf("expected non-zero digest")
	}
	if got := Decode(digest); got != cid {
		t.Fatalf("round trip mismatch: got %s want %s", got, cid)
	}
}

func TestRandomDigestsRoundTrip(t *testing.T) {
	for i := 0; i < 64; i++ {
		var digest common.Hash
		if _, err := rand.Read(digest[:]); err != nil {
			t.Fatalf("rand: %v", err)
		}
		if IsUnset(digest) {
			continue
		}
		cid := Decode(digest)
		encoded, err := Encode(cid)
		if err != nil {
			t.Fatalf("encode %s: %v", cid, err)
		}
		if encoded != digest {
			t.Fatalf("digest mismatch for %s", cid)
		}
		if Decode(encoded) != cid {
			t.Fatalf("identifier mismatch for %s", cid)
		}
	}
}

func TestDecodeUnsetIsEmpty(t *testing.T) {
	if got := Decode(Unset); got != "" {
		t.Fatalf("expected empty identifier, got %q", got)
	}
}

func TestEncodeRejectsMalformedIdentifiers(t *testing.T) {
	short := base58.Encode(append([]byte{0x12, 0x20}, make([]byte, 31)...))
	long := base58.Encode(append([]byte{0x12, 0x20}, make([]byte, 33)...))
	for _, input := range []string{"", "   ", "0OIl", short, long} {
		if _, err := Encode(input); !errors.Is(err, coreerrors.ErrInvalidContentID) {
			t.Fatalf("input %q: expected ErrInvalidContentID, got %v", input, err)
		}
	}
}
