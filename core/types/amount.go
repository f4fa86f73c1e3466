package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// EtherDecimals is the number of decimals between the smallest currency unit
// and its display unit.
const EtherDecimals = 18

// AmountFromBig converts a ledger integer into the unsigned 256-bit form used
// by the domain model.
func AmountFromBig(value *big.Int) (*uint256.Int, error) {
	if value == nil {
		return new(uint256.Int), nil
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("types: negative amount %s", value.String())
	}
	amount, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("types: amount %s overflows 256 bits", value.String())
	}
	return amount, nil
}

// CloneAmount returns an independent copy; nil becomes zero.
func CloneAmount(value *uint256.Int) *uint256.Int {
	if value == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(value)
}

// FormatEther renders a smallest-unit amount in display units. It is only
// used for presentation; comparisons always use the integer form.
func FormatEther(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	digits := value.Dec()
	if len(digits) <= EtherDecimals {
		digits = strings.Repeat("0", EtherDecimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-EtherDecimals]
	frac := strings.TrimRight(digits[len(digits)-EtherDecimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ParseEther converts a display-unit decimal string into the smallest unit.
func ParseEther(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("types: empty amount")
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > EtherDecimals {
		return nil, fmt.Errorf("types: amount %q has more than %d decimals", raw, EtherDecimals)
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", EtherDecimals-len(frac)), "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("types: parse amount %q: %w", raw, err)
	}
	return amount, nil
}
