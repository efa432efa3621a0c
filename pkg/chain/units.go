package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a decimal string such as "1.5" into the token's
// smallest unit. More fractional digits than decimals is an error.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("invalid amount format: empty")
	}

	whole, frac, hasFrac := strings.Cut(amount, ".")
	if hasFrac && frac == "" {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	if whole == "" {
		whole = "0"
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	result, ok := new(big.Int).SetString(digits, 10)
	if !ok || result.Sign() < 0 || strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	return result, nil
}

// FormatUnits renders a smallest-unit amount with the token's decimals,
// trimming trailing zeros.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	neg := amount.Sign() < 0
	s := new(big.Int).Abs(amount).String()
	if decimals > 0 {
		d := int(decimals)
		if len(s) <= d {
			s = strings.Repeat("0", d-len(s)+1) + s
		}
		whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
		s = whole
		if frac != "" {
			s += "." + frac
		}
	}
	if neg {
		s = "-" + s
	}
	return s
}
