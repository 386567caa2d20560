package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// These are the multipliers for CLT denominations.
// Example: To get the base-unit value of an amount in whole CLT, use
//
//	new(big.Int).Mul(value, big.NewInt(params.CLT))
const (
	Wei  = 1
	GWei = 1e9
	CLT  = 1e18

	TokenDecimals = 18
)

// Tokens returns n whole tokens in base units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(CLT))
}

// FormatUnits renders amount as a decimal string with the given number of
// decimals. At least one fractional digit is kept ("100.0").
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0.0"
	}
	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, base, new(big.Int))

	fracStr := frac.String()
	if pad := decimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		fracStr = "0"
	}
	out := whole.String() + "." + fracStr
	if neg {
		out = "-" + out
	}
	return out
}

// FormatTokens formats a CLT base-unit amount.
func FormatTokens(amount *big.Int) string {
	return FormatUnits(amount, TokenDecimals)
}

// ParseUnits parses a non-negative decimal string into base units.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("negative amount %q", value)
	}
	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	out, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return out, nil
}

// ParseTokens parses a CLT amount such as "12.5".
func ParseTokens(value string) (*big.Int, error) {
	return ParseUnits(value, TokenDecimals)
}
