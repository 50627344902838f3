// Package units converts token amounts between base units (wei), human
// denominated amounts (ether) and fiat display strings.
//
// Every monetary computation stays in the integer or decimal domain. Only the
// final fiat string is a display artifact.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the precision of the guild's deposit token (wETH).
const DefaultDecimals uint8 = 18

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("invalid amount")

	// ErrConversionOverflow is returned when an amount does not fit in a uint256.
	ErrConversionOverflow = errors.New("amount exceeds uint256 range")

	// ErrNegativeAmount is returned for negative base unit amounts.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrInvalidRate is returned for missing, zero or negative exchange rates.
	ErrInvalidRate = errors.New("exchange rate must be a positive decimal")
)

// ParseError describes user input that cannot be turned into a base unit amount.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

var amountPattern = regexp.MustCompile(`^([0-9]*)(?:\.([0-9]*))?$`)

// pow10 returns 10^decimals as a new big.Int
func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// checkRange rejects nil, negative and above-uint256 amounts
func checkRange(base *big.Int) error {
	if base == nil {
		return ErrNegativeAmount
	}
	if base.Sign() < 0 {
		return ErrNegativeAmount
	}
	if base.Cmp(ethmath.MaxBig256) > 0 {
		return ErrConversionOverflow
	}
	return nil
}

// ToHumanAmount converts a base unit amount to a decimal string scaled by
// 10^-decimals. Trailing fractional zeros are trimmed.
func ToHumanAmount(base *big.Int, decimals uint8) (string, error) {
	if err := checkRange(base); err != nil {
		return "", err
	}
	if base.Sign() == 0 {
		return "0", nil
	}

	intPart, remainder := new(big.Int).QuoRem(base, pow10(decimals), new(big.Int))
	if remainder.Sign() == 0 {
		return intPart.String(), nil
	}

	frac := remainder.String()
	frac = strings.Repeat("0", int(decimals)-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	return intPart.String() + "." + frac, nil
}

// ParseHumanAmount converts user input such as "1.5" into base units.
// Signs, exponents, separators and more fractional digits than decimals are
// rejected.
func ParseHumanAmount(input string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, &ParseError{Input: input, Reason: "amount is required"}
	}
	if strings.HasPrefix(trimmed, "-") {
		return nil, &ParseError{Input: input, Reason: "amount must not be negative"}
	}

	m := amountPattern.FindStringSubmatch(trimmed)
	if m == nil || m[1]+m[2] == "" {
		return nil, &ParseError{Input: input, Reason: "not a decimal number"}
	}

	intDigits, fracDigits := m[1], m[2]
	if len(fracDigits) > int(decimals) {
		return nil, &ParseError{
			Input:  input,
			Reason: fmt.Sprintf("at most %d fractional digits allowed", decimals),
		}
	}

	digits := intDigits + fracDigits + strings.Repeat("0", int(decimals)-len(fracDigits))
	amount, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, &ParseError{Input: input, Reason: "not a decimal number"}
	}
	if amount.Cmp(ethmath.MaxBig256) > 0 {
		return nil, fmt.Errorf("parse %q: %w", input, ErrConversionOverflow)
	}
	return amount, nil
}

// ParseRate parses an exchange rate expressed in fiat per whole token.
func ParseRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidRate, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return rate, nil
}

// ToDecimal returns the exact human amount as a decimal.Decimal.
func ToDecimal(base *big.Int, decimals uint8) (decimal.Decimal, error) {
	if err := checkRange(base); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(base, -int32(decimals)), nil
}

// FiatValue returns base/10^decimals * rate, exact and unrounded.
func FiatValue(base *big.Int, decimals uint8, rate decimal.Decimal) (decimal.Decimal, error) {
	human, err := ToDecimal(base, decimals)
	if err != nil {
		return decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return human.Mul(rate), nil
}

// ToFiat formats the fiat value of a base unit amount with exactly two
// fractional digits. Invalid amounts or rates format as the zero amount.
func ToFiat(base *big.Int, decimals uint8, rate decimal.Decimal, loc Locale) string {
	value, err := FiatValue(base, decimals, rate)
	if err != nil {
		return loc.Format(decimal.Zero)
	}
	return loc.Format(value)
}
