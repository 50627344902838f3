package units

import (
	"math/big"
	"math/rand/v2"
	"testing"

	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad test value %s", s)
	return v
}

func TestToHumanAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals uint8
		want     string
	}{
		{"zero balance", "0", 18, "0"},
		{"1 wei with 18 decimals", "1", 18, "0.000000000000000001"},
		{"1 token (18 decimals)", "1000000000000000000", 18, "1"},
		{"1.5 tokens (18 decimals)", "1500000000000000000", 18, "1.5"},
		{"6 decimals token (USDC-like)", "1500000", 6, "1.5"},
		{"0 decimals token", "100", 0, "100"},
		{"large balance", "123456789000000000000000000", 18, "123456789"},
		{"fractional with trailing zeros", "1100000000000000000", 18, "1.1"},
		{"high precision", "123456789123456789", 18, "0.123456789123456789"},
		{"max uint256", ethmath.MaxBig256.String(), 18, "115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHumanAmount(bigFromString(t, tt.raw), tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToHumanAmountRejectsOutOfRange(t *testing.T) {
	t.Run("negative", func(t *testing.T) {
		_, err := ToHumanAmount(big.NewInt(-1), 18)
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("nil", func(t *testing.T) {
		_, err := ToHumanAmount(nil, 18)
		assert.Error(t, err)
	})

	t.Run("above uint256", func(t *testing.T) {
		over := new(big.Int).Add(ethmath.MaxBig256, big.NewInt(1))
		_, err := ToHumanAmount(over, 18)
		assert.ErrorIs(t, err, ErrConversionOverflow)
	})

	t.Run("preserves original big.Int", func(t *testing.T) {
		original := big.NewInt(1000000000000000000)
		_, err := ToHumanAmount(original, 18)
		require.NoError(t, err)
		assert.Equal(t, "1000000000000000000", original.String())
	})
}

func TestParseHumanAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint8
		want     string
	}{
		{"one and a half ether", "1.5", 18, "1500000000000000000"},
		{"whole number", "2", 18, "2000000000000000000"},
		{"leading dot", ".5", 18, "500000000000000000"},
		{"trailing dot", "3.", 18, "3000000000000000000"},
		{"surrounding whitespace", "  0.25 ", 18, "250000000000000000"},
		{"smallest unit", "0.000000000000000001", 18, "1"},
		{"six decimals", "12.345678", 6, "12345678"},
		{"zero decimals", "42", 0, "42"},
		{"leading zeros", "0007", 2, "700"},
		{"zero", "0", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHumanAmount(tt.input, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseHumanAmountErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint8
	}{
		{"letters", "abc", 18},
		{"empty", "", 18},
		{"only whitespace", "   ", 18},
		{"lone dot", ".", 18},
		{"negative", "-1", 18},
		{"explicit plus", "+1", 18},
		{"exponent", "1e18", 18},
		{"thousands separator", "1,000", 18},
		{"two dots", "1.2.3", 18},
		{"over precision", "0.0000000000000000001", 18},
		{"fraction on zero decimals", "1.5", 0},
		{"hex", "0x10", 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHumanAmount(tt.input, tt.decimals)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.input, perr.Input)
			assert.NotEmpty(t, perr.Reason)
		})
	}
}

func TestParseHumanAmountOverflow(t *testing.T) {
	human, err := ToHumanAmount(ethmath.MaxBig256, 18)
	require.NoError(t, err)

	got, err := ParseHumanAmount(human, 18)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cmp(ethmath.MaxBig256))

	_, err = ParseHumanAmount("1"+human, 18)
	assert.ErrorIs(t, err, ErrConversionOverflow)
	assert.NotErrorIs(t, err, ErrParse)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	decimalsSet := []uint8{0, 1, 2, 6, 8, 18, 24}

	for i := 0; i < 500; i++ {
		bytes := make([]byte, rng.IntN(33))
		for j := range bytes {
			bytes[j] = byte(rng.UintN(256))
		}
		base := new(big.Int).SetBytes(bytes)
		decimals := decimalsSet[i%len(decimalsSet)]

		human, err := ToHumanAmount(base, decimals)
		require.NoError(t, err)

		parsed, err := ParseHumanAmount(human, decimals)
		require.NoError(t, err, "human=%s decimals=%d", human, decimals)
		assert.Equal(t, 0, base.Cmp(parsed), "round trip mismatch for %s (%d decimals)", base, decimals)
	}
}

func TestToFiat(t *testing.T) {
	rate := decimal.RequireFromString("150.25")

	tests := []struct {
		name     string
		base     *big.Int
		decimals uint8
		rate     decimal.Decimal
		want     string
	}{
		{"two tokens", bigFromString(t, "2000000000000000000"), 18, rate, "$300.50"},
		{"zero amount", big.NewInt(0), 18, rate, "$0.00"},
		{"grouping", bigFromString(t, "10000000000000000000000"), 18, rate, "$1,502,500.00"},
		{"rounds half up", bigFromString(t, "5000000000000000"), 18, decimal.RequireFromString("1"), "$0.01"},
		{"below half cent", bigFromString(t, "4999999999999999"), 18, decimal.RequireFromString("1"), "$0.00"},
		{"nil amount", nil, 18, rate, "$0.00"},
		{"negative amount", big.NewInt(-5), 18, rate, "$0.00"},
		{"zero rate", big.NewInt(5), 18, decimal.Zero, "$0.00"},
		{"negative rate", big.NewInt(5), 18, decimal.RequireFromString("-3"), "$0.00"},
		{"overflow amount", new(big.Int).Lsh(big.NewInt(1), 300), 18, rate, "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToFiat(tt.base, tt.decimals, tt.rate, DefaultLocale))
		})
	}
}

func TestToFiatHugeTreasuryKeepsPrecision(t *testing.T) {
	// 123456789.123456789123456789 tokens: far beyond float64's 15-16 digits
	base := bigFromString(t, "123456789123456789123456789")
	got := ToFiat(base, 18, decimal.RequireFromString("1000.01"), DefaultLocale)
	assert.Equal(t, "$123,458,023,691.35", got)
}

func TestToFiatMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	t.Run("non-decreasing in amount", func(t *testing.T) {
		rate := decimal.RequireFromString("1834.77")
		prev := decimal.Zero
		amount := new(big.Int)
		for i := 0; i < 300; i++ {
			amount.Add(amount, new(big.Int).SetUint64(rng.Uint64N(1e16)))
			value, err := FiatValue(amount, 18, rate)
			require.NoError(t, err)
			rounded := value.Round(2)
			assert.True(t, rounded.GreaterThanOrEqual(prev))
			prev = rounded
		}
	})

	t.Run("non-decreasing in rate", func(t *testing.T) {
		amount := bigFromString(t, "987654321987654321")
		rate := decimal.RequireFromString("0.01")
		prev := decimal.Zero
		for i := 0; i < 300; i++ {
			rate = rate.Add(decimal.New(rng.Int64N(10000), -3))
			value, err := FiatValue(amount, 18, rate)
			require.NoError(t, err)
			rounded := value.Round(2)
			assert.True(t, rounded.GreaterThanOrEqual(prev))
			prev = rounded
		}
	})
}

func TestParseRate(t *testing.T) {
	rate, err := ParseRate("150.25")
	require.NoError(t, err)
	assert.Equal(t, "150.25", rate.String())

	for _, bad := range []string{"", "abc", "0", "-1.5"} {
		_, err := ParseRate(bad)
		assert.ErrorIs(t, err, ErrInvalidRate, bad)
	}
}
