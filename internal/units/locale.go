package units

import (
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Locale controls how fiat values are rendered.
type Locale struct {
	Symbol       string
	ThousandsSep string // empty disables grouping
	DecimalSep   string
}

// DefaultLocale renders US dollars, e.g. "$1,234.50".
var DefaultLocale = Locale{Symbol: "$", ThousandsSep: ",", DecimalSep: "."}

// Format rounds half away from zero to cents and renders the value.
// Negative values render as zero.
func (l Locale) Format(value decimal.Decimal) string {
	if value.IsNegative() {
		value = decimal.Zero
	}
	fixed := value.StringFixed(2)
	intStr, frac, _ := strings.Cut(fixed, ".")

	intPart, ok := new(big.Int).SetString(intStr, 10)
	if !ok {
		intPart = new(big.Int)
	}
	grouped := humanize.BigComma(intPart)
	if l.ThousandsSep != "," {
		grouped = strings.ReplaceAll(grouped, ",", l.ThousandsSep)
	}

	decSep := l.DecimalSep
	if decSep == "" {
		decSep = "."
	}
	return l.Symbol + grouped + decSep + frac
}

// Zero is the display string used in place of invalid amounts.
func (l Locale) Zero() string {
	return l.Format(decimal.Zero)
}
