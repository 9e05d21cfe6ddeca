package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Dong rounds an amount to whole VND using half-up rounding.
func Dong(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// FormatVND renders an amount rounded to the dong with thousands separators, e.g. "20,000,000".
func FormatVND(d decimal.Decimal) string {
	s := Dong(d).StringFixed(0)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// MaxZero clamps negative amounts to zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
