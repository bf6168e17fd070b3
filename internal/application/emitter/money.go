package emitter

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney normalizes the currency formats seen across supplier files
// ("$ 30.000", "1.234,56", "1,234,567.89") into a decimal value. When both
// separators appear, the last-occurring one is the decimal separator. A lone
// comma is decimal only when the trailing group has at most two digits. A
// lone dot is a thousands separator when every group after the first dot has
// exactly three digits. Anything unparseable yields zero.
func ParseMoney(raw string) decimal.Decimal {
	s := strings.NewReplacer("$", "", " ", "", " ", "").Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = replaceLast(s, ',')
		} else {
			s = strings.ReplaceAll(s, ",", "")
			s = replaceLast(s, '.')
		}
	case lastComma >= 0:
		if len(s)-lastComma-1 <= 2 {
			s = replaceLast(s, ',')
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if allGroupsOfThree(s) {
			s = strings.ReplaceAll(s, ".", "")
		} else if strings.Count(s, ".") > 1 {
			s = replaceLast(s, '.')
		}
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// replaceLast keeps only the last occurrence of sep, as the decimal point.
func replaceLast(s string, sep byte) string {
	last := strings.LastIndexByte(s, sep)
	head := strings.ReplaceAll(s[:last], string(sep), "")
	return head + "." + s[last+1:]
}

// allGroupsOfThree reports whether every dot-delimited group after the first
// has exactly three digits, i.e. the dots are thousands separators.
func allGroupsOfThree(s string) bool {
	groups := strings.Split(s, ".")
	if len(groups) < 2 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
