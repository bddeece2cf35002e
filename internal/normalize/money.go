package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"splitroom/pkg/models"
)

var plainNumber = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

// ParseMoney parses an amount written the European way ("1.234,56 €").
// When a comma is present, dots are thousands separators and the comma is
// the decimal mark. The result is rounded half away from zero to cents.
func ParseMoney(raw string) (models.Cents, bool) {
	s := strings.Map(func(r rune) rune {
		if r == '€' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	if !plainNumber.MatchString(s) {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return models.CentsFromDecimal(d), true
}

// FormatMoney renders c the European way ("1.234,56"), without a symbol.
func FormatMoney(c models.Cents) string {
	neg := c < 0
	if neg {
		c = -c
	}
	fixed := c.Decimal().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
