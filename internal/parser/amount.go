package parser

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedAmount reports a token with no usable numeric remainder after
// glyph stripping. Callers treat it as "field absent", never fatal.
var ErrMalformedAmount = errors.New("parser: malformed amount")

var amountReplacer = strings.NewReplacer(
	",", "",
	"$", "",
	"₿", "",
	"Ξ", "",
	"%", "",
	"(", "",
	")", "",
	"*", "",
)

// ParseAmount parses a locale-formatted numeric token such as "$614.20K",
// "1,234.5" or "0.0234 ₿" into a float. A trailing K/M/B suffix multiplies
// the parsed mantissa by 1e3/1e6/1e9. The multiplication runs on an exact
// decimal so "614.20K" comes out as 614200, not 614199.99....
func ParseAmount(token string) (float64, error) {
	s := strings.TrimSpace(amountReplacer.Replace(token))
	if s == "" {
		return 0, ErrMalformedAmount
	}

	mult := decimal.NewFromInt(1)
	switch last := s[len(s)-1]; last {
	case 'K', 'k':
		mult = decimal.NewFromInt(1_000)
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = decimal.NewFromInt(1_000_000)
		s = s[:len(s)-1]
	case 'B', 'b':
		mult = decimal.NewFromInt(1_000_000_000)
		s = s[:len(s)-1]
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "+" || s == "-" {
		return 0, ErrMalformedAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrMalformedAmount
	}
	f, _ := d.Mul(mult).Float64()
	return f, nil
}
