package parser

import (
	"regexp"
	"strings"
)

var optionContractRe = regexp.MustCompile(`-\d+(?:\.\d+)?-[PC]$`)

// Classify maps a contract symbol to its instrument kind. The second return
// is true when the symbol hit the dated-contract default: a bare expiry like
// BTC-27MAR26 carries no explicit marker, so it is treated as a future and
// reported for logging.
func Classify(contract string) (LegKind, bool) {
	c := strings.ToUpper(strings.TrimSpace(contract))
	switch {
	case optionContractRe.MatchString(c):
		return KindOptions, false
	case strings.Contains(c, "PERPETUAL"), strings.Contains(c, "PERP"):
		return KindPerpetual, false
	case strings.Contains(c, "FUTURES"), strings.Contains(c, "FUT"):
		return KindFutures, false
	default:
		return KindFutures, true
	}
}
