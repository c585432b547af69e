package parser

import (
	"regexp"
	"strings"
)

var (
	legStartRe = regexp.MustCompile(`(?i)\b(Bought|Sold)\s+([\d.,]+)x\s+.*?\b((?:BTC|ETH)-[\w-]+)`)
	priceRe    = regexp.MustCompile(`(?i)\bat\s+([\d.,]+)\s*([₿Ξ])\s*\(\s*(\$[\d.,]+[KMBkmb]?)\s*\)`)
	totalRe    = regexp.MustCompile(`(?i)Total\s+(?:Bought|Sold):\s*([\d.,]+)\s*[₿Ξ]?\s*\(\s*(\$[\d.,]+[KMBkmb]?)\s*\)`)
	ivRe       = regexp.MustCompile(`(?i)(?:\*\*IV\*\*|\bIV):\s*([\d.,]+)\s*%?`)
	refRe      = regexp.MustCompile(`(?i)(?:\*\*Ref\*\*|\bRef):\s*(\$?[\d.,]+[KMBkmb]?)`)

	quoteBidRe  = regexp.MustCompile(`(?i)\bbid:?\s*\$?([\d.,]+)(?:\s*\(\s*([\d.,]+)\s*x?\s*\))?`)
	quoteMarkRe = regexp.MustCompile(`(?i)\bmark:?\s*\$?([\d.,]+)`)
	quoteAskRe  = regexp.MustCompile(`(?i)\bask:?\s*\$?([\d.,]+)(?:\s*\(\s*([\d.,]+)\s*x?\s*\))?`)
)

// legBuilder is the in-progress leg between a Bought/Sold line and the line
// that closes it. finalize moves it into the output exactly once.
type legBuilder struct {
	leg    Leg
	open   bool
	closed bool
}

func (b *legBuilder) start(side Side, volume float64, contract string) {
	b.leg = Leg{Contract: contract, Side: side, Volume: volume}
	b.open = true
	b.closed = false
}

func (b *legBuilder) finalize(out []Leg) []Leg {
	if !b.open {
		return out
	}
	out = append(out, b.leg)
	b.open = false
	b.closed = false
	return out
}

// ExtractLegs scans the message line by line and returns one Leg per
// Bought/Sold clause. Detail lines between one clause and the next (price,
// total, IV, Ref, quote) attach to the current leg; a quote line carrying
// bid, mark and ask closes the leg so stray trailing numbers cannot attach.
// A clause whose volume token does not parse is skipped entirely.
func ExtractLegs(text string) []Leg {
	var (
		out []Leg
		b   legBuilder
	)
	for _, line := range strings.Split(text, "\n") {
		if m := legStartRe.FindStringSubmatch(line); m != nil {
			vol, err := ParseAmount(m[2])
			if err != nil || vol <= 0 {
				continue
			}
			out = b.finalize(out)
			side := SideLong
			if strings.EqualFold(m[1], "Sold") {
				side = SideShort
			}
			b.start(side, vol, m[3])
			// A single line can carry the clause and its price.
		}
		if !b.open || b.closed {
			continue
		}
		if m := priceRe.FindStringSubmatch(line); m != nil {
			if v, err := ParseAmount(m[1]); err == nil {
				b.leg.PriceNative = &v
			}
			if v, err := ParseAmount(m[3]); err == nil {
				b.leg.PriceUSD = &v
			}
		}
		if m := totalRe.FindStringSubmatch(line); m != nil {
			if v, err := ParseAmount(m[1]); err == nil {
				b.leg.TotalNative = &v
			}
			if v, err := ParseAmount(m[2]); err == nil {
				b.leg.TotalUSD = &v
			}
		}
		if m := ivRe.FindStringSubmatch(line); m != nil {
			if v, err := ParseAmount(m[1]); err == nil {
				b.leg.ImpliedVol = &v
			}
		}
		if m := refRe.FindStringSubmatch(line); m != nil {
			if v, err := ParseAmount(m[1]); err == nil {
				b.leg.RefSpotUSD = &v
			}
		}
		if isQuoteLine(line) {
			applyQuote(&b.leg, line)
			b.closed = true
		}
	}
	return b.finalize(out)
}

func isQuoteLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "bid") &&
		strings.Contains(lower, "mark") &&
		strings.Contains(lower, "ask")
}

func applyQuote(leg *Leg, line string) {
	if m := quoteBidRe.FindStringSubmatch(line); m != nil {
		if v, err := ParseAmount(m[1]); err == nil {
			leg.Bid = &v
		}
		if m[2] != "" {
			if v, err := ParseAmount(m[2]); err == nil {
				leg.BidSize = &v
			}
		}
	}
	if m := quoteMarkRe.FindStringSubmatch(line); m != nil {
		if v, err := ParseAmount(m[1]); err == nil {
			leg.Mark = &v
		}
	}
	if m := quoteAskRe.FindStringSubmatch(line); m != nil {
		if v, err := ParseAmount(m[1]); err == nil {
			leg.Ask = &v
		}
		if m[2] != "" {
			if v, err := ParseAmount(m[2]); err == nil {
				leg.AskSize = &v
			}
		}
	}
}
