package parser

import (
	"regexp"
	"strings"
	"time"
)

var (
	boldTitleRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

	// Exchanges seen on the broadcast feed. Matching is a plain scan; the
	// feed always names the venue in the body or footer.
	knownExchanges = []string{"Deribit", "OKX", "Binance", "Bybit"}

	greekPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"delta", regexp.MustCompile(`(?i)(?:Δ|\bDelta)\s*:?\s*(-?\$?[\d.,]+[KMBkmb]?)`)},
		{"gamma", regexp.MustCompile(`(?i)(?:Γ|\bGamma)\s*:?\s*(-?\$?[\d.,]+[KMBkmb]?)`)},
		{"vega", regexp.MustCompile(`(?i)(?:ν|\bVega)\s*:?\s*(-?\$?[\d.,]+[KMBkmb]?)`)},
		{"theta", regexp.MustCompile(`(?i)(?:Θ|\bTheta)\s*:?\s*(-?\$?[\d.,]+[KMBkmb]?)`)},
		{"rho", regexp.MustCompile(`(?i)(?:ρ|\bRho)\s*:?\s*(-?\$?[\d.,]+[KMBkmb]?)`)},
	}
)

// Parse turns one broadcast message into a ParsedTrade. It never fails:
// anything the grammar does not yield stays unknown, so one malformed
// message cannot halt the pipeline.
func Parse(text string, sourceMessageID int64, ts time.Time) ParsedTrade {
	trade := ParsedTrade{
		Asset:           detectAsset(text),
		Exchange:        detectExchange(text),
		SourceMessageID: sourceMessageID,
		Timestamp:       ts,
	}

	if m := boldTitleRe.FindStringSubmatch(text); m != nil {
		trade.StrategyTitle = strings.TrimSpace(m[1])
	}
	trade.Side = detectSide(trade.StrategyTitle, text)

	legs := ExtractLegs(text)
	for i := range legs {
		legs[i].Kind, legs[i].KindFallback = Classify(legs[i].Contract)
	}
	trade.Legs = legs

	trade.Greeks = scanGreeks(text)
	trade.SpotRefUSD = resolveSpotRef(legs, text)
	return trade
}

func detectAsset(text string) Asset {
	upper := strings.ToUpper(text)
	btc := strings.Index(upper, "BTC")
	eth := strings.Index(upper, "ETH")
	switch {
	case btc < 0 && eth < 0:
		return AssetUnknown
	case eth < 0, btc >= 0 && btc < eth:
		return AssetBTC
	default:
		return AssetETH
	}
}

func detectExchange(text string) string {
	for _, ex := range knownExchanges {
		if strings.Contains(strings.ToLower(text), strings.ToLower(ex)) {
			return ex
		}
	}
	return ""
}

// detectSide prefers an explicit LONG/SHORT token in the strategy header
// over the Bought/Sold verbs of the leg clauses.
func detectSide(title, text string) Side {
	upperTitle := strings.ToUpper(title)
	if strings.Contains(upperTitle, "LONG") {
		return SideLong
	}
	if strings.Contains(upperTitle, "SHORT") {
		return SideShort
	}
	lower := strings.ToLower(text)
	boughtAt := strings.Index(lower, "bought")
	soldAt := strings.Index(lower, "sold")
	switch {
	case boughtAt < 0 && soldAt < 0:
		return SideUnknown
	case soldAt < 0, boughtAt >= 0 && boughtAt < soldAt:
		return SideLong
	default:
		return SideShort
	}
}

func scanGreeks(text string) Greeks {
	var g Greeks
	for _, p := range greekPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := ParseAmount(m[1])
		if err != nil {
			continue
		}
		val := v
		switch p.name {
		case "delta":
			g.Delta = &val
		case "gamma":
			g.Gamma = &val
		case "vega":
			g.Vega = &val
		case "theta":
			g.Theta = &val
		case "rho":
			g.Rho = &val
		}
	}
	return g
}

// resolveSpotRef prefers the last Ref value carried by an options leg (the
// most instrument-specific one), then falls back to any Ref in the text.
func resolveSpotRef(legs []Leg, text string) *float64 {
	var ref *float64
	for _, l := range legs {
		if l.Kind == KindOptions && l.RefSpotUSD != nil {
			ref = l.RefSpotUSD
		}
	}
	if ref != nil {
		return ref
	}
	if m := refRe.FindStringSubmatch(text); m != nil {
		if v, err := ParseAmount(m[1]); err == nil {
			return &v
		}
	}
	return nil
}
