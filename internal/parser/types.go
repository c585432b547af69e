package parser

import "time"

type Asset string

const (
	AssetBTC     Asset = "BTC"
	AssetETH     Asset = "ETH"
	AssetUnknown Asset = "UNKNOWN"
)

type Side string

const (
	SideLong    Side = "LONG"
	SideShort   Side = "SHORT"
	SideUnknown Side = "UNKNOWN"
)

type LegKind string

const (
	KindOptions   LegKind = "OPTIONS"
	KindFutures   LegKind = "FUTURES"
	KindPerpetual LegKind = "PERPETUAL"
)

// Leg is one Bought/Sold clause plus its trailing detail lines. Optional
// numeric fields are nil when the message did not carry them; nil means
// unknown, never zero.
type Leg struct {
	Contract string
	Side     Side
	Volume   float64
	Kind     LegKind

	// True when the classifier fell through to the dated-contract default.
	KindFallback bool

	PriceNative *float64
	PriceUSD    *float64
	TotalNative *float64
	TotalUSD    *float64
	ImpliedVol  *float64
	RefSpotUSD  *float64

	Bid     *float64
	BidSize *float64
	Mark    *float64
	Ask     *float64
	AskSize *float64
}

// Greeks holds the risk sensitivities scanned from the message body.
type Greeks struct {
	Delta *float64
	Gamma *float64
	Vega  *float64
	Theta *float64
	Rho   *float64
}

// ParsedTrade is the structured view of one broadcast message. Parsing never
// fails; fields the grammar did not yield stay at their unknown values.
type ParsedTrade struct {
	Asset         Asset
	Exchange      string
	StrategyTitle string
	Side          Side
	Legs          []Leg
	SpotRefUSD    *float64
	Greeks        Greeks

	SourceMessageID int64
	Timestamp       time.Time
}

// OptionsLegs returns the legs classified OPTIONS, in message order.
func (t *ParsedTrade) OptionsLegs() []Leg {
	var out []Leg
	for _, l := range t.Legs {
		if l.Kind == KindOptions {
			out = append(out, l)
		}
	}
	return out
}

// NonOptionsLegs returns futures and perpetual legs, in message order.
func (t *ParsedTrade) NonOptionsLegs() []Leg {
	var out []Leg
	for _, l := range t.Legs {
		if l.Kind != KindOptions {
			out = append(out, l)
		}
	}
	return out
}

func (t *ParsedTrade) HasOptions() bool {
	for _, l := range t.Legs {
		if l.Kind == KindOptions {
			return true
		}
	}
	return false
}

// FallbackContracts lists contracts whose classification hit the dated
// default, so callers can log them for review.
func (t *ParsedTrade) FallbackContracts() []string {
	var out []string
	for _, l := range t.Legs {
		if l.KindFallback {
			out = append(out, l.Contract)
		}
	}
	return out
}
