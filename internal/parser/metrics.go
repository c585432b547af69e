package parser

// DerivedMetrics aggregates a trade's options legs. Premium fields are nil
// when no leg carried a known USD total for that side; "zero paid" and
// "no idea what was paid" are different answers.
type DerivedMetrics struct {
	OptionsVolumeSum float64
	OptionsLegCount  int
	MaxLegVolume     float64

	PremiumPaidUSD     *float64
	PremiumReceivedUSD *float64
	NetPremiumUSD      *float64
	AbsNetPremiumUSD   *float64
}

// Derive computes the aggregate metrics over a trade's OPTIONS legs. It is a
// pure function of the legs; callers recompute it rather than persisting it.
func Derive(trade *ParsedTrade) DerivedMetrics {
	var m DerivedMetrics
	var paid, received float64
	var paidKnown, receivedKnown bool

	for _, l := range trade.Legs {
		if l.Kind != KindOptions {
			continue
		}
		m.OptionsLegCount++
		m.OptionsVolumeSum += l.Volume
		if l.Volume > m.MaxLegVolume {
			m.MaxLegVolume = l.Volume
		}
		if l.TotalUSD == nil {
			continue
		}
		switch l.Side {
		case SideLong:
			paid += *l.TotalUSD
			paidKnown = true
		case SideShort:
			received += *l.TotalUSD
			receivedKnown = true
		}
	}

	if paidKnown {
		m.PremiumPaidUSD = &paid
	}
	if receivedKnown {
		m.PremiumReceivedUSD = &received
	}
	if paidKnown && receivedKnown {
		net := received - paid
		m.NetPremiumUSD = &net
		abs := net
		if abs < 0 {
			abs = -abs
		}
		m.AbsNetPremiumUSD = &abs
	}
	return m
}
