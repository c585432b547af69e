package parser

import (
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func optionsLeg(side Side, volume float64, totalUSD *float64) Leg {
	return Leg{
		Contract: "BTC-27DEC24-110000-C",
		Side:     side,
		Volume:   volume,
		Kind:     KindOptions,
		TotalUSD: totalUSD,
	}
}

func TestDeriveTwoLegNetPremium(t *testing.T) {
	trade := &ParsedTrade{
		Legs: []Leg{
			optionsLeg(SideLong, 100, f64(100000)),
			optionsLeg(SideShort, 100, f64(80000)),
		},
	}
	m := Derive(trade)
	if m.PremiumPaidUSD == nil || *m.PremiumPaidUSD != 100000 {
		t.Fatalf("premiumPaid = %v", m.PremiumPaidUSD)
	}
	if m.PremiumReceivedUSD == nil || *m.PremiumReceivedUSD != 80000 {
		t.Fatalf("premiumReceived = %v", m.PremiumReceivedUSD)
	}
	if m.NetPremiumUSD == nil || *m.NetPremiumUSD != -20000 {
		t.Fatalf("netPremium = %v", m.NetPremiumUSD)
	}
	if m.AbsNetPremiumUSD == nil || *m.AbsNetPremiumUSD != 20000 {
		t.Fatalf("absNetPremium = %v", m.AbsNetPremiumUSD)
	}
}

func TestDeriveVolumeAggregates(t *testing.T) {
	trade := &ParsedTrade{
		Legs: []Leg{
			optionsLeg(SideLong, 250, nil),
			optionsLeg(SideShort, 100, nil),
			{Contract: "BTC-PERPETUAL", Side: SideLong, Volume: 999, Kind: KindPerpetual},
		},
	}
	m := Derive(trade)
	if m.OptionsLegCount != 2 {
		t.Fatalf("optionsLegCount = %d", m.OptionsLegCount)
	}
	if m.OptionsVolumeSum != 350 {
		t.Fatalf("optionsVolumeSum = %v", m.OptionsVolumeSum)
	}
	if m.MaxLegVolume != 250 {
		t.Fatalf("maxLegVolume = %v", m.MaxLegVolume)
	}
}

func TestDeriveUnknownIsNotZero(t *testing.T) {
	// One long leg with a known total and no short legs at all: received is
	// unknown, so the net is undefined rather than 100000.
	trade := &ParsedTrade{
		Legs: []Leg{optionsLeg(SideLong, 10, f64(100000))},
	}
	m := Derive(trade)
	if m.PremiumPaidUSD == nil || *m.PremiumPaidUSD != 100000 {
		t.Fatalf("premiumPaid = %v", m.PremiumPaidUSD)
	}
	if m.PremiumReceivedUSD != nil {
		t.Fatalf("premiumReceived should be nil, got %v", *m.PremiumReceivedUSD)
	}
	if m.NetPremiumUSD != nil || m.AbsNetPremiumUSD != nil {
		t.Fatalf("net premium should be undefined")
	}
}

func TestDeriveLegConservation(t *testing.T) {
	texts := []string{
		callBuyMessage,
		"🟢 Bought 10.0x BTC-PERPETUAL\n🔴 Sold 5.0x BTC-27DEC24-110000-C",
		"🔴 Sold 40.0x ETH-28MAR25-4000-C",
	}
	for _, text := range texts {
		trade := Parse(text, 1, time.Now())
		m := Derive(&trade)
		if len(trade.Legs) != m.OptionsLegCount+len(trade.NonOptionsLegs()) {
			t.Fatalf("leg conservation broken for %q", text)
		}
		var sum float64
		for _, l := range trade.OptionsLegs() {
			sum += l.Volume
		}
		if sum != m.OptionsVolumeSum {
			t.Fatalf("volume sum mismatch for %q: %v vs %v", text, sum, m.OptionsVolumeSum)
		}
	}
}

func TestDeriveNetPremiumSymmetry(t *testing.T) {
	trade := &ParsedTrade{
		Legs: []Leg{
			optionsLeg(SideLong, 10, f64(50000)),
			optionsLeg(SideLong, 5, f64(25000)),
			optionsLeg(SideShort, 10, f64(90000)),
		},
	}
	m := Derive(trade)
	if m.NetPremiumUSD == nil {
		t.Fatalf("net premium undefined")
	}
	if *m.NetPremiumUSD != *m.PremiumReceivedUSD-*m.PremiumPaidUSD {
		t.Fatalf("symmetry broken: %v != %v - %v",
			*m.NetPremiumUSD, *m.PremiumReceivedUSD, *m.PremiumPaidUSD)
	}
	if *m.AbsNetPremiumUSD < 0 {
		t.Fatalf("abs net premium negative")
	}
}
