package alert

import (
	"strings"

	"go.uber.org/zap"

	"blockwatch/internal/config"
	"blockwatch/internal/parser"
)

type Reason string

const (
	ReasonVolume  Reason = "volume"
	ReasonPremium Reason = "premium"
)

// Decision is the outcome of evaluating one trade against the thresholds.
// Ephemeral; produced once per evaluation and never persisted.
type Decision struct {
	Triggered            bool
	Reasons              []Reason
	VolumeThresholdUsed  float64
	PremiumThresholdUsed float64
}

func (d Decision) Has(r Reason) bool {
	for _, got := range d.Reasons {
		if got == r {
			return true
		}
	}
	return false
}

// Decide evaluates the volume and premium rules for one trade. Guard
// clauses short-circuit first: a trade with no options legs, on the wrong
// exchange, or on an unknown asset never triggers.
func Decide(trade *parser.ParsedTrade, m parser.DerivedMetrics, cfg config.AlertConfig, logger *zap.Logger) Decision {
	if m.OptionsLegCount == 0 {
		return Decision{}
	}
	if !strings.EqualFold(trade.Exchange, cfg.MonitoredExchange) {
		return Decision{}
	}
	if trade.Asset != parser.AssetBTC && trade.Asset != parser.AssetETH {
		return Decision{}
	}

	volumeThreshold := resolveVolumeThreshold(trade.Asset, cfg, logger)
	dec := Decision{
		VolumeThresholdUsed:  volumeThreshold,
		PremiumThresholdUsed: cfg.PremiumUSD,
	}
	if m.OptionsVolumeSum > volumeThreshold {
		dec.Reasons = append(dec.Reasons, ReasonVolume)
	}
	if m.AbsNetPremiumUSD != nil && *m.AbsNetPremiumUSD >= cfg.PremiumUSD {
		dec.Reasons = append(dec.Reasons, ReasonPremium)
	}
	dec.Triggered = len(dec.Reasons) > 0
	return dec
}

// resolveVolumeThreshold picks the per-asset threshold. The ETH test-mode
// override is logged so operators can tell a test alert from a production
// one after the fact.
func resolveVolumeThreshold(asset parser.Asset, cfg config.AlertConfig, logger *zap.Logger) float64 {
	if asset == parser.AssetBTC {
		return cfg.BTCVolumeThreshold
	}
	if cfg.TestMode {
		if logger != nil {
			logger.Info("eth volume threshold resolved in test mode",
				zap.Float64("threshold", cfg.ETHVolumeTest),
				zap.Float64("production_threshold", cfg.ETHVolumeThreshold))
		}
		return cfg.ETHVolumeTest
	}
	return cfg.ETHVolumeThreshold
}
