package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"blockwatch/internal/config"
	"blockwatch/internal/notify"
	"blockwatch/internal/parser"
)

// Dispatcher is the real-time path: one stored block-trade message in, at
// most one combined notification out. Both rules firing on the same trade
// still produce a single notification.
type Dispatcher struct {
	Cfg      config.AlertConfig
	Notifier notify.Notifier
	Logger   *zap.Logger
}

func (d *Dispatcher) HandleBlockTrade(ctx context.Context, messageID int64, ts time.Time, text string) error {
	if !d.Cfg.Enabled {
		return nil
	}
	trade := parser.Parse(text, messageID, ts)
	for _, contract := range trade.FallbackContracts() {
		d.Logger.Warn("classify fallback",
			zap.String("contract", contract),
			zap.Int64("message_id", messageID))
	}

	metrics := parser.Derive(&trade)
	dec := Decide(&trade, metrics, d.Cfg, d.Logger)
	if !dec.Triggered {
		return nil
	}

	d.Logger.Info("alert triggered",
		zap.Int64("message_id", messageID),
		zap.String("asset", string(trade.Asset)),
		zap.Strings("reasons", reasonStrings(dec.Reasons)),
		zap.Float64("options_volume_sum", metrics.OptionsVolumeSum),
		zap.Float64("volume_threshold", dec.VolumeThresholdUsed))

	recipients := notify.RecipientsProd
	if d.Cfg.TestMode {
		recipients = notify.RecipientsTest
	}
	n := notify.Notification{
		Kind:       notify.KindRealtimeAlert,
		Subject:    subject(&trade, dec),
		Body:       body(&trade, metrics, dec),
		Recipients: recipients,
	}
	if err := d.Notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("alert: notify message %d: %w", messageID, err)
	}
	return nil
}

func subject(trade *parser.ParsedTrade, dec Decision) string {
	return fmt.Sprintf("Block trade alert: %s %s [%s]",
		trade.Asset, trade.StrategyTitle, strings.Join(reasonStrings(dec.Reasons), "+"))
}

func body(trade *parser.ParsedTrade, m parser.DerivedMetrics, dec Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Asset: %s\n", trade.Asset)
	fmt.Fprintf(&b, "Exchange: %s\n", trade.Exchange)
	if trade.StrategyTitle != "" {
		fmt.Fprintf(&b, "Strategy: %s\n", trade.StrategyTitle)
	}
	fmt.Fprintf(&b, "Options legs: %d, volume sum: %.2f (threshold %.2f)\n",
		m.OptionsLegCount, m.OptionsVolumeSum, dec.VolumeThresholdUsed)
	if m.AbsNetPremiumUSD != nil {
		fmt.Fprintf(&b, "Net premium: $%.2f (threshold $%.2f)\n",
			*m.NetPremiumUSD, dec.PremiumThresholdUsed)
	}
	if trade.SpotRefUSD != nil {
		fmt.Fprintf(&b, "Spot ref: $%.2f\n", *trade.SpotRefUSD)
	}
	fmt.Fprintf(&b, "Reasons: %s\n", strings.Join(reasonStrings(dec.Reasons), ", "))
	fmt.Fprintf(&b, "Source message: %d at %s\n",
		trade.SourceMessageID, trade.Timestamp.UTC().Format(time.RFC3339))
	return b.String()
}

func reasonStrings(reasons []Reason) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, string(r))
	}
	return out
}
