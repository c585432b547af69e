package report

import (
	"fmt"
	"sort"
	"time"

	"blockwatch/internal/models"
	"blockwatch/internal/parser"
	"blockwatch/internal/spot"
)

type AssetStats struct {
	Count     int     `json:"count"`
	VolumeSum float64 `json:"volume_sum"`
	Avg       float64 `json:"avg"`
	Max       float64 `json:"max"`
}

// RankedTrade is the flattened leaderboard view of one trade.
type RankedTrade struct {
	Rank          int       `json:"rank"`
	MessageID     int64     `json:"message_id"`
	Timestamp     time.Time `json:"timestamp"`
	StrategyTitle string    `json:"strategy_title,omitempty"`
	Contracts     []string  `json:"contracts,omitempty"`
	VolumeSum     float64   `json:"volume_sum"`
	AmountUSD     *float64  `json:"amount_usd,omitempty"`
	AlsoIn        string    `json:"also_in,omitempty"`
}

// Report is the aggregate over one window. It is rebuilt from scratch on
// every run and serialized whole into the ledger row payload.
type Report struct {
	ReportDate string    `json:"report_date"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Timezone   string    `json:"timezone"`

	TotalMessages    int `json:"total_messages"`
	TotalBlockTrades int `json:"total_block_trades"`

	PerAsset    map[parser.Asset]AssetStats    `json:"per_asset"`
	TopByVolume map[parser.Asset][]RankedTrade `json:"top_by_volume"`
	TopByAmount map[parser.Asset][]RankedTrade `json:"top_by_amount"`

	SpotBTC        *float64 `json:"spot_btc,omitempty"`
	SpotETH        *float64 `json:"spot_eth,omitempty"`
	SpotSource     string   `json:"spot_source"`
	SpotSourceMsg  *int64   `json:"spot_source_message_id,omitempty"`
	FallbackCount  int      `json:"classify_fallback_count,omitempty"`
}

// aggregatedTrade pairs a parsed trade with its derived metrics so the
// sorting passes do not recompute them.
type aggregatedTrade struct {
	trade   parser.ParsedTrade
	metrics parser.DerivedMetrics
	amount  *float64
}

// BuildReport aggregates the window's block trades. Statistics and both
// rankings cover only OPTIONS-bearing trades on a known asset; perpetual
// and futures-only trades count toward the raw block-trade total and
// nothing else. blockTrades must be ordered by date ascending so that ties
// resolve to the earlier trade.
func BuildReport(window Window, totalMessages int, blockTrades []models.Message, prices spot.Prices, topN int) Report {
	if topN <= 0 {
		topN = 3
	}
	rep := Report{
		ReportDate:       window.ReportDate,
		Start:            window.Start,
		End:              window.End,
		Timezone:         window.Timezone,
		TotalMessages:    totalMessages,
		TotalBlockTrades: len(blockTrades),
		PerAsset:         map[parser.Asset]AssetStats{},
		TopByVolume:      map[parser.Asset][]RankedTrade{},
		TopByAmount:      map[parser.Asset][]RankedTrade{},
		SpotBTC:          prices.BTC,
		SpotETH:          prices.ETH,
		SpotSource:       string(prices.Source),
		SpotSourceMsg:    prices.SourceMessageID,
	}

	byAsset := map[parser.Asset][]aggregatedTrade{}
	for _, msg := range blockTrades {
		trade := parser.Parse(msg.Text, msg.MessageID, msg.Date)
		rep.FallbackCount += len(trade.FallbackContracts())
		metrics := parser.Derive(&trade)
		if metrics.OptionsLegCount == 0 {
			continue
		}
		if trade.Asset != parser.AssetBTC && trade.Asset != parser.AssetETH {
			continue
		}
		byAsset[trade.Asset] = append(byAsset[trade.Asset], aggregatedTrade{
			trade:   trade,
			metrics: metrics,
			amount:  optionsAmountUSD(&trade),
		})
	}

	for asset, trades := range byAsset {
		stats := AssetStats{Count: len(trades)}
		for _, at := range trades {
			stats.VolumeSum += at.metrics.OptionsVolumeSum
			if at.metrics.OptionsVolumeSum > stats.Max {
				stats.Max = at.metrics.OptionsVolumeSum
			}
		}
		if stats.Count > 0 {
			stats.Avg = stats.VolumeSum / float64(stats.Count)
		}
		rep.PerAsset[asset] = stats

		rep.TopByVolume[asset] = rankByVolume(trades, topN)
		rep.TopByAmount[asset] = rankByAmount(trades, topN)
		crossReference(rep.TopByVolume[asset], rep.TopByAmount[asset])
	}
	return rep
}

// optionsAmountUSD sums the known OPTIONS-leg USD totals. Nil when no leg
// carried one; a trade without a known amount stays out of the amount
// ranking rather than ranking as zero.
func optionsAmountUSD(trade *parser.ParsedTrade) *float64 {
	var sum float64
	known := false
	for _, l := range trade.Legs {
		if l.Kind == parser.KindOptions && l.TotalUSD != nil {
			sum += *l.TotalUSD
			known = true
		}
	}
	if !known {
		return nil
	}
	return &sum
}

func rankByVolume(trades []aggregatedTrade, topN int) []RankedTrade {
	idx := make([]int, len(trades))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return trades[idx[a]].metrics.OptionsVolumeSum > trades[idx[b]].metrics.OptionsVolumeSum
	})
	return takeRanked(trades, idx, topN)
}

func rankByAmount(trades []aggregatedTrade, topN int) []RankedTrade {
	var idx []int
	for i, at := range trades {
		if at.amount != nil && *at.amount > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return *trades[idx[a]].amount > *trades[idx[b]].amount
	})
	return takeRanked(trades, idx, topN)
}

func takeRanked(trades []aggregatedTrade, idx []int, topN int) []RankedTrade {
	if len(idx) > topN {
		idx = idx[:topN]
	}
	out := make([]RankedTrade, 0, len(idx))
	for rank, i := range idx {
		at := trades[i]
		var contracts []string
		for _, l := range at.trade.Legs {
			contracts = append(contracts, l.Contract)
		}
		out = append(out, RankedTrade{
			Rank:          rank + 1,
			MessageID:     at.trade.SourceMessageID,
			Timestamp:     at.trade.Timestamp,
			StrategyTitle: at.trade.StrategyTitle,
			Contracts:     contracts,
			VolumeSum:     at.metrics.OptionsVolumeSum,
			AmountUSD:     at.amount,
		})
	}
	return out
}

// crossReference tags trades present in both rankings with their rank in
// the other one.
func crossReference(byVolume, byAmount []RankedTrade) {
	volRank := map[int64]int{}
	for _, rt := range byVolume {
		volRank[rt.MessageID] = rt.Rank
	}
	amtRank := map[int64]int{}
	for _, rt := range byAmount {
		amtRank[rt.MessageID] = rt.Rank
	}
	for i := range byVolume {
		if r, ok := amtRank[byVolume[i].MessageID]; ok {
			byVolume[i].AlsoIn = fmt.Sprintf("also ranked #%d by amount", r)
		}
	}
	for i := range byAmount {
		if r, ok := volRank[byAmount[i].MessageID]; ok {
			byAmount[i].AlsoIn = fmt.Sprintf("also ranked #%d by volume", r)
		}
	}
}
