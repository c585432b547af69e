package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blockwatch/internal/config"
	"blockwatch/internal/models"
	"blockwatch/internal/parser"
	"blockwatch/internal/repository"
	"blockwatch/internal/resilience"
	"blockwatch/internal/spot"
)

// Generator runs one aggregation: fetch the window's messages, build the
// report, persist it through the ledger upsert. The upsert runs under the
// cross-process advisory lock and the bounded retry.
type Generator struct {
	Repo     repository.Repository
	Lock     *resilience.FileLock
	Resolver *spot.Resolver
	Logger   *zap.Logger

	Report config.ReportConfig
	Retry  config.RetryConfig
}

// Generate builds and persists the report for the window ending at the most
// recent anchor time.
func (g *Generator) Generate(ctx context.Context, now time.Time) (*models.DailyReport, error) {
	window, err := WindowFor(g.Report, now)
	if err != nil {
		return nil, err
	}
	return g.GenerateWindow(ctx, window)
}

// GenerateForDate builds and persists the report for one explicit date.
func (g *Generator) GenerateForDate(ctx context.Context, date string) (*models.DailyReport, error) {
	window, err := WindowForDate(g.Report, date)
	if err != nil {
		return nil, err
	}
	return g.GenerateWindow(ctx, window)
}

func (g *Generator) GenerateWindow(ctx context.Context, window Window) (*models.DailyReport, error) {
	messages, err := g.Repo.MessagesInRange(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("report: fetch window messages: %w", err)
	}
	blockTrades, err := g.Repo.BlockTradesInRange(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("report: fetch window block trades: %w", err)
	}
	beforeWindow, err := g.Repo.TaggedMessagesBefore(ctx, g.Resolver.SpotTag, window.Start, 20)
	if err != nil {
		return nil, fmt.Errorf("report: fetch pre-window tagged messages: %w", err)
	}
	// TaggedMessagesBefore returns newest first; the resolver expects
	// ascending order.
	reverse(beforeWindow)

	prices := g.Resolver.Resolve(messages, beforeWindow)
	rep := BuildReport(window, len(messages), blockTrades, prices, g.Report.TopN)

	payload, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("report: marshal payload for %s: %w", window.ReportDate, err)
	}

	row := &models.DailyReport{
		ReportDate:       window.ReportDate,
		StartTime:        window.Start,
		EndTime:          window.End,
		TotalMessages:    rep.TotalMessages,
		TotalBlockTrades: rep.TotalBlockTrades,
		BTCTradeCount:    rep.PerAsset[parser.AssetBTC].Count,
		BTCTotalVolume:   rep.PerAsset[parser.AssetBTC].VolumeSum,
		ETHTradeCount:    rep.PerAsset[parser.AssetETH].Count,
		ETHTotalVolume:   rep.PerAsset[parser.AssetETH].VolumeSum,
		BTCSpotPrice:     rep.SpotBTC,
		ETHSpotPrice:     rep.SpotETH,
		Payload:          payload,
	}

	err = g.Lock.WithLock(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, g.Logger, "report-upsert", g.Retry, func(ctx context.Context) error {
			return g.Repo.UpsertDailyReport(ctx, row)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("report: persist %s: %w", window.ReportDate, err)
	}

	g.Logger.Info("daily report generated",
		zap.String("report_date", window.ReportDate),
		zap.Int("total_messages", rep.TotalMessages),
		zap.Int("total_block_trades", rep.TotalBlockTrades),
		zap.String("spot_source", rep.SpotSource))
	return row, nil
}

// Backfill regenerates reports for an inclusive date range, capped at
// maxDays. Each regeneration resets that date's send state.
func (g *Generator) Backfill(ctx context.Context, fromDate, toDate string, maxDays int) (int, error) {
	loc, err := time.LoadLocation(g.Report.Timezone)
	if err != nil {
		return 0, fmt.Errorf("report: load timezone: %w", err)
	}
	from, err := time.ParseInLocation("2006-01-02", fromDate, loc)
	if err != nil {
		return 0, fmt.Errorf("report: parse backfill start %q: %w", fromDate, err)
	}
	to, err := time.ParseInLocation("2006-01-02", toDate, loc)
	if err != nil {
		return 0, fmt.Errorf("report: parse backfill end %q: %w", toDate, err)
	}
	if to.Before(from) {
		return 0, fmt.Errorf("report: backfill range %s..%s is inverted", fromDate, toDate)
	}
	if maxDays <= 0 {
		maxDays = 31
	}

	done := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if done >= maxDays {
			g.Logger.Warn("backfill day cap reached",
				zap.Int("max_days", maxDays),
				zap.String("stopped_at", day.Format("2006-01-02")))
			break
		}
		if _, err := g.GenerateForDate(ctx, day.Format("2006-01-02")); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
