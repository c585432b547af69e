package report

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"blockwatch/internal/config"
	"blockwatch/internal/models"
	"blockwatch/internal/resilience"
	"blockwatch/internal/spot"
)

func newGenerator(t *testing.T, repo *stubRepo) *Generator {
	t.Helper()
	return &Generator{
		Repo:     repo,
		Lock:     resilience.NewFileLock(filepath.Join(t.TempDir(), "reports.lock"), time.Second),
		Resolver: &spot.Resolver{SpotTag: "🏷️ Spot Prices", Logger: zap.NewNop()},
		Logger:   zap.NewNop(),
		Report:   reportConfig(),
		Retry: config.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		},
	}
}

func windowMessage(id int64, hour int, text string, block bool) models.Message {
	// Window for 2024-12-20 runs 2024-12-19 16:00 +08 to 2024-12-20 16:00 +08,
	// which is 08:00 UTC to 08:00 UTC.
	return models.Message{
		MessageID:    id,
		Date:         time.Date(2024, 12, 19, hour, 0, 0, 0, time.UTC),
		Text:         text,
		IsBlockTrade: block,
	}
}

func TestGenerateForDatePersistsReport(t *testing.T) {
	repo := newStubRepo(
		windowMessage(1, 9, "🏷️ Spot Prices\nBTC: $105,000.00\nETH: $3,456.78", false),
		windowMessage(2, 10, "🟢 Bought 250.0x BTC-27DEC24-110000-C at 0.0234 ₿ ($2,456.78)\nTotal Bought: 5.8500 ₿ ($614.20K)", true),
		windowMessage(3, 11, "🟢 Bought 40.0x ETH-28MAR25-4000-C at 0.0500 Ξ ($172.50)", true),
	)
	g := newGenerator(t, repo)

	row, err := g.GenerateForDate(context.Background(), "2024-12-20")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if row.ReportDate != "2024-12-20" {
		t.Fatalf("reportDate = %q", row.ReportDate)
	}
	if row.TotalMessages != 3 || row.TotalBlockTrades != 2 {
		t.Fatalf("totals = %d/%d", row.TotalMessages, row.TotalBlockTrades)
	}
	if row.BTCTradeCount != 1 || row.BTCTotalVolume != 250 {
		t.Fatalf("btc = %d/%v", row.BTCTradeCount, row.BTCTotalVolume)
	}
	if row.ETHTradeCount != 1 || row.ETHTotalVolume != 40 {
		t.Fatalf("eth = %d/%v", row.ETHTradeCount, row.ETHTotalVolume)
	}
	if row.BTCSpotPrice == nil || *row.BTCSpotPrice != 105000 {
		t.Fatalf("btc spot = %v", row.BTCSpotPrice)
	}

	stored, _ := repo.ReportByDate(context.Background(), "2024-12-20")
	if stored == nil || stored.IsSent {
		t.Fatalf("stored row = %+v", stored)
	}
	var payload Report
	if err := json.Unmarshal(stored.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.SpotSource != string(spot.SourceTagInWindow) {
		t.Fatalf("spot source = %q", payload.SpotSource)
	}
}

func TestGenerateRetriesTransientUpsert(t *testing.T) {
	repo := newStubRepo(
		windowMessage(1, 10, "🟢 Bought 10.0x BTC-27DEC24-110000-C", true),
	)
	repo.upsertErrs = []error{errors.New("database is locked")}
	g := newGenerator(t, repo)

	if _, err := g.GenerateForDate(context.Background(), "2024-12-20"); err != nil {
		t.Fatalf("transient upsert error must be retried away: %v", err)
	}
	if repo.upserts != 1 {
		t.Fatalf("upserts = %d", repo.upserts)
	}
}

func TestGenerateSurfacesNonTransientUpsert(t *testing.T) {
	repo := newStubRepo(
		windowMessage(1, 10, "🟢 Bought 10.0x BTC-27DEC24-110000-C", true),
	)
	boom := errors.New("no such table: daily_reports")
	repo.upsertErrs = []error{boom, boom, boom}
	g := newGenerator(t, repo)

	if _, err := g.GenerateForDate(context.Background(), "2024-12-20"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestBackfillCapsDays(t *testing.T) {
	repo := newStubRepo()
	g := newGenerator(t, repo)

	done, err := g.Backfill(context.Background(), "2024-12-01", "2024-12-10", 3)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if done != 3 {
		t.Fatalf("done = %d, want the cap", done)
	}
	if len(repo.reports) != 3 {
		t.Fatalf("reports = %d", len(repo.reports))
	}
}

func TestBackfillRejectsInvertedRange(t *testing.T) {
	g := newGenerator(t, newStubRepo())
	if _, err := g.Backfill(context.Background(), "2024-12-10", "2024-12-01", 0); err == nil {
		t.Fatalf("expected inverted-range error")
	}
}
