package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"blockwatch/internal/models"
	"blockwatch/internal/notify"
	"blockwatch/internal/repository"
)

// Ledger owns the send side of the delivery record. The aggregator writes
// rows (and resets their send state); only this type flips them to sent.
type Ledger struct {
	Repo       repository.Repository
	Notifier   notify.Notifier
	Logger     *zap.Logger
	Recipients notify.RecipientsClass
}

// SelectSendCandidate returns the newest pending report and the remaining
// pending backlog. Backlog rows are never sent by the send check; once a
// newer report exists, older unsent ones are held back on purpose.
func (l *Ledger) SelectSendCandidate(ctx context.Context) (*models.DailyReport, []models.DailyReport, error) {
	pending, err := l.Repo.PendingReports(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: list pending reports: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil, nil
	}
	return &pending[0], pending[1:], nil
}

// SendPending runs one send check: pick the newest pending report, notify,
// mark sent. A notify failure leaves the row pending for the next cycle. A
// commit failure after a successful send is surfaced loudly; the next cycle
// may resend that date.
func (l *Ledger) SendPending(ctx context.Context) error {
	candidate, backlog, err := l.SelectSendCandidate(ctx)
	if err != nil {
		return err
	}
	if candidate == nil {
		l.Logger.Debug("no pending reports")
		return nil
	}
	for _, row := range backlog {
		l.Logger.Info("pending report held back as backlog",
			zap.String("report_date", row.ReportDate),
			zap.String("newer_pending", candidate.ReportDate))
	}

	n := notify.Notification{
		Kind:       notify.KindDailyReport,
		Subject:    fmt.Sprintf("Daily block trade report %s", candidate.ReportDate),
		Body:       renderBody(candidate),
		Recipients: l.Recipients,
	}
	if err := l.Notifier.Notify(ctx, n); err != nil {
		l.Logger.Error("report send failed, row stays pending",
			zap.String("report_date", candidate.ReportDate),
			zap.Error(err))
		return fmt.Errorf("ledger: send report %s: %w", candidate.ReportDate, err)
	}

	if err := l.Repo.MarkReportSent(ctx, candidate.ReportDate, time.Now().UTC()); err != nil {
		l.Logger.Error("report sent but mark-sent commit failed; next cycle may resend",
			zap.String("report_date", candidate.ReportDate),
			zap.Error(err))
		return fmt.Errorf("ledger: report %s sent but commit failed: %w", candidate.ReportDate, err)
	}

	l.Logger.Info("daily report sent",
		zap.String("report_date", candidate.ReportDate),
		zap.Int("backlog", len(backlog)))
	return nil
}

func renderBody(row *models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report date: %s\n", row.ReportDate)
	fmt.Fprintf(&b, "Window: %s .. %s\n",
		row.StartTime.Format(time.RFC3339), row.EndTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "Messages: %d, block trades: %d\n",
		row.TotalMessages, row.TotalBlockTrades)
	fmt.Fprintf(&b, "BTC: %d options trades, volume %.2f\n",
		row.BTCTradeCount, row.BTCTotalVolume)
	fmt.Fprintf(&b, "ETH: %d options trades, volume %.2f\n",
		row.ETHTradeCount, row.ETHTotalVolume)
	if row.BTCSpotPrice != nil {
		fmt.Fprintf(&b, "BTC spot: $%.2f\n", *row.BTCSpotPrice)
	}
	if row.ETHSpotPrice != nil {
		fmt.Fprintf(&b, "ETH spot: $%.2f\n", *row.ETHSpotPrice)
	}
	if len(row.Payload) > 0 {
		fmt.Fprintf(&b, "\n%s\n", string(row.Payload))
	}
	return b.String()
}
