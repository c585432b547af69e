package repository

import (
	"context"
	"time"

	"blockwatch/internal/models"
)

// MessageStats is the ops-surface summary of the message store.
type MessageStats struct {
	TotalMessages    int64      `json:"total_messages"`
	TotalBlockTrades int64      `json:"total_block_trades"`
	LatestMessageAt  *time.Time `json:"latest_message_at,omitempty"`
	OldestMessageAt  *time.Time `json:"oldest_message_at,omitempty"`
}

// Repository is the persistence boundary consumed by the pipeline. Every
// method opens and closes its own unit of work; nothing holds the store
// across suspension points.
type Repository interface {
	// SaveMessage inserts a message, reporting false when the external
	// message id was already stored.
	SaveMessage(ctx context.Context, msg *models.Message) (bool, error)
	MessagesInRange(ctx context.Context, start, end time.Time) ([]models.Message, error)
	BlockTradesInRange(ctx context.Context, start, end time.Time) ([]models.Message, error)
	// TaggedMessagesBefore returns the newest messages containing tag with
	// Date < before, newest first, capped at limit.
	TaggedMessagesBefore(ctx context.Context, tag string, before time.Time, limit int) ([]models.Message, error)
	MessageStats(ctx context.Context) (MessageStats, error)

	// UpsertDailyReport creates or overwrites the row for its report date and
	// resets the send state to pending.
	UpsertDailyReport(ctx context.Context, row *models.DailyReport) error
	PendingReports(ctx context.Context) ([]models.DailyReport, error)
	ReportByDate(ctx context.Context, date string) (*models.DailyReport, error)
	LatestReport(ctx context.Context) (*models.DailyReport, error)
	// MarkReportSent atomically transitions the row for date to sent.
	MarkReportSent(ctx context.Context, date string, at time.Time) error
}
