package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blockwatch/internal/models"
	"blockwatch/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) (bool, error) {
	if s == nil || s.db == nil || msg == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoNothing: true,
	}).Create(msg)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) MessagesInRange(ctx context.Context, start, end time.Time) ([]models.Message, error) {
	return s.messagesInRange(ctx, start, end, false)
}

func (s *Store) BlockTradesInRange(ctx context.Context, start, end time.Time) ([]models.Message, error) {
	return s.messagesInRange(ctx, start, end, true)
}

func (s *Store) messagesInRange(ctx context.Context, start, end time.Time, blockOnly bool) ([]models.Message, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Where("date >= ?", start).
		Where("date < ?", end)
	if blockOnly {
		query = query.Where("is_block_trade = ?", true)
	}
	var items []models.Message
	if err := query.Order("date ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) TaggedMessagesBefore(ctx context.Context, tag string, before time.Time, limit int) ([]models.Message, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if strings.TrimSpace(tag) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var items []models.Message
	err := s.db.WithContext(ctx).
		Where("date < ?", before).
		Where("text LIKE ?", "%"+tag+"%").
		Order("date DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MessageStats(ctx context.Context) (repository.MessageStats, error) {
	var stats repository.MessageStats
	if s == nil || s.db == nil {
		return stats, nil
	}
	q := s.db.WithContext(ctx).Model(&models.Message{})
	if err := q.Count(&stats.TotalMessages).Error; err != nil {
		return stats, err
	}
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("is_block_trade = ?", true).
		Count(&stats.TotalBlockTrades).Error
	if err != nil {
		return stats, err
	}
	var newest, oldest models.Message
	if err := s.db.WithContext(ctx).Order("date DESC").First(&newest).Error; err == nil {
		stats.LatestMessageAt = &newest.Date
	}
	if err := s.db.WithContext(ctx).Order("date ASC").First(&oldest).Error; err == nil {
		stats.OldestMessageAt = &oldest.Date
	}
	return stats, nil
}

func (s *Store) UpsertDailyReport(ctx context.Context, row *models.DailyReport) error {
	if s == nil || s.db == nil || row == nil {
		return nil
	}
	if strings.TrimSpace(row.ReportDate) == "" {
		return errors.New("repository: report date required")
	}
	// Regeneration always resets the send state; an already-sent date that is
	// rebuilt becomes pending again and will be resent.
	row.IsSent = false
	row.SentAt = nil
	row.CreatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "report_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"start_time", "end_time",
			"total_messages", "total_block_trades",
			"btc_trade_count", "btc_total_volume",
			"eth_trade_count", "eth_total_volume",
			"btc_spot_price", "eth_spot_price",
			"payload", "is_sent", "sent_at", "created_at",
		}),
	}).Create(row).Error
}

func (s *Store) PendingReports(ctx context.Context) ([]models.DailyReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.DailyReport
	err := s.db.WithContext(ctx).
		Where("is_sent = ?", false).
		Order("report_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ReportByDate(ctx context.Context, date string) (*models.DailyReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row models.DailyReport
	err := s.db.WithContext(ctx).Where("report_date = ?", date).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) LatestReport(ctx context.Context) (*models.DailyReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row models.DailyReport
	err := s.db.WithContext(ctx).Order("report_date DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) MarkReportSent(ctx context.Context, date string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.DailyReport{}).
		Where("report_date = ?", date).
		Updates(map[string]any{"is_sent": true, "sent_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("repository: no ledger row for report date %s", date)
	}
	return nil
}
