package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"blockwatch/internal/models"
	"blockwatch/internal/repository"
)

// stubRepo is an in-memory Repository for ledger tests.
type stubRepo struct {
	messages []models.Message
	reports  map[string]*models.DailyReport

	markSentErr error
	pendingErr  error
}

func newStubRepo() *stubRepo {
	return &stubRepo{reports: map[string]*models.DailyReport{}}
}

func (s *stubRepo) addReport(date string, sent bool) {
	s.reports[date] = &models.DailyReport{
		ReportDate: date,
		StartTime:  time.Now().Add(-24 * time.Hour),
		EndTime:    time.Now(),
		IsSent:     sent,
	}
}

func (s *stubRepo) SaveMessage(_ context.Context, msg *models.Message) (bool, error) {
	for _, m := range s.messages {
		if m.MessageID == msg.MessageID {
			return false, nil
		}
	}
	s.messages = append(s.messages, *msg)
	return true, nil
}

func (s *stubRepo) MessagesInRange(_ context.Context, start, end time.Time) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.messages {
		if !m.Date.Before(start) && m.Date.Before(end) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubRepo) BlockTradesInRange(ctx context.Context, start, end time.Time) ([]models.Message, error) {
	all, _ := s.MessagesInRange(ctx, start, end)
	var out []models.Message
	for _, m := range all {
		if m.IsBlockTrade {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubRepo) TaggedMessagesBefore(context.Context, string, time.Time, int) ([]models.Message, error) {
	return nil, nil
}

func (s *stubRepo) MessageStats(context.Context) (repository.MessageStats, error) {
	return repository.MessageStats{TotalMessages: int64(len(s.messages))}, nil
}

func (s *stubRepo) UpsertDailyReport(_ context.Context, row *models.DailyReport) error {
	cp := *row
	cp.IsSent = false
	cp.SentAt = nil
	s.reports[row.ReportDate] = &cp
	return nil
}

func (s *stubRepo) PendingReports(context.Context) ([]models.DailyReport, error) {
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	var out []models.DailyReport
	for _, r := range s.reports {
		if !r.IsSent {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReportDate > out[j].ReportDate
	})
	return out, nil
}

func (s *stubRepo) ReportByDate(_ context.Context, date string) (*models.DailyReport, error) {
	r, ok := s.reports[date]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *stubRepo) LatestReport(context.Context) (*models.DailyReport, error) {
	var latest *models.DailyReport
	for _, r := range s.reports {
		if latest == nil || r.ReportDate > latest.ReportDate {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *stubRepo) MarkReportSent(_ context.Context, date string, at time.Time) error {
	if s.markSentErr != nil {
		return s.markSentErr
	}
	r, ok := s.reports[date]
	if !ok {
		return fmt.Errorf("no ledger row for %s", date)
	}
	r.IsSent = true
	r.SentAt = &at
	return nil
}
