package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blockwatch/internal/models"
	"blockwatch/internal/repository"
)

// stubRepo is an in-memory Repository for generator tests.
type stubRepo struct {
	messages []models.Message
	reports  map[string]*models.DailyReport

	upsertErrs []error
	upserts    int
}

func newStubRepo(messages ...models.Message) *stubRepo {
	return &stubRepo{
		messages: messages,
		reports:  map[string]*models.DailyReport{},
	}
}

func (s *stubRepo) SaveMessage(_ context.Context, msg *models.Message) (bool, error) {
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

func (s *stubRepo) TaggedMessagesBefore(_ context.Context, tag string, before time.Time, limit int) ([]models.Message, error) {
	var out []models.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.messages[i]
		if m.Date.Before(before) && strings.Contains(m.Text, tag) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubRepo) MessageStats(context.Context) (repository.MessageStats, error) {
	return repository.MessageStats{TotalMessages: int64(len(s.messages))}, nil
}

func (s *stubRepo) UpsertDailyReport(_ context.Context, row *models.DailyReport) error {
	if len(s.upsertErrs) > 0 {
		err := s.upsertErrs[0]
		s.upsertErrs = s.upsertErrs[1:]
		if err != nil {
			return err
		}
	}
	s.upserts++
	cp := *row
	cp.IsSent = false
	cp.SentAt = nil
	s.reports[row.ReportDate] = &cp
	return nil
}

func (s *stubRepo) PendingReports(context.Context) ([]models.DailyReport, error) {
	var out []models.DailyReport
	for _, r := range s.reports {
		if !r.IsSent {
			out = append(out, *r)
		}
	}
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
	r, ok := s.reports[date]
	if !ok {
		return fmt.Errorf("no ledger row for %s", date)
	}
	r.IsSent = true
	r.SentAt = &at
	return nil
}
