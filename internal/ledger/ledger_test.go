package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"blockwatch/internal/notify"
)

type recordingNotifier struct {
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func newLedger(repo *stubRepo, rec *recordingNotifier) *Ledger {
	return &Ledger{
		Repo:       repo,
		Notifier:   rec,
		Logger:     zap.NewNop(),
		Recipients: notify.RecipientsProd,
	}
}

func TestSelectSendCandidatePicksNewest(t *testing.T) {
	repo := newStubRepo()
	repo.addReport("2024-12-18", false)
	repo.addReport("2024-12-20", false)
	repo.addReport("2024-12-19", false)

	candidate, backlog, err := newLedger(repo, &recordingNotifier{}).SelectSendCandidate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate == nil || candidate.ReportDate != "2024-12-20" {
		t.Fatalf("candidate = %+v", candidate)
	}
	if len(backlog) != 2 {
		t.Fatalf("backlog len = %d", len(backlog))
	}
}

func TestSendPendingMarksOnlyNewest(t *testing.T) {
	repo := newStubRepo()
	repo.addReport("2024-12-19", false)
	repo.addReport("2024-12-20", false)
	rec := &recordingNotifier{}

	if err := newLedger(repo, rec).SendPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.sent) != 1 {
		t.Fatalf("sent %d notifications", len(rec.sent))
	}
	if rec.sent[0].Kind != notify.KindDailyReport {
		t.Fatalf("kind = %v", rec.sent[0].Kind)
	}
	if !strings.Contains(rec.sent[0].Subject, "2024-12-20") {
		t.Fatalf("subject = %q", rec.sent[0].Subject)
	}

	newest, _ := repo.ReportByDate(context.Background(), "2024-12-20")
	if !newest.IsSent || newest.SentAt == nil {
		t.Fatalf("newest not marked sent: %+v", newest)
	}
	backlog, _ := repo.ReportByDate(context.Background(), "2024-12-19")
	if backlog.IsSent {
		t.Fatalf("backlog row must stay pending")
	}
}

func TestSendPendingNothingToDo(t *testing.T) {
	repo := newStubRepo()
	repo.addReport("2024-12-20", true)
	rec := &recordingNotifier{}
	if err := newLedger(repo, rec).SendPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Fatalf("sent = %d", len(rec.sent))
	}
}

func TestSendPendingNotifyFailureKeepsPending(t *testing.T) {
	repo := newStubRepo()
	repo.addReport("2024-12-20", false)
	rec := &recordingNotifier{err: errors.New("smtp down")}

	if err := newLedger(repo, rec).SendPending(context.Background()); err == nil {
		t.Fatalf("expected send failure")
	}
	row, _ := repo.ReportByDate(context.Background(), "2024-12-20")
	if row.IsSent {
		t.Fatalf("failed send must not advance the ledger")
	}
}

func TestSendPendingCommitFailureSurfaced(t *testing.T) {
	repo := newStubRepo()
	repo.addReport("2024-12-20", false)
	repo.markSentErr = errors.New("database is locked")
	rec := &recordingNotifier{}

	err := newLedger(repo, rec).SendPending(context.Background())
	if err == nil {
		t.Fatalf("commit failure after send must be surfaced")
	}
	if !strings.Contains(err.Error(), "sent but commit failed") {
		t.Fatalf("err = %v", err)
	}
	if len(rec.sent) != 1 {
		t.Fatalf("the notification did go out, sent = %d", len(rec.sent))
	}
}

func TestUpsertResetsSentState(t *testing.T) {
	repo := newStubRepo()
	repo.addReport("2024-12-20", true)

	row, _ := repo.ReportByDate(context.Background(), "2024-12-20")
	if err := repo.UpsertDailyReport(context.Background(), row); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, _ := repo.ReportByDate(context.Background(), "2024-12-20")
	if again.IsSent || again.SentAt != nil {
		t.Fatalf("regeneration must reset send state: %+v", again)
	}
}
