package report

import (
	"fmt"
	"time"

	"blockwatch/internal/config"
)

// Window is one timezone-anchored reporting interval. End sits at the
// configured local anchor time; messages with Start <= date < End belong to
// the window.
type Window struct {
	Start      time.Time
	End        time.Time
	Timezone   string
	ReportDate string
}

// WindowFor returns the window ending at the most recent anchor time at or
// before now, in the configured timezone.
func WindowFor(cfg config.ReportConfig, now time.Time) (Window, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Window{}, fmt.Errorf("report: load timezone %q: %w", cfg.Timezone, err)
	}
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(),
		cfg.AnchorHour, cfg.AnchorMin, 0, 0, loc)
	if end.After(local) {
		end = end.AddDate(0, 0, -1)
	}
	return windowEnding(cfg, end), nil
}

// WindowForDate returns the window for one report date ("2006-01-02"),
// ending at that date's anchor time. Used by backfill and manual triggers.
func WindowForDate(cfg config.ReportConfig, date string) (Window, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Window{}, fmt.Errorf("report: load timezone %q: %w", cfg.Timezone, err)
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return Window{}, fmt.Errorf("report: parse report date %q: %w", date, err)
	}
	end := time.Date(day.Year(), day.Month(), day.Day(),
		cfg.AnchorHour, cfg.AnchorMin, 0, 0, loc)
	return windowEnding(cfg, end), nil
}

func windowEnding(cfg config.ReportConfig, end time.Time) Window {
	hours := cfg.WindowHours
	if hours <= 0 {
		hours = 24
	}
	return Window{
		Start:      end.Add(-time.Duration(hours) * time.Hour),
		End:        end,
		Timezone:   cfg.Timezone,
		ReportDate: end.Format("2006-01-02"),
	}
}
