package sched

import (
	"testing"
	"time"
)

func TestNew_SchedulesAllJobs(t *testing.T) {
	s, err := New(time.UTC, "09:30", "16:00", Jobs{
		DailyReset:  func() {},
		WeeklyReset: func() {},
		EODReport:   func() {},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	// From a Sunday, everything fires on Monday: two resets at the
	// open and the report after the close.
	from := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Schedule.Next(from).Format("Mon 15:04")]++
	}
	if counts["Mon 09:30"] != 2 || counts["Mon 16:15"] != 1 {
		t.Errorf("next fire times = %v, want two at Mon 09:30 and one at Mon 16:15", counts)
	}

	// Mid-week the weekly reset waits for the next Monday.
	wednesday := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	sawNextMonday := false
	for _, e := range entries {
		next := e.Schedule.Next(wednesday)
		if next.Weekday() == time.Monday && next.After(monday.AddDate(0, 0, 6)) {
			sawNextMonday = true
		}
	}
	if !sawNextMonday {
		t.Error("weekly reset should wait for the following Monday")
	}
}

func TestNew_SkipsNilJobs(t *testing.T) {
	s, err := New(time.UTC, "09:30", "16:00", Jobs{DailyReset: func() {}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(s.Entries()))
	}
}

func TestNew_RejectsBadClock(t *testing.T) {
	if _, err := New(time.UTC, "930", "16:00", Jobs{}); err == nil {
		t.Error("expected error for malformed open time")
	}
	if _, err := New(time.UTC, "09:30", "25:00", Jobs{}); err == nil {
		t.Error("expected error for out-of-range close time")
	}
}
