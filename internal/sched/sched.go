// Package sched drives the calendar jobs: daily counter resets at
// market open, weekly resets on Monday, and the end-of-day report after
// the close. All schedules run in the exchange timezone.
package sched

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"options-pilot/internal/logger"
)

// Jobs are the callbacks the scheduler fires. Nil entries are skipped.
type Jobs struct {
	DailyReset  func()
	WeeklyReset func()
	EODReport   func()
}

type Scheduler struct {
	cron *cron.Cron
}

// Report runs this long after the close so late fills settle first.
const reportDelay = 15 * time.Minute

func New(loc *time.Location, openAt, closeAt string, jobs Jobs) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	openH, openM, err := splitClock(openAt)
	if err != nil {
		return nil, fmt.Errorf("sched: open time: %w", err)
	}
	closeH, closeM, err := splitClock(closeAt)
	if err != nil {
		return nil, fmt.Errorf("sched: close time: %w", err)
	}

	reportAt := time.Date(0, 1, 1, closeH, closeM, 0, 0, time.UTC).Add(reportDelay)

	c := cron.New(cron.WithLocation(loc))
	specs := []struct {
		spec string
		job  func()
	}{
		{fmt.Sprintf("%d %d * * 1-5", openM, openH), jobs.DailyReset},
		{fmt.Sprintf("%d %d * * 1", openM, openH), jobs.WeeklyReset},
		{fmt.Sprintf("%d %d * * 1-5", reportAt.Minute(), reportAt.Hour()), jobs.EODReport},
	}
	for _, s := range specs {
		if s.job == nil {
			continue
		}
		if _, err := c.AddFunc(s.spec, s.job); err != nil {
			return nil, fmt.Errorf("sched: bad spec %q: %w", s.spec, err)
		}
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(context.Background(), "Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and returns a context that completes when
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries exposes the scheduled jobs for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func splitClock(s string) (hour, min int, err error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	min, err = strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, min, nil
}
