package usage

import (
	"context"
	"time"
)

// Period is a budget accounting window.
type Period string

// Periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// IsValid checks if the period is one of the supported values.
func (p Period) IsValid() bool { return p == PeriodDay || p == PeriodMonth }

// Report is the embedding token usage of one period.
type Report struct {
	Period    Period
	Start     time.Time
	End       time.Time
	Limit     int64 // 0 = unlimited
	Used      int64
	Remaining int64 // -1 = unlimited
	Exhausted bool
}

// BudgetReader exposes the token counters of the current windows.
type BudgetReader interface {
	DailyLimit() int64
	DailyUsed() int64
	MonthlyLimit() int64
	MonthlyUsed() int64
}

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (no budget configured).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report builds the usage report for period. Anything but PeriodMonth reports the day.
func (s *Service) Report(_ context.Context, period Period) Report {
	now := s.now().UTC()
	r := Report{Period: PeriodDay, Remaining: -1}

	if period == PeriodMonth {
		r.Period = PeriodMonth
		r.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		r.End = r.Start.AddDate(0, 1, 0)
		if s.br != nil {
			r.Limit, r.Used = s.br.MonthlyLimit(), s.br.MonthlyUsed()
		}
	} else {
		r.Start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		r.End = r.Start.Add(24 * time.Hour)
		if s.br != nil {
			r.Limit, r.Used = s.br.DailyLimit(), s.br.DailyUsed()
		}
	}

	if r.Limit > 0 {
		r.Remaining = max(r.Limit-r.Used, 0)
		r.Exhausted = r.Remaining == 0
	}
	return r
}
