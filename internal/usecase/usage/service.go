package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/pickpoint/internal/domain/usage"
	"github.com/kailas-cloud/pickpoint/internal/domain/usage/budget"
)

// Service builds provider usage reports.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (no budget configured).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period. The total period
// reports the monthly window, the longest one the tracker keeps.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()
	var start, end int64
	var limit, used int64
	remaining := int64(-1)
	provider := ""

	if s.br != nil {
		provider = s.br.Provider()
	}

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
		if s.br != nil {
			limit, used, remaining = s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
		if s.br != nil {
			limit, used, remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		}
	default:
		if s.br != nil {
			limit, used, remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		}
	}

	exhausted := limit > 0 && remaining == 0
	b := budget.New(limit, remaining, exhausted, end)

	return domusage.NewReport(period, start, end, provider, used, b)
}
