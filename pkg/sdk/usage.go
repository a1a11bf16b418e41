package pickpoint

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/pickpoint/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains places provider usage for a time period.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Provider    string
	Requests    int64
	Budget      BudgetStatus
}

// BudgetStatus tracks request quota state. A zero limit means unlimited
// and then RequestsRemaining is -1.
type BudgetStatus struct {
	RequestsLimit     int64
	RequestsRemaining int64
	IsExhausted       bool
	ResetsAt          time.Time
}

// Usage returns a provider usage report for the given period.
// The underlying use case is in-memory and cannot fail.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	b := report.Budget()

	return UsageReport{
		Period:      UsagePeriod(report.Period()),
		PeriodStart: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEnd:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Provider:    report.Provider(),
		Requests:    report.Requests(),
		Budget: BudgetStatus{
			RequestsLimit:     b.RequestsLimit(),
			RequestsRemaining: b.RequestsRemaining(),
			IsExhausted:       b.IsExhausted(),
			ResetsAt:          time.UnixMilli(b.ResetsAt()).UTC(),
		},
	}
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
