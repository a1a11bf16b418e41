package usage

import "github.com/kailas-cloud/pickpoint/internal/domain/usage/budget"

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// IsValid checks if the period is one of the supported values.
func (p Period) IsValid() bool {
	return p == PeriodDay || p == PeriodMonth || p == PeriodTotal
}

// Report is a places provider usage report for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	provider    string
	requests    int64
	budget      budget.Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, provider string, requests int64, b budget.Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		provider:    provider,
		requests:    requests,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Provider returns the provider name.
func (r *Report) Provider() string { return r.provider }

// Requests returns the provider calls made in the period.
func (r *Report) Requests() int64 { return r.requests }

// Budget returns the budget status.
func (r *Report) Budget() budget.Budget { return r.budget }
