package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service answers with fallback suggestions only.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckUnconfigured indicates a component switched off by configuration.
	CheckUnconfigured CheckResult = "unconfigured"
	// CheckExhausted indicates a spent request budget.
	CheckExhausted CheckResult = "exhausted"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	provider ProviderStatus
	budget   BudgetStatus
}

// New creates a Service. Any dependency can be nil; nil ones are not reported.
func New(db DBPinger, provider ProviderStatus, budget BudgetStatus) *Service {
	return &Service{db: db, provider: provider, budget: budget}
}

// Check runs health checks against all components. The process is always
// up as long as it answers; failed checks only mark it degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
	}

	if s.provider != nil {
		if s.provider.Configured() {
			checks["provider"] = CheckOK
		} else {
			checks["provider"] = CheckUnconfigured
		}
	}

	if s.budget != nil {
		if s.budget.RemainingDaily() == 0 || s.budget.RemainingMonthly() == 0 {
			checks["budget"] = CheckExhausted
		} else {
			checks["budget"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
