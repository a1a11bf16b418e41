package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderStatus reports whether the places provider has a credential.
type ProviderStatus interface {
	Configured() bool
}

// BudgetStatus reports the remaining provider budget (-1 = unlimited).
type BudgetStatus interface {
	RemainingDaily() int64
	RemainingMonthly() int64
}
