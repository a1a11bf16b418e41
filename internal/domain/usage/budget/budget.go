package budget

// Budget tracks places provider request budget state.
type Budget struct {
	requestsLimit     int64
	requestsRemaining int64
	isExhausted       bool
	resetsAt          int64 // unix millis, converted to ISO 8601 at transport layer
}

// New creates a Budget snapshot. A limit of 0 means unlimited.
func New(limit, remaining int64, isExhausted bool, resetsAt int64) Budget {
	return Budget{
		requestsLimit:     limit,
		requestsRemaining: remaining,
		isExhausted:       isExhausted,
		resetsAt:          resetsAt,
	}
}

// RequestsLimit returns the request cap (0 = unlimited).
func (b Budget) RequestsLimit() int64 { return b.requestsLimit }

// RequestsRemaining returns requests left (-1 = unlimited).
func (b Budget) RequestsRemaining() int64 { return b.requestsRemaining }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.isExhausted }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
