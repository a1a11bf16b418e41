package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
)

// Action defines behavior when the request budget is spent.
type Action string

const (
	// ActionWarn logs a warning but lets the request through.
	ActionWarn Action = "warn"
	// ActionReject blocks the request with domain.ErrQuotaExceeded.
	ActionReject Action = "reject"
)

// Store persists request counters. IncrBy returns the shared total so that
// several instances converge on the same count.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// Tracker counts provider requests against daily and monthly caps.
// Check is in-memory only; Record writes behind to the store when one is attached.
type Tracker struct {
	mu           sync.Mutex
	dailyUsed    int64
	monthlyUsed  int64
	dailyLimit   int64
	monthlyLimit int64
	action       Action
	provider     string
	day          time.Time
	month        time.Time
	store        Store
	now          func() time.Time
	logger       *zap.Logger
}

// NewTracker creates a tracker. A limit of 0 means unlimited; an empty action means warn.
func NewTracker(provider string, dailyLimit, monthlyLimit int64, action Action, logger *zap.Logger) *Tracker {
	if action == "" {
		action = ActionWarn
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		provider:     provider,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
	now := t.now()
	t.day, t.month = truncateToDay(now), truncateToMonth(now)
	return t
}

// WithStore attaches a persistence store and loads the current counters.
func (t *Tracker) WithStore(ctx context.Context, store Store) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = store
	now := t.now()

	if v, err := store.Get(ctx, t.dailyKey(now)); err == nil {
		t.dailyUsed = v
	} else {
		t.logger.Warn("Failed to load daily budget from store", zap.Error(err))
	}
	if v, err := store.Get(ctx, t.monthlyKey(now)); err == nil {
		t.monthlyUsed = v
	} else {
		t.logger.Warn("Failed to load monthly budget from store", zap.Error(err))
	}

	t.logger.Info("Budget loaded from store",
		zap.String("provider", t.provider),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("monthly_used", t.monthlyUsed),
	)
	return t
}

func (t *Tracker) dailyKey(at time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, t.provider, at.Format("2006-01-02"))
}

func (t *Tracker) monthlyKey(at time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, t.provider, at.Format("2006-01"))
}

// Check reports whether a new request may go out.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()

	dailyOut := t.dailyLimit > 0 && t.dailyUsed >= t.dailyLimit
	monthlyOut := t.monthlyLimit > 0 && t.monthlyUsed >= t.monthlyLimit
	if !dailyOut && !monthlyOut {
		return nil
	}

	if t.action == ActionReject {
		return domain.ErrQuotaExceeded
	}

	t.logger.Warn("Request budget exceeded",
		zap.String("provider", t.provider),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("daily_limit", t.dailyLimit),
		zap.Int64("monthly_used", t.monthlyUsed),
		zap.Int64("monthly_limit", t.monthlyLimit),
	)
	return nil
}

// Record adds n completed requests.
func (t *Tracker) Record(n int64) {
	if n <= 0 {
		return
	}

	t.mu.Lock()
	t.rollover()
	t.dailyUsed += n
	t.monthlyUsed += n
	store := t.store
	now := t.now()
	dailyKey, monthlyKey := t.dailyKey(now), t.monthlyKey(now)
	t.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the request so a cancelled search still gets counted.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	daily, err := store.IncrBy(ctx, dailyKey, n)
	if err != nil {
		t.logger.Warn("Failed to persist daily budget", zap.String("key", dailyKey), zap.Error(err))
	}
	monthly, err := store.IncrBy(ctx, monthlyKey, n)
	if err != nil {
		t.logger.Warn("Failed to persist monthly budget", zap.String("key", monthlyKey), zap.Error(err))
	}

	t.mu.Lock()
	t.dailyUsed = max(t.dailyUsed, daily)
	t.monthlyUsed = max(t.monthlyUsed, monthly)
	t.mu.Unlock()
}

// RemainingDaily returns requests left today (-1 if unlimited).
func (t *Tracker) RemainingDaily() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return remaining(t.dailyLimit, t.dailyUsed)
}

// RemainingMonthly returns requests left this month (-1 if unlimited).
func (t *Tracker) RemainingMonthly() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return remaining(t.monthlyLimit, t.monthlyUsed)
}

// DailyLimit returns the daily cap.
func (t *Tracker) DailyLimit() int64 { return t.dailyLimit }

// MonthlyLimit returns the monthly cap.
func (t *Tracker) MonthlyLimit() int64 { return t.monthlyLimit }

// DailyUsed returns requests made today.
func (t *Tracker) DailyUsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.dailyUsed
}

// MonthlyUsed returns requests made this month.
func (t *Tracker) MonthlyUsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.monthlyUsed
}

// Provider returns the tracked provider name.
func (t *Tracker) Provider() string { return t.provider }

// rollover zeroes counters at UTC day and month boundaries. Caller holds mu.
func (t *Tracker) rollover() {
	now := t.now()
	if today := truncateToDay(now); today.After(t.day) {
		t.dailyUsed = 0
		t.day = today
	}
	if month := truncateToMonth(now); month.After(t.month) {
		t.monthlyUsed = 0
		t.month = month
	}
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
