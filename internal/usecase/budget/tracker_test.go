package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func newMemStore() *memStore { return &memStore{values: map[string]int64{}} }

func (m *memStore) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.values[key] += val
	return m.values[key], nil
}

func (m *memStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.values[key], nil
}

func TestTracker_RejectWhenExceeded(t *testing.T) {
	tr := NewTracker("google", 100, 0, ActionReject, zap.NewNop())
	tr.Record(100)

	err := tr.Check(context.Background())
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatal("quota errors must read as provider unavailable")
	}
}

func TestTracker_WarnWhenExceeded(t *testing.T) {
	tr := NewTracker("google", 100, 0, ActionWarn, zap.NewNop())
	tr.Record(200)

	if err := tr.Check(context.Background()); err != nil {
		t.Fatalf("warn action must not block, got %v", err)
	}
}

func TestTracker_DefaultActionIsWarn(t *testing.T) {
	tr := NewTracker("google", 1, 0, "", nil)
	tr.Record(5)
	if err := tr.Check(context.Background()); err != nil {
		t.Fatalf("expected warn default, got %v", err)
	}
}

func TestTracker_MonthlyReject(t *testing.T) {
	tr := NewTracker("google", 0, 500, ActionReject, zap.NewNop())
	tr.Record(500)

	if err := tr.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded for monthly limit, got %v", err)
	}
}

func TestTracker_UnlimitedWhenZero(t *testing.T) {
	tr := NewTracker("google", 0, 0, ActionReject, zap.NewNop())
	tr.Record(1_000_000)

	if err := tr.Check(context.Background()); err != nil {
		t.Fatalf("expected nil for unlimited budget, got %v", err)
	}
	if tr.RemainingDaily() != -1 || tr.RemainingMonthly() != -1 {
		t.Error("unlimited budget must report -1 remaining")
	}
}

func TestTracker_Remaining(t *testing.T) {
	tr := NewTracker("google", 1000, 10000, ActionWarn, zap.NewNop())
	tr.Record(300)

	if got := tr.RemainingDaily(); got != 700 {
		t.Errorf("RemainingDaily = %d, want 700", got)
	}
	if got := tr.RemainingMonthly(); got != 9700 {
		t.Errorf("RemainingMonthly = %d, want 9700", got)
	}

	tr.Record(5000)
	if got := tr.RemainingDaily(); got != 0 {
		t.Errorf("RemainingDaily must floor at 0, got %d", got)
	}
}

func TestTracker_IgnoresNonPositive(t *testing.T) {
	tr := NewTracker("google", 10, 10, ActionReject, zap.NewNop())
	tr.Record(0)
	tr.Record(-3)
	if tr.DailyUsed() != 0 {
		t.Errorf("DailyUsed = %d", tr.DailyUsed())
	}
}

func TestTracker_DayRollover(t *testing.T) {
	now := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	tr := NewTracker("google", 10, 100, ActionReject, zap.NewNop())
	tr.now = func() time.Time { return now }
	tr.day, tr.month = truncateToDay(now), truncateToMonth(now)

	tr.Record(10)
	if err := tr.Check(context.Background()); err == nil {
		t.Fatal("expected exhausted budget before midnight")
	}

	now = now.Add(2 * time.Minute)
	if err := tr.Check(context.Background()); err != nil {
		t.Fatalf("daily budget must reset after midnight, got %v", err)
	}
	if tr.MonthlyUsed() != 10 {
		t.Errorf("monthly counter must survive a day rollover, got %d", tr.MonthlyUsed())
	}

	now = time.Date(2026, 11, 1, 0, 0, 1, 0, time.UTC)
	if tr.MonthlyUsed() != 0 {
		t.Errorf("monthly counter must reset on the 1st, got %d", tr.MonthlyUsed())
	}
}

func TestTracker_WithStoreLoadsAndPersists(t *testing.T) {
	st := newMemStore()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tr := NewTracker("google", 100, 1000, ActionReject, zap.NewNop())
	tr.now = func() time.Time { return now }
	tr.day, tr.month = truncateToDay(now), truncateToMonth(now)

	st.values[tr.dailyKey(now)] = 40
	st.values[tr.monthlyKey(now)] = 400
	tr.WithStore(context.Background(), st)

	if tr.DailyUsed() != 40 || tr.MonthlyUsed() != 400 {
		t.Fatalf("expected loaded counters, got %d/%d", tr.DailyUsed(), tr.MonthlyUsed())
	}

	tr.Record(2)
	if st.values["pickpoint:budget:google:daily:2026-10-19"] != 42 {
		t.Errorf("daily key = %d", st.values["pickpoint:budget:google:daily:2026-10-19"])
	}
	if st.values["pickpoint:budget:google:monthly:2026-10"] != 402 {
		t.Errorf("monthly key = %d", st.values["pickpoint:budget:google:monthly:2026-10"])
	}
}

func TestTracker_AdoptsSharedTotal(t *testing.T) {
	st := newMemStore()
	tr := NewTracker("google", 100, 0, ActionReject, zap.NewNop()).WithStore(context.Background(), st)

	// Another instance already spent most of today's budget.
	st.values[tr.dailyKey(tr.now())] = 99
	tr.Record(1)

	if err := tr.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected shared total to exhaust budget, got %v", err)
	}
}

func TestTracker_StoreFailureKeepsLocalCount(t *testing.T) {
	st := newMemStore()
	st.err = errors.New("redis down")

	tr := NewTracker("google", 10, 0, ActionReject, zap.NewNop()).WithStore(context.Background(), st)
	tr.Record(3)

	if tr.DailyUsed() != 3 {
		t.Errorf("DailyUsed = %d, want 3", tr.DailyUsed())
	}
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	tr := NewTracker("google", 0, 0, ActionWarn, zap.NewNop())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(1)
			_ = tr.Check(context.Background())
		}()
	}
	wg.Wait()

	if tr.DailyUsed() != 50 {
		t.Errorf("DailyUsed = %d, want 50", tr.DailyUsed())
	}
}
