package usage

import (
	"testing"

	"github.com/kailas-cloud/pickpoint/internal/domain/usage/budget"
)

func TestNewReport(t *testing.T) {
	b := budget.New(10000, 6158, false, 1700000000000)

	r := NewReport(PeriodMonth, 1700000000, 1702600000, "google", 3842, b)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 {
		t.Errorf("PeriodStart() = %d", r.PeriodStart())
	}
	if r.PeriodEnd() != 1702600000 {
		t.Errorf("PeriodEnd() = %d", r.PeriodEnd())
	}
	if r.Provider() != "google" {
		t.Errorf("Provider() = %q", r.Provider())
	}
	if r.Requests() != 3842 {
		t.Errorf("Requests() = %d", r.Requests())
	}
	if r.Budget().RequestsLimit() != 10000 {
		t.Errorf("Budget().RequestsLimit() = %d", r.Budget().RequestsLimit())
	}
}

func TestPeriodConstants(t *testing.T) {
	if PeriodDay != "day" {
		t.Errorf("PeriodDay = %q", PeriodDay)
	}
	if PeriodMonth != "month" {
		t.Errorf("PeriodMonth = %q", PeriodMonth)
	}
	if PeriodTotal != "total" {
		t.Errorf("PeriodTotal = %q", PeriodTotal)
	}
}

func TestPeriod_IsValid(t *testing.T) {
	for _, p := range []Period{PeriodDay, PeriodMonth, PeriodTotal} {
		if !p.IsValid() {
			t.Errorf("%q must be valid", p)
		}
	}
	if Period("week").IsValid() {
		t.Error("week must be invalid")
	}
}
