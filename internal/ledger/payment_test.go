package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

// TestPayScenarioC проверяет ручную оплату платежа со сроком сегодня.
func TestPayScenarioC(t *testing.T) {
	today := date(2024, 5, 10)
	expense := recurring(today, false)

	if state := Classify(expense, today, DefaultLookaheadDays); state != DuePayable {
		t.Fatalf("expected due_payable before payment, got %s", state)
	}

	updated, paid, err := Pay(Project(expense, today, DefaultLookaheadDays), today, DefaultLookaheadDays)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !paid.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected paid 20, got %s", paid)
	}
	if updated.LastPaid == nil || !updated.LastPaid.Equal(today) {
		t.Fatalf("expected lastPaid %s, got %v", today, updated.LastPaid)
	}
	if !updated.NextDueDate.Equal(date(2024, 6, 10)) {
		t.Fatalf("expected next due 2024-06-10, got %s", updated.NextDueDate)
	}
	if updated.PayNow {
		t.Fatal("expected payNow to be cleared")
	}
	if updated.IsUpcoming {
		t.Fatal("expected next due a month away to be dormant")
	}
}

// TestPayDoesNotRetrigger проверяет, что после оплаты в тот же день запись не просрочена.
func TestPayDoesNotRetrigger(t *testing.T) {
	today := date(2024, 2, 29)
	frequencies := []models.Frequency{models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyYearly}

	for _, frequency := range frequencies {
		for _, autoDeduct := range []bool{false, true} {
			expense := recurring(today, autoDeduct)
			expense.Frequency = frequency

			updated, _, err := Pay(expense, today, DefaultLookaheadDays)
			if err != nil {
				t.Fatalf("%s: unexpected error %v", frequency, err)
			}

			state := Classify(updated, today, DefaultLookaheadDays)
			if state == DueAuto || state == DuePayable {
				t.Fatalf("%s auto=%v: still due after same-day payment (%s)", frequency, autoDeduct, state)
			}
		}
	}
}

// TestPayDailyIsUpcoming проверяет пересчет isUpcoming по новой дате.
func TestPayDailyIsUpcoming(t *testing.T) {
	today := date(2024, 5, 10)
	expense := recurring(today, true)
	expense.Frequency = models.FrequencyDaily

	updated, _, err := Pay(expense, today, DefaultLookaheadDays)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !updated.IsUpcoming {
		t.Fatal("expected tomorrow's payment to be upcoming")
	}
}

// TestPayInvalidAmount проверяет отказ при неположительной сумме без изменения записи.
func TestPayInvalidAmount(t *testing.T) {
	today := date(2024, 5, 10)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		expense := recurring(today, false)
		expense.Amount = amount

		updated, paid, err := Pay(expense, today, DefaultLookaheadDays)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
		if !paid.IsZero() {
			t.Fatalf("expected zero paid, got %s", paid)
		}
		if !updated.NextDueDate.Equal(expense.NextDueDate) || updated.LastPaid != nil {
			t.Fatal("expected record to be left untouched")
		}
	}
}

// TestPayMonotonic проверяет неубывание nextDueDate на серии оплат.
func TestPayMonotonic(t *testing.T) {
	expense := recurring(date(2024, 1, 31), true)
	today := date(2024, 1, 31)

	previous := expense.NextDueDate
	for i := 0; i < 24; i++ {
		updated, _, err := Pay(expense, today, DefaultLookaheadDays)
		if err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
		if updated.NextDueDate.Before(previous) {
			t.Fatalf("payment %d moved due date backwards: %s -> %s", i, previous, updated.NextDueDate)
		}
		previous = updated.NextDueDate
		expense = updated
		today = updated.NextDueDate
	}
}

// TestPayScenarioB проверяет високосный сдвиг для автосписания.
func TestPayScenarioB(t *testing.T) {
	expense := recurring(date(2024, 1, 31), true)

	updated, _, err := Pay(expense, date(2024, 1, 31), DefaultLookaheadDays)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !updated.NextDueDate.Equal(date(2024, 2, 29)) {
		t.Fatalf("expected 2024-02-29, got %s", updated.NextDueDate.Format("2006-01-02"))
	}
}
