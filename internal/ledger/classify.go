package ledger

import (
	"time"

	"example.com/expense-tracker/backend/internal/models"
)

const DefaultLookaheadDays = 7

type DueState int

const (
	Dormant DueState = iota
	Upcoming
	DuePayable
	DueAuto
)

func (s DueState) String() string {
	switch s {
	case Upcoming:
		return "upcoming"
	case DuePayable:
		return "due_payable"
	case DueAuto:
		return "due_auto"
	default:
		return "dormant"
	}
}

// Classify определяет состояние регулярного платежа относительно today.
// Сохраненные флаги PayNow/IsUpcoming не учитываются.
func Classify(expense models.RecurringExpense, today time.Time, lookaheadDays int) DueState {
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}

	due := Day(expense.NextDueDate)
	now := Day(today)

	if !due.After(now) {
		if expense.AutoDeduct {
			return DueAuto
		}
		return DuePayable
	}

	if !due.After(now.AddDate(0, 0, lookaheadDays)) {
		return Upcoming
	}

	return Dormant
}

// Project возвращает копию записи с пересчитанными флагами PayNow и IsUpcoming.
func Project(expense models.RecurringExpense, today time.Time, lookaheadDays int) models.RecurringExpense {
	state := Classify(expense, today, lookaheadDays)
	expense.PayNow = state == DuePayable
	expense.IsUpcoming = state == Upcoming
	return expense
}
