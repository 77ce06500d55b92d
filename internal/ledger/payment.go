package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Pay проводит один платеж: сдвигает дату на один период и отмечает оплату днем today.
// При некорректной сумме запись возвращается без изменений.
func Pay(expense models.RecurringExpense, today time.Time, lookaheadDays int) (models.RecurringExpense, decimal.Decimal, error) {
	if !expense.Amount.IsPositive() {
		return expense, decimal.Zero, ErrInvalidAmount
	}

	paidOn := Day(today)

	updated := expense
	updated.NextDueDate = Advance(expense.NextDueDate, expense.Frequency)
	updated.LastPaid = &paidOn
	updated.PayNow = false
	updated.IsUpcoming = Classify(updated, today, lookaheadDays) == Upcoming

	return updated, expense.Amount, nil
}
