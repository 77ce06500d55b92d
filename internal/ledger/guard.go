package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

type DenialReason string

const (
	DenialNoBudgetSet           DenialReason = "no_budget_set"
	DenialBudgetExhausted       DenialReason = "budget_exhausted"
	DenialInsufficientRemaining DenialReason = "insufficient_remaining"
)

// Allowance результат проверки лимита категории. Пустой Reason означает разрешение.
type Allowance struct {
	Category  models.Category
	Remaining decimal.Decimal
	Reason    DenialReason
}

func (a Allowance) Allowed() bool {
	return a.Reason == ""
}

// Err возвращает *DenialError для отказа и nil для разрешения.
func (a Allowance) Err() error {
	if a.Allowed() {
		return nil
	}
	return &DenialError{Reason: a.Reason, Category: a.Category, Remaining: a.Remaining}
}

type DenialError struct {
	Reason    DenialReason
	Category  models.Category
	Remaining decimal.Decimal
}

func (e *DenialError) Error() string {
	switch e.Reason {
	case DenialNoBudgetSet:
		return fmt.Sprintf("no budget set for category %q, set it before adding expenses", e.Category)
	case DenialBudgetExhausted:
		return fmt.Sprintf("you only have 0.00 left for %s", e.Category)
	default:
		return fmt.Sprintf("you only have %s left for %s", e.Remaining.StringFixed(2), e.Category)
	}
}

// CheckAllowance проверяет, укладывается ли новая трата в остаток лимита категории.
// excludingID исключает прежнюю сумму редактируемой записи. Состояние не меняется.
func CheckAllowance(allocation *models.BudgetAllocation, category models.Category, amount decimal.Decimal, existing []models.RegularExpense, excludingID *uuid.UUID) Allowance {
	result := Allowance{Category: category}

	limit, ok := allocation.Limit(category)
	if !ok {
		result.Reason = DenialNoBudgetSet
		return result
	}

	result.Remaining = limit.Sub(spentInCategory(existing, category, excludingID))

	if !result.Remaining.IsPositive() {
		result.Reason = DenialBudgetExhausted
		return result
	}

	if amount.GreaterThan(result.Remaining) {
		result.Reason = DenialInsufficientRemaining
	}

	return result
}

func spentInCategory(expenses []models.RegularExpense, category models.Category, excludingID *uuid.UUID) decimal.Decimal {
	spent := decimal.Zero
	for _, expense := range expenses {
		if excludingID != nil && expense.ID == *excludingID {
			continue
		}
		if expense.Category != category {
			continue
		}
		spent = spent.Add(expense.Amount)
	}
	return spent
}
