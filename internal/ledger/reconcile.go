package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

// Reconcile пересчитывает снимок бюджета владельца из исходных записей.
// Суммы не округляются: округление выполняется при сохранении.
func Reconcile(ownerID uuid.UUID, allocation *models.BudgetAllocation, regular []models.RegularExpense, recurring []models.RecurringExpense) models.CardSnapshot {
	totalBudget := decimal.Zero
	if allocation != nil {
		totalBudget = allocation.Total
	}

	spentRegular := decimal.Zero
	for _, expense := range regular {
		spentRegular = spentRegular.Add(expense.Amount)
	}

	// Запись с lastPaid учитывается в каждом пересчете, окна по периоду нет.
	spentRecurring := decimal.Zero
	for _, expense := range recurring {
		if expense.LastPaid == nil {
			continue
		}
		spentRecurring = spentRecurring.Add(expense.Amount)
	}

	totalSpent := spentRegular.Add(spentRecurring)

	return models.CardSnapshot{
		UserID:              ownerID,
		TotalBudget:         totalBudget,
		TotalSpent:          totalSpent,
		RemainBudget:        totalBudget.Sub(totalSpent),
		TotalSpentRegular:   spentRegular,
		TotalSpentRecurring: spentRecurring,
	}
}
