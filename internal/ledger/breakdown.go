package ledger

import (
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

type CategoryUsage struct {
	Category  models.Category
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	HasLimit  bool
}

// Breakdown сводит лимиты и разовые траты по каждой категории.
func Breakdown(allocation *models.BudgetAllocation, regular []models.RegularExpense) []CategoryUsage {
	categories := models.Categories()
	usage := make([]CategoryUsage, 0, len(categories))

	for _, category := range categories {
		limit, ok := allocation.Limit(category)
		spent := spentInCategory(regular, category, nil)
		usage = append(usage, CategoryUsage{
			Category:  category,
			Limit:     limit,
			Spent:     spent,
			Remaining: limit.Sub(spent),
			HasLimit:  ok,
		})
	}

	return usage
}
