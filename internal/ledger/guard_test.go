package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

func budgetWith(total, food string) *models.BudgetAllocation {
	limits := make(map[models.Category]decimal.Decimal)
	for _, category := range models.Categories() {
		limits[category] = dec("0")
	}
	limits[models.CategoryFood] = dec(food)
	return &models.BudgetAllocation{Total: dec(total), Limits: limits}
}

// TestCheckAllowanceScenarioA проверяет границу остатка категории.
func TestCheckAllowanceScenarioA(t *testing.T) {
	budget := budgetWith("500", "100")
	existing := []models.RegularExpense{{ID: uuid.New(), Amount: dec("40"), Category: models.CategoryFood}}

	allowed := CheckAllowance(budget, models.CategoryFood, dec("60"), existing, nil)
	if !allowed.Allowed() {
		t.Fatalf("expected 60 to be allowed, got %s", allowed.Reason)
	}
	if !allowed.Remaining.Equal(dec("60")) {
		t.Fatalf("expected remaining 60, got %s", allowed.Remaining)
	}

	denied := CheckAllowance(budget, models.CategoryFood, dec("61"), existing, nil)
	if denied.Reason != DenialInsufficientRemaining {
		t.Fatalf("expected insufficient remaining, got %q", denied.Reason)
	}

	var denial *DenialError
	if !errors.As(denied.Err(), &denial) {
		t.Fatalf("expected DenialError, got %v", denied.Err())
	}
	if !denial.Remaining.Equal(dec("60")) {
		t.Fatalf("expected remaining 60 in denial, got %s", denial.Remaining)
	}
	if denial.Error() != "you only have 60.00 left for food" {
		t.Fatalf("unexpected message: %s", denial.Error())
	}
}

// TestCheckAllowanceNoBudget проверяет отказ без распределения бюджета.
func TestCheckAllowanceNoBudget(t *testing.T) {
	result := CheckAllowance(nil, models.CategoryFood, dec("1"), nil, nil)
	if result.Reason != DenialNoBudgetSet {
		t.Fatalf("expected no budget set, got %q", result.Reason)
	}

	result = CheckAllowance(budgetWith("500", "100"), models.Category("travel"), dec("1"), nil, nil)
	if result.Reason != DenialNoBudgetSet {
		t.Fatalf("expected no budget set for unknown category, got %q", result.Reason)
	}
}

// TestCheckAllowanceExhausted проверяет отказ при нулевом и отрицательном остатке.
func TestCheckAllowanceExhausted(t *testing.T) {
	budget := budgetWith("500", "100")

	zeroLimit := CheckAllowance(budget, models.CategoryRent, dec("1"), nil, nil)
	if zeroLimit.Reason != DenialBudgetExhausted {
		t.Fatalf("expected exhausted for zero limit, got %q", zeroLimit.Reason)
	}

	existing := []models.RegularExpense{{ID: uuid.New(), Amount: dec("120"), Category: models.CategoryFood}}
	over := CheckAllowance(budget, models.CategoryFood, dec("1"), existing, nil)
	if over.Reason != DenialBudgetExhausted {
		t.Fatalf("expected exhausted when overspent, got %q", over.Reason)
	}
	if over.Err().Error() != "you only have 0.00 left for food" {
		t.Fatalf("unexpected message: %s", over.Err())
	}
}

// TestCheckAllowanceExcludingEdited проверяет исключение прежней суммы при редактировании.
func TestCheckAllowanceExcludingEdited(t *testing.T) {
	budget := budgetWith("500", "100")
	editedID := uuid.New()
	existing := []models.RegularExpense{
		{ID: editedID, Amount: dec("90"), Category: models.CategoryFood},
		{ID: uuid.New(), Amount: dec("10"), Category: models.CategoryFood},
		{ID: uuid.New(), Amount: dec("500"), Category: models.CategoryShopping},
	}

	if result := CheckAllowance(budget, models.CategoryFood, dec("90"), existing, nil); result.Allowed() {
		t.Fatal("expected denial without exclusion")
	}

	result := CheckAllowance(budget, models.CategoryFood, dec("90"), existing, &editedID)
	if !result.Allowed() {
		t.Fatalf("expected edit to be allowed, got %q", result.Reason)
	}
}

// TestBreakdown проверяет сводку по категориям.
func TestBreakdown(t *testing.T) {
	budget := budgetWith("500", "100")
	existing := []models.RegularExpense{{Amount: dec("25.5"), Category: models.CategoryFood}}

	usage := Breakdown(budget, existing)
	if len(usage) != len(models.Categories()) {
		t.Fatalf("expected %d categories, got %d", len(models.Categories()), len(usage))
	}
	if usage[0].Category != models.CategoryFood || !usage[0].Remaining.Equal(dec("74.5")) {
		t.Fatalf("unexpected food usage: %+v", usage[0])
	}

	empty := Breakdown(nil, existing)
	if empty[0].HasLimit {
		t.Fatal("expected no limit without allocation")
	}
}
