package tracker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
)

type NewBudget struct {
	Total  decimal.Decimal
	Limits map[string]decimal.Decimal
}

// BudgetPatch частичное изменение бюджета. Отсутствующие категории не меняются.
type BudgetPatch struct {
	Total  *decimal.Decimal
	Limits map[string]decimal.Decimal
}

// CreateBudget создает единственный бюджет владельца.
func (s *Service) CreateBudget(ctx context.Context, ownerID uuid.UUID, input NewBudget) (models.BudgetAllocation, error) {
	if input.Total.IsNegative() {
		return models.BudgetAllocation{}, invalid("total", "must not be negative")
	}

	limits, err := parseLimits(input.Limits)
	if err != nil {
		return models.BudgetAllocation{}, err
	}

	if _, err := s.budgets.GetByOwner(ctx, ownerID); err == nil {
		return models.BudgetAllocation{}, repository.ErrConflict
	} else if !isNotFound(err) {
		return models.BudgetAllocation{}, fmt.Errorf("load budget: %w", err)
	}

	created, err := s.budgets.Create(ctx, ownerID, input.Total, limits)
	if err != nil {
		return created, err
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return created, err
	}

	return created, nil
}

// GetBudget возвращает бюджет владельца или repository.ErrNotFound.
func (s *Service) GetBudget(ctx context.Context, ownerID uuid.UUID) (models.BudgetAllocation, error) {
	return s.budgets.GetByOwner(ctx, ownerID)
}

// UpdateBudget изменяет общий лимит и лимиты категорий.
func (s *Service) UpdateBudget(ctx context.Context, ownerID, budgetID uuid.UUID, patch BudgetPatch) (models.BudgetAllocation, error) {
	var update repository.BudgetPatch

	if patch.Total != nil {
		if patch.Total.IsNegative() {
			return models.BudgetAllocation{}, invalid("total", "must not be negative")
		}
		total := *patch.Total
		update.Total = &total
	}

	limits, err := parseLimits(patch.Limits)
	if err != nil {
		return models.BudgetAllocation{}, err
	}
	update.Limits = limits

	updated, err := s.budgets.Update(ctx, ownerID, budgetID, update)
	if err != nil {
		return updated, err
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return updated, err
	}

	return updated, nil
}

// DeleteBudget удаляет бюджет. Снимок пересчитывается с нулевым общим лимитом.
func (s *Service) DeleteBudget(ctx context.Context, ownerID, budgetID uuid.UUID) (models.BudgetAllocation, error) {
	removed, err := s.budgets.Delete(ctx, ownerID, budgetID)
	if err != nil {
		return removed, err
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return removed, err
	}

	return removed, nil
}

func parseLimits(raw map[string]decimal.Decimal) (map[models.Category]decimal.Decimal, error) {
	limits := make(map[models.Category]decimal.Decimal, len(raw))
	for name, limit := range raw {
		category, ok := models.ParseCategory(name)
		if !ok {
			return nil, invalid("limits", fmt.Sprintf("contain unknown category %q", name))
		}
		if limit.IsNegative() {
			return nil, invalid("limits", fmt.Sprintf("%s must not be negative", category))
		}
		limits[category] = limit
	}
	return limits, nil
}
