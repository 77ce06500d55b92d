package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"example.com/expense-tracker/backend/internal/ledger"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
)

type NewRegular struct {
	Amount      decimal.Decimal
	Category    string
	Date        time.Time
	Description string
}

// RegularPatch частичное изменение разовой траты. nil поля не меняются.
type RegularPatch struct {
	Amount      *decimal.Decimal
	Category    *string
	Date        *time.Time
	Description *string
}

// AddRegular проверяет лимит категории и сохраняет разовую трату.
// Отказ лимита возвращается как *ledger.DenialError, запись при этом не создается.
func (s *Service) AddRegular(ctx context.Context, ownerID uuid.UUID, input NewRegular) (models.RegularExpense, error) {
	category, ok := models.ParseCategory(input.Category)
	if !ok {
		return models.RegularExpense{}, invalid("category", "must be one of "+categoryList())
	}

	if !input.Amount.IsPositive() {
		return models.RegularExpense{}, invalid("amount", "must be greater than 0")
	}

	date := s.Today()
	if !input.Date.IsZero() {
		date = ledger.Day(input.Date)
	}

	if err := s.checkAllowance(ctx, ownerID, category, input.Amount, nil); err != nil {
		return models.RegularExpense{}, err
	}

	created, err := s.regular.Create(ctx, models.RegularExpense{
		UserID:      ownerID,
		Amount:      input.Amount,
		Category:    category,
		Date:        date,
		Description: strings.TrimSpace(input.Description),
	})
	if err != nil {
		return created, fmt.Errorf("create regular expense: %w", err)
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return created, err
	}

	return created, nil
}

// ListRegular возвращает разовые траты владельца.
func (s *Service) ListRegular(ctx context.Context, ownerID uuid.UUID) ([]models.RegularExpense, error) {
	return s.regular.ListByOwner(ctx, ownerID)
}

// UpdateRegular изменяет разовую трату. Лимит проверяется без прежней суммы этой траты.
func (s *Service) UpdateRegular(ctx context.Context, ownerID, expenseID uuid.UUID, patch RegularPatch) (models.RegularExpense, error) {
	current, err := s.regular.GetByID(ctx, ownerID, expenseID)
	if err != nil {
		return current, err
	}

	var update repository.RegularExpensePatch
	amount := current.Amount
	category := current.Category

	if patch.Category != nil {
		parsed, ok := models.ParseCategory(*patch.Category)
		if !ok {
			return current, invalid("category", "must be one of "+categoryList())
		}
		category = parsed
		update.Category = &parsed
	}

	if patch.Amount != nil {
		if !patch.Amount.IsPositive() {
			return current, invalid("amount", "must be greater than 0")
		}
		amount = *patch.Amount
		update.Amount = &amount
	}

	if patch.Date != nil {
		if patch.Date.IsZero() {
			return current, invalid("date", "must be a date")
		}
		date := ledger.Day(*patch.Date)
		update.Date = &date
	}

	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		update.Description = &description
	}

	if update.Amount != nil || update.Category != nil {
		if err := s.checkAllowance(ctx, ownerID, category, amount, &expenseID); err != nil {
			return current, err
		}
	}

	updated, err := s.regular.Update(ctx, ownerID, expenseID, update)
	if err != nil {
		return updated, err
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return updated, err
	}

	return updated, nil
}

// DeleteRegular удаляет разовую трату и пересчитывает снимок.
func (s *Service) DeleteRegular(ctx context.Context, ownerID, expenseID uuid.UUID) (models.RegularExpense, error) {
	removed, err := s.regular.Delete(ctx, ownerID, expenseID)
	if err != nil {
		return removed, err
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return removed, err
	}

	return removed, nil
}

// CheckAllowance проверяет сумму против лимита категории без сохранения.
func (s *Service) CheckAllowance(ctx context.Context, ownerID uuid.UUID, category string, amount decimal.Decimal) (ledger.Allowance, error) {
	parsed, ok := models.ParseCategory(category)
	if !ok {
		return ledger.Allowance{}, invalid("category", "must be one of "+categoryList())
	}
	if !amount.IsPositive() {
		return ledger.Allowance{}, invalid("amount", "must be greater than 0")
	}

	allocation, regular, err := s.loadGuardInputs(ctx, ownerID)
	if err != nil {
		return ledger.Allowance{}, err
	}

	return ledger.CheckAllowance(allocation, parsed, amount, regular, nil), nil
}

// CategoryBreakdown возвращает лимит, траты и остаток по каждой категории.
func (s *Service) CategoryBreakdown(ctx context.Context, ownerID uuid.UUID) ([]ledger.CategoryUsage, error) {
	allocation, regular, err := s.loadGuardInputs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return ledger.Breakdown(allocation, regular), nil
}

func (s *Service) checkAllowance(ctx context.Context, ownerID uuid.UUID, category models.Category, amount decimal.Decimal, excludingID *uuid.UUID) error {
	allocation, regular, err := s.loadGuardInputs(ctx, ownerID)
	if err != nil {
		return err
	}

	return ledger.CheckAllowance(allocation, category, amount, regular, excludingID).Err()
}

func (s *Service) loadGuardInputs(ctx context.Context, ownerID uuid.UUID) (*models.BudgetAllocation, []models.RegularExpense, error) {
	var allocation *models.BudgetAllocation
	var regular []models.RegularExpense

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		budget, err := s.budgets.GetByOwner(gctx, ownerID)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return fmt.Errorf("load budget: %w", err)
		}
		allocation = &budget
		return nil
	})

	g.Go(func() error {
		items, err := s.regular.ListByOwner(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("load regular expenses: %w", err)
		}
		regular = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return allocation, regular, nil
}
