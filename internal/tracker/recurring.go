package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/ledger"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
)

type NewRecurring struct {
	Name        string
	Category    string
	Amount      decimal.Decimal
	Frequency   string
	NextDueDate time.Time
	AutoDeduct  bool
}

// RecurringPatch частичное изменение регулярного платежа. nil поля не меняются.
type RecurringPatch struct {
	Name        *string
	Category    *string
	Amount      *decimal.Decimal
	Frequency   *string
	NextDueDate *time.Time
	AutoDeduct  *bool
}

// AddRecurring создает регулярный платеж и синхронизирует владельца.
// Платеж с автосписанием и сроком сегодня оплачивается в той же синхронизации.
func (s *Service) AddRecurring(ctx context.Context, ownerID uuid.UUID, input NewRecurring) (models.RecurringExpense, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.RecurringExpense{}, invalid("name", "is required")
	}

	category, ok := models.ParseCategory(input.Category)
	if !ok {
		return models.RecurringExpense{}, invalid("category", "must be one of "+categoryList())
	}

	frequency, ok := models.ParseFrequency(input.Frequency)
	if !ok {
		return models.RecurringExpense{}, invalid("frequency", "must be one of Daily, Weekly, Monthly, Yearly")
	}

	if !input.Amount.IsPositive() {
		return models.RecurringExpense{}, invalid("amount", "must be greater than 0")
	}

	if input.NextDueDate.IsZero() {
		return models.RecurringExpense{}, invalid("next_due_date", "is required")
	}

	expense := ledger.Project(models.RecurringExpense{
		UserID:      ownerID,
		Name:        name,
		Category:    category,
		Amount:      input.Amount,
		Frequency:   frequency,
		NextDueDate: ledger.Day(input.NextDueDate),
		AutoDeduct:  input.AutoDeduct,
	}, s.Today(), s.lookaheadDays)

	created, err := s.recurring.Create(ctx, expense)
	if err != nil {
		return created, fmt.Errorf("create recurring expense: %w", err)
	}

	return s.syncRecurring(ctx, created)
}

// ListRecurring возвращает регулярные платежи с пересчитанными флагами.
func (s *Service) ListRecurring(ctx context.Context, ownerID uuid.UUID) ([]models.RecurringExpense, error) {
	result, err := s.Sync(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return result.Recurring, nil
}

// PayNow проводит ручную оплату платежа, срок которого наступил.
func (s *Service) PayNow(ctx context.Context, ownerID, expenseID uuid.UUID) (models.RecurringExpense, error) {
	expense, err := s.recurring.GetByID(ctx, ownerID, expenseID)
	if err != nil {
		return expense, err
	}

	today := s.Today()
	if ledger.Classify(expense, today, s.lookaheadDays) != ledger.DuePayable {
		return ledger.Project(expense, today, s.lookaheadDays), ErrNotPayable
	}

	payment, current, err := s.pay(ctx, expense, today)
	if err != nil {
		return current, err
	}
	if payment == nil {
		return current, ErrNotPayable
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return current, err
	}

	return current, nil
}

// UpdateRecurring изменяет регулярный платеж и синхронизирует владельца.
func (s *Service) UpdateRecurring(ctx context.Context, ownerID, expenseID uuid.UUID, patch RecurringPatch) (models.RecurringExpense, error) {
	var update repository.RecurringExpensePatch

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.RecurringExpense{}, invalid("name", "must not be empty")
		}
		update.Name = &name
	}

	if patch.Category != nil {
		category, ok := models.ParseCategory(*patch.Category)
		if !ok {
			return models.RecurringExpense{}, invalid("category", "must be one of "+categoryList())
		}
		update.Category = &category
	}

	if patch.Frequency != nil {
		frequency, ok := models.ParseFrequency(*patch.Frequency)
		if !ok {
			return models.RecurringExpense{}, invalid("frequency", "must be one of Daily, Weekly, Monthly, Yearly")
		}
		update.Frequency = &frequency
	}

	if patch.Amount != nil {
		if !patch.Amount.IsPositive() {
			return models.RecurringExpense{}, invalid("amount", "must be greater than 0")
		}
		amount := *patch.Amount
		update.Amount = &amount
	}

	if patch.NextDueDate != nil {
		if patch.NextDueDate.IsZero() {
			return models.RecurringExpense{}, invalid("next_due_date", "must be a date")
		}
		due := ledger.Day(*patch.NextDueDate)
		update.NextDueDate = &due
	}

	update.AutoDeduct = patch.AutoDeduct

	updated, err := s.recurring.Update(ctx, ownerID, expenseID, update)
	if err != nil {
		return updated, err
	}

	return s.syncRecurring(ctx, updated)
}

// DeleteRecurring удаляет регулярный платеж и пересчитывает снимок.
func (s *Service) DeleteRecurring(ctx context.Context, ownerID, expenseID uuid.UUID) (models.RecurringExpense, error) {
	removed, err := s.recurring.Delete(ctx, ownerID, expenseID)
	if err != nil {
		return removed, err
	}

	if _, err := s.Sync(ctx, ownerID); err != nil {
		return removed, err
	}

	return ledger.Project(removed, s.Today(), s.lookaheadDays), nil
}

// Snapshot возвращает актуальный снимок бюджета владельца.
func (s *Service) Snapshot(ctx context.Context, ownerID uuid.UUID) (models.CardSnapshot, error) {
	result, err := s.Sync(ctx, ownerID)
	if err != nil {
		return models.CardSnapshot{}, err
	}
	return result.Snapshot, nil
}

// syncRecurring синхронизирует владельца и возвращает актуальную версию записи.
func (s *Service) syncRecurring(ctx context.Context, expense models.RecurringExpense) (models.RecurringExpense, error) {
	result, err := s.Sync(ctx, expense.UserID)
	if err != nil {
		return expense, err
	}

	for _, current := range result.Recurring {
		if current.ID == expense.ID {
			return current, nil
		}
	}

	return expense, fmt.Errorf("recurring expense %s: %w", expense.ID, repository.ErrNotFound)
}

func categoryList() string {
	categories := models.Categories()
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, string(category))
	}
	return strings.Join(names, ", ")
}

// isNotFound сообщает, что запись отсутствует или принадлежит другому владельцу.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
