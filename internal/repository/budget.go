package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

const budgetColumns = `id, user_id, total, food, transport, bills, rent, entertainment, shopping, other, created_at, updated_at`

type BudgetRepository struct {
	db *pgxpool.Pool
}

// BudgetPatch описывает частичное обновление бюджета. nil и отсутствующие ключи не меняются.
type BudgetPatch struct {
	Total  *decimal.Decimal
	Limits map[models.Category]decimal.Decimal
}

// NewBudgetRepository создает репозиторий бюджетов.
func NewBudgetRepository(db *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Create создает бюджет владельца. Второй бюджет для того же владельца дает ErrConflict.
func (r *BudgetRepository) Create(ctx context.Context, userID uuid.UUID, total decimal.Decimal, limits map[models.Category]decimal.Decimal) (models.BudgetAllocation, error) {
	args := append([]any{userID, total}, limitArgs(limits)...)

	row := r.db.QueryRow(ctx,
		`INSERT INTO budget_allocations (user_id, total, food, transport, bills, rent, entertainment, shopping, other)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+budgetColumns,
		args...,
	)

	budget, err := scanBudget(row)
	if err != nil {
		if isUniqueViolation(err) {
			return budget, ErrConflict
		}
		return budget, err
	}

	return budget, nil
}

// GetByOwner возвращает бюджет владельца или ErrNotFound.
func (r *BudgetRepository) GetByOwner(ctx context.Context, userID uuid.UUID) (models.BudgetAllocation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+budgetColumns+`
		 FROM budget_allocations
		 WHERE user_id = $1
		 ORDER BY created_at
		 LIMIT 1`,
		userID,
	)

	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return budget, ErrNotFound
		}
		return budget, err
	}

	return budget, nil
}

// Update применяет частичное обновление бюджета.
func (r *BudgetRepository) Update(ctx context.Context, userID, budgetID uuid.UUID, patch BudgetPatch) (models.BudgetAllocation, error) {
	var total any
	if patch.Total != nil {
		total = *patch.Total
	}

	args := append([]any{budgetID, userID, total}, limitArgs(patch.Limits)...)

	row := r.db.QueryRow(ctx,
		`UPDATE budget_allocations
		 SET total = COALESCE($3, total),
		     food = COALESCE($4, food),
		     transport = COALESCE($5, transport),
		     bills = COALESCE($6, bills),
		     rent = COALESCE($7, rent),
		     entertainment = COALESCE($8, entertainment),
		     shopping = COALESCE($9, shopping),
		     other = COALESCE($10, other),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+budgetColumns,
		args...,
	)

	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return budget, ErrNotFound
		}
		return budget, err
	}

	return budget, nil
}

// Delete удаляет бюджет и возвращает удаленную запись.
func (r *BudgetRepository) Delete(ctx context.Context, userID, budgetID uuid.UUID) (models.BudgetAllocation, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM budget_allocations
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+budgetColumns,
		budgetID, userID,
	)

	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return budget, ErrNotFound
		}
		return budget, err
	}

	return budget, nil
}

// limitArgs раскладывает лимиты по колонкам в порядке models.Categories().
func limitArgs(limits map[models.Category]decimal.Decimal) []any {
	categories := models.Categories()
	args := make([]any, 0, len(categories))
	for _, category := range categories {
		if limit, ok := limits[category]; ok {
			args = append(args, limit)
			continue
		}
		args = append(args, nil)
	}
	return args
}

func scanBudget(row pgx.Row) (models.BudgetAllocation, error) {
	var budget models.BudgetAllocation
	categories := models.Categories()
	limits := make([]decimal.NullDecimal, len(categories))

	dest := []any{&budget.ID, &budget.UserID, &budget.Total}
	for i := range limits {
		dest = append(dest, &limits[i])
	}
	dest = append(dest, &budget.CreatedAt, &budget.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return budget, err
	}

	budget.Limits = make(map[models.Category]decimal.Decimal, len(categories))
	for i, category := range categories {
		if limits[i].Valid {
			budget.Limits[category] = limits[i].Decimal
		}
	}

	return budget, nil
}
