package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
)

const regularColumns = `id, user_id, amount, category, expense_date, description, created_at, updated_at`

type RegularExpenseRepository struct {
	db *pgxpool.Pool
}

// RegularExpensePatch описывает частичное обновление разовой траты.
type RegularExpensePatch struct {
	Amount      *decimal.Decimal
	Category    *models.Category
	Date        *time.Time
	Description *string
}

// NewRegularExpenseRepository создает репозиторий разовых трат.
func NewRegularExpenseRepository(db *pgxpool.Pool) *RegularExpenseRepository {
	return &RegularExpenseRepository{db: db}
}

// Create сохраняет разовую трату.
func (r *RegularExpenseRepository) Create(ctx context.Context, expense models.RegularExpense) (models.RegularExpense, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO regular_expenses (user_id, amount, category, expense_date, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+regularColumns,
		expense.UserID, expense.Amount, expense.Category, expense.Date, expense.Description,
	)

	return scanRegular(row)
}

// ListByOwner возвращает разовые траты владельца, новые первыми.
func (r *RegularExpenseRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.RegularExpense, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+regularColumns+`
		 FROM regular_expenses
		 WHERE user_id = $1
		 ORDER BY expense_date DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]models.RegularExpense, 0)
	for rows.Next() {
		expense, err := scanRegular(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expenses, nil
}

// GetByID возвращает разовую трату владельца по идентификатору.
func (r *RegularExpenseRepository) GetByID(ctx context.Context, userID, expenseID uuid.UUID) (models.RegularExpense, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+regularColumns+`
		 FROM regular_expenses
		 WHERE id = $1 AND user_id = $2`,
		expenseID, userID,
	)

	expense, err := scanRegular(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// Update применяет частичное обновление разовой траты.
func (r *RegularExpenseRepository) Update(ctx context.Context, userID, expenseID uuid.UUID, patch RegularExpensePatch) (models.RegularExpense, error) {
	var amount any
	if patch.Amount != nil {
		amount = *patch.Amount
	}

	row := r.db.QueryRow(ctx,
		`UPDATE regular_expenses
		 SET amount = COALESCE($3, amount),
		     category = COALESCE($4, category),
		     expense_date = COALESCE($5, expense_date),
		     description = COALESCE($6, description),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+regularColumns,
		expenseID, userID, amount, patch.Category, patch.Date, patch.Description,
	)

	expense, err := scanRegular(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// Delete удаляет разовую трату и возвращает удаленную запись.
func (r *RegularExpenseRepository) Delete(ctx context.Context, userID, expenseID uuid.UUID) (models.RegularExpense, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM regular_expenses
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+regularColumns,
		expenseID, userID,
	)

	expense, err := scanRegular(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

func scanRegular(row pgx.Row) (models.RegularExpense, error) {
	var expense models.RegularExpense
	var category string

	err := row.Scan(&expense.ID, &expense.UserID, &expense.Amount, &category, &expense.Date, &expense.Description, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return expense, err
	}

	expense.Category = models.Category(category)
	return expense, nil
}
