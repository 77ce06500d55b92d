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

const recurringColumns = `id, user_id, name, category, amount, frequency, next_due_date, auto_deduct, last_paid, pay_now, is_upcoming, created_at, updated_at`

type RecurringExpenseRepository struct {
	db *pgxpool.Pool
}

// RecurringExpensePatch описывает частичное обновление регулярного платежа.
type RecurringExpensePatch struct {
	Name        *string
	Category    *models.Category
	Amount      *decimal.Decimal
	Frequency   *models.Frequency
	NextDueDate *time.Time
	AutoDeduct  *bool
}

// NewRecurringExpenseRepository создает репозиторий регулярных платежей.
func NewRecurringExpenseRepository(db *pgxpool.Pool) *RecurringExpenseRepository {
	return &RecurringExpenseRepository{db: db}
}

// Create сохраняет регулярный платеж вместе с рассчитанными флагами.
func (r *RecurringExpenseRepository) Create(ctx context.Context, expense models.RecurringExpense) (models.RecurringExpense, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO recurring_expenses (user_id, name, category, amount, frequency, next_due_date, auto_deduct, last_paid, pay_now, is_upcoming)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+recurringColumns,
		expense.UserID, expense.Name, expense.Category, expense.Amount, expense.Frequency,
		expense.NextDueDate, expense.AutoDeduct, expense.LastPaid, expense.PayNow, expense.IsUpcoming,
	)

	return scanRecurring(row)
}

// ListByOwner возвращает регулярные платежи владельца по возрастанию даты.
func (r *RecurringExpenseRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.RecurringExpense, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_expenses
		 WHERE user_id = $1
		 ORDER BY next_due_date, created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]models.RecurringExpense, 0)
	for rows.Next() {
		expense, err := scanRecurring(rows)
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

// GetByID возвращает регулярный платеж владельца.
func (r *RecurringExpenseRepository) GetByID(ctx context.Context, userID, expenseID uuid.UUID) (models.RecurringExpense, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_expenses
		 WHERE id = $1 AND user_id = $2`,
		expenseID, userID,
	)

	expense, err := scanRecurring(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// Update применяет частичное обновление. Флаги пересчитываются при следующей синхронизации.
func (r *RecurringExpenseRepository) Update(ctx context.Context, userID, expenseID uuid.UUID, patch RecurringExpensePatch) (models.RecurringExpense, error) {
	var amount any
	if patch.Amount != nil {
		amount = *patch.Amount
	}

	row := r.db.QueryRow(ctx,
		`UPDATE recurring_expenses
		 SET name = COALESCE($3, name),
		     category = COALESCE($4, category),
		     amount = COALESCE($5, amount),
		     frequency = COALESCE($6, frequency),
		     next_due_date = COALESCE($7, next_due_date),
		     auto_deduct = COALESCE($8, auto_deduct),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+recurringColumns,
		expenseID, userID, patch.Name, patch.Category, amount, patch.Frequency, patch.NextDueDate, patch.AutoDeduct,
	)

	expense, err := scanRecurring(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// Delete удаляет регулярный платеж и возвращает удаленную запись.
func (r *RecurringExpenseRepository) Delete(ctx context.Context, userID, expenseID uuid.UUID) (models.RecurringExpense, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM recurring_expenses
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+recurringColumns,
		expenseID, userID,
	)

	expense, err := scanRecurring(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// SavePayment сохраняет результат оплаты, только если дата платежа еще равна previousDue.
// ErrNotFound означает, что запись уже сдвинута другим запуском или удалена.
func (r *RecurringExpenseRepository) SavePayment(ctx context.Context, expense models.RecurringExpense, previousDue time.Time) (models.RecurringExpense, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE recurring_expenses
		 SET next_due_date = $4,
		     last_paid = $5,
		     pay_now = $6,
		     is_upcoming = $7,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND next_due_date = $3
		 RETURNING `+recurringColumns,
		expense.ID, expense.UserID, previousDue, expense.NextDueDate, expense.LastPaid, expense.PayNow, expense.IsUpcoming,
	)

	saved, err := scanRecurring(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return saved, ErrNotFound
		}
		return saved, err
	}

	return saved, nil
}

// SaveFlags сохраняет пересчитанные флаги payNow и isUpcoming.
func (r *RecurringExpenseRepository) SaveFlags(ctx context.Context, expense models.RecurringExpense) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE recurring_expenses
		 SET pay_now = $3, is_upcoming = $4
		 WHERE id = $1 AND user_id = $2`,
		expense.ID, expense.UserID, expense.PayNow, expense.IsUpcoming,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListOwnerIDs возвращает владельцев, у которых есть регулярные платежи.
func (r *RecurringExpenseRepository) ListOwnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id FROM recurring_expenses ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func scanRecurring(row pgx.Row) (models.RecurringExpense, error) {
	var expense models.RecurringExpense
	var category, frequency string

	err := row.Scan(
		&expense.ID,
		&expense.UserID,
		&expense.Name,
		&category,
		&expense.Amount,
		&frequency,
		&expense.NextDueDate,
		&expense.AutoDeduct,
		&expense.LastPaid,
		&expense.PayNow,
		&expense.IsUpcoming,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return expense, err
	}

	expense.Category = models.Category(category)
	expense.Frequency = models.Frequency(frequency)
	return expense, nil
}
