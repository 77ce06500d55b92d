package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

type AdminUser struct {
	ID           uuid.UUID
	Email        string
	Name         *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	TotalBudget  *decimal.Decimal
	TotalSpent   *decimal.Decimal
	RemainBudget *decimal.Decimal
}

type DailyCount struct {
	Day   time.Time
	Count int
}

type UsageStats struct {
	Users              int
	Budgets            int
	RegularExpenses    int
	RecurringExpenses  int
	AutoDeduct         int
	RegularExpensesDay []DailyCount
}

// NewAdminRepository создает репозиторий для админских запросов.
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListUsers возвращает пользователей с последним снимком бюджета.
func (r *AdminRepository) ListUsers(ctx context.Context, limit, offset int) ([]AdminUser, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.email, u.name, u.created_at, u.updated_at,
		        c.total_budget, c.total_spent, c.remain_budget
		 FROM users u
		 LEFT JOIN card_snapshots c ON c.user_id = u.id
		 ORDER BY u.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]AdminUser, 0)
	for rows.Next() {
		var user AdminUser
		var totalBudget, totalSpent, remainBudget decimal.NullDecimal
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.CreatedAt,
			&user.UpdatedAt,
			&totalBudget,
			&totalSpent,
			&remainBudget,
		); err != nil {
			return nil, err
		}
		user.TotalBudget = nullDecimalPtr(totalBudget)
		user.TotalSpent = nullDecimalPtr(totalSpent)
		user.RemainBudget = nullDecimalPtr(remainBudget)
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// CountUsers возвращает общее количество пользователей.
func (r *AdminRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UsageStats возвращает агрегированную статистику за N дней.
func (r *AdminRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	if err := r.db.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM users),
		        (SELECT COUNT(*) FROM budget_allocations),
		        (SELECT COUNT(*) FROM regular_expenses)`,
	).Scan(&stats.Users, &stats.Budgets, &stats.RegularExpenses); err != nil {
		return stats, err
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE auto_deduct)
		 FROM recurring_expenses`,
	).Scan(&stats.RecurringExpenses, &stats.AutoDeduct); err != nil {
		return stats, err
	}

	start := time.Now().UTC().AddDate(0, 0, -days+1)
	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at)::date AS day,
		        COUNT(*)
		 FROM regular_expenses
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day DESC`,
		start,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.RegularExpensesDay = make([]DailyCount, 0)
	for rows.Next() {
		var row DailyCount
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return stats, err
		}
		stats.RegularExpensesDay = append(stats.RegularExpensesDay, row)
	}

	if err := rows.Err(); err != nil {
		return stats, err
	}

	return stats, nil
}

func nullDecimalPtr(value decimal.NullDecimal) *decimal.Decimal {
	if !value.Valid {
		return nil
	}
	amount := value.Decimal
	return &amount
}
