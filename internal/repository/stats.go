package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

type OverviewStats struct {
	RegularCount      int
	RecurringCount    int
	AutoDeductCount   int
	TotalRegularSpent decimal.Decimal
}

type MonthlySpend struct {
	Month time.Time
	Spent decimal.Decimal
	Count int
}

// NewStatsRepository создает репозиторий статистики.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview возвращает сводку по записям пользователя.
func (r *StatsRepository) Overview(ctx context.Context, userID uuid.UUID) (OverviewStats, error) {
	var stats OverviewStats

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0)
		 FROM regular_expenses
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.RegularCount, &stats.TotalRegularSpent)
	if err != nil {
		return stats, err
	}

	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE auto_deduct)
		 FROM recurring_expenses
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.RecurringCount, &stats.AutoDeductCount)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// MonthlySpending возвращает сумму разовых трат по месяцам, последние месяцы первыми.
func (r *StatsRepository) MonthlySpending(ctx context.Context, userID uuid.UUID, months int) ([]MonthlySpend, error) {
	if months <= 0 {
		return nil, ErrInvalid
	}

	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('month', expense_date)::date AS month,
		        COALESCE(SUM(amount), 0) AS spent,
		        COUNT(*)
		 FROM regular_expenses
		 WHERE user_id = $1
		 GROUP BY month
		 ORDER BY month DESC
		 LIMIT $2`,
		userID, months,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]MonthlySpend, 0)
	for rows.Next() {
		var row MonthlySpend
		if err := rows.Scan(&row.Month, &row.Spent, &row.Count); err != nil {
			return nil, err
		}
		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
