package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/expense-tracker/backend/internal/models"
)

const cardColumns = `user_id, total_budget, total_spent, remain_budget, total_spent_regular, total_spent_recurring, updated_at`

type CardRepository struct {
	db *pgxpool.Pool
}

// NewCardRepository создает репозиторий снимков бюджета.
func NewCardRepository(db *pgxpool.Pool) *CardRepository {
	return &CardRepository{db: db}
}

// GetByOwner возвращает сохраненный снимок владельца или ErrNotFound.
func (r *CardRepository) GetByOwner(ctx context.Context, userID uuid.UUID) (models.CardSnapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+cardColumns+`
		 FROM card_snapshots
		 WHERE user_id = $1`,
		userID,
	)

	snapshot, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snapshot, ErrNotFound
		}
		return snapshot, err
	}

	return snapshot, nil
}

// Upsert сохраняет снимок, заменяя предыдущий. У владельца не больше одного снимка.
func (r *CardRepository) Upsert(ctx context.Context, snapshot models.CardSnapshot) (models.CardSnapshot, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO card_snapshots (user_id, total_budget, total_spent, remain_budget, total_spent_regular, total_spent_recurring)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE
		 SET total_budget = EXCLUDED.total_budget,
		     total_spent = EXCLUDED.total_spent,
		     remain_budget = EXCLUDED.remain_budget,
		     total_spent_regular = EXCLUDED.total_spent_regular,
		     total_spent_recurring = EXCLUDED.total_spent_recurring,
		     updated_at = NOW()
		 RETURNING `+cardColumns,
		snapshot.UserID,
		snapshot.TotalBudget,
		snapshot.TotalSpent,
		snapshot.RemainBudget,
		snapshot.TotalSpentRegular,
		snapshot.TotalSpentRecurring,
	)

	return scanCard(row)
}

func scanCard(row pgx.Row) (models.CardSnapshot, error) {
	var snapshot models.CardSnapshot
	err := row.Scan(
		&snapshot.UserID,
		&snapshot.TotalBudget,
		&snapshot.TotalSpent,
		&snapshot.RemainBudget,
		&snapshot.TotalSpentRegular,
		&snapshot.TotalSpentRecurring,
		&snapshot.UpdatedAt,
	)
	return snapshot, err
}
