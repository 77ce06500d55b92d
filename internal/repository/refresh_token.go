package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/expense-tracker/backend/internal/models"
)

const refreshTokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by`

// RefreshTokenRepository хранит сессии входа. В базе лежит только хэш токена.
type RefreshTokenRepository struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepository(db *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create открывает новую сессию.
func (r *RefreshTokenRepository) Create(ctx context.Context, token models.RefreshToken) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt,
	)
	return err
}

// GetByID возвращает сессию, в том числе отозванную.
func (r *RefreshTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE id = $1`, id)

	var token models.RefreshToken
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt, &token.RevokedAt, &token.ReplacedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return token, ErrNotFound
	}
	return token, err
}

// Rotate закрывает действующую сессию владельца и открывает следующую в одной транзакции.
// Уже отозванная, истекшая или чужая сессия дает ErrNotFound, и новая не создается.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID uuid.UUID, next models.RefreshToken) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx,
			`UPDATE refresh_tokens
			 SET revoked_at = NOW(), replaced_by = $2
			 WHERE id = $1 AND user_id = $3 AND revoked_at IS NULL AND expires_at > NOW()`,
			oldID, next.ID, next.UserID,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
			 VALUES ($1, $2, $3, $4)`,
			next.ID, next.UserID, next.TokenHash, next.ExpiresAt,
		)
		return err
	})
}

// Revoke закрывает одну сессию при выходе.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForUser закрывает все открытые сессии пользователя и возвращает их число.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
