package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/expense-tracker/backend/internal/models"
)

const userColumns = `id, email, password_hash, name, created_at, updated_at`

type UserRepository struct {
	db *pgxpool.Pool
}

// NewAccount данные регистрации. Пароль уже захэширован.
type NewAccount struct {
	Email        string
	PasswordHash string
	Name         *string
}

// NewUserRepository создает репозиторий учетных записей.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// NormalizeEmail приводит email к виду, под которым он хранится и ищется.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName обрезает пробелы; пустое имя хранится как NULL.
func NormalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Create регистрирует учетную запись. Занятый email дает ErrConflict.
func (r *UserRepository) Create(ctx context.Context, account NewAccount) (models.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, name)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		NormalizeEmail(account.Email), account.PasswordHash, NormalizeName(account.Name),
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return user, ErrConflict
		}
		return user, err
	}

	return user, nil
}

// GetByEmail ищет учетную запись по нормализованному email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `WHERE email = $1`, NormalizeEmail(email))
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return user, ErrNotFound
	}
	return user, err
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}
