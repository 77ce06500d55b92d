package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("user already exists")
	// ErrSessionReused предъявлен уже замененный refresh-токен; все сессии пользователя закрыты.
	ErrSessionReused = errors.New("refresh token reuse detected")
)

type AccountStore interface {
	Create(ctx context.Context, account repository.NewAccount) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)
	Rotate(ctx context.Context, oldID uuid.UUID, next models.RefreshToken) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Sessions ведет регистрацию, вход, ротацию и выход поверх учетных записей и refresh-сессий.
type Sessions struct {
	accounts AccountStore
	sessions SessionStore
	tokens   *TokenManager
	logger   *slog.Logger
}

type Session struct {
	TokenPair
	User models.User
}

type Signup struct {
	Name            *string
	Email           string
	Password        string
	ConfirmPassword string
}

func NewSessions(accounts AccountStore, sessions SessionStore, tokens *TokenManager, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{accounts: accounts, sessions: sessions, tokens: tokens, logger: logger}
}

// Signup создает учетную запись и сразу открывает сессию.
func (s *Sessions) Signup(ctx context.Context, input Signup) (Session, error) {
	if err := ValidatePassword(input.Password, input.ConfirmPassword); err != nil {
		return Session{}, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.accounts.Create(ctx, repository.NewAccount{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return Session{}, ErrAccountExists
		}
		return Session{}, err
	}

	return s.open(ctx, user)
}

// Login проверяет пароль. Неизвестный email и неверный пароль неразличимы.
func (s *Sessions) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.open(ctx, user)
}

// Refresh меняет refresh-токен на новую пару. Повторное предъявление
// замененного токена закрывает все сессии пользователя.
func (s *Sessions) Refresh(ctx context.Context, raw string) (Session, error) {
	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil {
		return Session{}, err
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return Session{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return Session{}, err
	}

	stored, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if stored.UserID != userID || !CompareTokenHash(stored.TokenHash, raw) {
		return Session{}, ErrInvalidCredentials
	}

	if stored.RevokedAt != nil {
		revoked, err := s.sessions.RevokeAllForUser(ctx, userID)
		if err != nil {
			return Session{}, err
		}
		s.logger.WarnContext(ctx, "refresh token reused",
			slog.String("user_id", userID.String()),
			slog.Int64("revoked_sessions", revoked),
		)
		return Session{}, ErrSessionReused
	}
	if !s.tokens.now().Before(stored.ExpiresAt) {
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	next, pair, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Rotate(ctx, stored.ID, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	return Session{TokenPair: pair, User: user}, nil
}

// Logout закрывает сессию refresh-токена. Уже закрытая сессия не считается ошибкой.
func (s *Sessions) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil {
		return err
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Sessions) Account(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.accounts.GetByID(ctx, userID)
}

func (s *Sessions) AccessTTL() int {
	return int(s.tokens.AccessTTL().Seconds())
}

func (s *Sessions) open(ctx context.Context, user models.User) (Session, error) {
	token, pair, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Create(ctx, token); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return Session{TokenPair: pair, User: user}, nil
}

func (s *Sessions) issue(user models.User) (models.RefreshToken, TokenPair, error) {
	sessionID := uuid.New()
	pair, err := s.tokens.Issue(user, sessionID)
	if err != nil {
		return models.RefreshToken{}, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	return models.RefreshToken{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}, pair, nil
}
