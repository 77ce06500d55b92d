package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"example.com/expense-tracker/backend/internal/models"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims Email и Name попадают только в access-токен.
type Claims struct {
	TokenType TokenType `json:"typ"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID возвращает владельца токена.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject", ErrInvalidToken)
	}
	return id, nil
}

// SessionID возвращает идентификатор сессии refresh-токена.
func (c *Claims) SessionID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id", ErrInvalidToken)
	}
	return id, nil
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager подписывает токены HS256 общим секретом.
func NewTokenManager(secret string, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue выпускает пару токенов для пользователя. sessionID становится jti refresh-токена.
func (m *TokenManager) Issue(user models.User, sessionID uuid.UUID) (TokenPair, error) {
	now := m.now()

	access := m.claims(TokenTypeAccess, user.ID, uuid.New(), now, m.accessTTL)
	access.Email = user.Email
	if user.Name != nil {
		access.Name = *user.Name
	}

	refresh := m.claims(TokenTypeRefresh, user.ID, sessionID, now, m.refreshTTL)

	pair := TokenPair{
		AccessExpiresAt:  access.ExpiresAt.Time,
		RefreshExpiresAt: refresh.ExpiresAt.Time,
	}

	var err error
	if pair.AccessToken, err = m.sign(access); err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken, err = m.sign(refresh); err != nil {
		return TokenPair{}, err
	}

	return pair, nil
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// ParseAccessToken проверяет подпись, issuer, срок и тип access-токена.
func (m *TokenManager) ParseAccessToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenTypeAccess)
}

// ParseRefreshToken то же для refresh-токена.
func (m *TokenManager) ParseRefreshToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenTypeRefresh)
}

func (m *TokenManager) claims(tokenType TokenType, userID, tokenID uuid.UUID, now time.Time, ttl time.Duration) *Claims {
	return &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			ID:        tokenID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (m *TokenManager) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) parse(tokenString string, tokenType TokenType) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, tokenType)
	}

	return claims, nil
}
