package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "user_email"

	// TokenCookieName cookie с access-токеном, который выставляет login.
	TokenCookieName = "Token"
)

// JWTMiddleware проверяет access-токен из заголовка Authorization или cookie Token
// и сохраняет user_id в контексте.
func JWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := credentialFromRequest(c)
			if err != nil {
				return err
			}

			claims, err := manager.ParseAccessToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			c.Set(ContextUserIDKey, userID)
			c.Set(ContextEmailKey, claims.Email)
			return next(c)
		}
	}
}

// credentialFromRequest достает токен: заголовок Bearer имеет приоритет над cookie.
func credentialFromRequest(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
		}

		return tokenString, nil
	}

	cookie, err := c.Cookie(TokenCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	return strings.TrimSpace(cookie.Value), nil
}

// UserIDFromContext извлекает идентификатор пользователя из контекста.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(ContextUserIDKey)
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

// EmailFromContext извлекает email пользователя из контекста.
func EmailFromContext(c echo.Context) (string, bool) {
	email, ok := c.Get(ContextEmailKey).(string)
	return email, ok && email != ""
}
