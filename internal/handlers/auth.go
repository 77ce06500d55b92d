package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
)

type AuthHandler struct {
	Sessions      *auth.Sessions
	SecureCookies bool
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(sessions *auth.Sessions, secureCookies bool) *AuthHandler {
	return &AuthHandler{Sessions: sessions, SecureCookies: secureCookies}
}

type RegisterRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest refresh-токен необязателен: cookie снимается в любом случае.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

type UserResponse struct {
	User AuthUser `json:"user"`
}

// Register регистрирует пользователя по имени, email и паролю с подтверждением.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	session, err := h.Sessions.Signup(c.Request().Context(), auth.Signup{
		Name:            req.Name,
		Email:           req.Email,
		Password:        strings.TrimSpace(req.Password),
		ConfirmPassword: strings.TrimSpace(req.ConfirmPassword),
	})
	if err != nil {
		return h.authError(c, err)
	}

	return h.respondSession(c, http.StatusCreated, session)
}

// Login выполняет вход, выдает токены и ставит cookie Token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	session, err := h.Sessions.Login(c.Request().Context(), req.Email, strings.TrimSpace(req.Password))
	if err != nil {
		return h.authError(c, err)
	}

	return h.respondSession(c, http.StatusOK, session)
}

// Refresh обновляет токены по refresh-токену.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	session, err := h.Sessions.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return h.authError(c, err)
	}

	return h.respondSession(c, http.StatusOK, session)
}

// Logout отзывает refresh-токен и снимает cookie с access-токеном.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	c.SetCookie(h.tokenCookie("", -1))

	if strings.TrimSpace(req.RefreshToken) == "" {
		return c.NoContent(http.StatusNoContent)
	}

	if err := h.Sessions.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return h.authError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Me возвращает данные текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Sessions.Account(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "user not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

func (h *AuthHandler) respondSession(c echo.Context, status int, session auth.Session) error {
	c.SetCookie(h.tokenCookie(session.AccessToken, h.Sessions.AccessTTL()))
	return c.JSON(status, AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         toAuthUser(session.User),
	})
}

func (h *AuthHandler) authError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrPasswordMismatch):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrAccountExists):
		return conflict(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionReused):
		return unauthorized(c)
	}
	return respondError(c, err)
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}

func (h *AuthHandler) tokenCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
