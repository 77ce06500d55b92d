package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
)

type AdminHandler struct {
	Repo *repository.AdminRepository
}

// NewAdminHandler создает обработчик админских эндпоинтов.
func NewAdminHandler(repo *repository.AdminRepository) *AdminHandler {
	return &AdminHandler{Repo: repo}
}

// AdminUserResponse суммы снимка равны null, пока пользователь ни разу не синхронизировался.
type AdminUserResponse struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	Name         *string          `json:"name,omitempty"`
	TotalBudget  *decimal.Decimal `json:"total_budget"`
	TotalSpent   *decimal.Decimal `json:"total_spent"`
	RemainBudget *decimal.Decimal `json:"remain_budget"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

type AdminUsersResponse struct {
	Total int                 `json:"total"`
	Users []AdminUserResponse `json:"users"`
}

type AdminUsageDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AdminUsageResponse struct {
	Users             int             `json:"users"`
	Budgets           int             `json:"budgets"`
	RegularExpenses   int             `json:"regular_expenses"`
	RecurringExpenses int             `json:"recurring_expenses"`
	AutoDeduct        int             `json:"auto_deduct"`
	RegularByDay      []AdminUsageDay `json:"regular_by_day"`
}

// ListUsers возвращает список пользователей для админки.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	users, err := h.Repo.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.CountUsers(c.Request().Context())
	if err != nil {
		return serverError(c)
	}

	response := make([]AdminUserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, AdminUserResponse{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			TotalBudget:  user.TotalBudget,
			TotalSpent:   user.TotalSpent,
			RemainBudget: user.RemainBudget,
			CreatedAt:    user.CreatedAt.Format(timeLayout),
			UpdatedAt:    user.UpdatedAt.Format(timeLayout),
		})
	}

	return c.JSON(http.StatusOK, AdminUsersResponse{
		Total: total,
		Users: response,
	})
}

// Usage возвращает агрегированную статистику использования.
func (h *AdminHandler) Usage(c echo.Context) error {
	days := 7
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid days")
		}
		if parsed > 30 {
			parsed = 30
		}
		days = parsed
	}

	stats, err := h.Repo.UsageStats(c.Request().Context(), days)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid days")
		}
		return serverError(c)
	}

	daysResponse := make([]AdminUsageDay, 0, len(stats.RegularExpensesDay))
	for _, day := range stats.RegularExpensesDay {
		daysResponse = append(daysResponse, AdminUsageDay{
			Date:  formatDate(day.Day),
			Count: day.Count,
		})
	}

	return c.JSON(http.StatusOK, AdminUsageResponse{
		Users:             stats.Users,
		Budgets:           stats.Budgets,
		RegularExpenses:   stats.RegularExpenses,
		RecurringExpenses: stats.RecurringExpenses,
		AutoDeduct:        stats.AutoDeduct,
		RegularByDay:      daysResponse,
	})
}

// AccountLookup находит учетную запись по идентификатору; *auth.Sessions удовлетворяет интерфейсу.
type AccountLookup interface {
	Account(ctx context.Context, userID uuid.UUID) (models.User, error)
}

// AdminMiddleware ограничивает доступ к админским роутам по email.
func AdminMiddleware(accounts AccountLookup, emails []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		trimmed := repository.NormalizeEmail(email)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := auth.UserIDFromContext(c)
			if !ok {
				return unauthorized(c)
			}

			if len(allowed) == 0 {
				return forbidden(c)
			}

			user, err := accounts.Account(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return forbidden(c)
				}
				return serverError(c)
			}

			if _, ok := allowed[repository.NormalizeEmail(user.Email)]; !ok {
				return forbidden(c)
			}

			return next(c)
		}
	}
}

func parsePagination(c echo.Context, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		limit = parsed
	}

	offset := 0
	if raw := strings.TrimSpace(c.QueryParam("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	return limit, offset, nil
}
