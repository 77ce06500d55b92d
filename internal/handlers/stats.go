package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/ledger"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
	"example.com/expense-tracker/backend/internal/tracker"
)

type StatsHandler struct {
	Stats   *repository.StatsRepository
	Tracker *tracker.Service
}

// NewStatsHandler создает обработчик статистики.
func NewStatsHandler(stats *repository.StatsRepository, service *tracker.Service) *StatsHandler {
	return &StatsHandler{Stats: stats, Tracker: service}
}

type OverviewResponse struct {
	RegularCount      int             `json:"regular_count"`
	RecurringCount    int             `json:"recurring_count"`
	AutoDeductCount   int             `json:"auto_deduct_count"`
	TotalRegularSpent decimal.Decimal `json:"total_regular_spent"`
}

type CategoryUsageResponse struct {
	Categories []CategoryUsageItem `json:"categories"`
}

// CategoryUsageItem limit и remaining равны null для категории без бюджета.
type CategoryUsageItem struct {
	Category  models.Category  `json:"category"`
	Limit     *decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal  `json:"spent"`
	Remaining *decimal.Decimal `json:"remaining"`
}

type MonthlySpendingResponse struct {
	Months []MonthlySpendingItem `json:"months"`
}

type MonthlySpendingItem struct {
	Month string          `json:"month"`
	Spent decimal.Decimal `json:"spent"`
	Count int             `json:"count"`
}

// Overview возвращает количество записей и сумму разовых трат.
func (h *StatsHandler) Overview(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	stats, err := h.Stats.Overview(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, OverviewResponse{
		RegularCount:      stats.RegularCount,
		RecurringCount:    stats.RecurringCount,
		AutoDeductCount:   stats.AutoDeductCount,
		TotalRegularSpent: stats.TotalRegularSpent,
	})
}

// Categories возвращает лимит, траты и остаток по каждой категории.
func (h *StatsHandler) Categories(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	usage, err := h.Tracker.CategoryBreakdown(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, CategoryUsageResponse{Categories: toCategoryUsageItems(usage)})
}

// Monthly возвращает разовые траты по месяцам.
func (h *StatsHandler) Monthly(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	months := 6
	if raw := c.QueryParam("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid months")
		}
		if parsed > 24 {
			parsed = 24
		}
		months = parsed
	}

	items, err := h.Stats.MonthlySpending(c.Request().Context(), userID, months)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid months")
		}
		return respondError(c, err)
	}

	response := make([]MonthlySpendingItem, 0, len(items))
	for _, item := range items {
		response = append(response, MonthlySpendingItem{
			Month: item.Month.Format("2006-01"),
			Spent: item.Spent,
			Count: item.Count,
		})
	}

	return c.JSON(http.StatusOK, MonthlySpendingResponse{Months: response})
}

func toCategoryUsageItems(usage []ledger.CategoryUsage) []CategoryUsageItem {
	items := make([]CategoryUsageItem, 0, len(usage))
	for _, row := range usage {
		item := CategoryUsageItem{
			Category: row.Category,
			Spent:    row.Spent,
		}
		if row.HasLimit {
			limit := row.Limit
			remaining := row.Remaining
			item.Limit = &limit
			item.Remaining = &remaining
		}
		items = append(items, item)
	}
	return items
}
