package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/tracker"
)

type BudgetHandler struct {
	Tracker *tracker.Service
}

// NewBudgetHandler создает обработчик бюджета.
func NewBudgetHandler(service *tracker.Service) *BudgetHandler {
	return &BudgetHandler{Tracker: service}
}

// BudgetRequest лимиты категорий передаются плоскими полями, как в форме бюджета.
type BudgetRequest struct {
	Total         *decimal.Decimal `json:"total" validate:"required"`
	Food          *decimal.Decimal `json:"food"`
	Transport     *decimal.Decimal `json:"transport"`
	Bills         *decimal.Decimal `json:"bills"`
	Rent          *decimal.Decimal `json:"rent"`
	Entertainment *decimal.Decimal `json:"entertainment"`
	Shopping      *decimal.Decimal `json:"shopping"`
	Other         *decimal.Decimal `json:"other"`
}

type UpdateBudgetRequest struct {
	Total         *decimal.Decimal `json:"total"`
	Food          *decimal.Decimal `json:"food"`
	Transport     *decimal.Decimal `json:"transport"`
	Bills         *decimal.Decimal `json:"bills"`
	Rent          *decimal.Decimal `json:"rent"`
	Entertainment *decimal.Decimal `json:"entertainment"`
	Shopping      *decimal.Decimal `json:"shopping"`
	Other         *decimal.Decimal `json:"other"`
}

type BudgetResponse struct {
	ID            uuid.UUID        `json:"id"`
	Total         decimal.Decimal  `json:"total"`
	Food          *decimal.Decimal `json:"food"`
	Transport     *decimal.Decimal `json:"transport"`
	Bills         *decimal.Decimal `json:"bills"`
	Rent          *decimal.Decimal `json:"rent"`
	Entertainment *decimal.Decimal `json:"entertainment"`
	Shopping      *decimal.Decimal `json:"shopping"`
	Other         *decimal.Decimal `json:"other"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Create создает бюджет пользователя. Второй бюджет отклоняется с 409.
func (h *BudgetHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	budget, err := h.Tracker.CreateBudget(c.Request().Context(), userID, tracker.NewBudget{
		Total:  *req.Total,
		Limits: limitsFromFields(req.Food, req.Transport, req.Bills, req.Rent, req.Entertainment, req.Shopping, req.Other),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toBudgetResponse(budget))
}

// Get возвращает бюджет пользователя.
func (h *BudgetHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budget, err := h.Tracker.GetBudget(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// Update меняет переданные лимиты бюджета.
func (h *BudgetHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budgetID, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	var req UpdateBudgetRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	budget, err := h.Tracker.UpdateBudget(c.Request().Context(), userID, budgetID, tracker.BudgetPatch{
		Total:  req.Total,
		Limits: limitsFromFields(req.Food, req.Transport, req.Bills, req.Rent, req.Entertainment, req.Shopping, req.Other),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// Delete удаляет бюджет и возвращает удаленную запись.
func (h *BudgetHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budgetID, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	budget, err := h.Tracker.DeleteBudget(c.Request().Context(), userID, budgetID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

func limitsFromFields(food, transport, bills, rent, entertainment, shopping, other *decimal.Decimal) map[string]decimal.Decimal {
	fields := map[models.Category]*decimal.Decimal{
		models.CategoryFood:          food,
		models.CategoryTransport:     transport,
		models.CategoryBills:         bills,
		models.CategoryRent:          rent,
		models.CategoryEntertainment: entertainment,
		models.CategoryShopping:      shopping,
		models.CategoryOther:         other,
	}

	limits := make(map[string]decimal.Decimal, len(fields))
	for category, value := range fields {
		if value != nil {
			limits[string(category)] = *value
		}
	}
	return limits
}

func toBudgetResponse(budget models.BudgetAllocation) BudgetResponse {
	limit := func(category models.Category) *decimal.Decimal {
		value, ok := budget.Limit(category)
		if !ok {
			return nil
		}
		return &value
	}

	return BudgetResponse{
		ID:            budget.ID,
		Total:         budget.Total,
		Food:          limit(models.CategoryFood),
		Transport:     limit(models.CategoryTransport),
		Bills:         limit(models.CategoryBills),
		Rent:          limit(models.CategoryRent),
		Entertainment: limit(models.CategoryEntertainment),
		Shopping:      limit(models.CategoryShopping),
		Other:         limit(models.CategoryOther),
		CreatedAt:     budget.CreatedAt,
		UpdatedAt:     budget.UpdatedAt,
	}
}
