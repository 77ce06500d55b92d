package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/ledger"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/tracker"
)

type RegularHandler struct {
	Tracker *tracker.Service
}

// NewRegularHandler создает обработчик разовых трат.
func NewRegularHandler(service *tracker.Service) *RegularHandler {
	return &RegularHandler{Tracker: service}
}

type RegularRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required,category"`
	Date        string          `json:"date"`
	Description string          `json:"description" validate:"max=500"`
}

type UpdateRegularRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category" validate:"omitempty,category"`
	Date        *string          `json:"date"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
}

type CheckRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category" validate:"required,category"`
}

// CheckResponse message пустой при разрешении.
type CheckResponse struct {
	Allowed   bool            `json:"allowed"`
	Reason    string          `json:"reason,omitempty"`
	Category  models.Category `json:"category"`
	Remaining decimal.Decimal `json:"remaining"`
	Message   string          `json:"message,omitempty"`
}

type RegularResponse struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    models.Category `json:"category"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Create проверяет лимит категории и добавляет разовую трату.
func (h *RegularHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req RegularRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	input := tracker.NewRegular{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return badRequest(c, err.Error())
		}
		input.Date = date
	}

	expense, err := h.Tracker.AddRegular(c.Request().Context(), userID, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toRegularResponse(expense))
}

// List возвращает разовые траты пользователя.
func (h *RegularHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenses, err := h.Tracker.ListRegular(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	response := make([]RegularResponse, 0, len(expenses))
	for _, expense := range expenses {
		response = append(response, toRegularResponse(expense))
	}

	return c.JSON(http.StatusOK, response)
}

// Check проверяет сумму против лимита категории, ничего не записывая.
func (h *RegularHandler) Check(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	allowance, err := h.Tracker.CheckAllowance(c.Request().Context(), userID, req.Category, req.Amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toCheckResponse(allowance))
}

// Update изменяет разовую трату.
func (h *RegularHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	var req UpdateRegularRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err = c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expense, err := h.Tracker.UpdateRegular(c.Request().Context(), userID, expenseID, tracker.RegularPatch{
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toRegularResponse(expense))
}

// Delete удаляет разовую трату и возвращает удаленную запись.
func (h *RegularHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	expense, err := h.Tracker.DeleteRegular(c.Request().Context(), userID, expenseID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toRegularResponse(expense))
}

func toCheckResponse(allowance ledger.Allowance) CheckResponse {
	response := CheckResponse{
		Allowed:   allowance.Allowed(),
		Reason:    string(allowance.Reason),
		Category:  allowance.Category,
		Remaining: allowance.Remaining.Round(2),
	}
	if err := allowance.Err(); err != nil {
		response.Message = err.Error()
	}
	return response
}

func toRegularResponse(expense models.RegularExpense) RegularResponse {
	return RegularResponse{
		ID:          expense.ID,
		Amount:      expense.Amount,
		Category:    expense.Category,
		Date:        formatDate(expense.Date),
		Description: expense.Description,
		CreatedAt:   expense.CreatedAt,
		UpdatedAt:   expense.UpdatedAt,
	}
}
