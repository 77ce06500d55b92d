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

type RecurringHandler struct {
	Tracker *tracker.Service
}

// NewRecurringHandler создает обработчик регулярных платежей.
func NewRecurringHandler(service *tracker.Service) *RecurringHandler {
	return &RecurringHandler{Tracker: service}
}

type RecurringRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Category    string          `json:"category" validate:"required,category"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   string          `json:"frequency" validate:"required,frequency"`
	NextDueDate string          `json:"next_due_date" validate:"required"`
	AutoDeduct  bool            `json:"auto_deduct"`
}

type UpdateRecurringRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	Category    *string          `json:"category" validate:"omitempty,category"`
	Amount      *decimal.Decimal `json:"amount"`
	Frequency   *string          `json:"frequency" validate:"omitempty,frequency"`
	NextDueDate *string          `json:"next_due_date"`
	AutoDeduct  *bool            `json:"auto_deduct"`
}

type RecurringResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Category    models.Category  `json:"category"`
	Amount      decimal.Decimal  `json:"amount"`
	Frequency   models.Frequency `json:"frequency"`
	NextDueDate string           `json:"next_due_date"`
	AutoDeduct  bool             `json:"auto_deduct"`
	LastPaid    *string          `json:"last_paid"`
	PayNow      bool             `json:"pay_now"`
	IsUpcoming  bool             `json:"is_upcoming"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Create добавляет регулярный платеж.
func (h *RecurringHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req RecurringRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	dueDate, err := parseDate(req.NextDueDate)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expense, err := h.Tracker.AddRecurring(c.Request().Context(), userID, tracker.NewRecurring{
		Name:        req.Name,
		Category:    req.Category,
		Amount:      req.Amount,
		Frequency:   req.Frequency,
		NextDueDate: dueDate,
		AutoDeduct:  req.AutoDeduct,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toRecurringResponse(expense))
}

// List возвращает регулярные платежи после синхронизации.
func (h *RecurringHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenses, err := h.Tracker.ListRecurring(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	response := make([]RecurringResponse, 0, len(expenses))
	for _, expense := range expenses {
		response = append(response, toRecurringResponse(expense))
	}

	return c.JSON(http.StatusOK, response)
}

// Pay проводит ручную оплату платежа со сроком сегодня или раньше.
func (h *RecurringHandler) Pay(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	expense, err := h.Tracker.PayNow(c.Request().Context(), userID, expenseID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toRecurringResponse(expense))
}

// Update изменяет регулярный платеж.
func (h *RecurringHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	var req UpdateRecurringRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err = c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	dueDate, err := parseOptionalDate(req.NextDueDate)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expense, err := h.Tracker.UpdateRecurring(c.Request().Context(), userID, expenseID, tracker.RecurringPatch{
		Name:        req.Name,
		Category:    req.Category,
		Amount:      req.Amount,
		Frequency:   req.Frequency,
		NextDueDate: dueDate,
		AutoDeduct:  req.AutoDeduct,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toRecurringResponse(expense))
}

// Delete удаляет регулярный платеж и возвращает удаленную запись.
func (h *RecurringHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := parseID(c)
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	expense, err := h.Tracker.DeleteRecurring(c.Request().Context(), userID, expenseID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toRecurringResponse(expense))
}

func toRecurringResponse(expense models.RecurringExpense) RecurringResponse {
	var lastPaid *string
	if expense.LastPaid != nil {
		value := formatDate(*expense.LastPaid)
		lastPaid = &value
	}

	return RecurringResponse{
		ID:          expense.ID,
		Name:        expense.Name,
		Category:    expense.Category,
		Amount:      expense.Amount,
		Frequency:   expense.Frequency,
		NextDueDate: formatDate(expense.NextDueDate),
		AutoDeduct:  expense.AutoDeduct,
		LastPaid:    lastPaid,
		PayNow:      expense.PayNow,
		IsUpcoming:  expense.IsUpcoming,
		CreatedAt:   expense.CreatedAt,
		UpdatedAt:   expense.UpdatedAt,
	}
}
