package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/tracker"
)

type CardHandler struct {
	Tracker *tracker.Service
}

// NewCardHandler создает обработчик карточки бюджета.
func NewCardHandler(service *tracker.Service) *CardHandler {
	return &CardHandler{Tracker: service}
}

type CardResponse struct {
	TotalBudget         decimal.Decimal `json:"total_budget"`
	TotalSpent          decimal.Decimal `json:"total_spent"`
	RemainBudget        decimal.Decimal `json:"remain_budget"`
	TotalSpentRegular   decimal.Decimal `json:"total_spent_regular"`
	TotalSpentRecurring decimal.Decimal `json:"total_spent_recurring"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Get синхронизирует пользователя и возвращает снимок бюджета.
func (h *CardHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	snapshot, err := h.Tracker.Snapshot(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, toCardResponse(snapshot))
}

func toCardResponse(snapshot models.CardSnapshot) CardResponse {
	return CardResponse{
		TotalBudget:         snapshot.TotalBudget.Round(2),
		TotalSpent:          snapshot.TotalSpent.Round(2),
		RemainBudget:        snapshot.RemainBudget.Round(2),
		TotalSpentRegular:   snapshot.TotalSpentRegular.Round(2),
		TotalSpentRecurring: snapshot.TotalSpentRecurring.Round(2),
		UpdatedAt:           snapshot.UpdatedAt,
	}
}
