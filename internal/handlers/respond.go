package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/ledger"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
	"example.com/expense-tracker/backend/internal/tracker"
)

const notFoundMessage = "not found or not authorized"

type DenialResponse struct {
	Error     string          `json:"error"`
	Reason    string          `json:"reason"`
	Category  string          `json:"category"`
	Remaining decimal.Decimal `json:"remaining"`
}

// respondError переводит ошибку сервиса в HTTP-ответ.
func respondError(c echo.Context, err error) error {
	var validation *tracker.ValidationError
	if errors.As(err, &validation) {
		return badRequest(c, validation.Error())
	}

	var denial *ledger.DenialError
	if errors.As(err, &denial) {
		return c.JSON(http.StatusBadRequest, DenialResponse{
			Error:     denial.Error(),
			Reason:    string(denial.Reason),
			Category:  string(denial.Category),
			Remaining: denial.Remaining.Round(2),
		})
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, notFoundMessage)
	case errors.Is(err, repository.ErrConflict):
		return conflict(c, "budget already exists")
	case errors.Is(err, tracker.ErrNotPayable):
		return conflict(c, tracker.ErrNotPayable.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		return badRequest(c, ledger.ErrInvalidAmount.Error())
	}

	slog.ErrorContext(c.Request().Context(), "request failed",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return serverError(c)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(models.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.New("date must be in YYYY-MM-DD format")
	}
	return parsed, nil
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func formatDate(value time.Time) string {
	return value.Format(models.DateLayout)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]string{"error": "access denied"})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error, please retry"})
}
