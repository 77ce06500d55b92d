package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/tracker"
)

const timeLayout = time.RFC3339

type ExportHandler struct {
	Tracker *tracker.Service
}

// NewExportHandler создает обработчик выгрузок.
func NewExportHandler(service *tracker.Service) *ExportHandler {
	return &ExportHandler{Tracker: service}
}

// RegularCSV выгружает разовые траты в CSV-файл.
func (h *ExportHandler) RegularCSV(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenses, err := h.Tracker.ListRegular(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	payload, err := renderCSV(func(writer *csv.Writer) error {
		return writeRegularCSV(writer, expenses)
	})
	if err != nil {
		return serverError(c)
	}

	return sendCSV(c, "regular-expenses.csv", payload)
}

// RecurringCSV выгружает регулярные платежи в CSV-файл после синхронизации.
func (h *ExportHandler) RecurringCSV(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenses, err := h.Tracker.ListRecurring(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	payload, err := renderCSV(func(writer *csv.Writer) error {
		return writeRecurringCSV(writer, expenses)
	})
	if err != nil {
		return serverError(c)
	}

	return sendCSV(c, "recurring-expenses.csv", payload)
}

func renderCSV(write func(writer *csv.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := write(writer); err != nil {
		return nil, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func sendCSV(c echo.Context, filename string, payload []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", payload)
}

func writeRegularCSV(writer *csv.Writer, expenses []models.RegularExpense) error {
	header := []string{
		"id",
		"date",
		"category",
		"amount",
		"description",
		"created_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, expense := range expenses {
		record := []string{
			expense.ID.String(),
			formatDate(expense.Date),
			string(expense.Category),
			expense.Amount.StringFixed(2),
			expense.Description,
			expense.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func writeRecurringCSV(writer *csv.Writer, expenses []models.RecurringExpense) error {
	header := []string{
		"id",
		"name",
		"category",
		"amount",
		"frequency",
		"next_due_date",
		"auto_deduct",
		"last_paid",
		"pay_now",
		"is_upcoming",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, expense := range expenses {
		lastPaid := ""
		if expense.LastPaid != nil {
			lastPaid = formatDate(*expense.LastPaid)
		}

		record := []string{
			expense.ID.String(),
			expense.Name,
			string(expense.Category),
			expense.Amount.StringFixed(2),
			string(expense.Frequency),
			formatDate(expense.NextDueDate),
			formatBool(expense.AutoDeduct),
			lastPaid,
			formatBool(expense.PayNow),
			formatBool(expense.IsUpcoming),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func formatBool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
