package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/auth"
	"example.com/expense-tracker/backend/internal/ledger"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/repository"
	"example.com/expense-tracker/backend/internal/tracker"
)

func newContext(method, target, body string, userID *uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set(auth.ContextUserIDKey, *userID)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

type budgetLookup struct {
	tracker.BudgetStore
	budget *models.BudgetAllocation
}

func (b budgetLookup) GetByOwner(_ context.Context, userID uuid.UUID) (models.BudgetAllocation, error) {
	if b.budget == nil || b.budget.UserID != userID {
		return models.BudgetAllocation{}, repository.ErrNotFound
	}
	return *b.budget, nil
}

type regularLookup struct {
	tracker.RegularStore
	items []models.RegularExpense
}

func (r regularLookup) ListByOwner(_ context.Context, userID uuid.UUID) ([]models.RegularExpense, error) {
	owned := make([]models.RegularExpense, 0, len(r.items))
	for _, item := range r.items {
		if item.UserID == userID {
			owned = append(owned, item)
		}
	}
	return owned, nil
}

// TestRespondErrorMapping проверяет соответствие ошибок сервиса HTTP-статусам.
func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &tracker.ValidationError{Field: "amount", Message: "must be greater than 0"}, http.StatusBadRequest, "amount must be greater than 0"},
		{"not found", fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound, notFoundMessage},
		{"conflict", repository.ErrConflict, http.StatusConflict, "budget already exists"},
		{"not payable", tracker.ErrNotPayable, http.StatusConflict, tracker.ErrNotPayable.Error()},
		{"invalid amount", ledger.ErrInvalidAmount, http.StatusBadRequest, ledger.ErrInvalidAmount.Error()},
		{"persistence", errors.New("connection reset"), http.StatusInternalServerError, "internal server error, please retry"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", "", nil)
			if err := respondError(c, tc.err); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			if got := decodeBody(t, rec)["error"]; got != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, got)
			}
		})
	}
}

// TestRespondErrorDenial проверяет, что отказ лимита отдает причину и остаток.
func TestRespondErrorDenial(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/", "", nil)
	denial := &ledger.DenialError{
		Reason:    ledger.DenialInsufficientRemaining,
		Category:  models.CategoryFood,
		Remaining: decimal.RequireFromString("60"),
	}

	if err := respondError(c, denial); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body DenialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "you only have 60.00 left for food" {
		t.Fatalf("unexpected message %q", body.Error)
	}
	if body.Reason != string(ledger.DenialInsufficientRemaining) || body.Category != "food" {
		t.Fatalf("unexpected denial %+v", body)
	}
	if !body.Remaining.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("expected remaining 60, got %s", body.Remaining)
	}
}

// TestParseDate проверяет формат даты на границе API.
func TestParseDate(t *testing.T) {
	parsed, err := parseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !parsed.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", parsed)
	}

	for _, value := range []string{"", "29.02.2024", "2023-02-29", "2024-02-29T10:00:00Z"} {
		if _, err := parseDate(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}

	missing, err := parseOptionalDate(nil)
	if err != nil || missing != nil {
		t.Fatalf("expected nil date, got %v, %v", missing, err)
	}
}

// TestHandlersRequireOwner проверяет ответ 401 без пользователя в контексте.
func TestHandlersRequireOwner(t *testing.T) {
	routes := map[string]echo.HandlerFunc{
		"budget":    (&BudgetHandler{}).Get,
		"regular":   (&RegularHandler{}).List,
		"check":     (&RegularHandler{}).Check,
		"recurring": (&RecurringHandler{}).List,
		"card":      (&CardHandler{}).Get,
		"export":    (&ExportHandler{}).RegularCSV,
		"stats":     (&StatsHandler{}).Categories,
	}

	for name, handler := range routes {
		c, rec := newContext(http.MethodGet, "/", "", nil)
		if err := handler(c); err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

// TestHandlersRejectInvalidInput проверяет отказ до обращения к сервису.
func TestHandlersRejectInvalidInput(t *testing.T) {
	owner := uuid.New()

	cases := []struct {
		name    string
		handler echo.HandlerFunc
		body    string
		id      string
		message string
	}{
		{"pay bad id", (&RecurringHandler{}).Pay, "", "nope", "invalid expense id"},
		{"delete budget bad id", (&BudgetHandler{}).Delete, "", "42", "invalid budget id"},
		{"recurring bad date", (&RecurringHandler{}).Create, `{"name":"Gym","category":"other","amount":"30","frequency":"Monthly","next_due_date":"05/10/2024"}`, "", "date must be in YYYY-MM-DD format"},
		{"recurring missing name", (&RecurringHandler{}).Create, `{"category":"other","amount":30,"frequency":"Monthly","next_due_date":"2024-05-10"}`, "", "name is required"},
		{"recurring bad frequency", (&RecurringHandler{}).Create, `{"name":"Gym","category":"other","amount":30,"frequency":"Fortnightly","next_due_date":"2024-05-10"}`, "", "frequency must be one of Daily, Weekly, Monthly, Yearly"},
		{"regular bad category", (&RegularHandler{}).Create, `{"amount":10,"category":"pets"}`, "", "category must be one of food, transport, bills, rent, entertainment, shopping, other"},
		{"regular bad date", (&RegularHandler{}).Create, `{"amount":10,"category":"food","date":"tomorrow"}`, "", "date must be in YYYY-MM-DD format"},
		{"regular bad json", (&RegularHandler{}).Create, `{"amount":`, "", "invalid payload"},
		{"check missing category", (&RegularHandler{}).Check, `{"amount":"10"}`, "", "category is required"},
		{"register bad email", (&AuthHandler{}).Register, `{"email":"ann","password":"secret-123","confirm_password":"secret-123"}`, "", "email must be a valid email address"},
		{"check bad json", (&RegularHandler{}).Check, `{"category":`, "", "invalid payload"},
		{"budget missing total", (&BudgetHandler{}).Create, `{"food":100}`, "", "total is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/", tc.body, &owner)
			if tc.id != "" {
				c.SetParamNames("id")
				c.SetParamValues(tc.id)
			}

			if err := tc.handler(c); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := decodeBody(t, rec)["error"]; got != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, got)
			}
		})
	}
}

// TestLimitsFromFields проверяет, что не переданные категории не попадают в лимиты.
func TestLimitsFromFields(t *testing.T) {
	food := decimal.RequireFromString("200")
	rent := decimal.Zero

	limits := limitsFromFields(&food, nil, nil, &rent, nil, nil, nil)
	if len(limits) != 2 {
		t.Fatalf("expected 2 limits, got %v", limits)
	}
	if !limits["food"].Equal(food) || !limits["rent"].Equal(rent) {
		t.Fatalf("unexpected limits %v", limits)
	}

	response := toBudgetResponse(models.BudgetAllocation{
		Total:  decimal.RequireFromString("500"),
		Limits: map[models.Category]decimal.Decimal{models.CategoryFood: food},
	})
	if response.Food == nil || !response.Food.Equal(food) {
		t.Fatalf("expected food limit, got %v", response.Food)
	}
	if response.Transport != nil {
		t.Fatalf("expected no transport limit, got %v", response.Transport)
	}
}

// TestCategoryUsageWithoutLimit проверяет null-лимит для категории без бюджета.
func TestCategoryUsageWithoutLimit(t *testing.T) {
	items := toCategoryUsageItems([]ledger.CategoryUsage{
		{Category: models.CategoryFood, Limit: decimal.RequireFromString("100"), Spent: decimal.RequireFromString("40"), Remaining: decimal.RequireFromString("60"), HasLimit: true},
		{Category: models.CategoryRent, Spent: decimal.RequireFromString("5")},
	})

	if items[0].Remaining == nil || !items[0].Remaining.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("unexpected food usage %+v", items[0])
	}
	if items[1].Limit != nil || items[1].Remaining != nil {
		t.Fatalf("expected no limit for rent, got %+v", items[1])
	}
}

// TestRecurringCSV проверяет выгрузку регулярных платежей.
func TestRecurringCSV(t *testing.T) {
	paid := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	expense := models.RecurringExpense{
		ID:          uuid.New(),
		Name:        "Rent, flat",
		Category:    models.CategoryRent,
		Amount:      decimal.RequireFromString("950.5"),
		Frequency:   models.FrequencyMonthly,
		NextDueDate: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		AutoDeduct:  true,
		LastPaid:    &paid,
	}

	payload, err := renderCSV(func(writer *csv.Writer) error {
		return writeRecurringCSV(writer, []models.RecurringExpense{expense})
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d", len(records))
	}

	row := records[1]
	if row[1] != "Rent, flat" || row[3] != "950.50" || row[5] != "2024-05-10" || row[6] != "true" || row[7] != "2024-04-10" {
		t.Fatalf("unexpected row %v", row)
	}
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

// TestReady проверяет статус готовности в зависимости от базы.
func TestReady(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/ready", "", nil)
	if err := Ready(stubPinger{})(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodGet, "/ready", "", nil)
	if err := Ready(stubPinger{err: errors.New("down")})(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

// TestParsePagination проверяет ограничения limit и offset.
func TestParsePagination(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/?limit=500&offset=20", "", nil)
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if limit != 200 || offset != 20 {
		t.Fatalf("expected 200/20, got %d/%d", limit, offset)
	}

	c, _ = newContext(http.MethodGet, "/?offset=-1", "", nil)
	if _, _, err := parsePagination(c, 50, 200); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

// TestLogoutClearsCookie проверяет снятие cookie без refresh-токена.
func TestLogoutClearsCookie(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/api/v1/auth/logout", `{}`, nil)
	handler := &AuthHandler{SecureCookies: true}

	if err := handler.Logout(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.TokenCookieName || cookies[0].MaxAge >= 0 || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
}

// TestRegisterPasswordMismatch проверяет проверку подтверждения пароля.
func TestRegisterPasswordMismatch(t *testing.T) {
	body := `{"email":"ann@example.com","password":"secret-123","confirm_password":"secret-124","name":"Ann"}`
	c, rec := newContext(http.MethodPost, "/api/v1/auth/register", body, nil)

	if err := (&AuthHandler{}).Register(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != auth.ErrPasswordMismatch.Error() {
		t.Fatalf("unexpected error %q", got)
	}
}

// TestRegularCheck проверяет предварительную проверку лимита через HTTP.
func TestRegularCheck(t *testing.T) {
	owner := uuid.New()
	budget := &models.BudgetAllocation{
		ID:     uuid.New(),
		UserID: owner,
		Total:  decimal.RequireFromString("500"),
		Limits: map[models.Category]decimal.Decimal{models.CategoryFood: decimal.RequireFromString("100")},
	}
	spent := []models.RegularExpense{{ID: uuid.New(), UserID: owner, Amount: decimal.RequireFromString("80"), Category: models.CategoryFood}}
	service := tracker.NewService(budgetLookup{budget: budget}, regularLookup{items: spent}, nil, nil, tracker.Options{})
	handler := NewRegularHandler(service)

	cases := []struct {
		name      string
		body      string
		status    int
		allowed   bool
		reason    string
		remaining string
	}{
		{"within limit", `{"amount":"20","category":"Food"}`, http.StatusOK, true, "", "20"},
		{"over limit", `{"amount":"20.01","category":"food"}`, http.StatusOK, false, "insufficient_remaining", "20"},
		{"no budget", `{"amount":"5","category":"rent"}`, http.StatusOK, false, "no_budget_set", "0"},
		{"zero amount", `{"amount":"0","category":"food"}`, http.StatusBadRequest, false, "", ""},
		{"unknown category", `{"amount":"5","category":"pets"}`, http.StatusBadRequest, false, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/api/v1/regular/check", tc.body, &owner)
			if err := handler.Check(c); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status != http.StatusOK {
				return
			}

			var body CheckResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Allowed != tc.allowed || body.Reason != tc.reason {
				t.Fatalf("unexpected response %+v", body)
			}
			if !body.Remaining.Equal(decimal.RequireFromString(tc.remaining)) {
				t.Fatalf("expected remaining %s, got %s", tc.remaining, body.Remaining)
			}
			if tc.allowed == (body.Message != "") {
				t.Fatalf("unexpected message %q", body.Message)
			}
		})
	}
}

// TestAuthErrorMapping проверяет статусы ошибок входа и регистрации.
func TestAuthErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{auth.ErrPasswordTooShort, http.StatusBadRequest},
		{auth.ErrPasswordMismatch, http.StatusBadRequest},
		{auth.ErrAccountExists, http.StatusConflict},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: expired", auth.ErrInvalidToken), http.StatusUnauthorized},
		{auth.ErrSessionReused, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		c, rec := newContext(http.MethodPost, "/api/v1/auth/login", "", nil)
		if err := (&AuthHandler{}).authError(c, tc.err); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
	}
}
