package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout формат календарной даты на границе API.
const DateLayout = "2006-01-02"

type Category string

type Frequency string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryBills         Category = "bills"
	CategoryRent          Category = "rent"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"

	FrequencyDaily   Frequency = "Daily"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyMonthly Frequency = "Monthly"
	FrequencyYearly  Frequency = "Yearly"
)

// Categories возвращает фиксированный набор категорий бюджета в порядке отображения.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryBills,
		CategoryRent,
		CategoryEntertainment,
		CategoryShopping,
		CategoryOther,
	}
}

// ParseCategory нормализует название категории и проверяет, что она входит в набор.
func ParseCategory(value string) (Category, bool) {
	category := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Categories() {
		if category == known {
			return category, true
		}
	}
	return "", false
}

// ParseFrequency принимает тег периодичности без учета регистра.
func ParseFrequency(value string) (Frequency, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily":
		return FrequencyDaily, true
	case "weekly":
		return FrequencyWeekly, true
	case "monthly":
		return FrequencyMonthly, true
	case "yearly":
		return FrequencyYearly, true
	default:
		return "", false
	}
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}

// BudgetAllocation хранит общий лимит и лимиты по категориям.
// Категория без ключа в Limits считается категорией без бюджета.
type BudgetAllocation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Total     decimal.Decimal
	Limits    map[Category]decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Limit возвращает лимит категории и признак того, что он задан.
func (b *BudgetAllocation) Limit(category Category) (decimal.Decimal, bool) {
	if b == nil || b.Limits == nil {
		return decimal.Zero, false
	}
	limit, ok := b.Limits[category]
	return limit, ok
}

type RegularExpense struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Category    Category
	Date        time.Time
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecurringExpense описывает регулярный платеж.
// PayNow и IsUpcoming вычисляются при чтении; в базе лежит только последний расчет.
type RecurringExpense struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Category    Category
	Amount      decimal.Decimal
	Frequency   Frequency
	NextDueDate time.Time
	AutoDeduct  bool
	LastPaid    *time.Time
	PayNow      bool
	IsUpcoming  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CardSnapshot агрегирует бюджет и траты владельца. Всегда восстанавливается из исходных записей.
type CardSnapshot struct {
	UserID              uuid.UUID
	TotalBudget         decimal.Decimal
	TotalSpent          decimal.Decimal
	RemainBudget        decimal.Decimal
	TotalSpentRegular   decimal.Decimal
	TotalSpentRecurring decimal.Decimal
	UpdatedAt           time.Time
}

// Round округляет все суммы снимка до копеек.
func (s CardSnapshot) Round() CardSnapshot {
	s.TotalBudget = s.TotalBudget.Round(2)
	s.TotalSpent = s.TotalSpent.Round(2)
	s.RemainBudget = s.RemainBudget.Round(2)
	s.TotalSpentRegular = s.TotalSpentRegular.Round(2)
	s.TotalSpentRecurring = s.TotalSpentRecurring.Round(2)
	return s
}

// Equal сравнивает суммы двух снимков без учета времени обновления.
func (s CardSnapshot) Equal(other CardSnapshot) bool {
	return s.UserID == other.UserID &&
		s.TotalBudget.Equal(other.TotalBudget) &&
		s.TotalSpent.Equal(other.TotalSpent) &&
		s.RemainBudget.Equal(other.RemainBudget) &&
		s.TotalSpentRegular.Equal(other.TotalSpentRegular) &&
		s.TotalSpentRecurring.Equal(other.TotalSpentRecurring)
}
