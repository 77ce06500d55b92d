package tracker

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/notifications"
	"example.com/expense-tracker/backend/internal/repository"
)

type memoryBudgets struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.BudgetAllocation
}

func newMemoryBudgets() *memoryBudgets {
	return &memoryBudgets{items: make(map[uuid.UUID]models.BudgetAllocation)}
}

func (m *memoryBudgets) Create(_ context.Context, userID uuid.UUID, total decimal.Decimal, limits map[models.Category]decimal.Decimal) (models.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, budget := range m.items {
		if budget.UserID == userID {
			return models.BudgetAllocation{}, repository.ErrConflict
		}
	}

	budget := models.BudgetAllocation{ID: uuid.New(), UserID: userID, Total: total, Limits: copyLimits(limits)}
	m.items[budget.ID] = budget
	return budget, nil
}

func (m *memoryBudgets) GetByOwner(_ context.Context, userID uuid.UUID) (models.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, budget := range m.items {
		if budget.UserID == userID {
			return budget, nil
		}
	}
	return models.BudgetAllocation{}, repository.ErrNotFound
}

func (m *memoryBudgets) Update(_ context.Context, userID, budgetID uuid.UUID, patch repository.BudgetPatch) (models.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	budget, ok := m.items[budgetID]
	if !ok || budget.UserID != userID {
		return models.BudgetAllocation{}, repository.ErrNotFound
	}
	if patch.Total != nil {
		budget.Total = *patch.Total
	}
	budget.Limits = copyLimits(budget.Limits)
	for category, limit := range patch.Limits {
		budget.Limits[category] = limit
	}
	m.items[budgetID] = budget
	return budget, nil
}

func (m *memoryBudgets) Delete(_ context.Context, userID, budgetID uuid.UUID) (models.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	budget, ok := m.items[budgetID]
	if !ok || budget.UserID != userID {
		return models.BudgetAllocation{}, repository.ErrNotFound
	}
	delete(m.items, budgetID)
	return budget, nil
}

func copyLimits(limits map[models.Category]decimal.Decimal) map[models.Category]decimal.Decimal {
	out := make(map[models.Category]decimal.Decimal, len(limits))
	for category, limit := range limits {
		out[category] = limit
	}
	return out
}

type memoryRegular struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.RegularExpense
}

func newMemoryRegular() *memoryRegular {
	return &memoryRegular{items: make(map[uuid.UUID]models.RegularExpense)}
}

func (m *memoryRegular) Create(_ context.Context, expense models.RegularExpense) (models.RegularExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense.ID = uuid.New()
	m.items[expense.ID] = expense
	return expense, nil
}

func (m *memoryRegular) ListByOwner(_ context.Context, userID uuid.UUID) ([]models.RegularExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.RegularExpense, 0)
	for _, expense := range m.items {
		if expense.UserID == userID {
			out = append(out, expense)
		}
	}
	return out, nil
}

func (m *memoryRegular) GetByID(_ context.Context, userID, expenseID uuid.UUID) (models.RegularExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense, ok := m.items[expenseID]
	if !ok || expense.UserID != userID {
		return models.RegularExpense{}, repository.ErrNotFound
	}
	return expense, nil
}

func (m *memoryRegular) Update(_ context.Context, userID, expenseID uuid.UUID, patch repository.RegularExpensePatch) (models.RegularExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense, ok := m.items[expenseID]
	if !ok || expense.UserID != userID {
		return models.RegularExpense{}, repository.ErrNotFound
	}
	if patch.Amount != nil {
		expense.Amount = *patch.Amount
	}
	if patch.Category != nil {
		expense.Category = *patch.Category
	}
	if patch.Date != nil {
		expense.Date = *patch.Date
	}
	if patch.Description != nil {
		expense.Description = *patch.Description
	}
	m.items[expenseID] = expense
	return expense, nil
}

func (m *memoryRegular) Delete(_ context.Context, userID, expenseID uuid.UUID) (models.RegularExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense, ok := m.items[expenseID]
	if !ok || expense.UserID != userID {
		return models.RegularExpense{}, repository.ErrNotFound
	}
	delete(m.items, expenseID)
	return expense, nil
}

type memoryRecurring struct {
	mu           sync.Mutex
	items        map[uuid.UUID]models.RecurringExpense
	payments     int
	flagWrites   int
	beforeSaving func(expense models.RecurringExpense)
}

func newMemoryRecurring() *memoryRecurring {
	return &memoryRecurring{items: make(map[uuid.UUID]models.RecurringExpense)}
}

func (m *memoryRecurring) Create(_ context.Context, expense models.RecurringExpense) (models.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense.ID = uuid.New()
	m.items[expense.ID] = expense
	return expense, nil
}

func (m *memoryRecurring) ListByOwner(_ context.Context, userID uuid.UUID) ([]models.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.RecurringExpense, 0)
	for _, expense := range m.items {
		if expense.UserID == userID {
			out = append(out, expense)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDueDate.Before(out[j].NextDueDate) })
	return out, nil
}

func (m *memoryRecurring) GetByID(_ context.Context, userID, expenseID uuid.UUID) (models.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense, ok := m.items[expenseID]
	if !ok || expense.UserID != userID {
		return models.RecurringExpense{}, repository.ErrNotFound
	}
	return expense, nil
}

func (m *memoryRecurring) Update(_ context.Context, userID, expenseID uuid.UUID, patch repository.RecurringExpensePatch) (models.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense, ok := m.items[expenseID]
	if !ok || expense.UserID != userID {
		return models.RecurringExpense{}, repository.ErrNotFound
	}
	if patch.Name != nil {
		expense.Name = *patch.Name
	}
	if patch.Category != nil {
		expense.Category = *patch.Category
	}
	if patch.Amount != nil {
		expense.Amount = *patch.Amount
	}
	if patch.Frequency != nil {
		expense.Frequency = *patch.Frequency
	}
	if patch.NextDueDate != nil {
		expense.NextDueDate = *patch.NextDueDate
	}
	if patch.AutoDeduct != nil {
		expense.AutoDeduct = *patch.AutoDeduct
	}
	m.items[expenseID] = expense
	return expense, nil
}

func (m *memoryRecurring) Delete(_ context.Context, userID, expenseID uuid.UUID) (models.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense, ok := m.items[expenseID]
	if !ok || expense.UserID != userID {
		return models.RecurringExpense{}, repository.ErrNotFound
	}
	delete(m.items, expenseID)
	return expense, nil
}

func (m *memoryRecurring) SavePayment(_ context.Context, expense models.RecurringExpense, previousDue time.Time) (models.RecurringExpense, error) {
	if m.beforeSaving != nil {
		m.beforeSaving(expense)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[expense.ID]
	if !ok || stored.UserID != expense.UserID || !stored.NextDueDate.Equal(previousDue) {
		return models.RecurringExpense{}, repository.ErrNotFound
	}

	stored.NextDueDate = expense.NextDueDate
	stored.LastPaid = expense.LastPaid
	stored.PayNow = expense.PayNow
	stored.IsUpcoming = expense.IsUpcoming
	m.items[expense.ID] = stored
	m.payments++
	return stored, nil
}

func (m *memoryRecurring) SaveFlags(_ context.Context, expense models.RecurringExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[expense.ID]
	if !ok || stored.UserID != expense.UserID {
		return repository.ErrNotFound
	}
	stored.PayNow = expense.PayNow
	stored.IsUpcoming = expense.IsUpcoming
	m.items[expense.ID] = stored
	m.flagWrites++
	return nil
}

func (m *memoryRecurring) ListOwnerIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0)
	for _, expense := range m.items {
		if _, ok := seen[expense.UserID]; ok {
			continue
		}
		seen[expense.UserID] = struct{}{}
		out = append(out, expense.UserID)
	}
	return out, nil
}

// advance сдвигает запись в обход сервиса, как это сделал бы параллельный запуск.
func (m *memoryRecurring) advance(expenseID uuid.UUID, next time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.items[expenseID]
	stored.NextDueDate = next
	m.items[expenseID] = stored
}

type memoryCards struct {
	mu      sync.Mutex
	items   map[uuid.UUID]models.CardSnapshot
	upserts int
}

func newMemoryCards() *memoryCards {
	return &memoryCards{items: make(map[uuid.UUID]models.CardSnapshot)}
}

func (m *memoryCards) GetByOwner(_ context.Context, userID uuid.UUID) (models.CardSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, ok := m.items[userID]
	if !ok {
		return models.CardSnapshot{}, repository.ErrNotFound
	}
	return snapshot, nil
}

func (m *memoryCards) Upsert(_ context.Context, snapshot models.CardSnapshot) (models.CardSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot.UpdatedAt = time.Now().UTC()
	m.items[snapshot.UserID] = snapshot
	m.upserts++
	return snapshot, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordedEvents) Publish(_ context.Context, _ uuid.UUID, event notifications.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordedEvents) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, event := range r.events {
		if event.Type == eventType {
			total++
		}
	}
	return total
}

type fixture struct {
	service   *Service
	budgets   *memoryBudgets
	regular   *memoryRegular
	recurring *memoryRecurring
	cards     *memoryCards
	events    *recordedEvents
	now       time.Time
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		budgets:   newMemoryBudgets(),
		regular:   newMemoryRegular(),
		recurring: newMemoryRecurring(),
		cards:     newMemoryCards(),
		events:    &recordedEvents{},
		now:       now,
	}

	f.service = NewService(f.budgets, f.regular, f.recurring, f.cards, Options{
		Publisher: f.events,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       func() time.Time { return f.now },
	})

	return f
}
