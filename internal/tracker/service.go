package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"example.com/expense-tracker/backend/internal/ledger"
	"example.com/expense-tracker/backend/internal/models"
	"example.com/expense-tracker/backend/internal/notifications"
	"example.com/expense-tracker/backend/internal/repository"
)

type BudgetStore interface {
	Create(ctx context.Context, userID uuid.UUID, total decimal.Decimal, limits map[models.Category]decimal.Decimal) (models.BudgetAllocation, error)
	GetByOwner(ctx context.Context, userID uuid.UUID) (models.BudgetAllocation, error)
	Update(ctx context.Context, userID, budgetID uuid.UUID, patch repository.BudgetPatch) (models.BudgetAllocation, error)
	Delete(ctx context.Context, userID, budgetID uuid.UUID) (models.BudgetAllocation, error)
}

type RegularStore interface {
	Create(ctx context.Context, expense models.RegularExpense) (models.RegularExpense, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.RegularExpense, error)
	GetByID(ctx context.Context, userID, expenseID uuid.UUID) (models.RegularExpense, error)
	Update(ctx context.Context, userID, expenseID uuid.UUID, patch repository.RegularExpensePatch) (models.RegularExpense, error)
	Delete(ctx context.Context, userID, expenseID uuid.UUID) (models.RegularExpense, error)
}

type RecurringStore interface {
	Create(ctx context.Context, expense models.RecurringExpense) (models.RecurringExpense, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.RecurringExpense, error)
	GetByID(ctx context.Context, userID, expenseID uuid.UUID) (models.RecurringExpense, error)
	Update(ctx context.Context, userID, expenseID uuid.UUID, patch repository.RecurringExpensePatch) (models.RecurringExpense, error)
	Delete(ctx context.Context, userID, expenseID uuid.UUID) (models.RecurringExpense, error)
	SavePayment(ctx context.Context, expense models.RecurringExpense, previousDue time.Time) (models.RecurringExpense, error)
	SaveFlags(ctx context.Context, expense models.RecurringExpense) error
	ListOwnerIDs(ctx context.Context) ([]uuid.UUID, error)
}

type CardStore interface {
	GetByOwner(ctx context.Context, userID uuid.UUID) (models.CardSnapshot, error)
	Upsert(ctx context.Context, snapshot models.CardSnapshot) (models.CardSnapshot, error)
}

// Options LookaheadDays nil или отрицательное означает окно по умолчанию.
type Options struct {
	Publisher     notifications.Publisher
	Logger        *slog.Logger
	Now           func() time.Time
	Location      *time.Location
	LookaheadDays *int
}

// Service выполняет операции владельца как единицу работы: загрузка, автосписание, сверка, сохранение.
type Service struct {
	budgets   BudgetStore
	regular   RegularStore
	recurring RecurringStore
	cards     CardStore

	publisher     notifications.Publisher
	logger        *slog.Logger
	now           func() time.Time
	location      *time.Location
	lookaheadDays int
}

// SyncResult состояние владельца после синхронизации.
type SyncResult struct {
	Snapshot  models.CardSnapshot
	Recurring []models.RecurringExpense
	Paid      []Payment
}

// Payment факт автоматического или ручного списания.
type Payment struct {
	Expense models.RecurringExpense
	Amount  decimal.Decimal
	PaidOn  time.Time
}

// NewService создает сервис учета расходов.
func NewService(budgets BudgetStore, regular RegularStore, recurring RecurringStore, cards CardStore, opts Options) *Service {
	s := &Service{
		budgets:       budgets,
		regular:       regular,
		recurring:     recurring,
		cards:         cards,
		publisher:     opts.Publisher,
		logger:        opts.Logger,
		now:           opts.Now,
		location:      opts.Location,
		lookaheadDays: ledger.DefaultLookaheadDays,
	}

	if s.publisher == nil {
		s.publisher = notifications.Multi{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if opts.LookaheadDays != nil && *opts.LookaheadDays >= 0 {
		s.lookaheadDays = *opts.LookaheadDays
	}

	return s
}

// Today возвращает текущую дату в настроенном часовом поясе.
func (s *Service) Today() time.Time {
	return ledger.Day(s.now().In(s.location))
}

// Sync проводит автосписания, обновляет флаги и пересчитывает снимок владельца.
func (s *Service) Sync(ctx context.Context, ownerID uuid.UUID) (SyncResult, error) {
	var result SyncResult

	allocation, regular, recurring, err := s.load(ctx, ownerID)
	if err != nil {
		return result, err
	}

	today := s.Today()
	result.Recurring = make([]models.RecurringExpense, 0, len(recurring))

	for _, expense := range recurring {
		if ledger.Classify(expense, today, s.lookaheadDays) == ledger.DueAuto {
			payment, current, err := s.pay(ctx, expense, today)
			if errors.Is(err, ledger.ErrInvalidAmount) {
				s.logger.WarnContext(ctx, "recurring expense skipped",
					slog.String("recurring_id", expense.ID.String()),
					slog.String("error", err.Error()),
				)
				result.Recurring = append(result.Recurring, current)
				continue
			}
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				return result, err
			}
			if payment != nil {
				result.Paid = append(result.Paid, *payment)
			}
			result.Recurring = append(result.Recurring, current)
			continue
		}

		projected := ledger.Project(expense, today, s.lookaheadDays)
		if projected.PayNow != expense.PayNow || projected.IsUpcoming != expense.IsUpcoming {
			if err := s.recurring.SaveFlags(ctx, projected); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				return result, fmt.Errorf("save recurring flags: %w", err)
			}
		}
		result.Recurring = append(result.Recurring, projected)
	}

	snapshot, err := s.storeSnapshot(ctx, ledger.Reconcile(ownerID, allocation, regular, result.Recurring).Round())
	if err != nil {
		return result, err
	}
	result.Snapshot = snapshot

	return result, nil
}

// SweepAll синхронизирует всех владельцев регулярных платежей и возвращает число успешных.
func (s *Service) SweepAll(ctx context.Context) (int, error) {
	owners, err := s.recurring.ListOwnerIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring owners: %w", err)
	}

	var errs []error
	synced := 0
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := s.Sync(ctx, ownerID)
		if err != nil {
			s.logger.ErrorContext(ctx, "reconcile owner failed",
				slog.String("user_id", ownerID.String()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("owner %s: %w", ownerID, err))
			continue
		}

		synced++
		s.logger.InfoContext(ctx, "owner reconciled",
			slog.String("user_id", ownerID.String()),
			slog.Int("payments", len(result.Paid)),
		)
	}

	return synced, errors.Join(errs...)
}

// load читает бюджет, разовые траты и регулярные платежи параллельно.
func (s *Service) load(ctx context.Context, ownerID uuid.UUID) (*models.BudgetAllocation, []models.RegularExpense, []models.RecurringExpense, error) {
	var allocation *models.BudgetAllocation
	var regular []models.RegularExpense
	var recurring []models.RecurringExpense

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		budget, err := s.budgets.GetByOwner(gctx, ownerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("load budget: %w", err)
		}
		allocation = &budget
		return nil
	})

	g.Go(func() error {
		items, err := s.regular.ListByOwner(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("load regular expenses: %w", err)
		}
		regular = items
		return nil
	})

	g.Go(func() error {
		items, err := s.recurring.ListByOwner(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("load recurring expenses: %w", err)
		}
		recurring = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	return allocation, regular, recurring, nil
}

// pay проводит один платеж и сохраняет его с проверкой прежней даты.
// Если запись уже сдвинута другим запуском, возвращается свежая запись без платежа.
// Неположительная сумма возвращает ledger.ErrInvalidAmount.
func (s *Service) pay(ctx context.Context, expense models.RecurringExpense, today time.Time) (*Payment, models.RecurringExpense, error) {
	updated, amount, err := ledger.Pay(expense, today, s.lookaheadDays)
	if err != nil {
		return nil, ledger.Project(expense, today, s.lookaheadDays), err
	}

	saved, err := s.recurring.SavePayment(ctx, updated, expense.NextDueDate)
	if errors.Is(err, repository.ErrNotFound) {
		current, getErr := s.recurring.GetByID(ctx, expense.UserID, expense.ID)
		if getErr != nil {
			return nil, current, getErr
		}
		s.logger.InfoContext(ctx, "recurring expense already advanced",
			slog.String("recurring_id", expense.ID.String()),
		)
		return nil, ledger.Project(current, today, s.lookaheadDays), nil
	}
	if err != nil {
		return nil, expense, fmt.Errorf("save recurring payment: %w", err)
	}

	s.logger.InfoContext(ctx, "recurring expense paid",
		slog.String("user_id", saved.UserID.String()),
		slog.String("recurring_id", saved.ID.String()),
		slog.String("amount", amount.String()),
		slog.String("next_due_date", saved.NextDueDate.Format(models.DateLayout)),
		slog.Bool("auto_deduct", saved.AutoDeduct),
	)

	s.publisher.Publish(ctx, saved.UserID, notifications.Event{
		Type: notifications.EventRecurringPaid,
		Data: map[string]interface{}{
			"recurring_id":  saved.ID.String(),
			"name":          saved.Name,
			"amount":        amount.StringFixed(2),
			"next_due_date": saved.NextDueDate.Format(models.DateLayout),
			"auto_deduct":   saved.AutoDeduct,
		},
	})

	return &Payment{Expense: saved, Amount: amount, PaidOn: today}, saved, nil
}

// storeSnapshot сохраняет снимок, если он отсутствует или изменился.
func (s *Service) storeSnapshot(ctx context.Context, snapshot models.CardSnapshot) (models.CardSnapshot, error) {
	stored, err := s.cards.GetByOwner(ctx, snapshot.UserID)
	switch {
	case err == nil && stored.Equal(snapshot):
		return stored, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return snapshot, fmt.Errorf("load snapshot: %w", err)
	}

	saved, err := s.cards.Upsert(ctx, snapshot)
	if err != nil {
		return snapshot, fmt.Errorf("save snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "snapshot updated",
		slog.String("user_id", saved.UserID.String()),
		slog.String("total_spent", saved.TotalSpent.StringFixed(2)),
		slog.String("remain_budget", saved.RemainBudget.StringFixed(2)),
	)

	s.publisher.Publish(ctx, saved.UserID, notifications.Event{
		Type: notifications.EventSnapshotUpdated,
		Data: map[string]interface{}{
			"total_budget":          saved.TotalBudget.StringFixed(2),
			"total_spent":           saved.TotalSpent.StringFixed(2),
			"remain_budget":         saved.RemainBudget.StringFixed(2),
			"total_spent_regular":   saved.TotalSpentRegular.StringFixed(2),
			"total_spent_recurring": saved.TotalSpentRecurring.StringFixed(2),
		},
	})

	return saved, nil
}
