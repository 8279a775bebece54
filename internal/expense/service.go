package expense

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/category"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"golang.org/x/sync/errgroup"
)

// RepositoryAPI is the ownership-scoped store. Every method takes the owner
// and a row belonging to someone else behaves exactly like a missing row.
type RepositoryAPI interface {
	ListByUser(ctx context.Context, userID int64) ([]*expenseDatamodel.Expense, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*expenseDatamodel.Expense, error)
	ListByCategory(ctx context.Context, userID, categoryID int64) ([]*expenseDatamodel.Expense, error)
	ListByType(ctx context.Context, userID int64, expenseType string) ([]*expenseDatamodel.Expense, error)
	ListByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]*expenseDatamodel.Expense, error)
	Create(ctx context.Context, expense *expenseDatamodel.Expense) error
	// Update reports false when no row matched id and owner.
	Update(ctx context.Context, expense *expenseDatamodel.Expense) (bool, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

// CategoryLookup is the part of the catalog the expense service reads.
type CategoryLookup interface {
	FindByID(ctx context.Context, id int64) (*category.Category, error)
	ListAll(ctx context.Context) ([]*category.Category, error)
}

type Service struct {
	repo       RepositoryAPI
	categories CategoryLookup
	publisher  events.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the expense service. publisher may be nil.
func NewService(repo RepositoryAPI, categories CategoryLookup, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns every expense of the user, newest date first.
func (s *Service) List(ctx context.Context, userID int64) ([]*Expense, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list expenses", "user_id", userID, "error", err)
		return nil, apperrors.NewInternalError("failed to list expenses", err)
	}
	return s.withCategories(ctx, FromDataModelSlice(rows))
}

func (s *Service) ListByCategory(ctx context.Context, userID, categoryID int64) ([]*Expense, error) {
	rows, err := s.repo.ListByCategory(ctx, userID, categoryID)
	if err != nil {
		s.logger.Error("failed to list expenses by category", "user_id", userID, "category_id", categoryID, "error", err)
		return nil, apperrors.NewInternalError("failed to list expenses", err)
	}
	return s.withCategories(ctx, FromDataModelSlice(rows))
}

func (s *Service) ListByType(ctx context.Context, userID int64, expenseType string) ([]*Expense, error) {
	if !ValidType(expenseType) {
		return nil, apperrors.ErrInvalidType
	}
	rows, err := s.repo.ListByType(ctx, userID, expenseType)
	if err != nil {
		s.logger.Error("failed to list expenses by type", "user_id", userID, "type", expenseType, "error", err)
		return nil, apperrors.NewInternalError("failed to list expenses", err)
	}
	return s.withCategories(ctx, FromDataModelSlice(rows))
}

// ListByDateRange includes both ends.
func (s *Service) ListByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]*Expense, error) {
	from, to = civilDate(from), civilDate(to)
	if from.After(to) {
		return nil, apperrors.NewValidationError("from must not be after to", apperrors.ErrCodeInvalidFilter)
	}
	rows, err := s.repo.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("failed to list expenses by date", "user_id", userID, "error", err)
		return nil, apperrors.NewInternalError("failed to list expenses", err)
	}
	return s.withCategories(ctx, FromDataModelSlice(rows))
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*Expense, error) {
	e, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.withCategory(ctx, e)
}

// Create validates in, checks the category and type, and stores a new row.
func (s *Service) Create(ctx context.Context, userID int64, in ExpenseInput) (*Expense, error) {
	if appErr := in.Validate(); appErr != nil {
		return nil, appErr
	}
	cat, err := s.checkReferences(ctx, in)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	e := &Expense{UserID: userID, CreatedAt: now, UpdatedAt: now}
	e.apply(in, in.date())

	row := ToDataModel(e)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create expense", "user_id", userID, "error", err)
		return nil, apperrors.NewInternalError("failed to create expense", err)
	}
	e.ID = row.ID
	e.Category = cat

	s.logger.Info("expense created", "expense_id", e.ID, "user_id", userID, "type", e.Type)
	s.emit(ctx, events.EventTypeExpenseCreated, e)
	return e, nil
}

// Update replaces every field of an owned expense. Nothing is written unless
// all checks pass.
func (s *Service) Update(ctx context.Context, userID, id int64, in ExpenseInput) (*Expense, error) {
	if appErr := in.Validate(); appErr != nil {
		return nil, appErr
	}
	e, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	cat, err := s.checkReferences(ctx, in)
	if err != nil {
		return nil, err
	}

	e.apply(in, in.date())
	e.UpdatedAt = s.stampAfter(e.UpdatedAt)

	found, err := s.repo.Update(ctx, ToDataModel(e))
	if err != nil {
		s.logger.Error("failed to update expense", "expense_id", id, "user_id", userID, "error", err)
		return nil, apperrors.NewInternalError("failed to update expense", err)
	}
	if !found {
		// deleted between load and write
		return nil, apperrors.ErrExpenseNotFound
	}
	e.Category = cat

	s.logger.Info("expense updated", "expense_id", id, "user_id", userID)
	s.emit(ctx, events.EventTypeExpenseUpdated, e)
	return e, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	e, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}

	found, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		s.logger.Error("failed to delete expense", "expense_id", id, "user_id", userID, "error", err)
		return apperrors.NewInternalError("failed to delete expense", err)
	}
	if !found {
		return apperrors.ErrExpenseNotFound
	}

	s.logger.Info("expense deleted", "expense_id", id, "user_id", userID)
	s.emit(ctx, events.EventTypeExpenseDeleted, e)
	return nil
}

// Summary is recomputed from the store on every call.
func (s *Service) Summary(ctx context.Context, userID int64) (Summary, error) {
	var (
		rows []*expenseDatamodel.Expense
		cats []*category.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.ListByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.categories.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load summary inputs", "user_id", userID, "error", err)
		return Summary{}, apperrors.NewInternalError("failed to compute summary", err)
	}

	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	return Summarize(FromDataModelSlice(rows), names, s.now()), nil
}

func (s *Service) load(ctx context.Context, userID, id int64) (*Expense, error) {
	row, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		s.logger.Error("failed to get expense", "expense_id", id, "user_id", userID, "error", err)
		return nil, apperrors.NewInternalError("failed to get expense", err)
	}
	if row == nil {
		return nil, apperrors.ErrExpenseNotFound
	}
	return FromDataModel(row), nil
}

// checkReferences runs the category lookup before the type check so a bad
// category wins when both are wrong.
func (s *Service) checkReferences(ctx context.Context, in ExpenseInput) (*category.Category, error) {
	cat, err := s.categories.FindByID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	if !ValidType(in.Type) {
		return nil, apperrors.ErrInvalidType
	}
	return cat, nil
}

func (s *Service) withCategory(ctx context.Context, e *Expense) (*Expense, error) {
	cat, err := s.categories.FindByID(ctx, e.CategoryID)
	if err != nil {
		return nil, err
	}
	e.Category = cat
	return e, nil
}

func (s *Service) withCategories(ctx context.Context, list []*Expense) ([]*Expense, error) {
	if len(list) == 0 {
		return list, nil
	}
	cats, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*category.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	for _, e := range list {
		e.Category = byID[e.CategoryID]
	}
	return list, nil
}

// stamp truncates to microseconds, the finest precision postgres keeps.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// stampAfter never goes backwards or repeats, even if the clock does.
func (s *Service) stampAfter(prev time.Time) time.Time {
	now := s.stamp()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *Service) emit(ctx context.Context, eventType string, e *Expense) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewExpenseEvent(eventType, e.change(), s.now())); err != nil {
		s.logger.Warn("failed to publish expense event", "event_type", eventType, "expense_id", e.ID, "error", err)
	}
}
