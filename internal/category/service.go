package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	ListAll(ctx context.Context) ([]*categoryDatamodel.Category, error)
	GetByID(ctx context.Context, id int64) (*categoryDatamodel.Category, error)
	GetByName(ctx context.Context, name string) (*categoryDatamodel.Category, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, category *categoryDatamodel.Category) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for created/updated stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) ListAll(ctx context.Context) ([]*Category, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		return nil, apperrors.NewInternalError("failed to list categories", err)
	}
	return FromDataModelSlice(rows), nil
}

// FindByID returns nil without error when the id is unknown.
func (s *Service) FindByID(ctx context.Context, id int64) (*Category, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get category", "category_id", id, "error", err)
		return nil, apperrors.NewInternalError("failed to get category", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

func (s *Service) FindByName(ctx context.Context, name string) (*Category, error) {
	row, err := s.repo.GetByName(ctx, name)
	if err != nil {
		s.logger.Error("failed to get category by name", "name", name, "error", err)
		return nil, apperrors.NewInternalError("failed to get category", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

// Create adds a category. Names are compared exactly, so "travel" and
// "Travel" are distinct entries.
func (s *Service) Create(ctx context.Context, dto CreateCategoryDTO) (*Category, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil {
		s.logger.Error("failed to check category name", "name", dto.Name, "error", err)
		return nil, apperrors.NewInternalError("failed to create category", err)
	}
	if existing != nil {
		return nil, duplicateNameError(dto.Name)
	}

	c := NewCategory(dto.Name, dto.Icon, s.now().UTC())
	row := ToDataModel(c)
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			// lost a race with a concurrent insert of the same name
			return nil, duplicateNameError(dto.Name)
		}
		s.logger.Error("failed to create category", "name", dto.Name, "error", err)
		return nil, apperrors.NewInternalError("failed to create category", err)
	}

	s.logger.Info("category created", "category_id", row.ID, "name", row.Name)
	return FromDataModel(row), nil
}

// SeedDefaults installs the default catalog when no category exists yet and
// returns how many were created. Two processes starting against the same
// empty database can both pass the emptiness check; the loser gets a
// conflict on the first insert and its error is returned to the caller.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		s.logger.Debug("category catalog already populated", "count", count)
		return 0, nil
	}

	created := 0
	for _, d := range Defaults {
		if _, err := s.Create(ctx, CreateCategoryDTO{Name: d.Name, Icon: d.Icon}); err != nil {
			return created, fmt.Errorf("seed category %q: %w", d.Name, err)
		}
		created++
	}

	s.logger.Info("seeded default categories", "count", created)
	return created, nil
}

func duplicateNameError(name string) *apperrors.AppError {
	return apperrors.NewConflictError(
		fmt.Sprintf("Category with name '%s' already exists", name),
		apperrors.ErrCodeCategoryExists,
	)
}
