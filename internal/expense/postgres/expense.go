package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"gorm.io/gorm"
)

// listOrder puts the latest day first; rows on the same day keep insertion
// order.
const listOrder = "date DESC, id ASC"

// ExpenseRepository implements expense.RepositoryAPI using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.RepositoryAPI {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) owned(ctx context.Context, userID int64) *gorm.DB {
	return r.db.WithContext(ctx).Where("user_id = ?", userID)
}

func (r *ExpenseRepository) list(q *gorm.DB, what string) ([]*expenseDatamodel.Expense, error) {
	var rows []*expenseDatamodel.Expense
	if err := q.Order(listOrder).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list expenses %s: %w", what, err)
	}
	return rows, nil
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, userID int64) ([]*expenseDatamodel.Expense, error) {
	return r.list(r.owned(ctx, userID), "by user")
}

func (r *ExpenseRepository) ListByCategory(ctx context.Context, userID, categoryID int64) ([]*expenseDatamodel.Expense, error) {
	return r.list(r.owned(ctx, userID).Where("category_id = ?", categoryID), "by category")
}

func (r *ExpenseRepository) ListByType(ctx context.Context, userID int64, expenseType string) ([]*expenseDatamodel.Expense, error) {
	return r.list(r.owned(ctx, userID).Where("type = ?", expenseType), "by type")
}

func (r *ExpenseRepository) ListByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]*expenseDatamodel.Expense, error) {
	return r.list(r.owned(ctx, userID).Where("date >= ? AND date <= ?", from, to), "by date range")
}

func (r *ExpenseRepository) GetByIDAndUser(ctx context.Context, id, userID int64) (*expenseDatamodel.Expense, error) {
	var row expenseDatamodel.Expense
	err := r.owned(ctx, userID).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return &row, nil
}

func (r *ExpenseRepository) Create(ctx context.Context, row *expenseDatamodel.Expense) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// Update writes every mutable column, including a nil description, scoped to
// the owner.
func (r *ExpenseRepository) Update(ctx context.Context, row *expenseDatamodel.Expense) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND user_id = ?", row.ID, row.UserID).
		Updates(map[string]interface{}{
			"title":       row.Title,
			"amount":      row.Amount,
			"description": row.Description,
			"date":        row.Date,
			"type":        row.Type,
			"category_id": row.CategoryID,
			"updated_at":  row.UpdatedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("update expense: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res := r.owned(ctx, userID).Where("id = ?", id).Delete(&expenseDatamodel.Expense{})
	if res.Error != nil {
		return false, fmt.Errorf("delete expense: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
