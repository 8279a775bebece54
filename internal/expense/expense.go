package expense

import (
	"time"

	"github.com/frahmantamala/expense-tracker/internal/category"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/shopspring/decimal"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"

	DateLayout = "2006-01-02"
)

// Expense is a single income or expense entry. Category is filled from the
// catalog by the service; it is nil until then.
type Expense struct {
	ID          int64
	UserID      int64
	CategoryID  int64
	Title       string
	Amount      decimal.Decimal
	Description *string
	Date        time.Time
	Type        string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Category *category.Category
}

// ValidType is case sensitive: "Income" is not a type.
func ValidType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}

// apply overwrites every client-controlled field. Ownership and createdAt
// are left alone.
func (e *Expense) apply(in ExpenseInput, date time.Time) {
	e.Title = in.Title
	e.Amount = *in.Amount
	e.Description = in.Description
	e.Date = date
	e.Type = in.Type
	e.CategoryID = in.CategoryID
}

func (e *Expense) change() events.ExpenseChange {
	return events.ExpenseChange{
		ExpenseID:  e.ID,
		UserID:     e.UserID,
		CategoryID: e.CategoryID,
		Amount:     e.Amount.StringFixed(2),
		Type:       e.Type,
		Date:       e.Date.Format(DateLayout),
	}
}

// civilDate drops the clock and zone, keeping the calendar day as UTC
// midnight.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		Title:       e.Title,
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date,
		Type:        e.Type,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		Title:       e.Title,
		Amount:      e.Amount,
		Description: e.Description,
		Date:        civilDate(e.Date),
		Type:        e.Type,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
