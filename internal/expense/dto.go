package expense

import (
	"encoding/json"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// ExpenseInput is the body of create and update. Amount accepts a JSON
// number or a numeric string.
type ExpenseInput struct {
	Title       string           `json:"title"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	Date        string           `json:"date"`
	Type        string           `json:"type"`
	CategoryID  int64            `json:"categoryId"`
}

// Validate covers shape only. Category existence and the type value are
// checked by the service afterwards.
func (in ExpenseInput) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("title", in.Title).Required().MaxLength(100)
	validation.ValidateExpenseAmount(v, in.Amount)
	v.Field("description", in.Description).MaxLength(500)
	v.Field("date", in.Date).Required().Custom(func(value interface{}) *apperrors.AppError {
		if _, err := time.Parse(DateLayout, value.(string)); err != nil {
			return apperrors.NewValidationFieldError("date", "Date must be in YYYY-MM-DD format", apperrors.ErrCodeInvalidDate)
		}
		return nil
	})
	v.Field("type", in.Type).Required()
	v.Field("categoryId", in.CategoryID).As("Category ID").Required()
	return v.Validate()
}

// date must only be called after Validate succeeded.
func (in ExpenseInput) date() time.Time {
	d, _ := time.Parse(DateLayout, in.Date)
	return d
}

type ExpenseResponse struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Amount       json.Number `json:"amount"`
	Description  *string     `json:"description"`
	Date         string      `json:"date"`
	Type         string      `json:"type"`
	CategoryID   int64       `json:"categoryId"`
	CategoryName string      `json:"categoryName"`
	CategoryIcon string      `json:"categoryIcon"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type CategoryTotalResponse struct {
	Total json.Number `json:"total"`
	Count int         `json:"count"`
}

type SummaryResponse struct {
	TotalExpenses   json.Number                      `json:"totalExpenses"`
	TotalCount      int                              `json:"totalCount"`
	CategorySummary map[string]CategoryTotalResponse `json:"categorySummary"`
	MonthlyTotal    json.Number                      `json:"monthlyTotal"`
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func (e *Expense) ToResponse() ExpenseResponse {
	resp := ExpenseResponse{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      money(e.Amount),
		Description: e.Description,
		Date:        e.Date.Format(DateLayout),
		Type:        e.Type,
		CategoryID:  e.CategoryID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Category != nil {
		resp.CategoryName = e.Category.Name
		resp.CategoryIcon = e.Category.Icon
	}
	return resp
}

func ToResponseSlice(list []*Expense) []ExpenseResponse {
	out := make([]ExpenseResponse, len(list))
	for i, e := range list {
		out[i] = e.ToResponse()
	}
	return out
}

func (s Summary) ToResponse() SummaryResponse {
	perCategory := make(map[string]CategoryTotalResponse, len(s.PerCategory))
	for name, ct := range s.PerCategory {
		perCategory[name] = CategoryTotalResponse{Total: money(ct.Total), Count: ct.Count}
	}
	return SummaryResponse{
		TotalExpenses:   money(s.TotalAmount),
		TotalCount:      s.TotalCount,
		CategorySummary: perCategory,
		MonthlyTotal:    money(s.CurrentMonthTotal),
	}
}
