package expense

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, userID int64) ([]*Expense, error)
	ListByCategory(ctx context.Context, userID, categoryID int64) ([]*Expense, error)
	ListByType(ctx context.Context, userID int64, expenseType string) ([]*Expense, error)
	ListByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]*Expense, error)
	Get(ctx context.Context, userID, id int64) (*Expense, error)
	Create(ctx context.Context, userID int64, in ExpenseInput) (*Expense, error)
	Update(ctx context.Context, userID, id int64, in ExpenseInput) (*Expense, error)
	Delete(ctx context.Context, userID, id int64) error
	Summary(ctx context.Context, userID int64) (Summary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListExpenses handles GET /expenses. At most one filter may be given:
// categoryId, type, or the from/to pair.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Identity(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	list, err := h.list(r, identity.UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponseSlice(list))
}

func (h *Handler) list(r *http.Request, userID int64) ([]*Expense, error) {
	q := r.URL.Query()
	categoryID, expenseType, from, to := q.Get("categoryId"), q.Get("type"), q.Get("from"), q.Get("to")

	filters := 0
	for _, set := range []bool{categoryID != "", expenseType != "", from != "" || to != ""} {
		if set {
			filters++
		}
	}
	if filters > 1 {
		return nil, apperrors.NewValidationError("Only one of categoryId, type or from/to may be given", apperrors.ErrCodeInvalidFilter)
	}

	ctx := r.Context()
	switch {
	case categoryID != "":
		id, err := strconv.ParseInt(categoryID, 10, 64)
		if err != nil || id <= 0 {
			return nil, apperrors.NewValidationError("invalid categoryId: "+categoryID, apperrors.ErrCodeInvalidFilter)
		}
		return h.Service.ListByCategory(ctx, userID, id)
	case expenseType != "":
		return h.Service.ListByType(ctx, userID, expenseType)
	case from != "" || to != "":
		if from == "" || to == "" {
			return nil, apperrors.NewValidationError("from and to must be given together", apperrors.ErrCodeInvalidFilter)
		}
		start, errFrom := time.Parse(DateLayout, from)
		end, errTo := time.Parse(DateLayout, to)
		if errFrom != nil || errTo != nil {
			return nil, apperrors.NewValidationError("from and to must be in YYYY-MM-DD format", apperrors.ErrCodeInvalidDate)
		}
		return h.Service.ListByDateRange(ctx, userID, start, end)
	default:
		return h.Service.List(ctx, userID)
	}
}

// GetExpense handles GET /expenses/{id}
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Identity(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	e, err := h.Service.Get(r.Context(), identity.UserID, id)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e.ToResponse())
}

// CreateExpense handles POST /expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Identity(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var in ExpenseInput
	if err := h.DecodeJSON(r, &in); err != nil {
		h.WriteError(w, r, err)
		return
	}

	e, err := h.Service.Create(r.Context(), identity.UserID, in)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, e.ToResponse())
}

// UpdateExpense handles PUT /expenses/{id}
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Identity(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var in ExpenseInput
	if err := h.DecodeJSON(r, &in); err != nil {
		h.WriteError(w, r, err)
		return
	}

	e, err := h.Service.Update(r.Context(), identity.UserID, id, in)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e.ToResponse())
}

// DeleteExpense handles DELETE /expenses/{id}
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Identity(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), identity.UserID, id); err != nil {
		h.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSummary handles GET /expenses/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Identity(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	summary, err := h.Service.Summary(r.Context(), identity.UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary.ToResponse())
}
