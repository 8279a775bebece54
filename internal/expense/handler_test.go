package expense_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/db"
	apperrors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tracker/internal/category/postgres"
	userDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// asUser stands in for the auth middleware.
func asUser(id int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := apperrors.ContextWithIdentity(r.Context(), apperrors.Identity{UserID: id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var _ = Describe("Expense Handler Integration", func() {
	var (
		handler *expense.Handler
		router  func(userID int64) http.Handler
	)

	BeforeEach(func() {
		ctx := context.Background()
		gdb, err := db.OpenInMemory(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			sqlDB, _ := gdb.DB()
			sqlDB.Close()
		})

		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for _, name := range []string{"alice", "bob"} {
			Expect(gdb.Create(&userDatamodel.User{Username: name, Email: name + "@example.com", PasswordHash: "x", CreatedAt: ts, UpdatedAt: ts}).Error).To(Succeed())
		}

		categories := category.NewService(categoryPostgres.NewCategoryRepository(gdb), logger.Discard())
		_, err = categories.SeedDefaults(ctx)
		Expect(err).NotTo(HaveOccurred())

		service := expense.NewService(expensePostgres.NewExpenseRepository(gdb), categories, nil, logger.Discard()).
			WithClock(func() time.Time { return time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC) })
		handler = expense.NewHandler(transport.NewBaseHandler(logger.Discard()), service)

		router = func(userID int64) http.Handler {
			r := chi.NewRouter()
			r.Use(asUser(userID))
			r.Get("/api/expenses", handler.ListExpenses)
			r.Post("/api/expenses", handler.CreateExpense)
			r.Get("/api/expenses/summary", handler.GetSummary)
			r.Get("/api/expenses/{id}", handler.GetExpense)
			r.Put("/api/expenses/{id}", handler.UpdateExpense)
			r.Delete("/api/expenses/{id}", handler.DeleteExpense)
			return r
		}
	})

	do := func(userID int64, method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		w := httptest.NewRecorder()
		router(userID).ServeHTTP(w, req)
		return w
	}

	errorCode := func(w *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body.Error.Code
	}

	It("creates an expense from a numeric or string amount", func() {
		w := do(1, http.MethodPost, "/api/expenses", `{"title":"Lunch","amount":12.5,"date":"2024-05-14","type":"expense","categoryId":1}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var body map[string]any
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("amount", 12.5))
		Expect(body).To(HaveKeyWithValue("date", "2024-05-14"))
		Expect(body).To(HaveKeyWithValue("categoryName", "Food & Dining"))
		Expect(body).To(HaveKeyWithValue("categoryIcon", "🍽️"))
		Expect(body).To(HaveKey("createdAt"))

		w = do(1, http.MethodPost, "/api/expenses", `{"title":"Taxi","amount":"7.00","date":"2024-05-14","type":"expense","categoryId":2}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
	})

	It("maps each failure kind to its status", func() {
		Expect(do(1, http.MethodPost, "/api/expenses", `{"title":"","amount":0,"date":"2024-05-14","type":"expense","categoryId":1}`).Code).
			To(Equal(http.StatusBadRequest))
		Expect(do(1, http.MethodPost, "/api/expenses", `{"title":"X","amount":1,"date":"2024-05-14","type":"expense","categoryId":99}`).Code).
			To(Equal(http.StatusUnprocessableEntity))

		w := do(1, http.MethodPost, "/api/expenses", `{"title":"X","amount":1,"date":"2024-05-14","type":"Income","categoryId":1}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal(string(apperrors.ErrCodeInvalidExpenseType)))

		Expect(do(1, http.MethodGet, "/api/expenses/999", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(1, http.MethodGet, "/api/expenses/abc", "").Code).To(Equal(http.StatusBadRequest))
		Expect(do(1, http.MethodPost, "/api/expenses", `{"title":"X","extra":true}`).Code).To(Equal(http.StatusBadRequest))
	})

	It("keeps users apart", func() {
		w := do(1, http.MethodPost, "/api/expenses", `{"title":"Lunch","amount":10,"date":"2024-05-14","type":"expense","categoryId":1}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		Expect(do(2, http.MethodGet, "/api/expenses/1", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(2, http.MethodPut, "/api/expenses/1", `{"title":"Mine","amount":1,"date":"2024-05-14","type":"expense","categoryId":1}`).Code).
			To(Equal(http.StatusNotFound))
		Expect(do(2, http.MethodDelete, "/api/expenses/1", "").Code).To(Equal(http.StatusNotFound))

		w = do(2, http.MethodGet, "/api/expenses", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(strings.TrimSpace(w.Body.String())).To(Equal("[]"))

		Expect(do(1, http.MethodGet, "/api/expenses/1", "").Code).To(Equal(http.StatusOK))
	})

	It("updates, lists, summarizes and deletes", func() {
		do(1, http.MethodPost, "/api/expenses", `{"title":"Groceries","amount":100,"date":"2024-05-02","type":"expense","categoryId":1}`)
		do(1, http.MethodPost, "/api/expenses", `{"title":"Dinner","amount":50,"date":"2024-04-28","type":"expense","categoryId":1}`)
		do(1, http.MethodPost, "/api/expenses", `{"title":"Bus","amount":30,"date":"2024-05-03","type":"expense","categoryId":2}`)

		w := do(1, http.MethodPut, "/api/expenses/3", `{"title":"Flight","amount":30,"date":"2024-05-03","type":"expense","categoryId":8}`)
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(1, http.MethodGet, "/api/expenses/summary", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{
			"totalExpenses": 180.00,
			"totalCount": 3,
			"categorySummary": {
				"Food & Dining": {"total": 150.00, "count": 2},
				"Travel": {"total": 30.00, "count": 1}
			},
			"monthlyTotal": 130.00
		}`))

		var list []expense.ExpenseResponse
		w = do(1, http.MethodGet, "/api/expenses?type=expense", "")
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list).To(HaveLen(3))
		Expect(list[0].Title).To(Equal("Flight"))

		w = do(1, http.MethodGet, "/api/expenses?from=2024-05-01&to=2024-05-02", "")
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list).To(HaveLen(1))

		w = do(1, http.MethodGet, "/api/expenses?categoryId=8", "")
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list).To(HaveLen(1))

		Expect(do(1, http.MethodDelete, "/api/expenses/3", "").Code).To(Equal(http.StatusNoContent))
		Expect(do(1, http.MethodGet, "/api/expenses/3", "").Code).To(Equal(http.StatusNotFound))
	})

	It("accepts an echoed expense view on update", func() {
		Expect(do(1, http.MethodPost, "/api/expenses", `{"title":"Lunch","amount":12.5,"date":"2024-05-14","type":"expense","categoryId":1}`).Code).
			To(Equal(http.StatusCreated))

		w := do(1, http.MethodGet, "/api/expenses/1", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var view map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &view)).To(Succeed())
		Expect(view).To(HaveKey("createdAt"))
		Expect(view).To(HaveKey("categoryName"))
		view["title"] = "Brunch"

		echoed, err := json.Marshal(view)
		Expect(err).NotTo(HaveOccurred())
		w = do(1, http.MethodPut, "/api/expenses/1", string(echoed))
		Expect(w.Code).To(Equal(http.StatusOK))

		var updated expense.ExpenseResponse
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.ID).To(Equal(int64(1)))
		Expect(updated.Title).To(Equal("Brunch"))
		Expect(updated.Amount.String()).To(Equal("12.50"))
	})

	It("rejects combined or half-specified filters", func() {
		w := do(1, http.MethodGet, "/api/expenses?type=expense&categoryId=1", "")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal(string(apperrors.ErrCodeInvalidFilter)))

		Expect(do(1, http.MethodGet, "/api/expenses?from=2024-05-01", "").Code).To(Equal(http.StatusBadRequest))
		Expect(do(1, http.MethodGet, "/api/expenses?from=yesterday&to=today", "").Code).To(Equal(http.StatusBadRequest))
		Expect(do(1, http.MethodGet, "/api/expenses?categoryId=x", "").Code).To(Equal(http.StatusBadRequest))
	})
})
