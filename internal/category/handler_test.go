package category_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expense-tracker/db"
	"github.com/frahmantamala/expense-tracker/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tracker/internal/category/postgres"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Category Handler Integration", func() {
	var handler *category.Handler

	BeforeEach(func() {
		gdb, err := db.OpenInMemory(context.Background())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			sqlDB, _ := gdb.DB()
			sqlDB.Close()
		})

		service := category.NewService(categoryPostgres.NewCategoryRepository(gdb), logger.Discard())
		_, err = service.SeedDefaults(context.Background())
		Expect(err).NotTo(HaveOccurred())

		handler = category.NewHandler(transport.NewBaseHandler(logger.Discard()), service)
	})

	It("lists the seeded catalog as a JSON array", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
		w := httptest.NewRecorder()

		handler.GetCategories(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var body []map[string]any
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body).To(HaveLen(9))
		Expect(body[0]).To(HaveKeyWithValue("name", "Food & Dining"))
		Expect(body[0]).To(HaveKey("createdAt"))
	})

	It("creates a category and returns 201", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"Pets","icon":"🐶"}`))
		w := httptest.NewRecorder()

		handler.CreateCategory(w, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var body category.CategoryResponse
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.ID).To(Equal(int64(10)))
		Expect(body.Icon).To(Equal("🐶"))
	})

	It("returns 409 for a duplicate name", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"Travel","icon":"x"}`))
		w := httptest.NewRecorder()

		handler.CreateCategory(w, req)

		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring(`"type":"CONFLICT"`))
	})

	It("returns 400 for a malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":`))
		w := httptest.NewRecorder()

		handler.CreateCategory(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
