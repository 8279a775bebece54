package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/expense-tracker/db"
	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport/rest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HealthHandler", func() {
	It("reports unhealthy once the database is gone", func() {
		gdb, err := db.OpenInMemory(context.Background())
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := gdb.DB()
		Expect(err).NotTo(HaveOccurred())

		h := rest.NewHealthHandler(sqlDB, internal.DriverSQLite)
		Expect(sqlDB.Close()).To(Succeed())

		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		var resp rest.HealthResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(rest.HealthUnhealthy))
		Expect(resp.Components).To(HaveKey(internal.DriverSQLite))
		Expect(resp.Components[internal.DriverSQLite].Message).NotTo(BeEmpty())
	})
})
