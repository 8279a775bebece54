package middleware_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	chiMiddleware "github.com/go-chi/chi/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

var _ = Describe("RequestID", func() {
	var captured *slog.Logger

	handler := func() http.Handler {
		return middleware.RequestID(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = logger.FromOr(r.Context(), nil)
			w.WriteHeader(http.StatusOK)
		}))
	}

	BeforeEach(func() {
		captured = nil
	})

	It("echoes a caller supplied trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceIDHeader, "trace-123")
		w := httptest.NewRecorder()

		handler().ServeHTTP(w, req)

		Expect(w.Header().Get(middleware.TraceIDHeader)).To(Equal("trace-123"))
		Expect(captured).NotTo(BeNil())
	})

	It("mints a trace id when none is given", func() {
		w := httptest.NewRecorder()
		handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Header().Get(middleware.TraceIDHeader)).To(HaveLen(36))
	})

	It("replaces an oversized trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceIDHeader, strings.Repeat("x", 200))
		w := httptest.NewRecorder()

		handler().ServeHTTP(w, req)

		Expect(w.Header().Get(middleware.TraceIDHeader)).To(HaveLen(36))
	})

	It("tags the request logger with both ids", func() {
		var buf bytes.Buffer
		base := logger.New(&buf, "debug", "json")

		h := chiMiddleware.RequestID(middleware.RequestID(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.From(r.Context()).Info("inside")
		})))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceIDHeader, "trace-abc")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(buf.String()).To(ContainSubstring(`"trace_id":"trace-abc"`))
		Expect(buf.String()).To(ContainSubstring(`"request_id"`))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into the internal error envelope", func() {
		var buf bytes.Buffer
		h := middleware.RecoveryMiddleware(logger.New(&buf, "info", "json"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		w := httptest.NewRecorder()

		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/expenses", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).NotTo(ContainSubstring("boom"))

		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error.Message).To(Equal("Internal server error"))
		Expect(buf.String()).To(ContainSubstring("panic recovered"))
	})

	It("lets http.ErrAbortHandler through", func() {
		h := middleware.RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		Expect(func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	serve := func(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		middleware.LoggingMiddleware(logger.New(buf, "debug", "json"))(h).ServeHTTP(w, req)
		return w
	}

	It("masks credentials in headers and bodies", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"username":"alice","password":"secret1"}`))
		req.Header.Set("Authorization", "Bearer abc")

		serve(ok, req)

		Expect(buf.String()).NotTo(ContainSubstring("secret1"))
		Expect(buf.String()).NotTo(ContainSubstring("Bearer abc"))
		Expect(buf.String()).To(ContainSubstring("alice"))
		Expect(buf.String()).To(ContainSubstring("[FILTERED]"))
	})

	It("leaves the body readable for the handler", func() {
		var got string
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Lunch"}`))

		serve(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			got = string(b)
		}, req)

		Expect(got).To(Equal(`{"title":"Lunch"}`))
	})

	It("logs the response body only for failures", func() {
		serve(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"EXPENSE_NOT_FOUND"}`))
		}, httptest.NewRequest(http.MethodGet, "/api/expenses/9", nil))

		Expect(buf.String()).To(ContainSubstring(`"status_code":404`))
		Expect(buf.String()).To(ContainSubstring("EXPENSE_NOT_FOUND"))
		Expect(buf.String()).To(ContainSubstring(`"level":"WARN"`))
	})
})

var _ = Describe("CORS", func() {
	It("answers preflight for an allowed origin", func() {
		h := middleware.CORS([]string{"http://localhost:3000"})(http.HandlerFunc(ok))
		req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
		Expect(w.Header().Get("Access-Control-Allow-Headers")).To(ContainSubstring("Authorization"))
	})

	It("sends no CORS headers for other origins", func() {
		h := middleware.CORS([]string{"http://localhost:3000"})(http.HandlerFunc(ok))
		req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("accepts any origin with a wildcard", func() {
		h := middleware.CORS([]string{"*"})(http.HandlerFunc(ok))
		req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
		req.Header.Set("Origin", "http://anything.example")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://anything.example"))
	})
})

var _ = Describe("RateLimiter", func() {
	var (
		limiter *middleware.RateLimiter
		now     time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		limiter = middleware.NewRateLimiter(2, time.Hour).WithClock(func() time.Time { return now })
		DeferCleanup(limiter.Stop)
	})

	request := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		limiter.Middleware(http.HandlerFunc(ok)).ServeHTTP(w, req)
		return w
	}

	It("rejects a client over its limit with 429", func() {
		Expect(request("10.0.0.1:5000").Code).To(Equal(http.StatusOK))
		Expect(request("10.0.0.1:5001").Code).To(Equal(http.StatusOK))

		w := request("10.0.0.1:5002")
		Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		Expect(w.Header().Get("Retry-After")).To(Equal("60"))
		Expect(w.Body.String()).To(ContainSubstring("RATE_LIMITED"))
	})

	It("counts clients separately", func() {
		request("10.0.0.1:5000")
		request("10.0.0.1:5000")

		Expect(request("10.0.0.2:5000").Code).To(Equal(http.StatusOK))
		Expect(limiter.ActiveClients()).To(Equal(2))
	})

	It("opens a fresh window after a minute", func() {
		request("10.0.0.1:5000")
		request("10.0.0.1:5000")
		Expect(request("10.0.0.1:5000").Code).To(Equal(http.StatusTooManyRequests))

		now = now.Add(time.Minute)
		Expect(request("10.0.0.1:5000").Code).To(Equal(http.StatusOK))
	})

	It("ignores forwarding headers from a single peer", func() {
		codes := make([]int, 0, 4)
		for i := 0; i < 4; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = "203.0.113.7:4000"
			req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.0.%d", i))
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.0.%d", i))
			w := httptest.NewRecorder()
			limiter.Middleware(http.HandlerFunc(ok)).ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		Expect(codes).To(Equal([]int{
			http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests,
		}))
		Expect(limiter.ActiveClients()).To(Equal(1))
	})

	It("keys by X-Real-IP once RealIP is mounted in front", func() {
		handler := chiMiddleware.RealIP(limiter.Middleware(http.HandlerFunc(ok)))
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = "203.0.113.7:4000"
			req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.0.%d", i))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusOK))
		}
		Expect(limiter.ActiveClients()).To(Equal(3))
	})

	It("can be stopped twice", func() {
		limiter.Stop()
		Expect(limiter.Stop).NotTo(Panic())
	})
})
