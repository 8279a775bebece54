package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("AuthHandler", func() {
	var (
		handler *Handler
		service *Service
	)

	ginkgo.BeforeEach(func() {
		tokens := NewJWTTokenGenerator(testSecret, time.Hour)
		service = NewService(&mockUserRepository{}, tokens, NewBcryptHasher(bcrypt.MinCost), logger.Discard())
		handler = NewHandler(transport.NewBaseHandler(logger.Discard()), service)
	})

	register := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.Register(w, req)
		return w
	}

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.Login(w, req)
		return w
	}

	ginkgo.It("registers then logs in", func() {
		w := register(`{"username":"alice","email":"alice@example.com","password":"secret1"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusCreated))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring("User registered successfully!"))

		w = login(`{"username":"alice","password":"secret1"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

		var resp AuthResponse
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
		gomega.Expect(resp.Type).To(gomega.Equal("Bearer"))
	})

	ginkgo.It("answers 409 for a duplicate registration", func() {
		register(`{"username":"alice","email":"alice@example.com","password":"secret1"}`)
		w := register(`{"username":"alice","email":"alice@example.com","password":"secret1"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusConflict))
	})

	ginkgo.It("answers 401 for bad credentials", func() {
		w := login(`{"username":"ghost","password":"secret1"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(apperrors.ErrCodeInvalidCredentials)))
	})

	ginkgo.It("ignores unknown fields", func() {
		w := register(`{"username":"alice","email":"alice@example.com","password":"secret1","admin":true}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusCreated))

		w = login(`{"username":"alice","password":"secret1","rememberMe":true}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("answers 400 for trailing data", func() {
		w := login(`{"username":"alice","password":"x"} {}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(apperrors.ErrCodeInvalidBody)))
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var (
			seen    apperrors.Identity
			reached bool
			guarded http.Handler
		)

		ginkgo.BeforeEach(func() {
			reached = false
			guarded = handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				seen, _ = apperrors.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
		})

		serve := func(authHeader string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil).WithContext(context.Background())
			if authHeader != "" {
				req.Header.Set("Authorization", authHeader)
			}
			w := httptest.NewRecorder()
			guarded.ServeHTTP(w, req)
			return w
		}

		ginkgo.It("rejects requests without a token", func() {
			w := serve("")
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("rejects a malformed token", func() {
			w := serve("Bearer abc.def.ghi")
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("places the identity in the request context", func() {
			register(`{"username":"alice","email":"alice@example.com","password":"secret1"}`)
			var resp AuthResponse
			gomega.Expect(json.NewDecoder(login(`{"username":"alice","password":"secret1"}`).Body).Decode(&resp)).To(gomega.Succeed())

			w := serve("bearer " + resp.Token)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(reached).To(gomega.BeTrue())
			gomega.Expect(seen.UserID).To(gomega.Equal(resp.ID))
			gomega.Expect(seen.Username).To(gomega.Equal("alice"))
		})
	})
})
