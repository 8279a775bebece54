package rest

import (
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal/auth"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	"github.com/frahmantamala/expense-tracker/internal/transport/swagger"
	"github.com/frahmantamala/expense-tracker/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	User     *user.Handler
	Category *category.Handler
	Expense  *expense.Handler
}

type Options struct {
	AllowedOrigins    []string
	// TrustProxyHeaders mounts chi's RealIP so the client address, and with
	// it the rate limit key, comes from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
	// AuthLimiter throttles /api/auth; nil disables rate limiting.
	AuthLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts Options) {
	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	if opts.TrustProxyHeaders {
		router.Use(chiMiddleware.RealIP)
	}
	router.Use(middleware.RequestID(opts.Logger))
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	router.Use(middleware.RecoveryMiddleware(opts.Logger))

	router.Get(swagger.DocumentPath, swagger.DocumentHandler())
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		r.Route("/auth", func(ar chi.Router) {
			if opts.AuthLimiter != nil {
				ar.Use(opts.AuthLimiter.Middleware)
			}
			ar.Post("/login", h.Auth.Login)
			ar.Post("/register", h.Auth.Register)
		})

		// Public catalog
		r.Get("/categories", h.Category.GetCategories)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Post("/categories", h.Category.CreateCategory)
			pr.Get("/users/me", h.User.GetCurrentUser)

			pr.Route("/expenses", func(er chi.Router) {
				er.Get("/", h.Expense.ListExpenses)
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/summary", h.Expense.GetSummary)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Put("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)
			})
		})
	})
}
