package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/amqp"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	authPostgres "github.com/frahmantamala/expense-tracker/internal/auth/postgres"
	"github.com/frahmantamala/expense-tracker/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tracker/internal/category/postgres"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	"github.com/frahmantamala/expense-tracker/internal/transport/rest"
	"github.com/frahmantamala/expense-tracker/internal/user"
	userPostgres "github.com/frahmantamala/expense-tracker/internal/user/postgres"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const defaultShutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *gorm.DB
	SQL     *sql.DB
	Router  *chi.Mux
	Logger  *slog.Logger
	Bus     *events.EventBus
	AMQP    *amqp.Client
	Limiter *middleware.RateLimiter

	Auth       *auth.Service
	Users      *user.Service
	Categories *category.Service
	Expenses   *expense.Service
}

func startHTTPServer() error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx, cfg, lg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("starting HTTP server", "address", addr, "driver", cfg.Database.Driver)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		lg.Info("received signal, shutting down")
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown error", "error", err)
	}
	// handlers started by requests that already finished may still be running
	if err := deps.Bus.Wait(shutdownCtx); err != nil {
		lg.Warn("event handlers still running at shutdown", "error", err)
	}
	deps.Close()

	lg.Info("server stopped")
	return nil
}

func setupRoutes(deps *Dependencies) {
	base := transport.NewBaseHandler(deps.Logger)

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health:   rest.NewHealthHandler(deps.SQL, deps.Config.Database.Driver),
		Auth:     auth.NewHandler(base, deps.Auth),
		User:     user.NewHandler(base, deps.Users),
		Category: category.NewHandler(base, deps.Categories),
		Expense:  expense.NewHandler(base, deps.Expenses),
	}, rest.Options{
		AllowedOrigins:    deps.Config.Server.Origins(),
		TrustProxyHeaders: deps.Config.Server.TrustProxyHeaders,
		AuthLimiter:       deps.Limiter,
		Logger:            deps.Logger,
	})
}

func initializeDependencies(ctx context.Context, cfg *internal.Config, lg *slog.Logger) (*Dependencies, error) {
	gdb, err := openDatabase(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Config: cfg,
		DB:     gdb,
		SQL:    sqlDB,
		Router: chi.NewRouter(),
		Logger: lg,
		Bus:    events.NewEventBus(lg),
	}

	deps.Bus.Subscribe(events.AllEvents, events.NewAuditHandler(lg))
	if cfg.Events.AMQPEnabled {
		client, err := amqp.NewClient(cfg.Events.AMQPURL, cfg.Events.ExchangeName, cfg.Events.QueueName, lg)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		deps.AMQP = client
		deps.Bus.Subscribe(events.AllEvents, events.NewForwarder(client))
	}

	if cfg.RateLimit.Enabled {
		deps.Limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.CleanupInterval)
	}

	deps.Categories = category.NewService(categoryPostgres.NewCategoryRepository(gdb), lg)
	if _, err := deps.Categories.SeedDefaults(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	deps.Auth = newAuthService(cfg, gdb, lg)
	deps.Users = user.NewService(userPostgres.NewUserRepository(gdb), lg)
	deps.Expenses = expense.NewService(expensePostgres.NewExpenseRepository(gdb), deps.Categories, deps.Bus, lg)

	return deps, nil
}

func newAuthService(cfg *internal.Config, gdb *gorm.DB, lg *slog.Logger) *auth.Service {
	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration)
	return auth.NewService(authPostgres.NewRepository(gdb), tokens, auth.NewBcryptHasher(cfg.Security.BCryptCost), lg)
}

func (d *Dependencies) Close() {
	if d.Limiter != nil {
		d.Limiter.Stop()
	}
	if d.AMQP != nil {
		if err := d.AMQP.Close(); err != nil {
			d.Logger.Error("AMQP close error", "error", err)
		}
	}
	closeDatabase(d.DB, d.Logger)
}
