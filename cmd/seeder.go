package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	"github.com/frahmantamala/expense-tracker/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tracker/internal/category/postgres"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	demoUsername = "demo"
	demoEmail    = "demo@example.com"
	demoPassword = "demo1234"
)

var seedDemo bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the default categories",
	Long:  `Seed the default category catalog. With --demo also create a demo user with a month of sample expenses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, lg, err := bootstrap()
		if err != nil {
			return err
		}

		gdb, err := openDatabase(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer closeDatabase(gdb, lg)

		categories := category.NewService(categoryPostgres.NewCategoryRepository(gdb), lg)
		created, err := categories.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d categories\n", created)

		if !seedDemo {
			return nil
		}

		expenses := expense.NewService(expensePostgres.NewExpenseRepository(gdb), categories, nil, lg)
		return seedDemoData(ctx, newAuthService(cfg, gdb, lg), categories, expenses, lg)
	},
}

type demoEntry struct {
	title    string
	amount   string
	category string
	kind     string
	daysAgo  int
}

var demoEntries = []demoEntry{
	{"Salary", "3200.00", "Others", expense.TypeIncome, 20},
	{"Groceries", "84.35", "Food & Dining", expense.TypeExpense, 18},
	{"Metro pass", "45.00", "Transportation", expense.TypeExpense, 15},
	{"Electricity bill", "62.10", "Utilities", expense.TypeExpense, 12},
	{"Cinema", "18.00", "Entertainment", expense.TypeExpense, 9},
	{"Dinner out", "56.80", "Food & Dining", expense.TypeExpense, 4},
	{"Online course", "129.99", "Education", expense.TypeExpense, 2},
}

func seedDemoData(ctx context.Context, authService *auth.Service, categories *category.Service, expenses *expense.Service, lg *slog.Logger) error {
	_, err := authService.Register(ctx, auth.RegisterDTO{Username: demoUsername, Email: demoEmail, Password: demoPassword})
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Type == apperrors.ErrorTypeConflict {
			fmt.Println("demo user already exists; skipping sample expenses")
			return nil
		}
		return fmt.Errorf("create demo user: %w", err)
	}

	login, err := authService.Login(ctx, auth.LoginDTO{Username: demoUsername, Password: demoPassword})
	if err != nil {
		return fmt.Errorf("log in demo user: %w", err)
	}

	today := time.Now()
	for _, e := range demoEntries {
		c, err := categories.FindByName(ctx, e.category)
		if err != nil {
			return err
		}
		if c == nil {
			return errors.New("category " + e.category + " is not in the catalog")
		}

		amount := decimal.RequireFromString(e.amount)
		_, err = expenses.Create(ctx, login.ID, expense.ExpenseInput{
			Title:      e.title,
			Amount:     &amount,
			Date:       today.AddDate(0, 0, -e.daysAgo).Format(expense.DateLayout),
			Type:       e.kind,
			CategoryID: c.ID,
		})
		if err != nil {
			return fmt.Errorf("create demo expense %q: %w", e.title, err)
		}
	}

	lg.Info("seeded demo data", "username", demoUsername, "expenses", len(demoEntries))
	fmt.Printf("Demo user %q created with password %q\n", demoUsername, demoPassword)
	return nil
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create a demo user with sample expenses")
}
