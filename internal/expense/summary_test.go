package expense_test

import (
	"time"

	"github.com/frahmantamala/expense-tracker/internal/expense"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Summarize", func() {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	entry := func(amt string, categoryID int64, typ string, date time.Time) *expense.Expense {
		return &expense.Expense{Amount: decimal.RequireFromString(amt), CategoryID: categoryID, Type: typ, Date: date}
	}
	names := map[int64]string{1: "Food & Dining", 8: "Travel"}

	It("returns zeros and an empty breakdown for no expenses", func() {
		s := expense.Summarize(nil, names, time.Now())
		Expect(s.TotalAmount.IsZero()).To(BeTrue())
		Expect(s.TotalCount).To(BeZero())
		Expect(s.PerCategory).To(BeEmpty())
		Expect(s.CurrentMonthTotal.IsZero()).To(BeTrue())

		resp := s.ToResponse()
		Expect(resp.CategorySummary).NotTo(BeNil())
		Expect(string(resp.TotalExpenses)).To(Equal("0.00"))
	})

	It("adds income and expense amounts together", func() {
		s := expense.Summarize([]*expense.Expense{
			entry("1000.00", 1, expense.TypeIncome, day(2024, 5, 1)),
			entry("0.01", 1, expense.TypeExpense, day(2024, 5, 2)),
		}, names, day(2024, 5, 20))

		Expect(s.TotalAmount.String()).To(Equal("1000.01"))
		Expect(s.PerCategory["Food & Dining"].Count).To(Equal(2))
	})

	It("counts only the current calendar month of the clock", func() {
		s := expense.Summarize([]*expense.Expense{
			entry("10", 1, expense.TypeExpense, day(2024, 5, 31)),
			entry("20", 1, expense.TypeExpense, day(2024, 6, 1)),
			entry("40", 1, expense.TypeExpense, day(2023, 6, 15)),
		}, names, time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC))

		Expect(s.CurrentMonthTotal.Equal(decimal.NewFromInt(20))).To(BeTrue())
		Expect(s.TotalAmount.Equal(decimal.NewFromInt(70))).To(BeTrue())
	})

	It("reads the month in the clock's own zone", func() {
		tokyo := time.FixedZone("JST", 9*60*60)
		// 2024-05-31 20:00 UTC is already June in Tokyo
		clock := time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC).In(tokyo)

		s := expense.Summarize([]*expense.Expense{
			entry("5", 1, expense.TypeExpense, day(2024, 6, 1)),
			entry("7", 1, expense.TypeExpense, day(2024, 5, 31)),
		}, names, clock)

		Expect(s.CurrentMonthTotal.Equal(decimal.NewFromInt(5))).To(BeTrue())
	})

	It("groups unknown category ids under a placeholder", func() {
		s := expense.Summarize([]*expense.Expense{entry("3", 99, expense.TypeExpense, day(2024, 1, 1))}, names, day(2024, 5, 1))
		Expect(s.PerCategory).To(HaveKey(expense.UnknownCategory))
	})

	It("renders money with two decimals", func() {
		s := expense.Summarize([]*expense.Expense{
			entry("100", 1, expense.TypeExpense, day(2024, 5, 2)),
			entry("50", 1, expense.TypeExpense, day(2024, 5, 3)),
			entry("30", 8, expense.TypeExpense, day(2024, 4, 3)),
		}, names, day(2024, 5, 10))

		resp := s.ToResponse()
		Expect(string(resp.TotalExpenses)).To(Equal("180.00"))
		Expect(resp.TotalCount).To(Equal(3))
		Expect(resp.CategorySummary).To(Equal(map[string]expense.CategoryTotalResponse{
			"Food & Dining": {Total: "150.00", Count: 2},
			"Travel":        {Total: "30.00", Count: 1},
		}))
		Expect(string(resp.MonthlyTotal)).To(Equal("150.00"))
	})
})
