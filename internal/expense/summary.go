package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownCategory labels expenses whose category is missing from the
// catalog. The foreign key makes this unreachable on a healthy store.
const UnknownCategory = "Unknown"

type CategoryTotal struct {
	Total decimal.Decimal
	Count int
}

type Summary struct {
	TotalAmount       decimal.Decimal
	TotalCount        int
	PerCategory       map[string]CategoryTotal
	CurrentMonthTotal decimal.Decimal
}

// Summarize aggregates list as of now. Income and expense amounts are added
// together without sign. The current month is read from now in its own
// location, expense dates are calendar days.
func Summarize(list []*Expense, categoryNames map[int64]string, now time.Time) Summary {
	s := Summary{
		TotalAmount:       decimal.Zero,
		PerCategory:       make(map[string]CategoryTotal),
		CurrentMonthTotal: decimal.Zero,
	}

	year, month, _ := now.Date()

	for _, e := range list {
		s.TotalAmount = s.TotalAmount.Add(e.Amount)
		s.TotalCount++

		name, ok := categoryNames[e.CategoryID]
		if !ok {
			name = UnknownCategory
		}
		ct := s.PerCategory[name]
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
		s.PerCategory[name] = ct

		if y, m, _ := e.Date.Date(); y == year && m == month {
			s.CurrentMonthTotal = s.CurrentMonthTotal.Add(e.Amount)
		}
	}

	return s
}
