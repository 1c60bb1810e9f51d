package ledger

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/ledgersync/internal/domain"
)

// CategoryTotal is the expense total of one category
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Share    float64         `json:"share"` // Fraction of all expenses, 0..1
}

// MonthTotal holds income and expense totals of one calendar month (UTC)
type MonthTotal struct {
	Month   string          `json:"month"` // YYYY-MM
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// ExpenseStats describes the distribution of individual expense amounts
type ExpenseStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Summary aggregates a transaction collection for dashboards and charts
type Summary struct {
	TransactionCount   int             `json:"transaction_count"`
	UnsyncedCount      int             `json:"unsynced_count"`
	TotalIncome        decimal.Decimal `json:"total_income"`
	TotalExpense       decimal.Decimal `json:"total_expense"`
	Balance            decimal.Decimal `json:"balance"`
	ExpensesByCategory []CategoryTotal `json:"expenses_by_category"`
	Monthly            []MonthTotal    `json:"monthly"`
	ExpenseStats       ExpenseStats    `json:"expense_stats"`
}

// Summarize computes totals, per-category expenses, monthly totals and expense statistics
func Summarize(txs []domain.Transaction) Summary {
	s := Summary{
		TransactionCount:   len(txs),
		TotalIncome:        decimal.Zero,
		TotalExpense:       decimal.Zero,
		ExpensesByCategory: []CategoryTotal{},
		Monthly:            []MonthTotal{},
	}

	byCategory := make(map[string]*CategoryTotal)
	byMonth := make(map[string]*MonthTotal)
	var expenses []float64

	for _, tx := range txs {
		if !tx.Synced {
			s.UnsyncedCount++
		}

		month := tx.Date.UTC().Format("2006-01")
		mt, ok := byMonth[month]
		if !ok {
			mt = &MonthTotal{Month: month, Income: decimal.Zero, Expense: decimal.Zero}
			byMonth[month] = mt
		}

		switch tx.Type {
		case domain.TransactionTypeIncome:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			mt.Income = mt.Income.Add(tx.Amount)

		case domain.TransactionTypeExpense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			mt.Expense = mt.Expense.Add(tx.Amount)

			ct, ok := byCategory[tx.Category]
			if !ok {
				ct = &CategoryTotal{Category: tx.Category, Total: decimal.Zero}
				byCategory[tx.Category] = ct
			}
			ct.Total = ct.Total.Add(tx.Amount)
			ct.Count++

			expenses = append(expenses, tx.Amount.InexactFloat64())
		}
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	for _, ct := range byCategory {
		if s.TotalExpense.IsPositive() {
			ct.Share = ct.Total.Div(s.TotalExpense).InexactFloat64()
		}
		s.ExpensesByCategory = append(s.ExpensesByCategory, *ct)
	}
	sort.Slice(s.ExpensesByCategory, func(i, j int) bool {
		a, b := s.ExpensesByCategory[i], s.ExpensesByCategory[j]
		if cmp := a.Total.Cmp(b.Total); cmp != 0 {
			return cmp > 0
		}
		return a.Category < b.Category
	})

	for _, mt := range byMonth {
		mt.Net = mt.Income.Sub(mt.Expense)
		s.Monthly = append(s.Monthly, *mt)
	}
	sort.Slice(s.Monthly, func(i, j int) bool { return s.Monthly[i].Month < s.Monthly[j].Month })

	s.ExpenseStats = expenseStats(expenses)
	return s
}

func expenseStats(values []float64) ExpenseStats {
	if len(values) == 0 {
		return ExpenseStats{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	out := ExpenseStats{
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		out.StdDev = stat.StdDev(sorted, nil)
	}
	if math.IsNaN(out.StdDev) {
		out.StdDev = 0
	}
	return out
}
