package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// Amounts travel as strings with two decimals, percentages as numbers.

type transactionItem struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
}

type transactionView struct {
	ID              int64      `json:"id"`
	Type            string     `json:"type"`
	Category        string     `json:"category"`
	Amount          string     `json:"amount"`
	Description     string     `json:"description"`
	TransactionDate string     `json:"transaction_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

type amountChange struct {
	Amount           string  `json:"amount"`
	PercentageChange float64 `json:"percentageChange"`
	Period           string  `json:"period,omitempty"`
}

type countChange struct {
	Count            int64   `json:"count"`
	PercentageChange float64 `json:"percentageChange"`
}

type dashboardView struct {
	TotalSavings       amountChange      `json:"totalSavings"`
	TotalExpense       amountChange      `json:"totalExpense"`
	TotalTransactions  countChange       `json:"totalTransactions"`
	RecentTransactions []transactionItem `json:"recentTransactions"`
}

type analyticsView struct {
	AverageExpense amountChange `json:"averageExpense"`
	Year           int          `json:"year"`
}

type pageView struct {
	Data        []transactionItem `json:"data"`
	CurrentPage int               `json:"currentPage"`
	LastPage    int               `json:"lastPage"`
	PerPage     int               `json:"perPage"`
	Total       int64             `json:"total"`
}

type categoryView struct {
	Category string `json:"category"`
	Total    string `json:"total"`
	Count    int64  `json:"count"`
	Average  string `json:"average"`
}

type summaryView struct {
	TotalIncome        string         `json:"total_income"`
	TotalExpense       string         `json:"total_expense"`
	Balance            string         `json:"balance"`
	ExpensesByCategory []categoryView `json:"expenses_by_category"`
	Period             struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	} `json:"period"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func percent(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func newTransactionItems(txs []core.Transaction) []transactionItem {
	out := make([]transactionItem, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionItem{
			ID:       t.ID,
			Date:     t.TransactionDate.String(),
			Name:     t.Description,
			Category: t.Category,
			Type:     string(t.Type),
			Amount:   money(t.Amount),
		})
	}
	return out
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:              t.ID,
		Type:            string(t.Type),
		Category:        t.Category,
		Amount:          money(t.Amount),
		Description:     t.Description,
		TransactionDate: t.TransactionDate.String(),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		DeletedAt:       t.DeletedAt,
	}
}

func newDashboardView(d services.Dashboard) dashboardView {
	return dashboardView{
		TotalSavings: amountChange{
			Amount:           money(d.TotalSavings.Amount),
			PercentageChange: percent(d.TotalSavings.PercentageChange),
		},
		TotalExpense: amountChange{
			Amount:           money(d.TotalExpense.Amount),
			PercentageChange: percent(d.TotalExpense.PercentageChange),
			Period:           d.Period,
		},
		TotalTransactions: countChange{
			Count:            d.TotalTransactions.Count,
			PercentageChange: percent(d.TotalTransactions.PercentageChange),
		},
		RecentTransactions: newTransactionItems(d.RecentTransactions),
	}
}

func newAnalyticsView(a services.Analytics) analyticsView {
	return analyticsView{
		AverageExpense: amountChange{
			Amount:           money(a.AverageExpense.Amount),
			PercentageChange: percent(a.AverageExpense.PercentageChange),
			Period:           a.Period,
		},
		Year: a.Year,
	}
}

func newPageView(p core.Page) pageView {
	return pageView{
		Data:        newTransactionItems(p.Data),
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		PerPage:     p.PerPage,
		Total:       p.Total,
	}
}

func newSummaryView(s core.RangeSummary) summaryView {
	v := summaryView{
		TotalIncome:        money(s.TotalIncome),
		TotalExpense:       money(s.TotalExpense),
		Balance:            money(s.Balance),
		ExpensesByCategory: make([]categoryView, 0, len(s.ExpensesByCategory)),
	}
	for _, c := range s.ExpensesByCategory {
		v.ExpensesByCategory = append(v.ExpensesByCategory, categoryView{
			Category: c.Category,
			Total:    money(c.Total),
			Count:    c.Count,
			Average:  money(c.Average),
		})
	}
	v.Period.StartDate = s.Range.Start.String()
	v.Period.EndDate = s.Range.End.String()
	return v
}
