package services

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Clock returns the current instant. Every read and invalidation path takes
// its own clock so tests can pin dates and date stamps.
type Clock func() time.Time

// AmountChange is an amount with its change against the previous window.
type AmountChange struct {
	Amount           decimal.Decimal
	PercentageChange decimal.Decimal
}

// CountChange is a count with its change against the previous window.
type CountChange struct {
	Count            int64
	PercentageChange decimal.Decimal
}

// Dashboard is the cached dashboard payload for one period.
type Dashboard struct {
	Period             string
	TotalSavings       AmountChange
	TotalExpense       AmountChange
	TotalTransactions  CountChange
	RecentTransactions []core.Transaction
}

// Analytics is the cached analytics payload for one period and year.
type Analytics struct {
	Period         string
	Year           int
	AverageExpense AmountChange
}
