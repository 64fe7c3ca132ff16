package core

import "github.com/shopspring/decimal"

// WindowTotal is the sum over a trailing window together with the exact
// records that produced it.
type WindowTotal struct {
	Total        decimal.Decimal
	Transactions []Record
}

// FinancialSummary is the dashboard view for one owner at one instant.
type FinancialSummary struct {
	TotalBalance       decimal.Decimal
	TotalIncome        decimal.Decimal
	TotalExpense       decimal.Decimal
	Last60DaysIncome   WindowTotal
	Last30DaysExpenses WindowTotal
	RecentTransactions []Transaction
}

// EmptyWindow is the zero-valued window used when a type has no records.
func EmptyWindow() WindowTotal {
	return WindowTotal{Total: decimal.Zero, Transactions: []Record{}}
}
