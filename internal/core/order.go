package core

import (
	"slices"
	"strings"
)

// CompareRecords orders records newest first. Records sharing a date are
// ordered by ID descending so every listing is reproducible.
func CompareRecords(a, b Record) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

// CompareTransactions extends CompareRecords across collections: when date
// and ID tie, income sorts before expense.
func CompareTransactions(a, b Transaction) int {
	if c := CompareRecords(a.Record, b.Record); c != 0 {
		return c
	}
	return typeRank(a.Type) - typeRank(b.Type)
}

func typeRank(t RecordType) int {
	switch t {
	case Income:
		return 0
	case Expense:
		return 1
	default:
		return 2
	}
}

// SortRecords sorts in place using CompareRecords.
func SortRecords(records []Record) {
	slices.SortStableFunc(records, CompareRecords)
}

// SortTransactions sorts in place using CompareTransactions.
func SortTransactions(txs []Transaction) {
	slices.SortStableFunc(txs, CompareTransactions)
}
