package http

import (
	"encoding/json"
	"net/http"
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

type (
	statusResponse struct {
		Status string `json:"status"`
	}

	errorResponse struct {
		Message string `json:"message"`
	}

	transactionResponse struct {
		ID       string      `json:"_id"`
		UserID   string      `json:"userId"`
		Type     string      `json:"type,omitempty"`
		Source   string      `json:"source,omitempty"`
		Category string      `json:"category,omitempty"`
		Icon     string      `json:"icon"`
		Amount   json.Number `json:"amount"`
		Date     time.Time   `json:"date"`
	}

	windowResponse struct {
		Total        json.Number           `json:"total"`
		Transactions []transactionResponse `json:"transactions"`
	}

	// SummaryResponse is the JSON body of GET /dashboard.
	SummaryResponse struct {
		TotalBalance       json.Number           `json:"totalBalance"`
		TotalIncome        json.Number           `json:"totalIncome"`
		TotalExpense       json.Number           `json:"totalExpense"`
		Last30DaysExpenses windowResponse        `json:"last30DaysExpenses"`
		Last60DaysIncome   windowResponse        `json:"last60DaysIncome"`
		RecentTransactions []transactionResponse `json:"recentTransactions"`
	}
)

// number renders d as a bare JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newTransactionResponse(t core.RecordType, r core.Record) transactionResponse {
	out := transactionResponse{
		ID:     r.ID,
		UserID: r.OwnerID.String(),
		Icon:   r.Icon,
		Amount: number(r.Amount),
		Date:   r.Date.UTC(),
	}
	if t == core.Income {
		out.Source = r.Label
	} else {
		out.Category = r.Label
	}
	return out
}

func newWindowResponse(t core.RecordType, w core.WindowTotal) windowResponse {
	out := windowResponse{
		Total:        number(w.Total),
		Transactions: make([]transactionResponse, 0, len(w.Transactions)),
	}
	for _, r := range w.Transactions {
		out.Transactions = append(out.Transactions, newTransactionResponse(t, r))
	}
	return out
}

// NewSummaryResponse renders s with amounts as JSON numbers. Transactions
// carry source or category depending on their collection; only recent
// entries carry type.
func NewSummaryResponse(s core.FinancialSummary) SummaryResponse {
	out := SummaryResponse{
		TotalBalance:       number(s.TotalBalance),
		TotalIncome:        number(s.TotalIncome),
		TotalExpense:       number(s.TotalExpense),
		Last30DaysExpenses: newWindowResponse(core.Expense, s.Last30DaysExpenses),
		Last60DaysIncome:   newWindowResponse(core.Income, s.Last60DaysIncome),
		RecentTransactions: make([]transactionResponse, 0, len(s.RecentTransactions)),
	}
	for _, tx := range s.RecentTransactions {
		tr := newTransactionResponse(tx.Type, tx.Record)
		tr.Type = tx.Type.String()
		out.RecentTransactions = append(out.RecentTransactions, tr)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
