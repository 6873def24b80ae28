package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-api/internal/core/domain"
)

type PaymentView struct {
	PaymentID     int64           `json:"paymentId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod"`
	TransactionID int64           `json:"transactionId"`
}

type TransactionView struct {
	TransactionID   int64         `json:"transactionId"`
	TransactionDate time.Time     `json:"transactionDate"`
	CustomerID      int64         `json:"customerId"`
	ArticleIDs      []int64       `json:"articleIds"`
	Payments        []PaymentView `json:"payments"`
}

func ToPaymentView(p domain.Payment) PaymentView {
	return PaymentView{
		PaymentID:     p.ID,
		Amount:        p.Amount,
		PaymentDate:   p.PaymentDate,
		PaymentMethod: p.PaymentMethod,
		TransactionID: p.TransactionID,
	}
}

// ToView projects the aggregate into its external shape: one article id per
// line in line order, payments in append order.
func ToView(txn domain.Transaction) TransactionView {
	payments := make([]PaymentView, 0, len(txn.Payments))
	for _, p := range txn.Payments {
		payments = append(payments, ToPaymentView(p))
	}

	return TransactionView{
		TransactionID:   txn.ID,
		TransactionDate: txn.CreatedAt,
		CustomerID:      txn.CustomerID,
		ArticleIDs:      txn.ArticleIDs(),
		Payments:        payments,
	}
}
