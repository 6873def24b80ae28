package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArticleLine binds one unit of an article to a transaction.
type ArticleLine struct {
	TransactionID int64
	LineNo        int
	ArticleID     int64
}

// Transaction is the order aggregate. It exclusively owns its lines and payments.
type Transaction struct {
	ID         int64
	CustomerID int64
	CreatedAt  time.Time
	Lines      []ArticleLine
	Payments   []Payment
}

func NewTransaction(customerID int64, createdAt time.Time) Transaction {
	return Transaction{
		CustomerID: customerID,
		CreatedAt:  createdAt,
		Lines:      make([]ArticleLine, 0),
		Payments:   make([]Payment, 0),
	}
}

func (t *Transaction) AddArticle(articleID int64) {
	t.Lines = append(t.Lines, ArticleLine{
		TransactionID: t.ID,
		LineNo:        len(t.Lines) + 1,
		ArticleID:     articleID,
	})
}

func (t *Transaction) AddPayment(p Payment) {
	p.TransactionID = t.ID
	t.Payments = append(t.Payments, p)
}

// AssignID propagates a store-assigned id to the owned lines and payments.
func (t *Transaction) AssignID(id int64) {
	t.ID = id
	for i := range t.Lines {
		t.Lines[i].TransactionID = id
	}
	for i := range t.Payments {
		t.Payments[i].TransactionID = id
	}
}

func (t *Transaction) ArticleIDs() []int64 {
	ids := make([]int64, 0, len(t.Lines))
	for _, l := range t.Lines {
		ids = append(ids, l.ArticleID)
	}
	return ids
}

func (t *Transaction) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Payments {
		total = total.Add(p.Amount)
	}
	return total
}
