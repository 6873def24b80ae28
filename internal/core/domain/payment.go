package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID            int64
	TransactionID int64
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod string
}
