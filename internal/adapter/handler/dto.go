package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/core/service"
)

// PaymentDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// A missing date stays zero and is filled in by the service.
type PaymentDate struct {
	time.Time
}

func (d *PaymentDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("paymentDate must be a string")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fmt.Errorf("paymentDate must be YYYY-MM-DD or RFC 3339, got %q", raw)
	}
	d.Time = t
	return nil
}

type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"gte=0.01"`
	PaymentDate   PaymentDate     `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod" validate:"required,max=50"`
}

type CreateTransactionRequest struct {
	CustomerID int64            `json:"customerId" validate:"required,gt=0"`
	ArticleIDs []int64          `json:"articleIds" validate:"dive,gt=0"`
	Payments   []PaymentRequest `json:"payments" validate:"dive"`
}

func (r CreateTransactionRequest) toInput() service.CreateTransactionInput {
	payments := make([]service.PaymentInput, 0, len(r.Payments))
	for _, p := range r.Payments {
		payments = append(payments, service.PaymentInput{
			Amount:        p.Amount,
			PaymentDate:   p.PaymentDate.Time,
			PaymentMethod: p.PaymentMethod,
		})
	}
	return service.CreateTransactionInput{
		CustomerID: r.CustomerID,
		ArticleIDs: r.ArticleIDs,
		Payments:   payments,
	}
}

type CustomerDTO struct {
	CustomerID int64  `json:"customerId"`
	Name       string `json:"name" validate:"required,max=256"`
}

func (d CustomerDTO) toDomain() domain.Customer {
	return domain.Customer{ID: d.CustomerID, Name: d.Name}
}

func toCustomerDTO(c domain.Customer) CustomerDTO {
	return CustomerDTO{CustomerID: c.ID, Name: c.Name}
}

type ArticleDTO struct {
	ArticleID int64           `json:"articleId"`
	Name      string          `json:"name" validate:"required,max=100"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
}

func (d ArticleDTO) toDomain() domain.Article {
	return domain.Article{ID: d.ArticleID, Name: d.Name, Price: d.Price}
}

func toArticleDTO(a domain.Article) ArticleDTO {
	return ArticleDTO{ArticleID: a.ID, Name: a.Name, Price: a.Price}
}

type PaymentDTO struct {
	PaymentID     int64           `json:"paymentId"`
	Amount        decimal.Decimal `json:"amount" validate:"gte=0.01"`
	PaymentDate   PaymentDate     `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod" validate:"required,max=50"`
	TransactionID int64           `json:"transactionId" validate:"required,gt=0"`
}

func (d PaymentDTO) toDomain() domain.Payment {
	return domain.Payment{
		ID:            d.PaymentID,
		TransactionID: d.TransactionID,
		Amount:        d.Amount,
		PaymentDate:   d.PaymentDate.Time,
		PaymentMethod: d.PaymentMethod,
	}
}

type InventoryDTO struct {
	InventoryID int64     `json:"inventoryId"`
	ArticleID   int64     `json:"articleId"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toInventoryDTO(inv domain.Inventory) InventoryDTO {
	return InventoryDTO{
		InventoryID: inv.ID,
		ArticleID:   inv.ArticleID,
		Quantity:    inv.Quantity,
		UpdatedAt:   inv.UpdatedAt,
	}
}

type SetInventoryRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}
