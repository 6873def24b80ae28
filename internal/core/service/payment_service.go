package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/port"
)

type PaymentInput struct {
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod string
}

// PaymentRecorder attaches payments to an order that is still being built.
// A gateway integration would replace it without touching the workflow.
type PaymentRecorder interface {
	Record(ctx context.Context, payments []PaymentInput, txn *domain.Transaction) error
}

// LedgerPaymentRecorder records payments as local ledger entries only.
type LedgerPaymentRecorder struct{}

func NewLedgerPaymentRecorder() LedgerPaymentRecorder {
	return LedgerPaymentRecorder{}
}

// Record dates undated payments at the order's creation time.
func (LedgerPaymentRecorder) Record(_ context.Context, payments []PaymentInput, txn *domain.Transaction) error {
	for _, p := range payments {
		date := p.PaymentDate
		if date.IsZero() {
			date = txn.CreatedAt
		}
		txn.AddPayment(domain.Payment{
			Amount:        p.Amount,
			PaymentDate:   date,
			PaymentMethod: p.PaymentMethod,
		})
	}
	return nil
}

// PaymentService is the standalone payment CRUD surface; it never runs inside the order workflow.
type PaymentService struct {
	payments     port.PaymentRepository
	transactions port.TransactionRepository
}

func NewPaymentService(payments port.PaymentRepository, transactions port.TransactionRepository) *PaymentService {
	return &PaymentService{payments: payments, transactions: transactions}
}

func (s *PaymentService) GetAll(ctx context.Context) ([]domain.Payment, error) {
	return s.payments.ListPayments(ctx)
}

func (s *PaymentService) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.payments.GetPayment(ctx, id)
}

// Create dates an undated payment now.
func (s *PaymentService) Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	if err := s.ensureTransaction(ctx, payment.TransactionID); err != nil {
		return nil, err
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}
	if err := s.payments.CreatePayment(ctx, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Update keeps the stored date when the new one is zero.
func (s *PaymentService) Update(ctx context.Context, payment domain.Payment) (bool, error) {
	if err := s.ensureTransaction(ctx, payment.TransactionID); err != nil {
		return false, err
	}
	if payment.PaymentDate.IsZero() {
		current, err := s.payments.GetPayment(ctx, payment.ID)
		if err != nil {
			return false, fmt.Errorf("get payment: %w", err)
		}
		if current == nil {
			return false, nil
		}
		payment.PaymentDate = current.PaymentDate
	}
	return s.payments.UpdatePayment(ctx, payment)
}

func (s *PaymentService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.payments.DeletePayment(ctx, id)
}

func (s *PaymentService) ensureTransaction(ctx context.Context, id int64) error {
	txn, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if txn == nil {
		return domain.ErrTransactionNotFound
	}
	return nil
}

var _ PaymentRecorder = LedgerPaymentRecorder{}
