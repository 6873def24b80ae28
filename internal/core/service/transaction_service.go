package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/port"
)

// unitsPerLine is the quantity each listed article id claims. Duplicate ids
// in one request are separate one-unit reservations.
const unitsPerLine = 1

type CreateTransactionInput struct {
	CustomerID int64
	ArticleIDs []int64
	Payments   []PaymentInput
}

type TransactionStore interface {
	port.TxBeginner
	port.TransactionRepository
}

// TransactionMetrics receives the outcome of every CreateTransaction call.
type TransactionMetrics interface {
	TransactionCreated(units int, elapsed time.Duration)
	TransactionFailed(reason string, elapsed time.Duration)
}

const (
	FailureArticleUnavailable = "article_unavailable"
	FailureInternal           = "internal"
)

type TransactionService struct {
	store    TransactionStore
	ledger   InventoryLedger
	recorder PaymentRecorder
	metrics  TransactionMetrics
	logger   *log.Entry
	now      func() time.Time
}

func NewTransactionService(
	store TransactionStore,
	ledger InventoryLedger,
	recorder PaymentRecorder,
	metrics TransactionMetrics,
	logger *log.Entry,
) *TransactionService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = log.WithField("component", "transaction_service")
	}
	return &TransactionService{
		store:    store,
		ledger:   ledger,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateTransaction reserves one unit per article id, records the payments and
// persists the order in a single atomic scope. Any failure rolls back every
// reservation and leaves no order, line or payment behind.
//
// Callers must reject empty article or payment lists before calling.
func (s *TransactionService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (TransactionView, error) {
	start := time.Now()

	txn, err := s.createTransaction(ctx, in)
	elapsed := time.Since(start)
	if err != nil {
		reason := FailureInternal
		if errors.Is(err, domain.ErrArticleUnavailable) {
			reason = FailureArticleUnavailable
		}
		s.metrics.TransactionFailed(reason, elapsed)
		return TransactionView{}, err
	}

	s.metrics.TransactionCreated(len(txn.Lines), elapsed)
	s.logger.WithFields(log.Fields{
		"transaction_id": txn.ID,
		"customer_id":    txn.CustomerID,
		"lines":          len(txn.Lines),
		"payments":       len(txn.Payments),
		"total":          txn.Total().StringFixed(2),
	}).Info("transaction created")

	return ToView(txn), nil
}

func (s *TransactionService) createTransaction(ctx context.Context, in CreateTransactionInput) (domain.Transaction, error) {
	txn := domain.NewTransaction(in.CustomerID, s.now())

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).WithField("customer_id", in.CustomerID).Error("rollback failed")
		}
	}()

	for _, articleID := range in.ArticleIDs {
		ok, err := s.ledger.CheckAvailability(ctx, tx, articleID, unitsPerLine)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("check availability of article %d: %w", articleID, err)
		}
		if !ok {
			return domain.Transaction{}, &domain.ArticleUnavailableError{ArticleID: articleID}
		}

		txn.AddArticle(articleID)
		if err := s.ledger.Reserve(ctx, tx, articleID, unitsPerLine); err != nil {
			return domain.Transaction{}, fmt.Errorf("reserve article %d: %w", articleID, err)
		}
	}

	if err := s.recorder.Record(ctx, in.Payments, &txn); err != nil {
		return domain.Transaction{}, fmt.Errorf("record payments: %w", err)
	}

	if err := tx.InsertTransaction(ctx, &txn); err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	committed = true

	return txn, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (TransactionView, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return TransactionView{}, fmt.Errorf("get transaction: %w", err)
	}
	if txn == nil {
		return TransactionView{}, domain.ErrTransactionNotFound
	}
	return ToView(*txn), nil
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]TransactionView, error) {
	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	views := make([]TransactionView, 0, len(txns))
	for _, txn := range txns {
		views = append(views, ToView(txn))
	}
	return views, nil
}

type nopMetrics struct{}

func (nopMetrics) TransactionCreated(int, time.Duration) {}
func (nopMetrics) TransactionFailed(string, time.Duration) {}
