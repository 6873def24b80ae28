package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/sales-api/internal/core/domain"
)

func (m *MySQLAdapter) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := m.db.QueryRowContext(ctx, `
		SELECT id, customer_id, created_at
		FROM transactions WHERE id = ?`, id,
	).Scan(&txn.ID, &txn.CustomerID, &txn.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}

	if err := m.loadChildren(ctx, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (m *MySQLAdapter) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, customer_id, created_at
		FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	txns := make([]domain.Transaction, 0)
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(&txn.ID, &txn.CustomerID, &txn.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for i := range txns {
		if err := m.loadChildren(ctx, &txns[i]); err != nil {
			return nil, err
		}
	}
	return txns, nil
}

// loadChildren fills lines in line order and payments in insertion order.
func (m *MySQLAdapter) loadChildren(ctx context.Context, txn *domain.Transaction) error {
	lineRows, err := m.db.QueryContext(ctx, `
		SELECT line_no, article_id
		FROM transaction_articles
		WHERE transaction_id = ?
		ORDER BY line_no`, txn.ID)
	if err != nil {
		return fmt.Errorf("query transaction articles: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		line := domain.ArticleLine{TransactionID: txn.ID}
		if err := lineRows.Scan(&line.LineNo, &line.ArticleID); err != nil {
			return fmt.Errorf("scan transaction article: %w", err)
		}
		txn.Lines = append(txn.Lines, line)
	}
	if err := lineRows.Err(); err != nil {
		return fmt.Errorf("iterate transaction articles: %w", err)
	}

	paymentRows, err := m.db.QueryContext(ctx, `
		SELECT id, transaction_id, amount, payment_date, payment_method
		FROM payments
		WHERE transaction_id = ?
		ORDER BY id`, txn.ID)
	if err != nil {
		return fmt.Errorf("query transaction payments: %w", err)
	}
	defer paymentRows.Close()

	if txn.Payments, err = scanPayments(paymentRows); err != nil {
		return err
	}
	return nil
}
