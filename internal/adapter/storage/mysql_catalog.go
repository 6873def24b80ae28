package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/sales-api/internal/core/domain"
)

func (m *MySQLAdapter) ListArticles(ctx context.Context) ([]domain.Article, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name, price FROM articles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]domain.Article, 0)
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Name, &a.Price); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (m *MySQLAdapter) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	var a domain.Article
	err := m.db.QueryRowContext(ctx, `SELECT id, name, price FROM articles WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Price)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query article: %w", err)
	}
	return &a, nil
}

func (m *MySQLAdapter) CreateArticle(ctx context.Context, article *domain.Article) error {
	result, err := m.db.ExecContext(ctx, `INSERT INTO articles (name, price) VALUES (?, ?)`,
		article.Name, article.Price,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	if article.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("article id: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateArticle(ctx context.Context, article domain.Article) (bool, error) {
	return m.updateOne(ctx, "article", `UPDATE articles SET name = ?, price = ? WHERE id = ?`,
		article.Name, article.Price, article.ID,
	)
}

func (m *MySQLAdapter) DeleteArticle(ctx context.Context, id int64) (bool, error) {
	return m.deleteOne(ctx, "article", `DELETE FROM articles WHERE id = ?`, id)
}

func (m *MySQLAdapter) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (m *MySQLAdapter) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := m.db.QueryRowContext(ctx, `SELECT id, name FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	result, err := m.db.ExecContext(ctx, `INSERT INTO customers (name) VALUES (?)`, customer.Name)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	if customer.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("customer id: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateCustomer(ctx context.Context, customer domain.Customer) (bool, error) {
	return m.updateOne(ctx, "customer", `UPDATE customers SET name = ? WHERE id = ?`,
		customer.Name, customer.ID,
	)
}

func (m *MySQLAdapter) DeleteCustomer(ctx context.Context, id int64) (bool, error) {
	return m.deleteOne(ctx, "customer", `DELETE FROM customers WHERE id = ?`, id)
}

func (m *MySQLAdapter) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, transaction_id, amount, payment_date, payment_method
		FROM payments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows)
}

func (m *MySQLAdapter) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	err := m.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, amount, payment_date, payment_method
		FROM payments WHERE id = ?`, id,
	).Scan(&p.ID, &p.TransactionID, &p.Amount, &p.PaymentDate, &p.PaymentMethod)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO payments (transaction_id, amount, payment_date, payment_method)
		VALUES (?, ?, ?, ?)`,
		payment.TransactionID, payment.Amount, payment.PaymentDate, payment.PaymentMethod,
	)
	if err != nil {
		if isMySQLError(err, errNoReferencedRow) {
			return domain.ErrTransactionNotFound
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	if payment.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("payment id: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdatePayment(ctx context.Context, payment domain.Payment) (bool, error) {
	ok, err := m.updateOne(ctx, "payment", `
		UPDATE payments
		SET transaction_id = ?, amount = ?, payment_date = ?, payment_method = ?
		WHERE id = ?`,
		payment.TransactionID, payment.Amount, payment.PaymentDate, payment.PaymentMethod, payment.ID,
	)
	if isMySQLError(err, errNoReferencedRow) {
		return false, domain.ErrTransactionNotFound
	}
	return ok, err
}

func (m *MySQLAdapter) DeletePayment(ctx context.Context, id int64) (bool, error) {
	return m.deleteOne(ctx, "payment", `DELETE FROM payments WHERE id = ?`, id)
}

func (m *MySQLAdapter) GetInventory(ctx context.Context, articleID int64) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := m.db.QueryRowContext(ctx, `
		SELECT id, article_id, quantity, updated_at
		FROM inventory WHERE article_id = ?`, articleID,
	).Scan(&inv.ID, &inv.ArticleID, &inv.Quantity, &inv.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &inv, nil
}

func (m *MySQLAdapter) SetInventory(ctx context.Context, articleID int64, quantity int) (*domain.Inventory, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (article_id, quantity) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`,
		articleID, quantity,
	)
	if err != nil {
		if isMySQLError(err, errNoReferencedRow) {
			return nil, domain.ErrArticleNotFound
		}
		return nil, fmt.Errorf("upsert inventory: %w", err)
	}

	return m.GetInventory(ctx, articleID)
}

// updateOne reports false when no row has the given id. MySQL counts only
// changed rows by default, so an unchanged row is confirmed with a lookup.
func (m *MySQLAdapter) updateOne(ctx context.Context, entity, query string, args ...any) (bool, error) {
	result, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isMySQLError(err, errNoReferencedRow) {
			return false, err
		}
		return false, fmt.Errorf("update %s: %w", entity, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	id := args[len(args)-1]
	var exists int
	err = m.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %ss WHERE id = ?`, entity), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", entity, err)
	}
	return true, nil
}

func (m *MySQLAdapter) deleteOne(ctx context.Context, entity, query string, id int64) (bool, error) {
	result, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		if isMySQLError(err, errRowIsReferenced) {
			return false, fmt.Errorf("delete %s %d: %w", entity, id, domain.ErrInUse)
		}
		return false, fmt.Errorf("delete %s: %w", entity, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

func scanPayments(rows *sql.Rows) ([]domain.Payment, error) {
	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.Amount, &p.PaymentDate, &p.PaymentMethod); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}
