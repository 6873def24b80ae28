package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/port"
)

const (
	pingTimeout = 5 * time.Second

	// MySQL server error numbers
	errNoReferencedRow = 1452
	errRowIsReferenced = 1451
)

//go:embed schema.sql
var schemaSQL string

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// OpenMySQL connects with parseTime forced on and UTC timestamps, then pings.
func OpenMySQL(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return m.db.PingContext(pingCtx)
}

// EnsureSchema creates missing tables. Statements are idempotent.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &mysqlTx{tx: tx}, nil
}

type mysqlTx struct {
	tx *sql.Tx
}

// LockInventory takes a row lock so concurrent orders for the same article
// queue behind this scope.
func (t *mysqlTx) LockInventory(ctx context.Context, articleID int64) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, article_id, quantity, updated_at
		FROM inventory WHERE article_id = ?
		FOR UPDATE`, articleID,
	).Scan(&inv.ID, &inv.ArticleID, &inv.Quantity, &inv.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &inv, nil
}

func (t *mysqlTx) DecrementInventory(ctx context.Context, articleID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - ?
		WHERE article_id = ?`,
		quantity, articleID,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (t *mysqlTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (customer_id, created_at)
		VALUES (?, ?)`,
		txn.CustomerID, txn.CreatedAt,
	)
	if err != nil {
		if isMySQLError(err, errNoReferencedRow) {
			return domain.ErrCustomerNotFound
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	txn.AssignID(id)

	for _, line := range txn.Lines {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO transaction_articles (transaction_id, line_no, article_id)
			VALUES (?, ?, ?)`,
			line.TransactionID, line.LineNo, line.ArticleID,
		)
		if err != nil {
			if isMySQLError(err, errNoReferencedRow) {
				return fmt.Errorf("line %d: %w", line.LineNo, domain.ErrArticleNotFound)
			}
			return fmt.Errorf("insert transaction article: %w", err)
		}
	}

	for i := range txn.Payments {
		p := &txn.Payments[i]
		result, err := t.tx.ExecContext(ctx, `
			INSERT INTO payments (transaction_id, amount, payment_date, payment_method)
			VALUES (?, ?, ?, ?)`,
			p.TransactionID, p.Amount, p.PaymentDate, p.PaymentMethod,
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if p.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("payment id: %w", err)
		}
	}

	return nil
}

func (t *mysqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *mysqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func isMySQLError(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}

var (
	_ port.DatabaseRepository = (*MySQLAdapter)(nil)
	_ port.Tx                 = (*mysqlTx)(nil)
)
