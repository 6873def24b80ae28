package port

import (
	"context"

	"github.com/rl1809/sales-api/internal/core/domain"
)

// Single-record lookups return (nil, nil) when the key does not exist.
// Update and Delete report false when nothing matched.

type ArticleRepository interface {
	ListArticles(ctx context.Context) ([]domain.Article, error)
	GetArticle(ctx context.Context, id int64) (*domain.Article, error)
	CreateArticle(ctx context.Context, article *domain.Article) error
	UpdateArticle(ctx context.Context, article domain.Article) (bool, error)
	DeleteArticle(ctx context.Context, id int64) (bool, error)
}

type CustomerRepository interface {
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	UpdateCustomer(ctx context.Context, customer domain.Customer) (bool, error)
	DeleteCustomer(ctx context.Context, id int64) (bool, error)
}

type PaymentRepository interface {
	ListPayments(ctx context.Context) ([]domain.Payment, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	UpdatePayment(ctx context.Context, payment domain.Payment) (bool, error)
	DeletePayment(ctx context.Context, id int64) (bool, error)
}

type InventoryRepository interface {
	// GetInventory retrieves inventory by article ID
	GetInventory(ctx context.Context, articleID int64) (*domain.Inventory, error)

	// SetInventory creates or overwrites the quantity on hand for an article
	SetInventory(ctx context.Context, articleID int64, quantity int) (*domain.Inventory, error)
}

type TransactionRepository interface {
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// Tx is an atomic scope against the store. Nothing done through it is visible
// to other scopes until Commit; Rollback after Commit is a no-op.
type Tx interface {
	// LockInventory reads the inventory row and holds it until the scope ends
	LockInventory(ctx context.Context, articleID int64) (*domain.Inventory, error)

	// DecrementInventory lowers the quantity; no-op when the article has no inventory row
	DecrementInventory(ctx context.Context, articleID int64, quantity int) error

	// InsertTransaction persists the aggregate with its lines and payments and assigns ids
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error

	Commit() error
	Rollback() error
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

type DatabaseRepository interface {
	ArticleRepository
	CustomerRepository
	PaymentRepository
	InventoryRepository
	TransactionRepository
	TxBeginner

	Ping(ctx context.Context) error
}
