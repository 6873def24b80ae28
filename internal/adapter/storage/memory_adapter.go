package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/port"
)

// MemoryAdapter keeps every table in process memory. An open Tx holds the
// adapter lock until it commits or rolls back, so atomic scopes are fully
// serialized.
type MemoryAdapter struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryTransaction struct {
	ID         int64
	CustomerID int64
	CreatedAt  time.Time
	ArticleIDs []int64
}

type memoryState struct {
	articles     map[int64]domain.Article
	customers    map[int64]domain.Customer
	payments     map[int64]domain.Payment
	inventory    map[int64]domain.Inventory
	transactions map[int64]memoryTransaction

	lastArticleID     int64
	lastCustomerID    int64
	lastPaymentID     int64
	lastInventoryID   int64
	lastTransactionID int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		state: &memoryState{
			articles:     make(map[int64]domain.Article),
			customers:    make(map[int64]domain.Customer),
			payments:     make(map[int64]domain.Payment),
			inventory:    make(map[int64]domain.Inventory),
			transactions: make(map[int64]memoryTransaction),
		},
	}
}

func (s *memoryState) clone() *memoryState {
	c := *s
	c.articles = make(map[int64]domain.Article, len(s.articles))
	for k, v := range s.articles {
		c.articles[k] = v
	}
	c.customers = make(map[int64]domain.Customer, len(s.customers))
	for k, v := range s.customers {
		c.customers[k] = v
	}
	c.payments = make(map[int64]domain.Payment, len(s.payments))
	for k, v := range s.payments {
		c.payments[k] = v
	}
	c.inventory = make(map[int64]domain.Inventory, len(s.inventory))
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	c.transactions = make(map[int64]memoryTransaction, len(s.transactions))
	for k, v := range s.transactions {
		v.ArticleIDs = append([]int64(nil), v.ArticleIDs...)
		c.transactions[k] = v
	}
	return &c
}

func (m *MemoryAdapter) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryAdapter) ListArticles(ctx context.Context) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Article, 0, len(m.state.articles))
	for _, a := range m.state.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, ctx.Err()
}

func (m *MemoryAdapter) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.state.articles[id]
	if !ok {
		return nil, ctx.Err()
	}
	return &a, ctx.Err()
}

func (m *MemoryAdapter) CreateArticle(ctx context.Context, article *domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.lastArticleID++
	article.ID = m.state.lastArticleID
	m.state.articles[article.ID] = *article
	return nil
}

func (m *MemoryAdapter) UpdateArticle(ctx context.Context, article domain.Article) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.articles[article.ID]; !ok {
		return false, nil
	}
	m.state.articles[article.ID] = article
	return true, nil
}

func (m *MemoryAdapter) DeleteArticle(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.articles[id]; !ok {
		return false, nil
	}
	for _, t := range m.state.transactions {
		for _, articleID := range t.ArticleIDs {
			if articleID == id {
				return false, fmt.Errorf("delete article %d: transaction %d: %w", id, t.ID, domain.ErrInUse)
			}
		}
	}
	delete(m.state.articles, id)
	delete(m.state.inventory, id)
	return true, nil
}

func (m *MemoryAdapter) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Customer, 0, len(m.state.customers))
	for _, c := range m.state.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, ctx.Err()
}

func (m *MemoryAdapter) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.state.customers[id]
	if !ok {
		return nil, ctx.Err()
	}
	return &c, ctx.Err()
}

func (m *MemoryAdapter) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.lastCustomerID++
	customer.ID = m.state.lastCustomerID
	m.state.customers[customer.ID] = *customer
	return nil
}

func (m *MemoryAdapter) UpdateCustomer(ctx context.Context, customer domain.Customer) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.customers[customer.ID]; !ok {
		return false, nil
	}
	m.state.customers[customer.ID] = customer
	return true, nil
}

func (m *MemoryAdapter) DeleteCustomer(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.customers[id]; !ok {
		return false, nil
	}
	for _, t := range m.state.transactions {
		if t.CustomerID == id {
			return false, fmt.Errorf("delete customer %d: transaction %d: %w", id, t.ID, domain.ErrInUse)
		}
	}
	delete(m.state.customers, id)
	return true, nil
}

func (m *MemoryAdapter) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Payment, 0, len(m.state.payments))
	for _, p := range m.state.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, ctx.Err()
}

func (m *MemoryAdapter) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.payments[id]
	if !ok {
		return nil, ctx.Err()
	}
	return &p, ctx.Err()
}

func (m *MemoryAdapter) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.transactions[payment.TransactionID]; !ok {
		return domain.ErrTransactionNotFound
	}
	m.state.lastPaymentID++
	payment.ID = m.state.lastPaymentID
	m.state.payments[payment.ID] = *payment
	return nil
}

func (m *MemoryAdapter) UpdatePayment(ctx context.Context, payment domain.Payment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.payments[payment.ID]; !ok {
		return false, nil
	}
	if _, ok := m.state.transactions[payment.TransactionID]; !ok {
		return false, domain.ErrTransactionNotFound
	}
	m.state.payments[payment.ID] = payment
	return true, nil
}

func (m *MemoryAdapter) DeletePayment(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.payments[id]; !ok {
		return false, nil
	}
	delete(m.state.payments, id)
	return true, nil
}

func (m *MemoryAdapter) GetInventory(ctx context.Context, articleID int64) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.state.inventory[articleID]
	if !ok {
		return nil, ctx.Err()
	}
	return &inv, ctx.Err()
}

func (m *MemoryAdapter) SetInventory(ctx context.Context, articleID int64, quantity int) (*domain.Inventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.articles[articleID]; !ok {
		return nil, domain.ErrArticleNotFound
	}
	inv, ok := m.state.inventory[articleID]
	if !ok {
		m.state.lastInventoryID++
		inv = domain.Inventory{ID: m.state.lastInventoryID, ArticleID: articleID}
	}
	inv.Quantity = quantity
	inv.UpdatedAt = time.Now().UTC()
	m.state.inventory[articleID] = inv
	return &inv, nil
}

func (m *MemoryAdapter) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.state.transactions[id]
	if !ok {
		return nil, ctx.Err()
	}
	txn := m.state.assemble(t)
	return &txn, ctx.Err()
}

func (m *MemoryAdapter) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Transaction, 0, len(m.state.transactions))
	for _, t := range m.state.transactions {
		out = append(out, m.state.assemble(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, ctx.Err()
}

func (s *memoryState) assemble(t memoryTransaction) domain.Transaction {
	txn := domain.NewTransaction(t.CustomerID, t.CreatedAt)
	txn.ID = t.ID
	for _, articleID := range t.ArticleIDs {
		txn.AddArticle(articleID)
	}

	payments := make([]domain.Payment, 0)
	for _, p := range s.payments {
		if p.TransactionID == t.ID {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	txn.Payments = payments
	return txn
}

// BeginTx blocks until no other scope is open.
func (m *MemoryAdapter) BeginTx(ctx context.Context) (port.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	return &memoryTx{adapter: m, work: m.state.clone()}, nil
}

type memoryTx struct {
	adapter *MemoryAdapter
	work    *memoryState
	done    bool
}

func (t *memoryTx) check(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("memory tx: already finished")
	}
	return ctx.Err()
}

func (t *memoryTx) LockInventory(ctx context.Context, articleID int64) (*domain.Inventory, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	inv, ok := t.work.inventory[articleID]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (t *memoryTx) DecrementInventory(ctx context.Context, articleID int64, quantity int) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	inv, ok := t.work.inventory[articleID]
	if !ok {
		return nil
	}
	if inv.Quantity-quantity < 0 {
		return fmt.Errorf("decrement article %d: %w", articleID, domain.ErrInvalidQuantity)
	}
	inv.Quantity -= quantity
	inv.UpdatedAt = time.Now().UTC()
	t.work.inventory[articleID] = inv
	return nil
}

func (t *memoryTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, ok := t.work.customers[txn.CustomerID]; !ok {
		return domain.ErrCustomerNotFound
	}
	for _, line := range txn.Lines {
		if _, ok := t.work.articles[line.ArticleID]; !ok {
			return fmt.Errorf("line %d: %w", line.LineNo, domain.ErrArticleNotFound)
		}
	}

	t.work.lastTransactionID++
	txn.AssignID(t.work.lastTransactionID)
	t.work.transactions[txn.ID] = memoryTransaction{
		ID:         txn.ID,
		CustomerID: txn.CustomerID,
		CreatedAt:  txn.CreatedAt,
		ArticleIDs: txn.ArticleIDs(),
	}

	for i := range txn.Payments {
		t.work.lastPaymentID++
		txn.Payments[i].ID = t.work.lastPaymentID
		t.work.payments[txn.Payments[i].ID] = txn.Payments[i]
	}
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return fmt.Errorf("memory tx: already finished")
	}
	t.done = true
	t.adapter.state = t.work
	t.adapter.mu.Unlock()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.work = nil
	t.adapter.mu.Unlock()
	return nil
}

var (
	_ port.DatabaseRepository = (*MemoryAdapter)(nil)
	_ port.Tx                 = (*memoryTx)(nil)
)
