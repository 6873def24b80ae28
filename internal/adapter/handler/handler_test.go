package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-api/internal/adapter/storage"
	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/core/service"
	"github.com/rl1809/sales-api/internal/port"
)

func init() {
	gin.SetMode(gin.TestMode)
	log.SetLevel(log.PanicLevel)
}

// memoryCache mirrors the Redis adapter: a claimed key holds nil until completed.
type memoryCache struct {
	mu           sync.Mutex
	entries      map[string][]byte
	failComplete bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) ClaimIdempotencyKey(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return false, nil
	}
	c.entries[key] = nil
	return true, nil
}

func (c *memoryCache) GetIdempotentResponse(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *memoryCache) CompleteIdempotencyKey(_ context.Context, key string, response []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failComplete {
		return errors.New("cache write failed")
	}
	c.entries[key] = response
	return nil
}

func (c *memoryCache) ReleaseIdempotencyKey(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] == nil {
		delete(c.entries, key)
	}
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

var _ port.CacheRepository = (*memoryCache)(nil)

type testEnv struct {
	store    *storage.MemoryAdapter
	cache    *memoryCache
	services Services
	customer domain.Customer
	article  domain.Article
}

func newTestEnv(t *testing.T, stock int) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryAdapter()

	customer := domain.Customer{Name: "Linus"}
	require.NoError(t, store.CreateCustomer(ctx, &customer))
	article := domain.Article{Name: "Laptop", Price: decimal.RequireFromString("999.00")}
	require.NoError(t, store.CreateArticle(ctx, &article))
	_, err := store.SetInventory(ctx, article.ID, stock)
	require.NoError(t, err)

	inventory := service.NewInventoryService(store, store)
	return &testEnv{
		store: store,
		cache: newMemoryCache(),
		services: Services{
			Transactions: service.NewTransactionService(store, inventory, service.NewLedgerPaymentRecorder(), nil, nil),
			Customers:    service.NewCustomerService(store),
			Articles:     service.NewArticleService(store),
			Payments:     service.NewPaymentService(store, store),
			Inventory:    inventory,
		},
		customer: customer,
		article:  article,
	}
}

func (e *testEnv) router(observer HTTPObserver) *gin.Engine {
	h := NewHTTPHandler(e.services, e.cache, nil)
	return NewRouter(h, nil, observer, log.WithField("component", "test"))
}

func (e *testEnv) orderBody(articleIDs ...int64) map[string]any {
	return map[string]any{
		"customerId": e.customer.ID,
		"articleIds": articleIDs,
		"payments": []map[string]any{{
			"amount":        "999.00",
			"paymentDate":   "2024-05-01T10:00:00Z",
			"paymentMethod": "card",
		}},
	}
}

func (e *testEnv) stock(t *testing.T) int {
	t.Helper()
	inv, err := e.store.GetInventory(context.Background(), e.article.ID)
	require.NoError(t, err)
	return inv.Quantity
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) ObserveHTTP(_, route string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}
