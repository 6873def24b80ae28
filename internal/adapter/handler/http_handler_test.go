package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-api/internal/core/service"
)

func TestCreateTransaction_Created(t *testing.T) {
	env := newTestEnv(t, 2)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view service.TransactionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.NotZero(t, view.TransactionID)
	assert.Equal(t, env.customer.ID, view.CustomerID)
	assert.Equal(t, []int64{env.article.ID}, view.ArticleIDs)
	require.Len(t, view.Payments, 1)
	assert.True(t, decimal.RequireFromString("999").Equal(view.Payments[0].Amount))
	assert.Equal(t, view.TransactionID, view.Payments[0].TransactionID)
	assert.Equal(t, fmt.Sprintf("/api/transactions/%d", view.TransactionID), w.Header().Get("Location"))

	assert.Equal(t, 1, env.stock(t))

	w = doJSON(t, r, http.MethodGet, w.Header().Get("Location"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched service.TransactionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, view.TransactionID, fetched.TransactionID)
	assert.Equal(t, view.ArticleIDs, fetched.ArticleIDs)
}

func TestCreateTransaction_Rejections(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)

	noPayments := env.orderBody(env.article.ID)
	noPayments["payments"] = []any{}

	withPayment := func(amount, date string) map[string]any {
		body := env.orderBody(env.article.ID)
		body["payments"] = []map[string]any{{
			"amount": amount, "paymentDate": date, "paymentMethod": "card",
		}}
		return body
	}

	tests := []struct {
		name      string
		body      any
		wantCode  int
		wantMsg   string
		wantError string
	}{
		{name: "no articles", body: env.orderBody(), wantCode: http.StatusBadRequest, wantMsg: msgEmptyTransaction},
		{name: "no payments", body: noPayments, wantCode: http.StatusBadRequest, wantMsg: msgEmptyTransaction},
		{name: "non-positive amount", body: withPayment("0", "2024-05-01"), wantCode: http.StatusBadRequest, wantError: "validation_failed"},
		{name: "sub-cent amount", body: withPayment("0.001", "2024-05-01"), wantCode: http.StatusBadRequest, wantError: "validation_failed"},
		{name: "three decimal places", body: withPayment("10.005", "2024-05-01"), wantCode: http.StatusBadRequest, wantError: "validation_failed"},
		{name: "unparseable date", body: withPayment("10", "05/01/2024"), wantCode: http.StatusBadRequest, wantError: "invalid_request_body"},
		{name: "malformed json", body: `{"customerId":`, wantCode: http.StatusBadRequest, wantError: "invalid_request_body"},
		{
			name:     "out of stock article",
			body:     env.orderBody(env.article.ID, env.article.ID),
			wantCode: http.StatusConflict,
			wantMsg:  fmt.Sprintf("Article with ID %d is not available in inventory.", env.article.ID),
		},
		{
			name:     "unknown customer",
			body:     map[string]any{"customerId": 404, "articleIds": []int64{env.article.ID}, "payments": cashPayments()},
			wantCode: http.StatusInternalServerError,
			wantMsg:  msgTransactionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/transactions", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeMessage(t, w))
			}
			if tt.wantError != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantError, body["error"])
			}
		})
	}

	assert.Equal(t, 1, env.stock(t), "rejected orders leave stock untouched")
}

func cashPayments() []map[string]any {
	return []map[string]any{{
		"amount": "10", "paymentDate": "2024-05-01T10:00:00Z", "paymentMethod": "cash",
	}}
}

func TestCreateTransaction_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t, 5)
	r := env.router(nil)
	body := env.orderBody(env.article.ID)

	first := doJSON(t, r, http.MethodPost, "/api/transactions", body, IdempotencyKeyHeader, "order-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplay))

	second := doJSON(t, r, http.MethodPost, "/api/transactions", body, IdempotencyKeyHeader, "order-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotentReplay))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, 4, env.stock(t), "replay does not reserve again")

	third := doJSON(t, r, http.MethodPost, "/api/transactions", body, IdempotencyKeyHeader, "order-2")
	require.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, 3, env.stock(t))
}

func TestCreateTransaction_InFlightKey(t *testing.T) {
	env := newTestEnv(t, 5)
	r := env.router(nil)

	claimed, err := env.cache.ClaimIdempotencyKey(context.Background(), "busy")
	require.NoError(t, err)
	require.True(t, claimed)

	w := doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID), IdempotencyKeyHeader, "busy")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, msgRequestInFlight, decodeMessage(t, w))
	assert.Equal(t, 5, env.stock(t))
}

func TestCreateTransaction_FailureReleasesKey(t *testing.T) {
	env := newTestEnv(t, 0)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID), IdempotencyKeyHeader, "retry-me")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.cache.has("retry-me"))

	_, err := env.services.Inventory.SetQuantity(context.Background(), env.article.ID, 1)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID), IdempotencyKeyHeader, "retry-me")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.cache.has("retry-me"))
}

func TestGetTransaction_Errors(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodGet, "/api/transactions/99", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Transaction with ID 99 not found.", decodeMessage(t, w))

	w = doJSON(t, r, http.MethodGet, "/api/transactions/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgInvalidID, decodeMessage(t, w))
}

func TestListTransactions_EmptyArray(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCustomerEndpoints(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodPost, "/api/customers", map[string]any{"name": "Margaret"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created CustomerDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, fmt.Sprintf("/api/customers/%d", created.CustomerID), w.Header().Get("Location"))

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/customers/%d", created.CustomerID),
		map[string]any{"customerId": created.CustomerID + 1, "name": "Maggie"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgIDMismatch, decodeMessage(t, w))

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/customers/%d", created.CustomerID),
		map[string]any{"customerId": created.CustomerID, "name": "Maggie"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/customers/%d", created.CustomerID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"customerId":%d,"name":"Maggie"}`, created.CustomerID), w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/customers", map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/customers/%d", created.CustomerID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/customers/%d", created.CustomerID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fmt.Sprintf("Customer with ID %d not found.", created.CustomerID), decodeMessage(t, w))
}

func TestDeleteReferencedArticle_Conflict(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/articles/%d", env.article.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, fmt.Sprintf("Article with ID %d is referenced by a transaction.", env.article.ID), decodeMessage(t, w))

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/customers/%d", env.customer.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPaymentEndpoints(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodPost, "/api/payments", map[string]any{
		"amount": "5", "paymentDate": "2024-05-01T10:00:00Z", "paymentMethod": "cash", "transactionId": 77,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Transaction with ID 77 not found.", decodeMessage(t, w))

	w = doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID))
	require.Equal(t, http.StatusCreated, w.Code)
	var view service.TransactionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	w = doJSON(t, r, http.MethodPost, "/api/payments", map[string]any{
		"amount": "5", "paymentDate": "2024-05-01T10:00:00Z", "paymentMethod": "cash", "transactionId": view.TransactionID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []service.PaymentView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payments))
	assert.Len(t, payments, 2)

	w = doJSON(t, r, http.MethodGet, "/api/payments/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInventoryEndpoints(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)
	path := fmt.Sprintf("/api/inventory/%d", env.article.ID)

	w := doJSON(t, r, http.MethodPut, path, map[string]any{"quantity": 12})
	require.Equal(t, http.StatusOK, w.Code)
	var inv InventoryDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	assert.Equal(t, 12, inv.Quantity)
	assert.Equal(t, env.article.ID, inv.ArticleID)

	w = doJSON(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	assert.Equal(t, 12, inv.Quantity)

	w = doJSON(t, r, http.MethodPut, path, map[string]any{"quantity": -3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/inventory/404", map[string]any{"quantity": 1})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Article with ID 404 not found.", decodeMessage(t, w))

	w = doJSON(t, r, http.MethodGet, "/api/inventory/404", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMiddleware_RequestIDAndMetrics(t *testing.T) {
	env := newTestEnv(t, 1)
	observer := &routeRecorder{}
	r := env.router(observer)

	w := doJSON(t, r, http.MethodGet, "/api/transactions/5", nil, RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = doJSON(t, r, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	assert.Equal(t, []string{"/api/transactions/:id", "unmatched"}, observer.routes)
}

func TestCreateTransaction_PaymentDateForms(t *testing.T) {
	env := newTestEnv(t, 3)
	r := env.router(nil)

	tests := []struct {
		name    string
		payment map[string]any
		check   func(t *testing.T, view service.TransactionView)
	}{
		{
			name:    "date only",
			payment: map[string]any{"amount": "10.50", "paymentDate": "2024-05-01", "paymentMethod": "card"},
			check: func(t *testing.T, view service.TransactionView) {
				assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), view.Payments[0].PaymentDate)
			},
		},
		{
			name:    "rfc 3339 with offset",
			payment: map[string]any{"amount": "10.50", "paymentDate": "2024-05-01T12:00:00+02:00", "paymentMethod": "card"},
			check: func(t *testing.T, view service.TransactionView) {
				assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), view.Payments[0].PaymentDate)
			},
		},
		{
			name:    "missing date",
			payment: map[string]any{"amount": "10.50", "paymentMethod": "card"},
			check: func(t *testing.T, view service.TransactionView) {
				assert.Equal(t, view.TransactionDate, view.Payments[0].PaymentDate)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := env.orderBody(env.article.ID)
			body["payments"] = []map[string]any{tt.payment}

			w := doJSON(t, r, http.MethodPost, "/api/transactions", body)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			var view service.TransactionView
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
			require.Len(t, view.Payments, 1)
			assert.True(t, decimal.RequireFromString("10.50").Equal(view.Payments[0].Amount))
			tt.check(t, view)
		})
	}
}

func TestCreateArticle_RejectsSubCentPrice(t *testing.T) {
	env := newTestEnv(t, 1)
	r := env.router(nil)

	w := doJSON(t, r, http.MethodPost, "/api/articles", map[string]any{"name": "Pen", "price": "1.999"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	require.Len(t, body.Fields, 1)
	for field := range body.Fields {
		assert.True(t, strings.HasSuffix(field, "price"), field)
	}

	w = doJSON(t, r, http.MethodPost, "/api/articles", map[string]any{"name": "Pen", "price": "1.990"})
	assert.Equal(t, http.StatusCreated, w.Code, "trailing zeros are still whole cents")
}

func TestCreateTransaction_UnsavedResponseReleasesKey(t *testing.T) {
	env := newTestEnv(t, 2)
	env.cache.failComplete = true
	r := env.router(nil)

	w := doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID), IdempotencyKeyHeader, "lost-write")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, env.cache.has("lost-write"), "key is not left in flight")

	env.cache.failComplete = false
	w = doJSON(t, r, http.MethodPost, "/api/transactions", env.orderBody(env.article.ID), IdempotencyKeyHeader, "lost-write")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(IdempotentReplay))
	assert.True(t, env.cache.has("lost-write"))
}
