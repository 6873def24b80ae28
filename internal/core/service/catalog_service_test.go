package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-api/internal/adapter/storage"
	"github.com/rl1809/sales-api/internal/core/domain"
)

func TestArticleService_CRUD(t *testing.T) {
	svc := NewArticleService(storage.NewMemoryAdapter())
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Article{ID: 77, Name: "Cable", Price: decimal.RequireFromString("4.99")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID, "client supplied id is ignored")

	created.Name = "USB-C Cable"
	updated, err := svc.Update(ctx, *created)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "USB-C Cable", got.Name)

	updated, err = svc.Update(ctx, domain.Article{ID: 50, Name: "Ghost"})
	require.NoError(t, err)
	assert.False(t, updated)

	deleted, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCustomerService_DeleteReferenced(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.CreateTransaction(ctx, CreateTransactionInput{
		CustomerID: f.customer.ID,
		ArticleIDs: []int64{f.article.ID},
		Payments:   []PaymentInput{cardPayment("49.90")},
	})
	require.NoError(t, err)

	customers := NewCustomerService(f.store)
	_, err = customers.Delete(ctx, f.customer.ID)
	assert.ErrorIs(t, err, domain.ErrInUse)

	articles := NewArticleService(f.store)
	_, err = articles.Delete(ctx, f.article.ID)
	assert.ErrorIs(t, err, domain.ErrInUse)

	all, err := customers.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
