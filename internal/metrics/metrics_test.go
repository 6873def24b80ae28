package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTransactionCreated(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.TransactionCreated(3, 20*time.Millisecond)
	m.TransactionCreated(1, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactionsCreated))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.unitsReserved))
	assert.Equal(t, 1, testutil.CollectAndCount(m.transactionDuration))
}

func TestTransactionFailed(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.TransactionFailed("article_unavailable", time.Millisecond)
	m.TransactionFailed("article_unavailable", time.Millisecond)
	m.TransactionFailed("internal", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactionsFailed.WithLabelValues("article_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactionsFailed.WithLabelValues("internal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.transactionsCreated))
}

func TestObserveHTTP(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveHTTP("POST", "/api/transactions", 201, 10*time.Millisecond)
	m.ObserveHTTP("POST", "/api/transactions", 409, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/transactions", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/transactions", "409")))
}

func TestNewWithRegisterer_ReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewWithRegisterer(reg)
	second := NewWithRegisterer(reg)

	first.TransactionCreated(1, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.transactionsCreated))
}
