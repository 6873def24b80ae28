package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-api/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:        "127.0.0.1:0",
		GRPCAddr:        "127.0.0.1:0",
		StoreDriver:     config.DriverMemory,
		IdempotencyTTL:  time.Hour,
		LogLevel:        "error",
		LogFormat:       "text",
		ShutdownTimeout: 2 * time.Second,
	}
}

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func TestNew_MemoryStoreServesAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := New(context.Background(), testConfig(), testLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.cache, "no redis address means no idempotency cache")

	handler := a.httpServer.Handler

	for _, path := range []string{"/livez", "/readyz", "/healthz", "/metrics"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/customers", bytes.NewBufferString(`{"name":"Ken"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = "sqlite"

	_, err := New(context.Background(), cfg, testLogger())
	assert.ErrorContains(t, err, `unknown store driver "sqlite"`)
}

func TestRun_StopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := New(context.Background(), testConfig(), testLogger())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
