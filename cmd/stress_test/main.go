package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	baseURL       = flag.String("url", "http://localhost:8080", "sales API base URL")
	initialStock  = flag.Int("stock", 20, "units of the test article put on sale")
	totalRequests = flag.Int("requests", 50, "concurrent single-unit orders to send")
	concurrency   = flag.Int("concurrency", 50, "maximum requests in flight")
	replays       = flag.Bool("replay", true, "resend every successful request with its Idempotency-Key")
)

type stressClient struct {
	http *http.Client
	base string
}

func main() {
	flag.Parse()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger := log.WithField("component", "stress_test")

	ctx := context.Background()
	client := &stressClient{http: &http.Client{Timeout: 10 * time.Second}, base: *baseURL}

	var customer struct {
		CustomerID int64 `json:"customerId"`
	}
	if err := client.do(ctx, http.MethodPost, "/api/customers", "", map[string]any{"name": "stress-customer"}, http.StatusCreated, &customer); err != nil {
		logger.WithError(err).Fatal("create customer")
	}

	var article struct {
		ArticleID int64 `json:"articleId"`
	}
	if err := client.do(ctx, http.MethodPost, "/api/articles", "", map[string]any{"name": "flash-sale-item", "price": "9.99"}, http.StatusCreated, &article); err != nil {
		logger.WithError(err).Fatal("create article")
	}

	inventoryPath := fmt.Sprintf("/api/inventory/%d", article.ArticleID)
	if err := client.do(ctx, http.MethodPut, inventoryPath, "", map[string]any{"quantity": *initialStock}, http.StatusOK, nil); err != nil {
		logger.WithError(err).Fatal("set inventory")
	}
	logger.WithFields(log.Fields{"article_id": article.ArticleID, "stock": *initialStock}).Info("seeded")

	order := map[string]any{
		"customerId": customer.CustomerID,
		"articleIds": []int64{article.ArticleID},
		"payments": []map[string]any{{
			"amount":        "9.99",
			"paymentDate":   time.Now().UTC().Format(time.RFC3339),
			"paymentMethod": "card",
		}},
	}

	var successCount, soldOutCount, errorCount atomic.Int32
	successKeys := make(chan string, *totalRequests)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		g.Go(func() error {
			key := uuid.NewString()
			status, err := client.status(gctx, http.MethodPost, "/api/transactions", key, order)
			switch {
			case err != nil:
				errorCount.Add(1)
				logger.WithError(err).Warn("request failed")
			case status == http.StatusCreated:
				successCount.Add(1)
				successKeys <- key
			case status == http.StatusConflict:
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
				logger.WithField("status", status).Warn("unexpected status")
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)
	close(successKeys)

	var replayMismatch atomic.Int32
	if *replays {
		rg, rctx := errgroup.WithContext(ctx)
		rg.SetLimit(*concurrency)
		for key := range successKeys {
			key := key
			rg.Go(func() error {
				status, err := client.status(rctx, http.MethodPost, "/api/transactions", key, order)
				if err != nil || status != http.StatusCreated {
					replayMismatch.Add(1)
				}
				return nil
			})
		}
		_ = rg.Wait()
	}

	var inv struct {
		Quantity int `json:"quantity"`
	}
	if err := client.do(ctx, http.MethodGet, inventoryPath, "", nil, http.StatusOK, &inv); err != nil {
		logger.WithError(err).Fatal("read inventory")
	}

	success := int(successCount.Load())
	soldOut := int(soldOutCount.Load())

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out (409):   %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Final Stock:      %d\n", inv.Quantity)
	fmt.Println("==========================================")

	expectedSuccess := min(*initialStock, *totalRequests)
	failed := false
	if success != expectedSuccess || soldOut != *totalRequests-expectedSuccess {
		fmt.Printf("FAIL: expected %d success/%d sold out, got %d/%d\n",
			expectedSuccess, *totalRequests-expectedSuccess, success, soldOut)
		failed = true
	}
	if inv.Quantity != *initialStock-expectedSuccess {
		fmt.Printf("FAIL: expected final stock %d, got %d\n", *initialStock-expectedSuccess, inv.Quantity)
		failed = true
	}
	if n := replayMismatch.Load(); n > 0 {
		fmt.Printf("FAIL: %d replays did not return the stored response\n", n)
		failed = true
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("PASS: no overselling, stock accounted for")
}

func (c *stressClient) status(ctx context.Context, method, path, idempotencyKey string, body any) (int, error) {
	resp, err := c.send(ctx, method, path, idempotencyKey, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *stressClient) do(ctx context.Context, method, path, idempotencyKey string, body any, want int, out any) error {
	resp, err := c.send(ctx, method, path, idempotencyKey, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *stressClient) send(ctx context.Context, method, path, idempotencyKey string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.http.Do(req)
}
