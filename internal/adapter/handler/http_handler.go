package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/core/service"
	"github.com/rl1809/sales-api/internal/port"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	IdempotentReplay     = "Idempotent-Replayed"

	msgEmptyTransaction  = "Transaction must include at least one article and one payment."
	msgTransactionFailed = "Internal server error while creating the transaction."
	msgInvalidID         = "Invalid ID."
	msgIDMismatch        = "ID in path does not match ID in body."
	msgRequestInFlight   = "A request with this Idempotency-Key is still being processed."
)

// Services groups the application services the HTTP and gRPC handlers call.
type Services struct {
	Transactions *service.TransactionService
	Customers    *service.CustomerService
	Articles     *service.ArticleService
	Payments     *service.PaymentService
	Inventory    *service.InventoryService
}

type HTTPHandler struct {
	services Services
	cache    port.CacheRepository
	validate *validatorv10.Validate
	logger   *log.Entry
}

// NewHTTPHandler builds the REST handler. A nil cache disables the
// Idempotency-Key guard on transaction creation.
func NewHTTPHandler(services Services, cache port.CacheRepository, logger *log.Entry) *HTTPHandler {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return &HTTPHandler{
		services: services,
		cache:    cache,
		validate: NewValidator(),
		logger:   logger,
	}
}

func (h *HTTPHandler) Register(r gin.IRouter) {
	api := r.Group("/api")

	transactions := api.Group("/transactions")
	transactions.POST("", h.CreateTransaction)
	transactions.GET("", h.ListTransactions)
	transactions.GET("/:id", h.GetTransaction)

	customers := api.Group("/customers")
	customers.GET("", h.ListCustomers)
	customers.POST("", h.CreateCustomer)
	customers.GET("/:id", h.GetCustomer)
	customers.PUT("/:id", h.UpdateCustomer)
	customers.DELETE("/:id", h.DeleteCustomer)

	articles := api.Group("/articles")
	articles.GET("", h.ListArticles)
	articles.POST("", h.CreateArticle)
	articles.GET("/:id", h.GetArticle)
	articles.PUT("/:id", h.UpdateArticle)
	articles.DELETE("/:id", h.DeleteArticle)

	payments := api.Group("/payments")
	payments.GET("", h.ListPayments)
	payments.POST("", h.CreatePayment)
	payments.GET("/:id", h.GetPayment)
	payments.PUT("/:id", h.UpdatePayment)
	payments.DELETE("/:id", h.DeletePayment)

	inventory := api.Group("/inventory")
	inventory.GET("/:articleId", h.GetInventory)
	inventory.PUT("/:articleId", h.SetInventory)
}

func (h *HTTPHandler) CreateTransaction(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateTransactionRequest
	if err := Bind(c, &req); err != nil {
		return
	}
	if len(req.ArticleIDs) == 0 || len(req.Payments) == 0 {
		writeMessage(c, http.StatusBadRequest, msgEmptyTransaction)
		return
	}
	if err := Validate(c, &req, h.validate); err != nil {
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	guarded := key != "" && h.cache != nil
	if guarded {
		claimed, err := h.cache.ClaimIdempotencyKey(ctx, key)
		if err != nil {
			h.requestLogger(c).WithError(err).Error("claim idempotency key")
			writeMessage(c, http.StatusInternalServerError, msgTransactionFailed)
			return
		}
		if !claimed {
			h.replay(c, key)
			return
		}
	}

	view, err := h.services.Transactions.CreateTransaction(ctx, req.toInput())
	if err != nil {
		if guarded {
			releaseIdempotencyKey(ctx, h.cache, key, h.requestLogger(c))
		}

		var unavailable *domain.ArticleUnavailableError
		if errors.As(err, &unavailable) {
			writeMessage(c, http.StatusConflict,
				fmt.Sprintf("Article with ID %d is not available in inventory.", unavailable.ArticleID))
			return
		}

		h.requestLogger(c).WithError(err).WithField("customer_id", req.CustomerID).Error("create transaction")
		writeMessage(c, http.StatusInternalServerError, msgTransactionFailed)
		return
	}

	body, err := json.Marshal(view)
	if err != nil {
		h.requestLogger(c).WithError(err).Error("encode transaction")
		if guarded {
			releaseIdempotencyKey(ctx, h.cache, key, h.requestLogger(c))
		}
		writeMessage(c, http.StatusInternalServerError, msgTransactionFailed)
		return
	}

	if guarded {
		storeIdempotentResponse(ctx, h.cache, key, body, h.requestLogger(c))
	}

	c.Header("Location", fmt.Sprintf("/api/transactions/%d", view.TransactionID))
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// replay answers a request whose Idempotency-Key was already claimed.
func (h *HTTPHandler) replay(c *gin.Context, key string) {
	body, err := h.cache.GetIdempotentResponse(c.Request.Context(), key)
	if err != nil {
		h.requestLogger(c).WithError(err).Error("get idempotent response")
		writeMessage(c, http.StatusInternalServerError, msgTransactionFailed)
		return
	}
	if body == nil {
		writeMessage(c, http.StatusConflict, msgRequestInFlight)
		return
	}

	c.Header(IdempotentReplay, "true")
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

func (h *HTTPHandler) ListTransactions(c *gin.Context) {
	views, err := h.services.Transactions.ListTransactions(c.Request.Context())
	if err != nil {
		h.requestLogger(c).WithError(err).Error("list transactions")
		writeMessage(c, http.StatusInternalServerError, "Internal server error while retrieving transactions.")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *HTTPHandler) GetTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.services.Transactions.GetTransaction(c.Request.Context(), id)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		writeMessage(c, http.StatusNotFound, fmt.Sprintf("Transaction with ID %d not found.", id))
		return
	}
	if err != nil {
		h.requestLogger(c).WithError(err).WithField("transaction_id", id).Error("get transaction")
		writeMessage(c, http.StatusInternalServerError, "Internal server error while retrieving the transaction.")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) requestLogger(c *gin.Context) *log.Entry {
	return h.logger.WithField("request_id", c.GetString(requestIDKey))
}

// pathID parses a positive integer path parameter, writing 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(c, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}
	return id, true
}

func writeMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}
