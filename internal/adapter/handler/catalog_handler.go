package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/core/service"
)

func (h *HTTPHandler) ListCustomers(c *gin.Context) {
	customers, err := h.services.Customers.GetAll(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "Internal server error while retrieving customers.")
		return
	}

	out := make([]CustomerDTO, 0, len(customers))
	for _, cu := range customers {
		out = append(out, toCustomerDTO(cu))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	customer, err := h.services.Customers.GetByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err, "Internal server error while retrieving the customer.")
		return
	}
	if customer == nil {
		writeMessage(c, http.StatusNotFound, notFound("Customer", id))
		return
	}
	c.JSON(http.StatusOK, toCustomerDTO(*customer))
}

func (h *HTTPHandler) CreateCustomer(c *gin.Context) {
	var req CustomerDTO
	if err := BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	created, err := h.services.Customers.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		h.internalError(c, err, "Internal server error while creating the customer.")
		return
	}

	c.Header("Location", fmt.Sprintf("/api/customers/%d", created.ID))
	c.JSON(http.StatusCreated, toCustomerDTO(*created))
}

func (h *HTTPHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CustomerDTO
	if err := BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	if req.CustomerID != id {
		writeMessage(c, http.StatusBadRequest, msgIDMismatch)
		return
	}

	updated, err := h.services.Customers.Update(c.Request.Context(), req.toDomain())
	if err != nil {
		h.internalError(c, err, "Internal server error while updating the customer.")
		return
	}
	if !updated {
		writeMessage(c, http.StatusNotFound, notFound("Customer", id))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.services.Customers.Delete(c.Request.Context(), id)
	if errors.Is(err, domain.ErrInUse) {
		writeMessage(c, http.StatusConflict, inUse("Customer", id))
		return
	}
	if err != nil {
		h.internalError(c, err, "Internal server error while deleting the customer.")
		return
	}
	if !deleted {
		writeMessage(c, http.StatusNotFound, notFound("Customer", id))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListArticles(c *gin.Context) {
	articles, err := h.services.Articles.GetAll(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "Internal server error while retrieving articles.")
		return
	}

	out := make([]ArticleDTO, 0, len(articles))
	for _, a := range articles {
		out = append(out, toArticleDTO(a))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	article, err := h.services.Articles.GetByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err, "Internal server error while retrieving the article.")
		return
	}
	if article == nil {
		writeMessage(c, http.StatusNotFound, notFound("Article", id))
		return
	}
	c.JSON(http.StatusOK, toArticleDTO(*article))
}

func (h *HTTPHandler) CreateArticle(c *gin.Context) {
	var req ArticleDTO
	if err := BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	created, err := h.services.Articles.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		h.internalError(c, err, "Internal server error while creating the article.")
		return
	}

	c.Header("Location", fmt.Sprintf("/api/articles/%d", created.ID))
	c.JSON(http.StatusCreated, toArticleDTO(*created))
}

func (h *HTTPHandler) UpdateArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ArticleDTO
	if err := BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	if req.ArticleID != id {
		writeMessage(c, http.StatusBadRequest, msgIDMismatch)
		return
	}

	updated, err := h.services.Articles.Update(c.Request.Context(), req.toDomain())
	if err != nil {
		h.internalError(c, err, "Internal server error while updating the article.")
		return
	}
	if !updated {
		writeMessage(c, http.StatusNotFound, notFound("Article", id))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.services.Articles.Delete(c.Request.Context(), id)
	if errors.Is(err, domain.ErrInUse) {
		writeMessage(c, http.StatusConflict, inUse("Article", id))
		return
	}
	if err != nil {
		h.internalError(c, err, "Internal server error while deleting the article.")
		return
	}
	if !deleted {
		writeMessage(c, http.StatusNotFound, notFound("Article", id))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListPayments(c *gin.Context) {
	payments, err := h.services.Payments.GetAll(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "Internal server error while retrieving payments.")
		return
	}

	out := make([]service.PaymentView, 0, len(payments))
	for _, p := range payments {
		out = append(out, service.ToPaymentView(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.services.Payments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err, "Internal server error while retrieving the payment.")
		return
	}
	if payment == nil {
		writeMessage(c, http.StatusNotFound, notFound("Payment", id))
		return
	}
	c.JSON(http.StatusOK, service.ToPaymentView(*payment))
}

func (h *HTTPHandler) CreatePayment(c *gin.Context) {
	var req PaymentDTO
	if err := BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	created, err := h.services.Payments.Create(c.Request.Context(), req.toDomain())
	if errors.Is(err, domain.ErrTransactionNotFound) {
		writeMessage(c, http.StatusNotFound, notFound("Transaction", req.TransactionID))
		return
	}
	if err != nil {
		h.internalError(c, err, "Internal server error while creating the payment.")
		return
	}

	c.Header("Location", fmt.Sprintf("/api/payments/%d", created.ID))
	c.JSON(http.StatusCreated, service.ToPaymentView(*created))
}

func (h *HTTPHandler) UpdatePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PaymentDTO
	if err := BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	if req.PaymentID != id {
		writeMessage(c, http.StatusBadRequest, msgIDMismatch)
		return
	}

	updated, err := h.services.Payments.Update(c.Request.Context(), req.toDomain())
	if errors.Is(err, domain.ErrTransactionNotFound) {
		writeMessage(c, http.StatusNotFound, notFound("Transaction", req.TransactionID))
		return
	}
	if err != nil {
		h.internalError(c, err, "Internal server error while updating the payment.")
		return
	}
	if !updated {
		writeMessage(c, http.StatusNotFound, notFound("Payment", id))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) DeletePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.services.Payments.Delete(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err, "Internal server error while deleting the payment.")
		return
	}
	if !deleted {
		writeMessage(c, http.StatusNotFound, notFound("Payment", id))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) GetInventory(c *gin.Context) {
	articleID, ok := pathID(c, "articleId")
	if !ok {
		return
	}

	inv, err := h.services.Inventory.GetByArticleID(c.Request.Context(), articleID)
	if err != nil {
		h.internalError(c, err, "Internal server error while retrieving the inventory.")
		return
	}
	if inv == nil {
		writeMessage(c, http.StatusNotFound, fmt.Sprintf("Inventory for article with ID %d not found.", articleID))
		return
	}
	c.JSON(http.StatusOK, toInventoryDTO(*inv))
}

func (h *HTTPHandler) SetInventory(c *gin.Context) {
	articleID, ok := pathID(c, "articleId")
	if !ok {
		return
	}
	var req SetInventoryRequest
	if err := BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	inv, err := h.services.Inventory.SetQuantity(c.Request.Context(), articleID, *req.Quantity)
	if errors.Is(err, domain.ErrArticleNotFound) {
		writeMessage(c, http.StatusNotFound, notFound("Article", articleID))
		return
	}
	if err != nil {
		h.internalError(c, err, "Internal server error while updating the inventory.")
		return
	}
	c.JSON(http.StatusOK, toInventoryDTO(*inv))
}

func (h *HTTPHandler) internalError(c *gin.Context, err error, message string) {
	h.requestLogger(c).WithError(err).WithField("path", c.FullPath()).Error(message)
	writeMessage(c, http.StatusInternalServerError, message)
}

func notFound(entity string, id int64) string {
	return fmt.Sprintf("%s with ID %d not found.", entity, id)
}

func inUse(entity string, id int64) string {
	return fmt.Sprintf("%s with ID %d is referenced by a transaction.", entity, id)
}
