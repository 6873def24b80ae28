package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrArticleUnavailable is matched by every ArticleUnavailableError.
	ErrArticleUnavailable  = errors.New("article unavailable")
	ErrNotFound            = errors.New("not found")
	ErrCustomerNotFound    = fmt.Errorf("customer %w", ErrNotFound)
	ErrArticleNotFound     = fmt.Errorf("article %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrInvalidQuantity     = errors.New("quantity must be non-negative")
	ErrInUse               = errors.New("referenced by a transaction")
)

// ArticleUnavailableError identifies the article whose stock check failed.
type ArticleUnavailableError struct {
	ArticleID int64
}

func (e *ArticleUnavailableError) Error() string {
	return fmt.Sprintf("article with ID %d is not available in inventory", e.ArticleID)
}

func (e *ArticleUnavailableError) Unwrap() error {
	return ErrArticleUnavailable
}
