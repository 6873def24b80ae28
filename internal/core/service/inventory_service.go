package service

import (
	"context"
	"fmt"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/port"
)

// InventoryLedger checks and reserves stock inside an open atomic scope.
type InventoryLedger interface {
	CheckAvailability(ctx context.Context, tx port.Tx, articleID int64, quantity int) (bool, error)
	Reserve(ctx context.Context, tx port.Tx, articleID int64, quantity int) error
}

type InventoryService struct {
	inventory port.InventoryRepository
	articles  port.ArticleRepository
}

func NewInventoryService(inventory port.InventoryRepository, articles port.ArticleRepository) *InventoryService {
	return &InventoryService{inventory: inventory, articles: articles}
}

// CheckAvailability treats a missing inventory row as unavailable, not as an error.
func (s *InventoryService) CheckAvailability(ctx context.Context, tx port.Tx, articleID int64, quantity int) (bool, error) {
	inv, err := tx.LockInventory(ctx, articleID)
	if err != nil {
		return false, fmt.Errorf("lock inventory: %w", err)
	}
	return inv.Covers(quantity), nil
}

// Reserve decrements stock. Callers must CheckAvailability first if they need a guarantee.
func (s *InventoryService) Reserve(ctx context.Context, tx port.Tx, articleID int64, quantity int) error {
	if err := tx.DecrementInventory(ctx, articleID, quantity); err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	return nil
}

func (s *InventoryService) GetByArticleID(ctx context.Context, articleID int64) (*domain.Inventory, error) {
	return s.inventory.GetInventory(ctx, articleID)
}

func (s *InventoryService) SetQuantity(ctx context.Context, articleID int64, quantity int) (*domain.Inventory, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	article, err := s.articles.GetArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return nil, domain.ErrArticleNotFound
	}

	return s.inventory.SetInventory(ctx, articleID, quantity)
}

var _ InventoryLedger = (*InventoryService)(nil)
