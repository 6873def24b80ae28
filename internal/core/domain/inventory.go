package domain

import "time"

type Inventory struct {
	ID        int64
	ArticleID int64
	Quantity  int
	UpdatedAt time.Time
}

// Covers reports whether at least qty units are on hand.
func (i *Inventory) Covers(qty int) bool {
	return i != nil && i.Quantity >= qty
}
