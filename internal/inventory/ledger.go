// Package inventory owns all stock mutation. Product stock fields are
// never written directly by anyone else; both sale decrements and
// cancellation restores go through Adjust with opposite signs, so the two
// are exact inverses.
package inventory

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"facturacion/backend/internal/domain"
	"facturacion/backend/internal/storage"
)

type Ledger struct {
	products  *storage.Collection[domain.Product]
	movements *storage.Collection[domain.StockMovement]
}

func NewLedger(products *storage.Collection[domain.Product], movements *storage.Collection[domain.StockMovement]) *Ledger {
	return &Ledger{products: products, movements: movements}
}

// Adjust applies a signed delta to one stock slot and recomputes the
// aggregate. If the result would be negative the product is left untouched
// and ErrInsufficientStock is returned. On success the product is
// persisted and a movement row is appended; a failed movement write is
// logged but does not undo the adjustment.
func (l *Ledger) Adjust(ctx context.Context, productID string, delta int, size string, reason string, referenceID string, actor string) error {
	product, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if product.HasSizes() {
		if size == "" {
			return domain.Validationf("product %s tracks sizes, a size is required", product.Code)
		}
		current := product.StockBySize[size]
		next := current + delta
		if next < 0 {
			return domain.InsufficientStockf(product.Code, size, current, -delta)
		}
		product.StockBySize[size] = next
		total := 0
		for _, qty := range product.StockBySize {
			total += qty
		}
		product.Stock = total
	} else {
		if size != "" {
			return domain.Validationf("product %s has no sizes", product.Code)
		}
		next := product.Stock + delta
		if next < 0 {
			return domain.InsufficientStockf(product.Code, "", product.Stock, -delta)
		}
		product.Stock = next
	}

	product.UpdatedAt = time.Now().UTC()
	if err := l.products.Replace(ctx, productID, product); err != nil {
		return err
	}

	movement := domain.StockMovement{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Size:        size,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedBy:   actor,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.movements.Create(ctx, movement); err != nil {
		log.Printf("[inventory] WARN: movement for product %s not recorded: %v", productID, err)
	}
	return nil
}

// Query returns the current quantity for one slot, 0 when the product or
// slot is unknown. An empty size on a sized product reads the aggregate.
func (l *Ledger) Query(ctx context.Context, productID string, size string) (int, error) {
	product, err := l.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if size == "" {
		return product.Stock, nil
	}
	if !product.HasSizes() {
		return 0, nil
	}
	return product.StockBySize[size], nil
}

// Movements returns the audit trail for one product, newest last.
func (l *Ledger) Movements(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	return l.movements.Find(ctx, func(m domain.StockMovement) bool {
		return m.ProductID == productID
	})
}
