package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"facturacion/backend/internal/domain"
)

// CreateSale validates the cart, checks every line against current stock,
// composes the sale number from the sales counter, decrements stock per
// line and persists the sale as completed.
//
// The steps are not one transaction. Stock validation passes before any
// decrement, so a line that fails to adjust afterwards means the world
// changed mid-flight; earlier decrements are not rolled back, the failure
// is returned and the partial adjustments stand in the movement trail.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if len(req.Items) == 0 {
		return domain.Sale{}, domain.ErrEmptyCart
	}
	if !domain.ValidPaymentMethod(req.PaymentMethod) {
		return domain.Sale{}, domain.Validationf("unknown payment method %q", req.PaymentMethod)
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	subtotal := 0.0
	for i, line := range req.Items {
		if line.Quantity < 1 {
			return domain.Sale{}, domain.Validationf("item %d: quantity must be at least 1", i)
		}
		if line.UnitPrice < 0 {
			return domain.Sale{}, domain.Validationf("item %d: unit price must not be negative", i)
		}

		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("item %d: %w", i, err)
		}
		if !product.Active {
			return domain.Sale{}, domain.Validationf("product %s is inactive", product.Code)
		}
		// Size shape is checked here, not left to Adjust: a malformed line
		// must fail the whole cart before any stock moves.
		if product.HasSizes() && line.Size == "" {
			return domain.Sale{}, domain.Validationf("product %s tracks sizes, a size is required", product.Code)
		}
		if !product.HasSizes() && line.Size != "" {
			return domain.Sale{}, domain.Validationf("product %s has no sizes", product.Code)
		}

		available, err := s.ledger.Query(ctx, line.ProductID, line.Size)
		if err != nil {
			return domain.Sale{}, err
		}
		if available < line.Quantity {
			if s.metrics != nil {
				s.metrics.StockRejections.Inc()
			}
			return domain.Sale{}, domain.InsufficientStockf(product.Code, line.Size, available, line.Quantity)
		}

		lineSubtotal := domain.Round2(float64(line.Quantity) * line.UnitPrice)
		items = append(items, domain.SaleItem{
			ProductID: line.ProductID,
			Code:      product.Code,
			Name:      product.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  lineSubtotal,
		})
		subtotal = domain.Round2(subtotal + lineSubtotal)
	}

	// The number is composed from the counter's next value before any
	// stock moves; the counter itself advances only after the sale is
	// safely persisted.
	current, err := s.sequences.Get(ctx, "ventas")
	if err != nil {
		return domain.Sale{}, err
	}
	number := fmt.Sprintf(domain.SaleNumberFormat, current+1)

	for _, item := range items {
		if err := s.ledger.Adjust(ctx, item.ProductID, -item.Quantity, item.Size, domain.MovementReasonSale, number, actorName(ctx)); err != nil {
			return domain.Sale{}, fmt.Errorf("product %s: %w", item.Code, err)
		}
	}

	tax := domain.Round2(subtotal * domain.DefaultTaxRate)
	sale := domain.Sale{
		ID:            uuid.NewString(),
		Number:        number,
		Items:         items,
		Subtotal:      subtotal,
		TaxRate:       domain.DefaultTaxRate,
		Tax:           tax,
		Total:         domain.Round2(subtotal + tax),
		PaymentMethod: req.PaymentMethod,
		Status:        domain.SaleStatusCompleted,
		CreatedBy:     actorName(ctx),
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		return domain.Sale{}, err
	}
	if _, err := s.sequences.Next(ctx, "ventas"); err != nil {
		log.Printf("[service] WARN: sales counter not advanced after %s: %v", sale.Number, err)
	}

	if s.metrics != nil {
		s.metrics.SalesCreated.Inc()
	}
	return sale, nil
}

// CancelSale reverses the stock effects of a completed sale and marks it
// void. A slot that can no longer be restored, say the product was
// deleted or its sizes changed, is logged and skipped: the sale always
// ends up void, sale state correctness outranks inventory bookkeeping.
func (s *Service) CancelSale(ctx context.Context, saleID string, reason string) (domain.Sale, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale.Status == domain.SaleStatusVoid {
		return domain.Sale{}, fmt.Errorf("sale %s: %w", sale.Number, domain.ErrAlreadyVoid)
	}

	for _, item := range sale.Items {
		if err := s.ledger.Adjust(ctx, item.ProductID, +item.Quantity, item.Size, domain.MovementReasonCancel, sale.Number, actorName(ctx)); err != nil {
			log.Printf("[service] WARN: stock for %s not restored cancelling %s: %v", item.Code, sale.Number, err)
		}
	}

	now := time.Now().UTC()
	sale.Status = domain.SaleStatusVoid
	sale.CancelReason = strings.TrimSpace(reason)
	sale.CancelledAt = &now
	if err := s.sales.Replace(ctx, saleID, sale); err != nil {
		return domain.Sale{}, err
	}

	if s.metrics != nil {
		s.metrics.SalesCancelled.Inc()
	}
	return sale, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	return s.sales.GetByID(ctx, id)
}

// ListSales returns the sale history; void sales are hidden unless asked
// for, matching the register's default view.
func (s *Service) ListSales(ctx context.Context, includeVoid bool) ([]domain.Sale, error) {
	if includeVoid {
		return s.sales.GetAll(ctx)
	}
	return s.sales.Find(ctx, func(sale domain.Sale) bool {
		return sale.Status != domain.SaleStatusVoid
	})
}

// SearchSales filters the history by date range, status, creating user and
// free text over sale number or line item code, newest first.
func (s *Service) SearchSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	query := strings.ToUpper(strings.TrimSpace(filter.Query))
	sales, err := s.sales.Find(ctx, func(sale domain.Sale) bool {
		if filter.Status != "" && sale.Status != filter.Status {
			return false
		}
		if filter.CreatedBy != "" && sale.CreatedBy != filter.CreatedBy {
			return false
		}
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			return false
		}
		if !filter.To.IsZero() && sale.CreatedAt.After(filter.To) {
			return false
		}
		if query == "" {
			return true
		}
		if strings.Contains(strings.ToUpper(sale.Number), query) {
			return true
		}
		for _, item := range sale.Items {
			if strings.Contains(strings.ToUpper(item.Code), query) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].CreatedAt.After(sales[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(sales) {
			return []domain.Sale{}, nil
		}
		sales = sales[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(sales) {
		sales = sales[:filter.Limit]
	}
	return sales, nil
}

// TodayStats aggregates the current day in the server's local time, which
// is the register's business day.
func (s *Service) TodayStats(ctx context.Context) (domain.DayStats, error) {
	today := time.Now().Format("2006-01-02")
	sales, err := s.sales.GetAll(ctx)
	if err != nil {
		return domain.DayStats{}, err
	}

	stats := domain.DayStats{Date: today}
	for _, sale := range sales {
		if sale.CreatedAt.Local().Format("2006-01-02") != today {
			continue
		}
		if sale.Status == domain.SaleStatusVoid {
			stats.Cancelled++
			continue
		}
		stats.Sales++
		stats.GrossTotal = domain.Round2(stats.GrossTotal + sale.Total)
		stats.TaxTotal = domain.Round2(stats.TaxTotal + sale.Tax)
	}
	return stats, nil
}
