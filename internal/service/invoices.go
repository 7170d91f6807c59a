package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"facturacion/backend/internal/domain"
)

// GenerateInvoice derives a tax document from a persisted sale. The
// series is fixed per document type and the number comes from that type's
// own counter. Totals are copied from the sale verbatim; recomputing them
// here could disagree with what the customer was charged.
//
// Uniqueness per sale is not enforced at this layer. Callers that need it
// check InvoiceBySale first.
func (s *Service) GenerateInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (domain.Invoice, error) {
	sale, err := s.sales.GetByID(ctx, req.SaleID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if sale.Status == domain.SaleStatusVoid {
		return domain.Invoice{}, domain.Validationf("sale %s is void", sale.Number)
	}

	series, sequence, ok := domain.SeriesFor(req.Type)
	if !ok {
		return domain.Invoice{}, domain.Validationf("unknown document type %q", req.Type)
	}
	if req.Type == domain.DocTypeFactura && strings.TrimSpace(req.Client.TaxID) == "" {
		return domain.Invoice{}, domain.Validationf("factura requires a client tax id")
	}

	current, err := s.sequences.Get(ctx, sequence)
	if err != nil {
		return domain.Invoice{}, err
	}
	number := current + 1

	items := make([]domain.InvoiceItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		description := item.Code + " " + item.Name
		if item.Size != "" {
			description += " " + item.Size
		}
		items = append(items, domain.InvoiceItem{
			Description: description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	client := req.Client
	if strings.TrimSpace(client.Name) == "" {
		client.Name = "Cliente Final"
	}

	invoice := domain.Invoice{
		ID:         uuid.NewString(),
		SaleID:     sale.ID,
		Type:       req.Type,
		Series:     series,
		Number:     number,
		FullNumber: fmt.Sprintf("%s-%08d", series, number),
		Issuer:     s.issuer,
		Client:     client,
		Items:      items,
		Subtotal:   sale.Subtotal,
		Tax:        sale.Tax,
		Total:      sale.Total,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		return domain.Invoice{}, err
	}
	if _, err := s.sequences.Next(ctx, sequence); err != nil {
		log.Printf("[service] WARN: %s counter not advanced after %s: %v", sequence, invoice.FullNumber, err)
	}

	if s.metrics != nil {
		s.metrics.InvoicesIssued.WithLabelValues(req.Type).Inc()
	}
	return invoice, nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	return s.invoices.GetAll(ctx)
}

// InvoiceBySale returns the first document issued for a sale, or
// storage.ErrNotFound. This is the lookup callers use to avoid issuing
// twice.
func (s *Service) InvoiceBySale(ctx context.Context, saleID string) (domain.Invoice, error) {
	return s.invoices.FindOne(ctx, func(inv domain.Invoice) bool {
		return inv.SaleID == saleID
	})
}
