package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"facturacion/backend/internal/domain"
	"facturacion/backend/internal/kv"
	"facturacion/backend/internal/storage"
)

func newTestService() *Service {
	return New(storage.New(kv.NewMemory()), nil, domain.InvoiceParty{
		Name:  "Tienda Centro",
		TaxID: "20123456789",
	})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "ana", Role: domain.RoleCashier})
}

func seedPolo(t *testing.T, svc *Service, stockBySize map[string]int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code:        "POL-001",
		Name:        "Polo",
		Category:    "polos",
		Price:       20,
		Cost:        8,
		StockBySize: stockBySize,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()
	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{Code: "X", Name: "x"})
	if err == nil {
		t.Fatalf("expected cashier to be rejected")
	}
}

func TestCreateProductRejectsDuplicateCode(t *testing.T) {
	svc := newTestService()
	seedPolo(t, svc, map[string]int{"M": 5})

	_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code: "pol-001", Name: "Otro polo", Price: 10,
	})
	if !errors.Is(err, domain.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestUpdateProductRecordsPriceHistory(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 5})

	newPrice := 25.0
	updated, err := svc.UpdateProduct(adminCtx(), product.ID, domain.ProductUpdateRequest{Price: &newPrice})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.PriceHistory) != 1 {
		t.Fatalf("expected one price history entry, got %d", len(updated.PriceHistory))
	}
	entry := updated.PriceHistory[0]
	if entry.OldPrice != 20 || entry.NewPrice != 25 || entry.ChangedBy != "admin" {
		t.Fatalf("price history wrong: %+v", entry)
	}
}

func TestProductLookups(t *testing.T) {
	svc := newTestService()
	if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code: "POL-001", Barcode: "7750001000015", Name: "Polo", Category: "polos", Price: 20, Stock: 5,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	byCode, err := svc.GetProductByCode(context.Background(), "pol-001")
	if err != nil || byCode.Code != "POL-001" {
		t.Fatalf("lookup by code: %v (%+v)", err, byCode)
	}
	byBarcode, err := svc.GetProductByBarcode(context.Background(), "7750001000015")
	if err != nil || byBarcode.ID != byCode.ID {
		t.Fatalf("lookup by barcode: %v", err)
	}
	if _, err := svc.GetProductByBarcode(context.Background(), "0000000000000"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown barcode: expected ErrNotFound, got %v", err)
	}

	// A deactivated product no longer resolves at the register.
	if err := svc.DeactivateProduct(adminCtx(), byCode.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.GetProductByCode(context.Background(), "POL-001"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("deactivated product must not resolve by code, got %v", err)
	}
	if _, err := svc.GetProductByBarcode(context.Background(), "7750001000015"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("deactivated product must not resolve by barcode, got %v", err)
	}
}

func TestSearchProducts(t *testing.T) {
	svc := newTestService()
	seedPolo(t, svc, map[string]int{"M": 5})
	if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code: "GOR-001", Name: "Gorra", Category: "gorras", Price: 15, Stock: 3,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	byText, err := svc.SearchProducts(context.Background(), "polo", "", false)
	if err != nil || len(byText) != 1 || byText[0].Code != "POL-001" {
		t.Fatalf("search by text: %v (%d hits)", err, len(byText))
	}
	byCategory, err := svc.SearchProducts(context.Background(), "", "Gorras", false)
	if err != nil || len(byCategory) != 1 || byCategory[0].Code != "GOR-001" {
		t.Fatalf("search by category: %v (%d hits)", err, len(byCategory))
	}
	all, err := svc.SearchProducts(context.Background(), "", "", false)
	if err != nil || len(all) != 2 {
		t.Fatalf("unfiltered search returns everything: %v (%d hits)", err, len(all))
	}

	// Deactivated products are hidden unless explicitly asked for.
	if err := svc.DeactivateProduct(adminCtx(), byCategory[0].ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	activeOnly, err := svc.SearchProducts(context.Background(), "", "", false)
	if err != nil || len(activeOnly) != 1 || activeOnly[0].Code != "POL-001" {
		t.Fatalf("default search must hide inactive products: %v (%d hits)", err, len(activeOnly))
	}
	withInactive, err := svc.SearchProducts(context.Background(), "", "", true)
	if err != nil || len(withInactive) != 2 {
		t.Fatalf("include_inactive search must see everything: %v (%d hits)", err, len(withInactive))
	}
}

func TestCreateSaleHappyPath(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 3, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if sale.Number != "V00000001" {
		t.Fatalf("expected first sale number V00000001, got %s", sale.Number)
	}
	if sale.Subtotal != 60 || sale.Tax != 10.8 || sale.Total != 70.8 {
		t.Fatalf("totals wrong: subtotal=%v tax=%v total=%v", sale.Subtotal, sale.Tax, sale.Total)
	}
	if sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected completed, got %s", sale.Status)
	}
	if sale.CreatedBy != "ana" {
		t.Fatalf("expected cashier recorded, got %q", sale.CreatedBy)
	}

	after, _ := svc.GetProduct(context.Background(), product.ID)
	if after.StockBySize["M"] != 7 || after.Stock != 7 {
		t.Fatalf("expected M=7 after sale, got %+v", after)
	}
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 2})

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 3, UnitPrice: 20},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, _ := svc.GetProduct(context.Background(), product.ID)
	if after.StockBySize["M"] != 2 {
		t.Fatalf("failed sale must not touch stock, got M=%d", after.StockBySize["M"])
	}
	if sales, _ := svc.ListSales(context.Background(), true); len(sales) != 0 {
		t.Fatalf("failed sale must not be persisted")
	}
}

func TestCreateSaleRejectsBadSizeShapeBeforeAdjusting(t *testing.T) {
	svc := newTestService()
	first := seedPolo(t, svc, map[string]int{"M": 10})
	second, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code: "POL-002", Name: "Polo manga larga", Price: 25,
		StockBySize: map[string]int{"M": 5},
	})
	if err != nil {
		t.Fatalf("seed second product: %v", err)
	}

	// The second line omits the size, so the whole cart must be rejected
	// before the first line's stock is touched.
	_, err = svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: first.ID, Size: "M", Quantity: 3, UnitPrice: 20},
			{ProductID: second.ID, Quantity: 1, UnitPrice: 25},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	untouched, _ := svc.GetProduct(context.Background(), first.ID)
	if untouched.StockBySize["M"] != 10 {
		t.Fatalf("rejected cart must not decrement stock, got M=%d", untouched.StockBySize["M"])
	}
	if sales, _ := svc.ListSales(context.Background(), true); len(sales) != 0 {
		t.Fatalf("rejected cart must not persist a sale")
	}

	plain, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code: "GOR-001", Name: "Gorra", Price: 15, Stock: 5,
	})
	if err != nil {
		t.Fatalf("seed plain product: %v", err)
	}
	_, err = svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: plain.ID, Size: "M", Quantity: 1, UnitPrice: 15},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("size on a plain product: expected ErrValidation, got %v", err)
	}
}

func TestCreateSaleEmptyCart(t *testing.T) {
	svc := newTestService()
	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{PaymentMethod: domain.PaymentCash})
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestSaleNumbersAreSequential(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	want := []string{"V00000001", "V00000002", "V00000003"}
	for _, expected := range want {
		sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
			PaymentMethod: domain.PaymentCash,
			Items: []domain.CartLine{
				{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
			},
		})
		if err != nil {
			t.Fatalf("create sale: %v", err)
		}
		if sale.Number != expected {
			t.Fatalf("expected %s, got %s", expected, sale.Number)
		}
	}
}

func TestCancelSaleRestoresStockExactly(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"S": 4, "M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCard,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 3, UnitPrice: 20},
			{ProductID: product.ID, Size: "S", Quantity: 2, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	cancelled, err := svc.CancelSale(cashierCtx(), sale.ID, "customer returned")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.SaleStatusVoid {
		t.Fatalf("expected void, got %s", cancelled.Status)
	}
	if cancelled.CancelReason != "customer returned" || cancelled.CancelledAt == nil {
		t.Fatalf("void metadata missing: %+v", cancelled)
	}

	after, _ := svc.GetProduct(context.Background(), product.ID)
	if after.StockBySize["M"] != 10 || after.StockBySize["S"] != 4 || after.Stock != 14 {
		t.Fatalf("stock not restored exactly: %+v", after)
	}
}

func TestCancelSaleTwiceFails(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 3, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := svc.CancelSale(cashierCtx(), sale.ID, "first"); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	_, err = svc.CancelSale(cashierCtx(), sale.ID, "second")
	if !errors.Is(err, domain.ErrAlreadyVoid) {
		t.Fatalf("expected ErrAlreadyVoid, got %v", err)
	}

	after, _ := svc.GetProduct(context.Background(), product.ID)
	if after.StockBySize["M"] != 10 {
		t.Fatalf("double cancel must not double restore, got M=%d", after.StockBySize["M"])
	}
}

func TestCancelSaleSurvivesMissingProduct(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// The product disappears before the cancellation.
	if _, err := svc.products.Remove(context.Background(), product.ID); err != nil {
		t.Fatalf("remove product: %v", err)
	}

	cancelled, err := svc.CancelSale(cashierCtx(), sale.ID, "product gone")
	if err != nil {
		t.Fatalf("cancel must still succeed: %v", err)
	}
	if cancelled.Status != domain.SaleStatusVoid {
		t.Fatalf("expected void, got %s", cancelled.Status)
	}
}

func TestCancelUnknownSale(t *testing.T) {
	svc := newTestService()
	_, err := svc.CancelSale(cashierCtx(), "ghost", "")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateInvoiceCopiesTotals(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 3, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	invoice, err := svc.GenerateInvoice(cashierCtx(), domain.InvoiceCreateRequest{
		SaleID: sale.ID,
		Type:   domain.DocTypeBoleta,
	})
	if err != nil {
		t.Fatalf("generate invoice: %v", err)
	}

	if invoice.Subtotal != sale.Subtotal || invoice.Tax != sale.Tax || invoice.Total != sale.Total {
		t.Fatalf("totals must be copied verbatim: %+v vs sale %+v", invoice, sale)
	}
	if invoice.Series != "B001" || invoice.Number != 1 || invoice.FullNumber != "B001-00000001" {
		t.Fatalf("numbering wrong: %+v", invoice)
	}
	if invoice.Client.Name != "Cliente Final" {
		t.Fatalf("expected default client, got %+v", invoice.Client)
	}
	if len(invoice.Items) != 1 || invoice.Items[0].Description != "POL-001 Polo M" {
		t.Fatalf("line items wrong: %+v", invoice.Items)
	}
}

func TestInvoiceCountersAreIndependent(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	makeSale := func() domain.Sale {
		sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
			PaymentMethod: domain.PaymentCash,
			Items: []domain.CartLine{
				{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
			},
		})
		if err != nil {
			t.Fatalf("create sale: %v", err)
		}
		return sale
	}

	first, err := svc.GenerateInvoice(cashierCtx(), domain.InvoiceCreateRequest{
		SaleID: makeSale().ID, Type: domain.DocTypeBoleta,
	})
	if err != nil {
		t.Fatalf("boleta: %v", err)
	}
	second, err := svc.GenerateInvoice(cashierCtx(), domain.InvoiceCreateRequest{
		SaleID: makeSale().ID, Type: domain.DocTypeBoleta,
	})
	if err != nil {
		t.Fatalf("second boleta: %v", err)
	}
	factura, err := svc.GenerateInvoice(cashierCtx(), domain.InvoiceCreateRequest{
		SaleID: makeSale().ID,
		Type:   domain.DocTypeFactura,
		Client: domain.InvoiceParty{Name: "ACME SAC", TaxID: "20600123456"},
	})
	if err != nil {
		t.Fatalf("factura: %v", err)
	}

	if first.Number != 1 || second.Number != 2 {
		t.Fatalf("boletas must number 1,2, got %d,%d", first.Number, second.Number)
	}
	if factura.Number != 1 || factura.FullNumber != "F001-00000001" {
		t.Fatalf("facturas counter must be independent, got %+v", factura)
	}
}

func TestGenerateInvoiceFacturaRequiresTaxID(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	_, err = svc.GenerateInvoice(cashierCtx(), domain.InvoiceCreateRequest{
		SaleID: sale.ID, Type: domain.DocTypeFactura,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestInvoiceBySale(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if _, err := svc.InvoiceBySale(context.Background(), sale.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no invoice yet, got %v", err)
	}

	issued, err := svc.GenerateInvoice(cashierCtx(), domain.InvoiceCreateRequest{
		SaleID: sale.ID, Type: domain.DocTypeBoleta,
	})
	if err != nil {
		t.Fatalf("generate invoice: %v", err)
	}

	found, err := svc.InvoiceBySale(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != issued.ID {
		t.Fatalf("expected issued invoice, got %+v", found)
	}
}

func TestSearchSalesByText(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	byNumber, err := svc.SearchSales(context.Background(), domain.SaleFilter{Query: sale.Number})
	if err != nil || len(byNumber) != 1 {
		t.Fatalf("search by number: %v (%d hits)", err, len(byNumber))
	}
	byCode, err := svc.SearchSales(context.Background(), domain.SaleFilter{Query: "pol-001"})
	if err != nil || len(byCode) != 1 {
		t.Fatalf("search by code: %v (%d hits)", err, len(byCode))
	}
	none, err := svc.SearchSales(context.Background(), domain.SaleFilter{Query: "zzz"})
	if err != nil || len(none) != 0 {
		t.Fatalf("search miss: %v (%d hits)", err, len(none))
	}
}

func TestSearchSalesFilters(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	makeSale := func(ctx context.Context) domain.Sale {
		sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
			PaymentMethod: domain.PaymentCash,
			Items: []domain.CartLine{
				{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
			},
		})
		if err != nil {
			t.Fatalf("create sale: %v", err)
		}
		return sale
	}

	first := makeSale(cashierCtx())
	time.Sleep(2 * time.Millisecond)
	second := makeSale(adminCtx())
	if _, err := svc.CancelSale(cashierCtx(), first.ID, "returned"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	completed, err := svc.SearchSales(context.Background(), domain.SaleFilter{Status: domain.SaleStatusCompleted})
	if err != nil || len(completed) != 1 || completed[0].ID != second.ID {
		t.Fatalf("filter by completed: %v (%d hits)", err, len(completed))
	}
	void, err := svc.SearchSales(context.Background(), domain.SaleFilter{Status: domain.SaleStatusVoid})
	if err != nil || len(void) != 1 || void[0].ID != first.ID {
		t.Fatalf("filter by void: %v (%d hits)", err, len(void))
	}

	byUser, err := svc.SearchSales(context.Background(), domain.SaleFilter{CreatedBy: "ana"})
	if err != nil || len(byUser) != 1 || byUser[0].ID != first.ID {
		t.Fatalf("filter by user: %v (%d hits)", err, len(byUser))
	}

	all, err := svc.SearchSales(context.Background(), domain.SaleFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("unfiltered: %v (%d hits)", err, len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatalf("results must be newest first, got %s then %s", all[0].Number, all[1].Number)
	}

	future := time.Now().UTC().Add(time.Hour)
	if out, _ := svc.SearchSales(context.Background(), domain.SaleFilter{From: future}); len(out) != 0 {
		t.Fatalf("future from-bound must match nothing, got %d hits", len(out))
	}
	past := time.Now().UTC().Add(-time.Hour)
	if out, _ := svc.SearchSales(context.Background(), domain.SaleFilter{From: past, To: future}); len(out) != 2 {
		t.Fatalf("covering range must match everything, got %d hits", len(out))
	}

	paged, err := svc.SearchSales(context.Background(), domain.SaleFilter{Limit: 1})
	if err != nil || len(paged) != 1 || paged[0].ID != second.ID {
		t.Fatalf("limit must keep the newest sale: %v (%d hits)", err, len(paged))
	}
	offset, err := svc.SearchSales(context.Background(), domain.SaleFilter{Offset: 1})
	if err != nil || len(offset) != 1 || offset[0].ID != first.ID {
		t.Fatalf("offset must skip the newest sale: %v (%d hits)", err, len(offset))
	}
}

func TestListSalesHidesVoidByDefault(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := svc.CancelSale(cashierCtx(), sale.ID, "returned"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	visible, err := svc.ListSales(context.Background(), false)
	if err != nil || len(visible) != 0 {
		t.Fatalf("void sale must be hidden by default: %v (%d hits)", err, len(visible))
	}
	all, err := svc.ListSales(context.Background(), true)
	if err != nil || len(all) != 1 {
		t.Fatalf("includeVoid must list everything: %v (%d hits)", err, len(all))
	}
}

func TestTodayStats(t *testing.T) {
	svc := newTestService()
	product := seedPolo(t, svc, map[string]int{"M": 10})

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 3, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.CartLine{
			{ProductID: product.ID, Size: "M", Quantity: 1, UnitPrice: 20},
		},
	}); err != nil {
		t.Fatalf("second sale: %v", err)
	}
	if _, err := svc.CancelSale(cashierCtx(), sale.ID, "returned"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stats, err := svc.TodayStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sales != 1 || stats.Cancelled != 1 {
		t.Fatalf("expected 1 sale and 1 cancelled, got %+v", stats)
	}
	if stats.GrossTotal != 23.6 || stats.TaxTotal != 3.6 {
		t.Fatalf("totals wrong: %+v", stats)
	}
}

func TestLowStock(t *testing.T) {
	svc := newTestService()
	if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code: "GOR-001", Name: "Gorra", Price: 15, Stock: 2, MinStock: 3,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Code: "GOR-002", Name: "Gorra premium", Price: 25, Stock: 9, MinStock: 3,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	low, err := svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 || low[0].Code != "GOR-001" {
		t.Fatalf("expected only GOR-001 low, got %+v", low)
	}
}
