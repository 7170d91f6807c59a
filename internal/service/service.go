package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"facturacion/backend/internal/domain"
	"facturacion/backend/internal/inventory"
	"facturacion/backend/internal/metrics"
	"facturacion/backend/internal/storage"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service orchestrates the collections, the inventory ledger and the
// sequence counters. All collections hang off one storage.Store, so every
// operation here is serialized by that store's mutex.
type Service struct {
	products   *storage.Collection[domain.Product]
	categories *storage.Collection[domain.Category]
	sales      *storage.Collection[domain.Sale]
	invoices   *storage.Collection[domain.Invoice]
	users      *storage.Collection[domain.UserAccount]
	movements  *storage.Collection[domain.StockMovement]
	ledger     *inventory.Ledger
	sequences  *storage.Sequences
	metrics    *metrics.Metrics
	issuer     domain.InvoiceParty
}

func New(store *storage.Store, m *metrics.Metrics, issuer domain.InvoiceParty) *Service {
	products := storage.NewCollection[domain.Product](store, "products")
	movements := storage.NewCollection[domain.StockMovement](store, "movements")

	return &Service{
		products:   products,
		categories: storage.NewCollection[domain.Category](store, "categories"),
		sales:      storage.NewCollection[domain.Sale](store, "sales"),
		invoices:   storage.NewCollection[domain.Invoice](store, "invoices"),
		users:      storage.NewCollection[domain.UserAccount](store, "users"),
		movements:  movements,
		ledger:     inventory.NewLedger(products, movements),
		sequences:  storage.NewSequences(store),
		metrics:    m,
		issuer:     issuer,
	}
}

// Users exposes the account collection to the auth layer.
func (s *Service) Users() *storage.Collection[domain.UserAccount] {
	return s.users
}

// Ledger exposes stock adjustment to handlers that do manual corrections.
func (s *Service) Ledger() *inventory.Ledger {
	return s.ledger
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("admin role required")
	}
	return actor, nil
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}

// ListProducts returns the catalog. Deactivated products are hidden
// unless asked for; the register never sees them, only the admin panel.
func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	if includeInactive {
		return s.products.GetAll(ctx)
	}
	return s.products.Find(ctx, func(p domain.Product) bool {
		return p.Active
	})
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// GetProductByCode resolves active products only.
func (s *Service) GetProductByCode(ctx context.Context, code string) (domain.Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return s.products.FindOne(ctx, func(p domain.Product) bool {
		return p.Active && p.Code == code
	})
}

// GetProductByBarcode is the scanner lookup path at the register, so a
// deactivated product scans as not found.
func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, domain.Validationf("barcode is required")
	}
	return s.products.FindOne(ctx, func(p domain.Product) bool {
		return p.Active && p.Barcode == barcode
	})
}

// SearchProducts filters by free text over code, name and barcode, and
// optionally by exact category. Empty arguments mean no filter; inactive
// products only show up when includeInactive is set.
func (s *Service) SearchProducts(ctx context.Context, query string, category string, includeInactive bool) ([]domain.Product, error) {
	query = strings.ToUpper(strings.TrimSpace(query))
	category = strings.TrimSpace(category)
	if query == "" && category == "" {
		return s.ListProducts(ctx, includeInactive)
	}
	return s.products.Find(ctx, func(p domain.Product) bool {
		if !includeInactive && !p.Active {
			return false
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			return false
		}
		if query == "" {
			return true
		}
		return strings.Contains(p.Code, query) ||
			strings.Contains(strings.ToUpper(p.Name), query) ||
			strings.Contains(strings.ToUpper(p.Barcode), query)
	})
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.Code == "" || req.Name == "" {
		return domain.Product{}, domain.Validationf("code and name are required")
	}
	if req.Price < 0 || req.Cost < 0 || req.MinStock < 0 {
		return domain.Product{}, domain.Validationf("price, cost and min_stock must not be negative")
	}
	for size, qty := range req.StockBySize {
		if qty < 0 {
			return domain.Product{}, domain.Validationf("size %s has negative stock", size)
		}
	}
	if len(req.StockBySize) == 0 && req.Stock < 0 {
		return domain.Product{}, domain.Validationf("stock must not be negative")
	}

	if err := s.ensureUniqueCode(ctx, req.Code, req.Barcode, ""); err != nil {
		return domain.Product{}, err
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:        uuid.NewString(),
		Code:      req.Code,
		Barcode:   strings.TrimSpace(req.Barcode),
		Name:      req.Name,
		Category:  req.Category,
		Brand:     strings.TrimSpace(req.Brand),
		Price:     domain.Round2(req.Price),
		Cost:      domain.Round2(req.Cost),
		MinStock:  req.MinStock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(req.StockBySize) > 0 {
		product.StockBySize = make(map[string]int, len(req.StockBySize))
		total := 0
		for size, qty := range req.StockBySize {
			product.StockBySize[size] = qty
			total += qty
		}
		product.Stock = total
	} else {
		product.Stock = req.Stock
	}

	if err := s.products.Create(ctx, product); err != nil {
		return domain.Product{}, err
	}
	if product.Stock > 0 {
		if err := s.recordInitialStock(ctx, product, actor.Username); err != nil {
			log.Printf("[service] WARN: initial stock movements for %s not recorded: %v", product.Code, err)
		}
	}
	return product, nil
}

// recordInitialStock writes one movement per non-empty slot so the audit
// trail starts at the opening balance, not at the first sale.
func (s *Service) recordInitialStock(ctx context.Context, product domain.Product, actor string) error {
	now := time.Now().UTC()
	write := func(size string, qty int) error {
		if qty == 0 {
			return nil
		}
		return s.movements.Create(ctx, domain.StockMovement{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Size:      size,
			Delta:     qty,
			Reason:    domain.MovementReasonInitial,
			CreatedBy: actor,
			CreatedAt: now,
		})
	}
	if product.HasSizes() {
		for size, qty := range product.StockBySize {
			if err := write(size, qty); err != nil {
				return err
			}
		}
		return nil
	}
	return write("", product.Stock)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.Validationf("name must not be empty")
		}
		updated.Name = name
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		if err := s.ensureUniqueCode(ctx, "", barcode, existing.ID); err != nil {
			return domain.Product{}, err
		}
		updated.Barcode = barcode
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Product{}, domain.Validationf("price must not be negative")
		}
		updated.Price = domain.Round2(*req.Price)
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			return domain.Product{}, domain.Validationf("cost must not be negative")
		}
		updated.Cost = domain.Round2(*req.Cost)
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return domain.Product{}, domain.Validationf("min_stock must not be negative")
		}
		updated.MinStock = *req.MinStock
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	if existing.Price != updated.Price {
		updated.PriceHistory = append(updated.PriceHistory, domain.PriceChange{
			OldPrice:  existing.Price,
			NewPrice:  updated.Price,
			ChangedBy: actor.Username,
			ChangedAt: time.Now().UTC(),
		})
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.products.Replace(ctx, id, updated); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// DeactivateProduct soft-deletes; products with sale history stay on file
// for audit, only the active flag drops.
func (s *Service) DeactivateProduct(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	product.Active = false
	product.UpdatedAt = time.Now().UTC()
	return s.products.Replace(ctx, id, product)
}

// AdjustStock is the manual correction path (recounts, damage, received
// goods). Sale flows do not come through here.
func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if req.Delta == 0 {
		return domain.Product{}, domain.Validationf("delta must not be zero")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = domain.MovementReasonAdjustment
	}
	if err := s.ledger.Adjust(ctx, productID, req.Delta, req.Size, reason, "", actorName(ctx)); err != nil {
		return domain.Product{}, err
	}
	return s.products.GetByID(ctx, productID)
}

func (s *Service) ProductMovements(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	return s.ledger.Movements(ctx, productID)
}

// LowStock lists active products at or below their minimum threshold.
// Products that never set a threshold are excluded.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.products.Find(ctx, func(p domain.Product) bool {
		return p.Active && p.MinStock > 0 && p.Stock <= p.MinStock
	})
}

func (s *Service) ensureUniqueCode(ctx context.Context, code string, barcode string, excludeID string) error {
	barcode = strings.TrimSpace(barcode)
	_, err := s.products.FindOne(ctx, func(p domain.Product) bool {
		if p.ID == excludeID {
			return false
		}
		if code != "" && p.Code == code {
			return true
		}
		return barcode != "" && p.Barcode == barcode
	})
	if err == nil {
		return fmt.Errorf("product %s: %w", code, domain.ErrDuplicateCode)
	}
	if !isNotFound(err) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.GetAll(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, domain.Validationf("category name is required")
	}
	_, err := s.categories.FindOne(ctx, func(c domain.Category) bool {
		return strings.EqualFold(c.Name, name)
	})
	if err == nil {
		return domain.Category{}, fmt.Errorf("category %s: %w", name, domain.ErrDuplicateCode)
	}
	if !isNotFound(err) {
		return domain.Category{}, err
	}

	category := domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (s *Service) RemoveCategory(ctx context.Context, id string) (bool, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return false, err
	}
	return s.categories.Remove(ctx, id)
}
