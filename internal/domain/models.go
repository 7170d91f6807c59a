package domain

import (
	"math"
	"time"
)

// Product stock lives in StockBySize when the product tracks sizes. A
// product without sizes keeps len(StockBySize) == 0 and uses Stock as its
// single slot. Either way Stock equals the sum over all tracked slots and
// is only ever changed through the inventory ledger.
type Product struct {
	ID           string         `json:"id"`
	Code         string         `json:"code"`
	Barcode      string         `json:"barcode,omitempty"`
	Name         string         `json:"name"`
	Category     string         `json:"category"`
	Brand        string         `json:"brand,omitempty"`
	Price        float64        `json:"price"`
	Cost         float64        `json:"cost"`
	Stock        int            `json:"stock"`
	StockBySize  map[string]int `json:"stock_by_size,omitempty"`
	MinStock     int            `json:"min_stock"`
	Active       bool           `json:"active"`
	PriceHistory []PriceChange  `json:"price_history,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (p Product) RecordID() string { return p.ID }

// HasSizes reports whether the product tracks per-size slots.
func (p Product) HasSizes() bool { return len(p.StockBySize) > 0 }

type PriceChange struct {
	OldPrice  float64   `json:"old_price"`
	NewPrice  float64   `json:"new_price"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Category) RecordID() string { return c.ID }

type SaleItem struct {
	ProductID string  `json:"product_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type Sale struct {
	ID            string     `json:"id"`
	Number        string     `json:"number"`
	Items         []SaleItem `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	TaxRate       float64    `json:"tax_rate"`
	Tax           float64    `json:"tax"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (s Sale) RecordID() string { return s.ID }

type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type InvoiceParty struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

type Invoice struct {
	ID         string        `json:"id"`
	SaleID     string        `json:"sale_id"`
	Type       string        `json:"type"`
	Series     string        `json:"series"`
	Number     int64         `json:"number"`
	FullNumber string        `json:"full_number"`
	Issuer     InvoiceParty  `json:"issuer"`
	Client     InvoiceParty  `json:"client"`
	Items      []InvoiceItem `json:"items"`
	Subtotal   float64       `json:"subtotal"`
	Tax        float64       `json:"tax"`
	Total      float64       `json:"total"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (i Invoice) RecordID() string { return i.ID }

// StockMovement is the audit trail entry written alongside every ledger
// adjustment. Movements are append-only and never replayed.
type StockMovement struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	Size        string    `json:"size,omitempty"`
	Delta       int       `json:"delta"`
	Reason      string    `json:"reason"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m StockMovement) RecordID() string { return m.ID }

// UserAccount is the persistence model for auth credentials.
type UserAccount struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u UserAccount) RecordID() string { return u.ID }

type CartLine struct {
	ProductID string  `json:"product_id"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type SaleCreateRequest struct {
	Items         []CartLine `json:"items"`
	PaymentMethod string     `json:"payment_method"`
}

type SaleCancelRequest struct {
	Reason string `json:"reason"`
}

// SaleFilter narrows a sale history query. Zero-valued fields apply no
// constraint; From and To are inclusive bounds on CreatedAt.
type SaleFilter struct {
	Query     string
	Status    string
	CreatedBy string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

type InvoiceCreateRequest struct {
	SaleID string       `json:"sale_id"`
	Type   string       `json:"type"`
	Client InvoiceParty `json:"client"`
}

type ProductCreateRequest struct {
	Code        string         `json:"code"`
	Barcode     string         `json:"barcode,omitempty"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Brand       string         `json:"brand,omitempty"`
	Price       float64        `json:"price"`
	Cost        float64        `json:"cost"`
	Stock       int            `json:"stock"`
	StockBySize map[string]int `json:"stock_by_size,omitempty"`
	MinStock    int            `json:"min_stock"`
}

type ProductUpdateRequest struct {
	Barcode  *string  `json:"barcode,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Brand    *string  `json:"brand,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Cost     *float64 `json:"cost,omitempty"`
	MinStock *int     `json:"min_stock,omitempty"`
	Active   *bool    `json:"active,omitempty"`
}

type StockAdjustRequest struct {
	Size   string `json:"size,omitempty"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type DayStats struct {
	Date       string  `json:"date"`
	Sales      int     `json:"sales"`
	Cancelled  int     `json:"cancelled"`
	GrossTotal float64 `json:"gross_total"`
	TaxTotal   float64 `json:"tax_total"`
}

// Round2 rounds half away from zero to 2 decimals. Every monetary figure
// is rounded as it is produced; later steps consume the rounded value,
// never the raw product.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

const (
	SaleStatusCompleted = "completed"
	SaleStatusVoid      = "void"
)

const (
	DocTypeBoleta  = "boleta"
	DocTypeFactura = "factura"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentYape     = "yape"
	PaymentPlin     = "plin"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	MovementReasonSale       = "sale"
	MovementReasonCancel     = "cancel"
	MovementReasonAdjustment = "adjustment"
	MovementReasonInitial    = "initial"
)

// DefaultTaxRate is the Peruvian IGV.
const DefaultTaxRate = 0.18

// SaleNumberFormat renders the drawn sequence number as the
// human-readable sale number, e.g. V00000001.
const SaleNumberFormat = "V%08d"

var seriesByType = map[string]struct {
	series   string
	sequence string
}{
	DocTypeBoleta:  {series: "B001", sequence: "boletas"},
	DocTypeFactura: {series: "F001", sequence: "facturas"},
}

// SeriesFor maps a document type to its fixed series and counter name.
// The table is not configurable at call time.
func SeriesFor(docType string) (series string, sequence string, ok bool) {
	entry, ok := seriesByType[docType]
	return entry.series, entry.sequence, ok
}

func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentYape, PaymentPlin:
		return true
	}
	return false
}
