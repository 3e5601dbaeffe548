package domain

import "time"

const (
	RoleCustomer = "customer"
	RoleCashier  = "cashier"
	RoleAdmin    = "admin"
)

const (
	OrderStatusPaid     = "paid"
	OrderStatusRefunded = "refunded"
)

const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
)

// DefaultSaleOrigin tags POS orders that carry no explicit origin.
const DefaultSaleOrigin = "in-store"

type Size struct {
	Label string `json:"label"`
	Stock int    `json:"stock"`
}

type Variant struct {
	SKU    string   `json:"sku"`
	Color  string   `json:"color"`
	Images []string `json:"images,omitempty"`
	Sizes  []Size   `json:"sizes"`
}

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand"`
	PriceCents     int64     `json:"price_cents"`
	SalePriceCents *int64    `json:"sale_price_cents,omitempty"`
	Variants       []Variant `json:"variants"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResolvedVariant pairs a variant with the product that owns it, looked up by SKU.
type ResolvedVariant struct {
	Product Product
	Variant Variant
}

type SizeCreate struct {
	Label string `json:"label"`
	Stock int    `json:"stock"`
}

type VariantCreate struct {
	SKU    string       `json:"sku"`
	Color  string       `json:"color"`
	Images []string     `json:"images,omitempty"`
	Sizes  []SizeCreate `json:"sizes"`
}

type ProductCreateRequest struct {
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	PriceCents     int64           `json:"price_cents"`
	SalePriceCents *int64          `json:"sale_price_cents,omitempty"`
	Variants       []VariantCreate `json:"variants"`
}

type StockAdjustRequest struct {
	Size  string `json:"size"`
	Delta int    `json:"delta"`
}

type StockAdjustResponse struct {
	SKU   string `json:"sku"`
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

type CartItem struct {
	SKU      string `json:"sku"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type Cart struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

type Address struct {
	ID         string `json:"id"`
	UserID     string `json:"-"`
	Street     string `json:"street"`
	Number     string `json:"number,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

type AddressCreateRequest struct {
	Street     string `json:"street"`
	Number     string `json:"number,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

type OrderLine struct {
	SKU            string `json:"sku"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id,omitempty"`
	Lines          []OrderLine `json:"lines"`
	PaymentMethod  string      `json:"payment_method"`
	AddressID      string      `json:"address_id,omitempty"`
	ShippingMethod string      `json:"shipping_method,omitempty"`
	SaleOrigin     string      `json:"sale_origin,omitempty"`
	SubtotalCents  int64       `json:"subtotal_cents"`
	TaxCents       int64       `json:"tax_cents"`
	ShippingCents  int64       `json:"shipping_cents"`
	TotalCents     int64       `json:"total_cents"`
	Status         string      `json:"status"`
	CreatedByRole  string      `json:"created_by_role"`
	CashierID      string      `json:"cashier_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

type Invoice struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TaxCents      int64     `json:"tax_cents"`
	ShippingCents int64     `json:"shipping_cents"`
	TotalCents    int64     `json:"total_cents"`
	PaymentMethod string    `json:"payment_method"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Ticket is the denormalized in-store receipt snapshot emitted by POS checkouts.
type Ticket struct {
	ID            string      `json:"id"`
	OrderID       string      `json:"order_id"`
	InvoiceID     string      `json:"invoice_id"`
	CashierID     string      `json:"cashier_id"`
	SaleOrigin    string      `json:"sale_origin"`
	Lines         []OrderLine `json:"lines"`
	SubtotalCents int64       `json:"subtotal_cents"`
	TaxCents      int64       `json:"tax_cents"`
	TotalCents    int64       `json:"total_cents"`
	PaymentMethod string      `json:"payment_method"`
	CreatedAt     time.Time   `json:"created_at"`
}

type Refund struct {
	ID                 string      `json:"id"`
	OrderID            string      `json:"order_id"`
	InvoiceID          string      `json:"invoice_id"`
	CashierID          string      `json:"cashier_id"`
	Lines              []OrderLine `json:"lines"`
	TotalRefundedCents int64       `json:"total_refunded_cents"`
	Reason             string      `json:"reason"`
	CreatedAt          time.Time   `json:"created_at"`
}

type CheckoutWebRequest struct {
	Items          []CartItem `json:"items"`
	PaymentMethod  string     `json:"payment_method"`
	AddressID      string     `json:"address_id"`
	ShippingMethod string     `json:"shipping_method"`
}

type CheckoutPosRequest struct {
	Items         []CartItem `json:"items"`
	PaymentMethod string     `json:"payment_method"`
	SaleOrigin    string     `json:"sale_origin,omitempty"`
}

type CheckoutResponse struct {
	OrderID   string  `json:"order_id"`
	InvoiceID string  `json:"invoice_id"`
	TicketID  string  `json:"ticket_id,omitempty"`
	Subtotal  float64 `json:"subtotal"`
	Tax       float64 `json:"tax"`
	Shipping  float64 `json:"shipping"`
	TotalPaid float64 `json:"total_paid"`
}

type RefundRequest struct {
	InvoiceID string     `json:"invoice_id"`
	Items     []CartItem `json:"items"`
	Reason    string     `json:"reason"`
}

type RefundResponse struct {
	RefundID      string  `json:"refund_id"`
	OrderID       string  `json:"order_id"`
	TotalRefunded float64 `json:"total_refunded"`
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
	UserID   string
	Username string
	Role     string
}

type UserAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderEvent is an append-only trail entry written on checkout and refund commits.
type OrderEvent struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	EntityID  string    `json:"entity_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// AmountFromCents converts an internal cent amount to the 2-decimal wire value.
func AmountFromCents(cents int64) float64 {
	return float64(cents) / 100
}
