package store

import (
	"context"

	"shopcore/backend/internal/domain"
)

// Repository is the persistence contract shared by the postgres and
// in-memory implementations. Implementations return apperr errors so
// callers can classify failures without inspecting error strings.
//
// CreateOrder and CreateRefund are the two transactional entry points:
// each one performs its per-line stock mutations and record inserts as a
// single atomic unit. A stock decrement inside CreateOrder is a single
// conditional update evaluated by the storage engine (decrement only if
// stock >= quantity), never a read-then-write pair.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ResolveSKUs(ctx context.Context, skus []string) (map[string]domain.ResolvedVariant, error)
	// AdjustStock applies a signed stock delta for one sku/size and returns
	// the new level. Negative deltas use the same conditional decrement as
	// checkout and fail with KindInsufficientStock rather than going negative.
	AdjustStock(ctx context.Context, sku string, size string, delta int) (int, error)

	// CreateOrder reserves stock for every order line, in order, and
	// persists the order, its invoice, and the optional POS ticket in one
	// atomic unit. On any failure no stock mutation survives.
	CreateOrder(ctx context.Context, order domain.Order, invoice domain.Invoice, ticket *domain.Ticket) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	ListOrdersByCashier(ctx context.Context, cashierID string, limit int) ([]domain.Order, error)
	GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error)
	GetTicketByID(ctx context.Context, id string) (*domain.Ticket, error)

	// GetRefundedQtyByOrder returns cumulative refunded quantities keyed by
	// "sku|size" for over-refund guarding.
	GetRefundedQtyByOrder(ctx context.Context, orderID string) (map[string]int, error)
	// CreateRefund releases stock for every refund line and persists the
	// refund record in one atomic unit, mirroring CreateOrder.
	CreateRefund(ctx context.Context, refund domain.Refund) (*domain.Refund, error)

	ListAddresses(ctx context.Context, userID string) ([]domain.Address, error)
	GetAddress(ctx context.Context, userID string, addressID string) (*domain.Address, error)
	CreateAddress(ctx context.Context, address domain.Address) (*domain.Address, error)
	DeleteAddress(ctx context.Context, userID string, addressID string) error

	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	UpsertCartItem(ctx context.Context, userID string, item domain.CartItem) (domain.Cart, error)
	RemoveCartItem(ctx context.Context, userID string, sku string, size string) (domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error

	CreateOrderEvent(ctx context.Context, event domain.OrderEvent) error
	ListOrderEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error)

	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
