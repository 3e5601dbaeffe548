package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"shopcore/backend/internal/apperr"
	"shopcore/backend/internal/domain"
	"shopcore/backend/internal/xid"
)

type variantRef struct {
	productID  string
	variantIdx int
}

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	variantIndex    map[string]variantRef
	stock           map[string]int
	ordersByID      map[string]domain.Order
	invoicesByID    map[string]domain.Invoice
	ticketsByID     map[string]domain.Ticket
	refundsByID     map[string]domain.Refund
	refundedByOrder map[string]map[string]int
	addressesByUser map[string][]domain.Address
	cartsByUser     map[string]domain.Cart
	orderEvents     []domain.OrderEvent
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials are read from SEED_*_PASSWORD environment variables; if unset,
// hardcoded dev defaults are used with a warning. These credentials are never
// used in production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	customerPwd := envOr("SEED_CUSTOMER_PASSWORD", "customer123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	if os.Getenv("SEED_CUSTOMER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" || os.Getenv("SEED_ADMIN_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_CUSTOMER_PASSWORD, SEED_CASHIER_PASSWORD and SEED_ADMIN_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		id       string
		username string
		password string
		role     string
	}{
		{"usr-customer", "customer", customerPwd, domain.RoleCustomer},
		{"usr-cashier", "cashier", cashierPwd, domain.RoleCashier},
		{"usr-admin", "admin", adminPwd, domain.RoleAdmin},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        u.id,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	sale := int64(15000)
	products := []domain.Product{
		{
			ID:         "prod-court-classic",
			Name:       "Court Classic",
			Brand:      "Valta",
			PriceCents: 10000,
			Variants: []domain.Variant{
				{SKU: "CRT-WHT", Color: "white", Images: []string{"crt-wht-1.jpg"}, Sizes: []domain.Size{{Label: "S", Stock: 8}, {Label: "M", Stock: 8}}},
			},
			CreatedAt: now,
		},
		{
			ID:         "prod-trail-runner",
			Name:       "Trail Runner",
			Brand:      "Peakline",
			PriceCents: 5000,
			Variants: []domain.Variant{
				{SKU: "TRL-BLU", Color: "blue", Images: []string{"trl-blu-1.jpg"}, Sizes: []domain.Size{{Label: "M", Stock: 8}, {Label: "L", Stock: 8}}},
			},
			CreatedAt: now,
		},
		{
			ID:             "prod-aero-flex",
			Name:           "Aero Flex",
			Brand:          "Valta",
			PriceCents:     20000,
			SalePriceCents: &sale,
			Variants: []domain.Variant{
				{SKU: "ARO-BLK", Color: "black", Sizes: []domain.Size{{Label: "M", Stock: 5}}},
			},
			CreatedAt: now,
		},
		{
			ID:         "prod-retro-court",
			Name:       "Retro Court 89",
			Brand:      "Valta",
			PriceCents: 30000,
			Variants: []domain.Variant{
				{SKU: "RET-RED", Color: "red", Sizes: []domain.Size{{Label: "M", Stock: 1}}},
			},
			CreatedAt: now,
		},
	}

	s := &Store{
		products:        make(map[string]domain.Product, len(products)),
		variantIndex:    make(map[string]variantRef),
		stock:           make(map[string]int),
		ordersByID:      make(map[string]domain.Order),
		invoicesByID:    make(map[string]domain.Invoice),
		ticketsByID:     make(map[string]domain.Ticket),
		refundsByID:     make(map[string]domain.Refund),
		refundedByOrder: make(map[string]map[string]int),
		addressesByUser: make(map[string][]domain.Address),
		cartsByUser:     make(map[string]domain.Cart),
		orderEvents:     make([]domain.OrderEvent, 0, 128),
		usersByUsername: seedUsers(),
	}
	for _, p := range products {
		s.registerProductLocked(p)
	}
	s.addressesByUser["usr-customer"] = []domain.Address{{
		ID:         "addr-1",
		UserID:     "usr-customer",
		Street:     "Av. Reforma",
		Number:     "120",
		City:       "Monterrey",
		State:      "NL",
		PostalCode: "64000",
		Country:    "MX",
	}}
	return s
}

// registerProductLocked indexes variants and moves size stock into the
// stock map, which is the single source of truth for stock levels.
func (s *Store) registerProductLocked(p domain.Product) {
	for idx, v := range p.Variants {
		s.variantIndex[v.SKU] = variantRef{productID: p.ID, variantIdx: idx}
		for _, size := range v.Sizes {
			s.stock[lineKey(v.SKU, size.Label)] = size.Stock
		}
	}
	s.products[p.ID] = p
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, s.cloneProductLocked(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperr.NotFound("product %s not found", id)
	}
	clone := s.cloneProductLocked(p)
	return &clone, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range product.Variants {
		if _, exists := s.variantIndex[v.SKU]; exists {
			return nil, apperr.Conflict("sku %s already exists", v.SKU)
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.registerProductLocked(product)

	clone := s.cloneProductLocked(product)
	return &clone, nil
}

func (s *Store) ResolveSKUs(_ context.Context, skus []string) (map[string]domain.ResolvedVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolved := make(map[string]domain.ResolvedVariant, len(skus))
	for _, sku := range skus {
		ref, ok := s.variantIndex[sku]
		if !ok {
			continue
		}
		product := s.products[ref.productID]
		clone := s.cloneProductLocked(product)
		resolved[sku] = domain.ResolvedVariant{
			Product: clone,
			Variant: clone.Variants[ref.variantIdx],
		}
	}
	return resolved, nil
}

func (s *Store) AdjustStock(_ context.Context, sku string, size string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lineKey(sku, size)
	current, ok := s.stock[key]
	if !ok {
		return 0, apperr.NotFoundSKU(sku, size)
	}
	if delta < 0 && current < -delta {
		return 0, apperr.InsufficientStock(sku, size)
	}
	s.stock[key] = current + delta
	return s.stock[key], nil
}

// reserveLocked is the atomic conditional decrement: it fails without
// mutating anything when the sku/size is unknown or stock is short.
func (s *Store) reserveLocked(sku string, size string, qty int) error {
	key := lineKey(sku, size)
	current, ok := s.stock[key]
	if !ok {
		return apperr.NotFoundSKU(sku, size)
	}
	if current < qty {
		return apperr.InsufficientStock(sku, size)
	}
	s.stock[key] = current - qty
	return nil
}

// releaseLocked unconditionally restores stock; refunds may always restock.
func (s *Store) releaseLocked(sku string, size string, qty int) {
	s.stock[lineKey(sku, size)] += qty
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order, invoice domain.Invoice, ticket *domain.Ticket) error {
	if order.ID == "" || invoice.ID == "" || len(order.Lines) == 0 {
		return apperr.Validation("order, invoice and at least one line are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[order.ID]; exists {
		return apperr.Conflict("order %s already exists", order.ID)
	}

	// Reserve line by line; duplicates are independent reservations. On the
	// first failure roll back every decrement applied in this call.
	applied := make([]domain.OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		if err := s.reserveLocked(line.SKU, line.Size, line.Quantity); err != nil {
			for _, done := range applied {
				s.releaseLocked(done.SKU, done.Size, done.Quantity)
			}
			return err
		}
		applied = append(applied, line)
	}

	s.ordersByID[order.ID] = cloneOrder(order)
	s.invoicesByID[invoice.ID] = invoice
	if ticket != nil {
		s.ticketsByID[ticket.ID] = cloneTicket(*ticket)
	}
	return nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, apperr.NotFound("order %s not found", id)
	}
	clone := cloneOrder(order)
	return &clone, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	return s.listOrders(limit, func(o domain.Order) bool { return o.UserID == userID })
}

func (s *Store) ListOrdersByCashier(_ context.Context, cashierID string, limit int) ([]domain.Order, error) {
	return s.listOrders(limit, func(o domain.Order) bool { return o.CashierID == cashierID })
}

func (s *Store) listOrders(limit int, match func(domain.Order) bool) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, 16)
	for _, order := range s.ordersByID {
		if match(order) {
			orders = append(orders, cloneOrder(order))
		}
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) GetInvoiceByID(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, ok := s.invoicesByID[id]
	if !ok {
		return nil, apperr.NotFound("invoice %s not found", id)
	}
	clone := invoice
	return &clone, nil
}

func (s *Store) GetTicketByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.ticketsByID[id]
	if !ok {
		return nil, apperr.NotFound("ticket %s not found", id)
	}
	clone := cloneTicket(ticket)
	return &clone, nil
}

func (s *Store) GetRefundedQtyByOrder(_ context.Context, orderID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refunded := make(map[string]int, len(s.refundedByOrder[orderID]))
	for key, qty := range s.refundedByOrder[orderID] {
		refunded[key] = qty
	}
	return refunded, nil
}

func (s *Store) CreateRefund(_ context.Context, refund domain.Refund) (*domain.Refund, error) {
	if refund.OrderID == "" || len(refund.Lines) == 0 {
		return nil, apperr.Validation("refund requires an order and at least one line")
	}
	if refund.ID == "" {
		refund.ID = xid.New("refund")
	}
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[refund.OrderID]
	if !ok {
		return nil, apperr.NotFound("order %s not found", refund.OrderID)
	}

	orderedQty := make(map[string]int, len(order.Lines))
	for _, line := range order.Lines {
		orderedQty[lineKey(line.SKU, line.Size)] += line.Quantity
	}
	refunded := s.refundedByOrder[refund.OrderID]
	if refunded == nil {
		refunded = make(map[string]int)
	}
	for _, line := range refund.Lines {
		key := lineKey(line.SKU, line.Size)
		ordered, ok := orderedQty[key]
		if !ok {
			return nil, apperr.NotFoundSKU(line.SKU, line.Size)
		}
		if refunded[key]+line.Quantity > ordered {
			return nil, apperr.Validation("refund quantity for sku %s size %s exceeds ordered quantity", line.SKU, line.Size)
		}
	}

	for _, line := range refund.Lines {
		s.releaseLocked(line.SKU, line.Size, line.Quantity)
		refunded[lineKey(line.SKU, line.Size)] += line.Quantity
	}
	s.refundedByOrder[refund.OrderID] = refunded
	s.refundsByID[refund.ID] = cloneRefund(refund)

	fullyRefunded := true
	for key, ordered := range orderedQty {
		if refunded[key] < ordered {
			fullyRefunded = false
			break
		}
	}
	if fullyRefunded {
		order.Status = domain.OrderStatusRefunded
		s.ordersByID[order.ID] = order
	}

	clone := cloneRefund(refund)
	return &clone, nil
}

func (s *Store) ListAddresses(_ context.Context, userID string) ([]domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addresses := make([]domain.Address, len(s.addressesByUser[userID]))
	copy(addresses, s.addressesByUser[userID])
	return addresses, nil
}

func (s *Store) GetAddress(_ context.Context, userID string, addressID string) (*domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, addr := range s.addressesByUser[userID] {
		if addr.ID == addressID {
			clone := addr
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("address %s not found", addressID)
}

func (s *Store) CreateAddress(_ context.Context, address domain.Address) (*domain.Address, error) {
	if address.UserID == "" {
		return nil, apperr.Validation("address requires a user")
	}
	if address.ID == "" {
		address.ID = xid.New("addr")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addressesByUser[address.UserID] = append(s.addressesByUser[address.UserID], address)
	clone := address
	return &clone, nil
}

func (s *Store) DeleteAddress(_ context.Context, userID string, addressID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addresses := s.addressesByUser[userID]
	for i, addr := range addresses {
		if addr.ID == addressID {
			s.addressesByUser[userID] = append(addresses[:i], addresses[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("address %s not found", addressID)
}

func (s *Store) GetCart(_ context.Context, userID string) (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneCart(userID, s.cartsByUser[userID]), nil
}

func (s *Store) UpsertCartItem(_ context.Context, userID string, item domain.CartItem) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartsByUser[userID]
	cart.UserID = userID
	found := false
	for i, existing := range cart.Items {
		if existing.SKU == item.SKU && existing.Size == item.Size {
			cart.Items[i].Quantity = item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, item)
	}
	s.cartsByUser[userID] = cart
	return cloneCart(userID, cart), nil
}

func (s *Store) RemoveCartItem(_ context.Context, userID string, sku string, size string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartsByUser[userID]
	for i, existing := range cart.Items {
		if existing.SKU == sku && existing.Size == size {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			s.cartsByUser[userID] = cart
			return cloneCart(userID, cart), nil
		}
	}
	return domain.Cart{}, apperr.NotFound("cart item %s/%s not found", sku, size)
}

func (s *Store) ClearCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cartsByUser, userID)
	return nil
}

func (s *Store) CreateOrderEvent(_ context.Context, event domain.OrderEvent) error {
	if event.ID == "" {
		event.ID = xid.New("evt")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orderEvents = append(s.orderEvents, event)
	return nil
}

func (s *Store) ListOrderEvents(_ context.Context, limit int) ([]domain.OrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.OrderEvent, len(s.orderEvents))
	copy(events, s.orderEvents)
	slices.SortFunc(events, func(a, b domain.OrderEvent) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return apperr.NotFound("user %s not found", username)
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// cloneProductLocked deep-copies a product and materializes current stock
// levels into the size records.
func (s *Store) cloneProductLocked(p domain.Product) domain.Product {
	clone := p
	if p.SalePriceCents != nil {
		sale := *p.SalePriceCents
		clone.SalePriceCents = &sale
	}
	clone.Variants = make([]domain.Variant, len(p.Variants))
	for i, v := range p.Variants {
		variant := v
		variant.Images = append([]string(nil), v.Images...)
		variant.Sizes = make([]domain.Size, len(v.Sizes))
		for j, size := range v.Sizes {
			size.Stock = s.stock[lineKey(v.SKU, size.Label)]
			variant.Sizes[j] = size
		}
		clone.Variants[i] = variant
	}
	return clone
}

func cloneOrder(o domain.Order) domain.Order {
	clone := o
	clone.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return clone
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	clone := t
	clone.Lines = append([]domain.OrderLine(nil), t.Lines...)
	return clone
}

func cloneRefund(r domain.Refund) domain.Refund {
	clone := r
	clone.Lines = append([]domain.OrderLine(nil), r.Lines...)
	return clone
}

func cloneCart(userID string, c domain.Cart) domain.Cart {
	clone := c
	clone.UserID = userID
	clone.Items = append([]domain.CartItem(nil), c.Items...)
	return clone
}

func lineKey(sku string, size string) string {
	return fmt.Sprintf("%s|%s", sku, size)
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
