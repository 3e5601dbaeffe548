package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"shopcore/backend/internal/apperr"
	"shopcore/backend/internal/cache"
	"shopcore/backend/internal/domain"
	"shopcore/backend/internal/pricing"
	"shopcore/backend/internal/store"
	"shopcore/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	pricer   pricing.Engine
	catalog  cache.CatalogCache
	cacheTTL time.Duration
}

func New(repo store.Repository, pricer pricing.Engine, catalog cache.CatalogCache, cacheTTL time.Duration) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:     repo,
		pricer:   pricer,
		catalog:  catalog,
		cacheTTL: cacheTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, hit, err := s.catalog.GetProductList(ctx); err == nil && hit {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: product list cache read failed: %v", err)
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetProductList(ctx, products, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: product list cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation("product id required")
	}

	if cached, hit, err := s.catalog.GetProduct(ctx, id); err == nil && hit {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: product cache read failed: %v", err)
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetProduct(ctx, product, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: product cache write failed: %v", err)
	}
	return product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, apperr.Forbidden("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)
	if req.Name == "" || req.Brand == "" {
		return domain.Product{}, apperr.Validation("product name and brand are required")
	}
	if req.PriceCents < 1 {
		return domain.Product{}, apperr.Validation("product price must be positive")
	}
	if req.SalePriceCents != nil && (*req.SalePriceCents < 1 || *req.SalePriceCents >= req.PriceCents) {
		return domain.Product{}, apperr.Validation("sale price must be positive and below the base price")
	}
	if len(req.Variants) == 0 {
		return domain.Product{}, apperr.Validation("at least one variant is required")
	}

	seen := make(map[string]bool, len(req.Variants))
	variants := make([]domain.Variant, 0, len(req.Variants))
	for _, v := range req.Variants {
		sku := strings.ToUpper(strings.TrimSpace(v.SKU))
		if sku == "" {
			return domain.Product{}, apperr.Validation("every variant requires a sku")
		}
		if seen[sku] {
			return domain.Product{}, apperr.Validation("sku %s duplicated in request", sku)
		}
		seen[sku] = true
		if len(v.Sizes) == 0 {
			return domain.Product{}, apperr.Validation("variant %s requires at least one size", sku)
		}
		sizes := make([]domain.Size, 0, len(v.Sizes))
		for _, size := range v.Sizes {
			label := strings.TrimSpace(size.Label)
			if label == "" || size.Stock < 0 {
				return domain.Product{}, apperr.Validation("variant %s has an invalid size entry", sku)
			}
			sizes = append(sizes, domain.Size{Label: label, Stock: size.Stock})
		}
		variants = append(variants, domain.Variant{
			SKU:    sku,
			Color:  strings.TrimSpace(v.Color),
			Images: v.Images,
			Sizes:  sizes,
		})
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:           req.Name,
		Brand:          req.Brand,
		PriceCents:     req.PriceCents,
		SalePriceCents: req.SalePriceCents,
		Variants:       variants,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx, created.ID)
	return *created, nil
}

func (s *Service) AdjustStock(ctx context.Context, sku string, req domain.StockAdjustRequest) (domain.StockAdjustResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.StockAdjustResponse{}, apperr.Forbidden("admin role required")
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	size := strings.TrimSpace(req.Size)
	if sku == "" || size == "" {
		return domain.StockAdjustResponse{}, apperr.Validation("sku and size are required")
	}
	if req.Delta == 0 {
		return domain.StockAdjustResponse{}, apperr.Validation("delta must be non-zero")
	}

	stock, err := s.repo.AdjustStock(ctx, sku, size, req.Delta)
	if err != nil {
		return domain.StockAdjustResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logEvent(ctx, "stock_adjust", sku, fmt.Sprintf("size=%s,delta=%d,stock=%d", size, req.Delta, stock))
	return domain.StockAdjustResponse{SKU: sku, Size: size, Stock: stock}, nil
}

// CheckoutWeb places an order for an authenticated shopper. The delivery
// address must belong to the caller; shipping is computed and taxed.
func (s *Service) CheckoutWeb(ctx context.Context, req domain.CheckoutWebRequest) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || (actor.Role != domain.RoleCustomer && actor.Role != domain.RoleCashier) {
		return domain.CheckoutResponse{}, apperr.Forbidden("customer or cashier role required")
	}

	if err := validateItems(req.Items); err != nil {
		return domain.CheckoutResponse{}, err
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, apperr.Validation("unsupported payment method %q", req.PaymentMethod)
	}
	if strings.TrimSpace(req.AddressID) == "" {
		return domain.CheckoutResponse{}, apperr.Validation("address id required")
	}

	address, err := s.repo.GetAddress(ctx, actor.UserID, req.AddressID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	lines, subtotal, err := s.resolveLines(ctx, req.Items)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	shipping, err := s.pricer.ShippingCents(req.ShippingMethod, subtotal)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	totals := s.pricer.QuoteWeb(subtotal, shipping)

	now := time.Now().UTC()
	order := domain.Order{
		ID:             xid.New("ord"),
		UserID:         actor.UserID,
		Lines:          lines,
		PaymentMethod:  req.PaymentMethod,
		AddressID:      address.ID,
		ShippingMethod: req.ShippingMethod,
		SubtotalCents:  totals.SubtotalCents,
		TaxCents:       totals.TaxCents,
		ShippingCents:  totals.ShippingCents,
		TotalCents:     totals.TotalCents,
		Status:         domain.OrderStatusPaid,
		CreatedByRole:  actor.Role,
		CreatedAt:      now,
	}
	invoice := invoiceFor(order, now)

	if err := s.repo.CreateOrder(ctx, order, invoice, nil); err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logEvent(ctx, "checkout_web", order.ID, fmt.Sprintf("total=%d,payment=%s,items=%d", order.TotalCents, order.PaymentMethod, len(order.Lines)))
	if err := s.repo.ClearCart(ctx, actor.UserID); err != nil {
		log.Printf("[service] WARN: failed to clear cart for user %s: %v", actor.UserID, err)
	}

	return checkoutResponse(order, invoice, nil), nil
}

// CheckoutPos places a walk-in sale on behalf of a cashier: no user or
// address, no shipping, and a Ticket snapshot for receipt printing.
func (s *Service) CheckoutPos(ctx context.Context, req domain.CheckoutPosRequest) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleCashier {
		return domain.CheckoutResponse{}, apperr.Forbidden("cashier role required")
	}

	if err := validateItems(req.Items); err != nil {
		return domain.CheckoutResponse{}, err
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, apperr.Validation("unsupported payment method %q", req.PaymentMethod)
	}
	saleOrigin := strings.TrimSpace(req.SaleOrigin)
	if saleOrigin == "" {
		saleOrigin = domain.DefaultSaleOrigin
	}

	lines, subtotal, err := s.resolveLines(ctx, req.Items)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	totals := s.pricer.QuotePos(subtotal)

	now := time.Now().UTC()
	order := domain.Order{
		ID:            xid.New("ord"),
		Lines:         lines,
		PaymentMethod: req.PaymentMethod,
		SaleOrigin:    saleOrigin,
		SubtotalCents: totals.SubtotalCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
		Status:        domain.OrderStatusPaid,
		CreatedByRole: actor.Role,
		CashierID:     actor.UserID,
		CreatedAt:     now,
	}
	invoice := invoiceFor(order, now)
	ticket := domain.Ticket{
		ID:            xid.New("tkt"),
		OrderID:       order.ID,
		InvoiceID:     invoice.ID,
		CashierID:     actor.UserID,
		SaleOrigin:    saleOrigin,
		Lines:         lines,
		SubtotalCents: totals.SubtotalCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
	}

	if err := s.repo.CreateOrder(ctx, order, invoice, &ticket); err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logEvent(ctx, "checkout_pos", order.ID, fmt.Sprintf("total=%d,payment=%s,origin=%s", order.TotalCents, order.PaymentMethod, saleOrigin))

	return checkoutResponse(order, invoice, &ticket), nil
}

// resolveLines looks up every cart item, snapshots its unit price, and
// accumulates the subtotal. Duplicate sku/size entries stay separate lines.
func (s *Service) resolveLines(ctx context.Context, items []domain.CartItem) ([]domain.OrderLine, int64, error) {
	skus := make([]string, 0, len(items))
	for _, item := range items {
		skus = append(skus, item.SKU)
	}
	resolved, err := s.repo.ResolveSKUs(ctx, skus)
	if err != nil {
		return nil, 0, err
	}

	lines := make([]domain.OrderLine, 0, len(items))
	subtotal := int64(0)
	for _, item := range items {
		rv, exists := resolved[item.SKU]
		if !exists {
			return nil, 0, apperr.NotFoundSKU(item.SKU, "")
		}
		unit := pricing.UnitPriceCents(rv.Product)
		lines = append(lines, domain.OrderLine{
			SKU:            item.SKU,
			Size:           item.Size,
			Quantity:       item.Quantity,
			UnitPriceCents: unit,
		})
		subtotal += unit * int64(item.Quantity)
	}
	return lines, subtotal, nil
}

// Refund reverses part or all of a prior order. The id may be an invoice
// id or a POS ticket id; an empty item list refunds every remaining line.
func (s *Service) Refund(ctx context.Context, req domain.RefundRequest) (domain.RefundResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleCashier {
		return domain.RefundResponse{}, apperr.Forbidden("cashier role required")
	}

	id := strings.TrimSpace(req.InvoiceID)
	if id == "" {
		return domain.RefundResponse{}, apperr.Validation("invoice id required")
	}

	invoice, err := s.resolveInvoice(ctx, id)
	if err != nil {
		return domain.RefundResponse{}, err
	}
	order, err := s.repo.GetOrderByID(ctx, invoice.OrderID)
	if err != nil {
		return domain.RefundResponse{}, err
	}
	if order.Status == domain.OrderStatusRefunded {
		return domain.RefundResponse{}, apperr.Validation("order %s is already fully refunded", order.ID)
	}

	unitPrice := make(map[string]int64, len(order.Lines))
	orderedQty := make(map[string]int, len(order.Lines))
	for _, line := range order.Lines {
		key := lineKey(line.SKU, line.Size)
		unitPrice[key] = line.UnitPriceCents
		orderedQty[key] += line.Quantity
	}
	refundedQty, err := s.repo.GetRefundedQtyByOrder(ctx, order.ID)
	if err != nil {
		return domain.RefundResponse{}, err
	}

	remaining := make(map[string]int, len(orderedQty))
	for key, qty := range orderedQty {
		remaining[key] = qty - refundedQty[key]
	}

	var requested []domain.CartItem
	if len(req.Items) == 0 {
		// Full refund: every line's remaining quantity, walked in line
		// order so earlier partial refunds are consumed first.
		left := make(map[string]int, len(remaining))
		for key, qty := range remaining {
			left[key] = qty
		}
		for _, line := range order.Lines {
			key := lineKey(line.SKU, line.Size)
			take := line.Quantity
			if take > left[key] {
				take = left[key]
			}
			if take == 0 {
				continue
			}
			left[key] -= take
			requested = append(requested, domain.CartItem{SKU: line.SKU, Size: line.Size, Quantity: take})
		}
	} else {
		requested = req.Items
	}

	refundLines := make([]domain.OrderLine, 0, len(requested))
	totalRefunded := int64(0)
	for _, item := range requested {
		if item.Quantity < 1 {
			return domain.RefundResponse{}, apperr.Validation("refund quantity must be a positive integer")
		}
		key := lineKey(item.SKU, item.Size)
		if _, onOrder := orderedQty[key]; !onOrder {
			return domain.RefundResponse{}, apperr.NotFoundSKU(item.SKU, item.Size)
		}
		if item.Quantity > remaining[key] {
			return domain.RefundResponse{}, apperr.Validation("refund quantity for sku %s size %s exceeds remaining quantity", item.SKU, item.Size)
		}
		remaining[key] -= item.Quantity
		unit := unitPrice[key]
		refundLines = append(refundLines, domain.OrderLine{
			SKU:            item.SKU,
			Size:           item.Size,
			Quantity:       item.Quantity,
			UnitPriceCents: unit,
		})
		totalRefunded += unit * int64(item.Quantity)
	}
	if len(refundLines) == 0 {
		return domain.RefundResponse{}, apperr.Validation("nothing left to refund on order %s", order.ID)
	}

	refund := domain.Refund{
		ID:                 xid.New("refund"),
		OrderID:            order.ID,
		InvoiceID:          invoice.ID,
		CashierID:          actor.UserID,
		Lines:              refundLines,
		TotalRefundedCents: totalRefunded,
		Reason:             strings.TrimSpace(req.Reason),
		CreatedAt:          time.Now().UTC(),
	}

	created, err := s.repo.CreateRefund(ctx, refund)
	if err != nil {
		return domain.RefundResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logEvent(ctx, "refund", order.ID, fmt.Sprintf("refund=%s,amount=%d,reason=%s", created.ID, created.TotalRefundedCents, created.Reason))

	return domain.RefundResponse{
		RefundID:      created.ID,
		OrderID:       order.ID,
		TotalRefunded: domain.AmountFromCents(created.TotalRefundedCents),
	}, nil
}

// resolveInvoice accepts an invoice id directly, or a ticket id that
// references one.
func (s *Service) resolveInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	invoice, err := s.repo.GetInvoiceByID(ctx, id)
	if err == nil {
		return invoice, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	ticket, err := s.repo.GetTicketByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("invoice or ticket %s not found", id)
		}
		return nil, err
	}
	return s.repo.GetInvoiceByID(ctx, ticket.InvoiceID)
}

func (s *Service) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, apperr.Unauthorized("authentication required")
	}
	switch actor.Role {
	case domain.RoleCustomer:
		return s.repo.ListOrdersByUser(ctx, actor.UserID, limit)
	case domain.RoleCashier:
		return s.repo.ListOrdersByCashier(ctx, actor.UserID, limit)
	default:
		return nil, apperr.Forbidden("customer or cashier role required")
	}
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, apperr.Unauthorized("authentication required")
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleCustomer:
		if order.UserID != actor.UserID {
			return nil, apperr.NotFound("order %s not found", id)
		}
	case domain.RoleCashier:
		if order.CashierID != actor.UserID {
			return nil, apperr.NotFound("order %s not found", id)
		}
	default:
		return nil, apperr.Forbidden("forbidden role")
	}
	return order, nil
}

func (s *Service) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, apperr.Unauthorized("authentication required")
	}
	return s.repo.ListAddresses(ctx, actor.UserID)
}

func (s *Service) AddAddress(ctx context.Context, req domain.AddressCreateRequest) (domain.Address, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Address{}, apperr.Unauthorized("authentication required")
	}

	req.Street = strings.TrimSpace(req.Street)
	req.City = strings.TrimSpace(req.City)
	req.State = strings.TrimSpace(req.State)
	req.PostalCode = strings.TrimSpace(req.PostalCode)
	if req.Street == "" || req.State == "" || req.PostalCode == "" {
		return domain.Address{}, apperr.Validation("street, state and postal code are required")
	}

	created, err := s.repo.CreateAddress(ctx, domain.Address{
		UserID:     actor.UserID,
		Street:     req.Street,
		Number:     strings.TrimSpace(req.Number),
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    strings.TrimSpace(req.Country),
	})
	if err != nil {
		return domain.Address{}, err
	}
	return *created, nil
}

func (s *Service) DeleteAddress(ctx context.Context, addressID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	return s.repo.DeleteAddress(ctx, actor.UserID, addressID)
}

func (s *Service) GetCart(ctx context.Context) (domain.Cart, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Cart{}, apperr.Unauthorized("authentication required")
	}
	return s.repo.GetCart(ctx, actor.UserID)
}

func (s *Service) SetCartItem(ctx context.Context, item domain.CartItem) (domain.Cart, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Cart{}, apperr.Unauthorized("authentication required")
	}

	item.SKU = strings.ToUpper(strings.TrimSpace(item.SKU))
	item.Size = strings.TrimSpace(item.Size)
	if item.SKU == "" || item.Size == "" {
		return domain.Cart{}, apperr.Validation("sku and size are required")
	}
	if item.Quantity < 1 {
		return domain.Cart{}, apperr.Validation("quantity must be a positive integer")
	}

	resolved, err := s.repo.ResolveSKUs(ctx, []string{item.SKU})
	if err != nil {
		return domain.Cart{}, err
	}
	if _, exists := resolved[item.SKU]; !exists {
		return domain.Cart{}, apperr.NotFoundSKU(item.SKU, "")
	}

	return s.repo.UpsertCartItem(ctx, actor.UserID, item)
}

func (s *Service) RemoveCartItem(ctx context.Context, sku string, size string) (domain.Cart, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Cart{}, apperr.Unauthorized("authentication required")
	}
	return s.repo.RemoveCartItem(ctx, actor.UserID, strings.ToUpper(strings.TrimSpace(sku)), strings.TrimSpace(size))
}

func (s *Service) ListOrderEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, apperr.Forbidden("admin role required")
	}
	return s.repo.ListOrderEvents(ctx, limit)
}

// logEvent records an order-trail entry; failures are logged, never fatal.
func (s *Service) logEvent(ctx context.Context, action string, entityID string, detail string) {
	actorName := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		actorName = actor.Username
	}
	err := s.repo.CreateOrderEvent(ctx, domain.OrderEvent{
		Actor:     actorName,
		Action:    action,
		EntityID:  entityID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to record order event action=%s entity=%s: %v", action, entityID, err)
	}
}

func (s *Service) invalidateCatalog(ctx context.Context, productIDs ...string) {
	if err := s.catalog.Invalidate(ctx, productIDs...); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
}

func validateItems(items []domain.CartItem) error {
	if len(items) == 0 {
		return apperr.Validation("at least one item is required")
	}
	for _, item := range items {
		if strings.TrimSpace(item.SKU) == "" || strings.TrimSpace(item.Size) == "" {
			return apperr.Validation("every item requires a sku and size")
		}
		if item.Quantity < 1 {
			return apperr.Validation("quantity for sku %s must be a positive integer", item.SKU)
		}
	}
	return nil
}

func invoiceFor(order domain.Order, issuedAt time.Time) domain.Invoice {
	return domain.Invoice{
		ID:            xid.New("inv"),
		OrderID:       order.ID,
		SubtotalCents: order.SubtotalCents,
		TaxCents:      order.TaxCents,
		ShippingCents: order.ShippingCents,
		TotalCents:    order.TotalCents,
		PaymentMethod: order.PaymentMethod,
		IssuedAt:      issuedAt,
	}
}

func checkoutResponse(order domain.Order, invoice domain.Invoice, ticket *domain.Ticket) domain.CheckoutResponse {
	resp := domain.CheckoutResponse{
		OrderID:   order.ID,
		InvoiceID: invoice.ID,
		Subtotal:  domain.AmountFromCents(order.SubtotalCents),
		Tax:       domain.AmountFromCents(order.TaxCents),
		Shipping:  domain.AmountFromCents(order.ShippingCents),
		TotalPaid: domain.AmountFromCents(order.TotalCents),
	}
	if ticket != nil {
		resp.TicketID = ticket.ID
	}
	return resp
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard:
		return true
	default:
		return false
	}
}

func lineKey(sku string, size string) string {
	return fmt.Sprintf("%s|%s", sku, size)
}
