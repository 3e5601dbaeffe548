package service

import (
	"context"
	"sync"
	"testing"

	"shopcore/backend/internal/apperr"
	"shopcore/backend/internal/domain"
	"shopcore/backend/internal/pricing"
	"shopcore/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	return New(repo, pricing.Default(), nil, 0), repo
}

func ctxAs(role string) context.Context {
	actor := domain.Actor{Role: role}
	switch role {
	case domain.RoleCustomer:
		actor.UserID = "usr-customer"
		actor.Username = "customer"
	case domain.RoleCashier:
		actor.UserID = "usr-cashier"
		actor.Username = "cashier"
	case domain.RoleAdmin:
		actor.UserID = "usr-admin"
		actor.Username = "admin"
	}
	return WithActor(context.Background(), actor)
}

func stockOf(t *testing.T, svc *Service, sku string, size string) int {
	t.Helper()
	resolved, err := svc.repo.ResolveSKUs(context.Background(), []string{sku})
	if err != nil {
		t.Fatalf("resolve %s: %v", sku, err)
	}
	rv, ok := resolved[sku]
	if !ok {
		t.Fatalf("sku %s not found", sku)
	}
	for _, s := range rv.Variant.Sizes {
		if s.Label == size {
			return s.Stock
		}
	}
	t.Fatalf("size %s not found on sku %s", size, sku)
	return 0
}

func TestCheckoutWebTotals(t *testing.T) {
	svc, _ := newTestService()

	// 2x Court Classic (100.00) + 1x Trail Runner (50.00) = 250.00 subtotal,
	// standard shipping 150.00, tax 16% of 400.00 = 64.00, total 464.00.
	resp, err := svc.CheckoutWeb(ctxAs(domain.RoleCustomer), domain.CheckoutWebRequest{
		Items: []domain.CartItem{
			{SKU: "CRT-WHT", Size: "M", Quantity: 2},
			{SKU: "TRL-BLU", Size: "M", Quantity: 1},
		},
		PaymentMethod:  domain.PaymentCard,
		AddressID:      "addr-1",
		ShippingMethod: domain.ShippingStandard,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Subtotal != 250.00 {
		t.Fatalf("subtotal = %.2f, want 250.00", resp.Subtotal)
	}
	if resp.Shipping != 150.00 {
		t.Fatalf("shipping = %.2f, want 150.00", resp.Shipping)
	}
	if resp.Tax != 64.00 {
		t.Fatalf("tax = %.2f, want 64.00", resp.Tax)
	}
	if resp.TotalPaid != 464.00 {
		t.Fatalf("total = %.2f, want 464.00", resp.TotalPaid)
	}
	if resp.OrderID == "" || resp.InvoiceID == "" {
		t.Fatalf("expected order and invoice ids, got %q / %q", resp.OrderID, resp.InvoiceID)
	}
	if resp.TicketID != "" {
		t.Fatalf("web checkout must not emit a ticket, got %q", resp.TicketID)
	}

	if got := stockOf(t, svc, "CRT-WHT", "M"); got != 6 {
		t.Fatalf("CRT-WHT/M stock = %d, want 6", got)
	}
	if got := stockOf(t, svc, "TRL-BLU", "M"); got != 7 {
		t.Fatalf("TRL-BLU/M stock = %d, want 7", got)
	}
}

func TestCheckoutPosTotalsAndTicket(t *testing.T) {
	svc, _ := newTestService()

	// 250.00 subtotal, no shipping, tax 40.00, total 290.00.
	resp, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items: []domain.CartItem{
			{SKU: "CRT-WHT", Size: "M", Quantity: 2},
			{SKU: "TRL-BLU", Size: "M", Quantity: 1},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("pos checkout: %v", err)
	}
	if resp.Shipping != 0 {
		t.Fatalf("shipping = %.2f, want 0", resp.Shipping)
	}
	if resp.Tax != 40.00 {
		t.Fatalf("tax = %.2f, want 40.00", resp.Tax)
	}
	if resp.TotalPaid != 290.00 {
		t.Fatalf("total = %.2f, want 290.00", resp.TotalPaid)
	}
	if resp.TicketID == "" {
		t.Fatalf("pos checkout must emit a ticket")
	}

	ticket, err := svc.repo.GetTicketByID(context.Background(), resp.TicketID)
	if err != nil {
		t.Fatalf("load ticket: %v", err)
	}
	if ticket.OrderID != resp.OrderID || ticket.InvoiceID != resp.InvoiceID {
		t.Fatalf("ticket links = %s/%s, want %s/%s", ticket.OrderID, ticket.InvoiceID, resp.OrderID, resp.InvoiceID)
	}
	if ticket.SaleOrigin != domain.DefaultSaleOrigin {
		t.Fatalf("sale origin = %q, want %q", ticket.SaleOrigin, domain.DefaultSaleOrigin)
	}
	if ticket.CashierID != "usr-cashier" {
		t.Fatalf("cashier id = %q, want usr-cashier", ticket.CashierID)
	}
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	svc, _ := newTestService()

	// RET-RED/M is seeded with exactly one unit.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
				Items:         []domain.CartItem{{SKU: "RET-RED", Size: "M", Quantity: 1}},
				PaymentMethod: domain.PaymentCash,
			})
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.IsKind(err, apperr.KindInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("succeeded=%d rejected=%d, want exactly one of each", succeeded, rejected)
	}
	if got := stockOf(t, svc, "RET-RED", "M"); got != 0 {
		t.Fatalf("RET-RED/M stock = %d, want 0", got)
	}
}

func TestCheckoutUnknownSKULeavesStockUntouched(t *testing.T) {
	svc, _ := newTestService()

	before := stockOf(t, svc, "CRT-WHT", "M")
	_, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items: []domain.CartItem{
			{SKU: "CRT-WHT", Size: "M", Quantity: 1},
			{SKU: "NO-SUCH", Size: "M", Quantity: 1},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want not_found", err)
	}
	if appErr := apperr.From(err); appErr.SKU != "NO-SUCH" {
		t.Fatalf("error sku = %q, want NO-SUCH", appErr.SKU)
	}
	if got := stockOf(t, svc, "CRT-WHT", "M"); got != before {
		t.Fatalf("CRT-WHT/M stock changed from %d to %d", before, got)
	}
}

func TestCheckoutInsufficientStockRollsBackEarlierLines(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items: []domain.CartItem{
			{SKU: "CRT-WHT", Size: "M", Quantity: 2},
			{SKU: "ARO-BLK", Size: "M", Quantity: 6}, // only 5 in stock
		},
		PaymentMethod: domain.PaymentCash,
	})
	if !apperr.IsKind(err, apperr.KindInsufficientStock) {
		t.Fatalf("error = %v, want insufficient_stock", err)
	}
	if got := stockOf(t, svc, "CRT-WHT", "M"); got != 8 {
		t.Fatalf("CRT-WHT/M stock = %d, want 8 (rolled back)", got)
	}
	if got := stockOf(t, svc, "ARO-BLK", "M"); got != 5 {
		t.Fatalf("ARO-BLK/M stock = %d, want 5", got)
	}
}

func TestCheckoutDuplicateLinesReserveSequentially(t *testing.T) {
	svc, _ := newTestService()

	// Two lines for the same sku/size; together they exceed stock and the
	// second line must fail even though each alone would fit.
	_, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items: []domain.CartItem{
			{SKU: "ARO-BLK", Size: "M", Quantity: 3},
			{SKU: "ARO-BLK", Size: "M", Quantity: 3},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if !apperr.IsKind(err, apperr.KindInsufficientStock) {
		t.Fatalf("error = %v, want insufficient_stock", err)
	}
	if got := stockOf(t, svc, "ARO-BLK", "M"); got != 5 {
		t.Fatalf("ARO-BLK/M stock = %d, want 5", got)
	}

	// Within stock, duplicates stay separate order lines.
	resp, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items: []domain.CartItem{
			{SKU: "ARO-BLK", Size: "M", Quantity: 2},
			{SKU: "ARO-BLK", Size: "M", Quantity: 2},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	order, err := svc.repo.GetOrderByID(context.Background(), resp.OrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("order has %d lines, want 2 separate lines", len(order.Lines))
	}
	if got := stockOf(t, svc, "ARO-BLK", "M"); got != 1 {
		t.Fatalf("ARO-BLK/M stock = %d, want 1", got)
	}
}

func TestCheckoutUsesSalePrice(t *testing.T) {
	svc, _ := newTestService()

	// Aero Flex base 200.00, sale 150.00. POS tax 16% of 150.00 = 24.00.
	resp, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items:         []domain.CartItem{{SKU: "ARO-BLK", Size: "M", Quantity: 1}},
		PaymentMethod: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Subtotal != 150.00 {
		t.Fatalf("subtotal = %.2f, want sale price 150.00", resp.Subtotal)
	}
	if resp.TotalPaid != 174.00 {
		t.Fatalf("total = %.2f, want 174.00", resp.TotalPaid)
	}
}

func TestCheckoutWebRejectsForeignAddress(t *testing.T) {
	svc, _ := newTestService()

	// The cashier has no addresses, so addr-1 (owned by the customer) must
	// not resolve for them.
	_, err := svc.CheckoutWeb(ctxAs(domain.RoleCashier), domain.CheckoutWebRequest{
		Items:          []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 1}},
		PaymentMethod:  domain.PaymentCard,
		AddressID:      "addr-1",
		ShippingMethod: domain.ShippingStandard,
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want not_found", err)
	}
}

func TestCheckoutWebClearsCart(t *testing.T) {
	svc, _ := newTestService()
	ctx := ctxAs(domain.RoleCustomer)

	if _, err := svc.SetCartItem(ctx, domain.CartItem{SKU: "CRT-WHT", Size: "M", Quantity: 2}); err != nil {
		t.Fatalf("set cart item: %v", err)
	}

	_, err := svc.CheckoutWeb(ctx, domain.CheckoutWebRequest{
		Items:          []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 2}},
		PaymentMethod:  domain.PaymentCard,
		AddressID:      "addr-1",
		ShippingMethod: domain.ShippingStandard,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	cart, err := svc.GetCart(ctx)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("cart has %d items after checkout, want 0", len(cart.Items))
	}
}

func TestCheckoutRoleEnforcement(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.CheckoutPos(ctxAs(domain.RoleCustomer), domain.CheckoutPosRequest{
		Items:         []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
	}); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("pos checkout as customer = %v, want forbidden", err)
	}

	if _, err := svc.CheckoutWeb(ctxAs(domain.RoleAdmin), domain.CheckoutWebRequest{
		Items:          []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 1}},
		PaymentMethod:  domain.PaymentCard,
		AddressID:      "addr-1",
		ShippingMethod: domain.ShippingStandard,
	}); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("web checkout as admin = %v, want forbidden", err)
	}

	if _, err := svc.Refund(ctxAs(domain.RoleCustomer), domain.RefundRequest{InvoiceID: "inv-x"}); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("refund as customer = %v, want forbidden", err)
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := ctxAs(domain.RoleCashier)

	cases := []domain.CheckoutPosRequest{
		{PaymentMethod: domain.PaymentCash},
		{Items: []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 0}}, PaymentMethod: domain.PaymentCash},
		{Items: []domain.CartItem{{SKU: "", Size: "M", Quantity: 1}}, PaymentMethod: domain.PaymentCash},
		{Items: []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 1}}, PaymentMethod: "barter"},
	}
	for i, req := range cases {
		if _, err := svc.CheckoutPos(ctx, req); !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("case %d: error = %v, want validation", i, err)
		}
	}
}

func TestRefundFullByInvoice(t *testing.T) {
	svc, _ := newTestService()

	sale, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items: []domain.CartItem{
			{SKU: "CRT-WHT", Size: "M", Quantity: 2},
			{SKU: "TRL-BLU", Size: "M", Quantity: 1},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Empty items means refund everything. The refund total covers the line
	// prices only (250.00), not the tax.
	refund, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.InvoiceID,
		Reason:    "customer return",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.TotalRefunded != 250.00 {
		t.Fatalf("refunded = %.2f, want 250.00", refund.TotalRefunded)
	}

	if got := stockOf(t, svc, "CRT-WHT", "M"); got != 8 {
		t.Fatalf("CRT-WHT/M stock = %d, want 8 (restocked)", got)
	}
	if got := stockOf(t, svc, "TRL-BLU", "M"); got != 8 {
		t.Fatalf("TRL-BLU/M stock = %d, want 8 (restocked)", got)
	}

	order, err := svc.repo.GetOrderByID(context.Background(), sale.OrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderStatusRefunded {
		t.Fatalf("order status = %q, want %q", order.Status, domain.OrderStatusRefunded)
	}
}

func TestRefundFullAfterPartialRefundsRemainder(t *testing.T) {
	svc, _ := newTestService()

	sale, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items: []domain.CartItem{
			{SKU: "CRT-WHT", Size: "M", Quantity: 3},
			{SKU: "TRL-BLU", Size: "M", Quantity: 1},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.InvoiceID,
		Items:     []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 1}},
	}); err != nil {
		t.Fatalf("partial refund: %v", err)
	}

	// Empty items after a partial refund covers only what is left:
	// 2x CRT-WHT (200.00) + 1x TRL-BLU (50.00).
	rest, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.InvoiceID,
	})
	if err != nil {
		t.Fatalf("refund remainder: %v", err)
	}
	if rest.TotalRefunded != 250.00 {
		t.Fatalf("refunded = %.2f, want 250.00", rest.TotalRefunded)
	}

	if got := stockOf(t, svc, "CRT-WHT", "M"); got != 8 {
		t.Fatalf("CRT-WHT/M stock = %d, want 8 (restocked)", got)
	}
	if got := stockOf(t, svc, "TRL-BLU", "M"); got != 8 {
		t.Fatalf("TRL-BLU/M stock = %d, want 8 (restocked)", got)
	}

	order, err := svc.repo.GetOrderByID(context.Background(), sale.OrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderStatusRefunded {
		t.Fatalf("order status = %q, want %q", order.Status, domain.OrderStatusRefunded)
	}
}

func TestRefundPartialThenOverRefundRejected(t *testing.T) {
	svc, _ := newTestService()

	sale, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items:         []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 3}},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	first, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.InvoiceID,
		Items:     []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	if first.TotalRefunded != 200.00 {
		t.Fatalf("refunded = %.2f, want 200.00", first.TotalRefunded)
	}

	order, err := svc.repo.GetOrderByID(context.Background(), sale.OrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("order status = %q after partial refund, want %q", order.Status, domain.OrderStatusPaid)
	}

	// Only one unit remains refundable.
	if _, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.InvoiceID,
		Items:     []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 2}},
	}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("over-refund error = %v, want validation", err)
	}

	second, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.InvoiceID,
		Items:     []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("final refund: %v", err)
	}
	if second.TotalRefunded != 100.00 {
		t.Fatalf("refunded = %.2f, want 100.00", second.TotalRefunded)
	}

	order, err = svc.repo.GetOrderByID(context.Background(), sale.OrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderStatusRefunded {
		t.Fatalf("order status = %q, want %q", order.Status, domain.OrderStatusRefunded)
	}
}

func TestRefundByTicketID(t *testing.T) {
	svc, _ := newTestService()

	sale, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items:         []domain.CartItem{{SKU: "TRL-BLU", Size: "L", Quantity: 2}},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	refund, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.TicketID,
	})
	if err != nil {
		t.Fatalf("refund by ticket: %v", err)
	}
	if refund.OrderID != sale.OrderID {
		t.Fatalf("refund order = %s, want %s", refund.OrderID, sale.OrderID)
	}
	if got := stockOf(t, svc, "TRL-BLU", "L"); got != 8 {
		t.Fatalf("TRL-BLU/L stock = %d, want 8", got)
	}
}

func TestRefundItemNotOnOrder(t *testing.T) {
	svc, _ := newTestService()

	sale, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items:         []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 2}},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	_, err = svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{
		InvoiceID: sale.InvoiceID,
		Items:     []domain.CartItem{{SKU: "TRL-BLU", Size: "M", Quantity: 1}},
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want not_found", err)
	}

	// No stock moved, order untouched.
	if got := stockOf(t, svc, "CRT-WHT", "M"); got != 6 {
		t.Fatalf("CRT-WHT/M stock = %d, want 6", got)
	}
	if got := stockOf(t, svc, "TRL-BLU", "M"); got != 8 {
		t.Fatalf("TRL-BLU/M stock = %d, want 8", got)
	}
	order, err := svc.repo.GetOrderByID(context.Background(), sale.OrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("order status = %q, want %q", order.Status, domain.OrderStatusPaid)
	}
}

func TestRefundUnknownInvoice(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{InvoiceID: "inv-missing"})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want not_found", err)
	}
}

func TestAdjustStock(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.AdjustStock(ctxAs(domain.RoleAdmin), "CRT-WHT", domain.StockAdjustRequest{Size: "M", Delta: 4})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if resp.Stock != 12 {
		t.Fatalf("stock = %d, want 12", resp.Stock)
	}

	if _, err := svc.AdjustStock(ctxAs(domain.RoleAdmin), "CRT-WHT", domain.StockAdjustRequest{Size: "M", Delta: -20}); !apperr.IsKind(err, apperr.KindInsufficientStock) {
		t.Fatalf("over-decrement error = %v, want insufficient_stock", err)
	}
	if _, err := svc.AdjustStock(ctxAs(domain.RoleAdmin), "NO-SUCH", domain.StockAdjustRequest{Size: "M", Delta: 1}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown sku error = %v, want not_found", err)
	}
	if _, err := svc.AdjustStock(ctxAs(domain.RoleCashier), "CRT-WHT", domain.StockAdjustRequest{Size: "M", Delta: 1}); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("cashier adjust error = %v, want forbidden", err)
	}
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newTestService()

	product, err := svc.CreateProduct(ctxAs(domain.RoleAdmin), domain.ProductCreateRequest{
		Name:       "Street Low",
		Brand:      "Peakline",
		PriceCents: 12000,
		Variants: []domain.VariantCreate{
			{SKU: "str-grn", Color: "green", Sizes: []domain.SizeCreate{{Label: "M", Stock: 4}}},
		},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.ID == "" {
		t.Fatalf("expected a generated product id")
	}
	if product.Variants[0].SKU != "STR-GRN" {
		t.Fatalf("sku = %q, want normalized STR-GRN", product.Variants[0].SKU)
	}

	// Duplicate sku conflicts.
	_, err = svc.CreateProduct(ctxAs(domain.RoleAdmin), domain.ProductCreateRequest{
		Name:       "Another",
		Brand:      "Peakline",
		PriceCents: 9900,
		Variants: []domain.VariantCreate{
			{SKU: "STR-GRN", Sizes: []domain.SizeCreate{{Label: "M", Stock: 1}}},
		},
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("duplicate sku error = %v, want conflict", err)
	}

	// Sale price must sit below the base price.
	badSale := int64(12000)
	_, err = svc.CreateProduct(ctxAs(domain.RoleAdmin), domain.ProductCreateRequest{
		Name:           "Over Sale",
		Brand:          "Peakline",
		PriceCents:     12000,
		SalePriceCents: &badSale,
		Variants: []domain.VariantCreate{
			{SKU: "OVR-SLE", Sizes: []domain.SizeCreate{{Label: "M", Stock: 1}}},
		},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("sale price error = %v, want validation", err)
	}
}

func TestCartLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := ctxAs(domain.RoleCustomer)

	if _, err := svc.SetCartItem(ctx, domain.CartItem{SKU: "NO-SUCH", Size: "M", Quantity: 1}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown sku error = %v, want not_found", err)
	}

	cart, err := svc.SetCartItem(ctx, domain.CartItem{SKU: "crt-wht", Size: "M", Quantity: 2})
	if err != nil {
		t.Fatalf("set cart item: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].SKU != "CRT-WHT" || cart.Items[0].Quantity != 2 {
		t.Fatalf("cart = %+v, want one CRT-WHT/M x2", cart.Items)
	}

	// Upsert replaces the quantity rather than accumulating.
	cart, err = svc.SetCartItem(ctx, domain.CartItem{SKU: "CRT-WHT", Size: "M", Quantity: 5})
	if err != nil {
		t.Fatalf("update cart item: %v", err)
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", cart.Items[0].Quantity)
	}

	cart, err = svc.RemoveCartItem(ctx, "CRT-WHT", "M")
	if err != nil {
		t.Fatalf("remove cart item: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("cart has %d items, want 0", len(cart.Items))
	}
}

func TestAddressLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := ctxAs(domain.RoleCustomer)

	created, err := svc.AddAddress(ctx, domain.AddressCreateRequest{
		Street:     "Calle Norte",
		Number:     "18",
		City:       "Saltillo",
		State:      "CO",
		PostalCode: "25000",
		Country:    "MX",
	})
	if err != nil {
		t.Fatalf("add address: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected a generated address id")
	}

	addresses, err := svc.ListAddresses(ctx)
	if err != nil {
		t.Fatalf("list addresses: %v", err)
	}
	if len(addresses) != 2 {
		t.Fatalf("address count = %d, want 2 (seeded + created)", len(addresses))
	}

	if err := svc.DeleteAddress(ctx, created.ID); err != nil {
		t.Fatalf("delete address: %v", err)
	}
	if err := svc.DeleteAddress(ctx, created.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("double delete error = %v, want not_found", err)
	}

	// A different user cannot delete the customer's seeded address.
	if err := svc.DeleteAddress(ctxAs(domain.RoleCashier), "addr-1"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("cross-user delete error = %v, want not_found", err)
	}
}

func TestOrderVisibility(t *testing.T) {
	svc, _ := newTestService()

	webSale, err := svc.CheckoutWeb(ctxAs(domain.RoleCustomer), domain.CheckoutWebRequest{
		Items:          []domain.CartItem{{SKU: "CRT-WHT", Size: "S", Quantity: 1}},
		PaymentMethod:  domain.PaymentCard,
		AddressID:      "addr-1",
		ShippingMethod: domain.ShippingStandard,
	})
	if err != nil {
		t.Fatalf("web checkout: %v", err)
	}
	posSale, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items:         []domain.CartItem{{SKU: "TRL-BLU", Size: "M", Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("pos checkout: %v", err)
	}

	customerOrders, err := svc.ListOrders(ctxAs(domain.RoleCustomer), 10)
	if err != nil {
		t.Fatalf("list customer orders: %v", err)
	}
	if len(customerOrders) != 1 || customerOrders[0].ID != webSale.OrderID {
		t.Fatalf("customer orders = %+v, want only %s", customerOrders, webSale.OrderID)
	}

	cashierOrders, err := svc.ListOrders(ctxAs(domain.RoleCashier), 10)
	if err != nil {
		t.Fatalf("list cashier orders: %v", err)
	}
	if len(cashierOrders) != 1 || cashierOrders[0].ID != posSale.OrderID {
		t.Fatalf("cashier orders = %+v, want only %s", cashierOrders, posSale.OrderID)
	}

	// The customer cannot read the POS order; the admin can.
	if _, err := svc.GetOrder(ctxAs(domain.RoleCustomer), posSale.OrderID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("cross-user order read = %v, want not_found", err)
	}
	if _, err := svc.GetOrder(ctxAs(domain.RoleAdmin), posSale.OrderID); err != nil {
		t.Fatalf("admin order read: %v", err)
	}
}

func TestOrderEventsRecorded(t *testing.T) {
	svc, _ := newTestService()

	sale, err := svc.CheckoutPos(ctxAs(domain.RoleCashier), domain.CheckoutPosRequest{
		Items:         []domain.CartItem{{SKU: "CRT-WHT", Size: "M", Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.Refund(ctxAs(domain.RoleCashier), domain.RefundRequest{InvoiceID: sale.InvoiceID}); err != nil {
		t.Fatalf("refund: %v", err)
	}

	events, err := svc.ListOrderEvents(ctxAs(domain.RoleAdmin), 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}

	if _, err := svc.ListOrderEvents(ctxAs(domain.RoleCashier), 10); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("cashier event read = %v, want forbidden", err)
	}
}

func TestListProductsSorted(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 4 {
		t.Fatalf("product count = %d, want 4", len(products))
	}
	for i := 1; i < len(products); i++ {
		if products[i-1].Name > products[i].Name {
			t.Fatalf("products not sorted by name: %q before %q", products[i-1].Name, products[i].Name)
		}
	}
}
