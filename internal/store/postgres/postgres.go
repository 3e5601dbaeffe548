package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"shopcore/backend/internal/apperr"
	"shopcore/backend/internal/domain"
	"shopcore/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, brand, price_cents, sale_price_cents, created_at
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	index := make(map[string]int)
	for rows.Next() {
		var p domain.Product
		var sale sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.PriceCents, &sale, &p.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		if sale.Valid {
			v := sale.Int64
			p.SalePriceCents = &v
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.attachVariants(ctx, products, index); err != nil {
		return nil, err
	}
	return products, nil
}

// attachVariants loads variants and size stock for the given products.
func (s *Store) attachVariants(ctx context.Context, products []domain.Product, index map[string]int) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	variantRows, err := s.db.QueryContext(ctx, `
		SELECT product_id, sku, color, images
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY sku
	`, ids)
	if err != nil {
		return apperr.Internal(err)
	}
	defer variantRows.Close()

	variantIdx := make(map[string]struct {
		productID  string
		variantPos int
	})
	skus := make([]string, 0, 16)
	for variantRows.Next() {
		var productID, sku string
		var color sql.NullString
		var imagesRaw []byte
		if err := variantRows.Scan(&productID, &sku, &color, &imagesRaw); err != nil {
			return apperr.Internal(err)
		}
		variant := domain.Variant{SKU: sku, Color: color.String}
		if len(imagesRaw) > 0 {
			_ = json.Unmarshal(imagesRaw, &variant.Images)
		}
		pos := index[productID]
		products[pos].Variants = append(products[pos].Variants, variant)
		variantIdx[sku] = struct {
			productID  string
			variantPos int
		}{productID, len(products[pos].Variants) - 1}
		skus = append(skus, sku)
	}
	if err := variantRows.Err(); err != nil {
		return apperr.Internal(err)
	}

	if len(skus) == 0 {
		return nil
	}
	sizeRows, err := s.db.QueryContext(ctx, `
		SELECT sku, size_label, stock
		FROM variant_sizes
		WHERE sku = ANY($1)
		ORDER BY sku, size_label
	`, skus)
	if err != nil {
		return apperr.Internal(err)
	}
	defer sizeRows.Close()

	for sizeRows.Next() {
		var sku, label string
		var stock int
		if err := sizeRows.Scan(&sku, &label, &stock); err != nil {
			return apperr.Internal(err)
		}
		ref, ok := variantIdx[sku]
		if !ok {
			continue
		}
		pos := index[ref.productID]
		products[pos].Variants[ref.variantPos].Sizes = append(
			products[pos].Variants[ref.variantPos].Sizes,
			domain.Size{Label: label, Stock: stock},
		)
	}
	return apperrFromRows(sizeRows.Err())
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	var sale sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, brand, price_cents, sale_price_cents, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Brand, &p.PriceCents, &sale, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("product %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	if sale.Valid {
		v := sale.Int64
		p.SalePriceCents = &v
	}

	products := []domain.Product{p}
	if err := s.attachVariants(ctx, products, map[string]int{p.ID: 0}); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Brand == "" || product.PriceCents < 1 || len(product.Variants) == 0 {
		return nil, apperr.Validation("product requires name, brand, positive price and at least one variant")
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	var sale any
	if product.SalePriceCents != nil {
		sale = *product.SalePriceCents
	}
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO products (id, name, brand, price_cents, sale_price_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, product.ID, product.Name, product.Brand, product.PriceCents, sale, product.CreatedAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	for _, variant := range product.Variants {
		images, _ := json.Marshal(variant.Images)
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO product_variants (product_id, sku, color, images)
			VALUES ($1,$2,$3,$4)
		`, product.ID, variant.SKU, variant.Color, images)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, apperr.Conflict("sku %s already exists", variant.SKU)
			}
			return nil, apperr.Internal(err)
		}
		for _, size := range variant.Sizes {
			_, err = pgTx.ExecContext(ctx, `
				INSERT INTO variant_sizes (sku, size_label, stock, updated_at)
				VALUES ($1,$2,$3,now())
			`, variant.SKU, size.Label, size.Stock)
			if err != nil {
				if isUniqueViolation(err) {
					return nil, apperr.Conflict("size %s duplicated for sku %s", size.Label, variant.SKU)
				}
				return nil, apperr.Internal(err)
			}
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, apperr.Internal(err)
	}

	created := product
	return &created, nil
}

func (s *Store) ResolveSKUs(ctx context.Context, skus []string) (map[string]domain.ResolvedVariant, error) {
	if len(skus) == 0 {
		return map[string]domain.ResolvedVariant{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.sku, v.color, v.images,
		       p.id, p.name, p.brand, p.price_cents, p.sale_price_cents, p.created_at
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.sku = ANY($1)
	`, skus)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	resolved := make(map[string]domain.ResolvedVariant, len(skus))
	for rows.Next() {
		var variant domain.Variant
		var color sql.NullString
		var imagesRaw []byte
		var p domain.Product
		var sale sql.NullInt64
		if err := rows.Scan(&variant.SKU, &color, &imagesRaw,
			&p.ID, &p.Name, &p.Brand, &p.PriceCents, &sale, &p.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		variant.Color = color.String
		if len(imagesRaw) > 0 {
			_ = json.Unmarshal(imagesRaw, &variant.Images)
		}
		if sale.Valid {
			v := sale.Int64
			p.SalePriceCents = &v
		}
		resolved[variant.SKU] = domain.ResolvedVariant{Product: p, Variant: variant}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return resolved, nil
}

func (s *Store) AdjustStock(ctx context.Context, sku string, size string, delta int) (int, error) {
	var newStock int
	var err error
	if delta >= 0 {
		err = s.db.QueryRowContext(ctx, `
			UPDATE variant_sizes
			SET stock = stock + $3, updated_at = now()
			WHERE sku = $1 AND size_label = $2
			RETURNING stock
		`, sku, size, delta).Scan(&newStock)
	} else {
		err = s.db.QueryRowContext(ctx, `
			UPDATE variant_sizes
			SET stock = stock + $3, updated_at = now()
			WHERE sku = $1 AND size_label = $2 AND stock >= -$3
			RETURNING stock
		`, sku, size, delta).Scan(&newStock)
	}
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.Internal(err)
	}

	exists, checkErr := s.sizeExists(ctx, s.db, sku, size)
	if checkErr != nil {
		return 0, checkErr
	}
	if !exists {
		return 0, apperr.NotFoundSKU(sku, size)
	}
	return 0, apperr.InsufficientStock(sku, size)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) sizeExists(ctx context.Context, q queryer, sku string, size string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM variant_sizes WHERE sku = $1 AND size_label = $2
	`, sku, size).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal(err)
	}
	return true, nil
}

// reserveLine performs the conditional decrement inside the checkout
// transaction. Zero affected rows triggers an existence check so the
// caller gets the right error kind for the offending sku/size.
func (s *Store) reserveLine(ctx context.Context, pgTx *sql.Tx, sku string, size string, qty int) error {
	res, err := pgTx.ExecContext(ctx, `
		UPDATE variant_sizes
		SET stock = stock - $3, updated_at = now()
		WHERE sku = $1 AND size_label = $2 AND stock >= $3
	`, sku, size, qty)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := s.sizeExists(ctx, pgTx, sku, size)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFoundSKU(sku, size)
	}
	return apperr.InsufficientStock(sku, size)
}

func (s *Store) releaseLine(ctx context.Context, pgTx *sql.Tx, sku string, size string, qty int) error {
	_, err := pgTx.ExecContext(ctx, `
		INSERT INTO variant_sizes (sku, size_label, stock, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (sku, size_label)
		DO UPDATE SET stock = variant_sizes.stock + EXCLUDED.stock, updated_at = now()
	`, sku, size, qty)
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order, invoice domain.Invoice, ticket *domain.Ticket) error {
	if order.ID == "" || invoice.ID == "" || len(order.Lines) == 0 {
		return apperr.Validation("order, invoice and at least one line are required")
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return apperr.Internal(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	// Lines are processed in request order; duplicate sku/size pairs are
	// independent decrements, each one re-evaluated against remaining stock.
	for _, line := range order.Lines {
		if err := s.reserveLine(ctx, pgTx, line.SKU, line.Size, line.Quantity); err != nil {
			return err
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, payment_method, address_id, shipping_method, sale_origin,
			subtotal_cents, tax_cents, shipping_cents, total_cents,
			status, created_by_role, cashier_id, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, order.ID, nullIfEmpty(order.UserID), order.PaymentMethod, nullIfEmpty(order.AddressID),
		nullIfEmpty(order.ShippingMethod), nullIfEmpty(order.SaleOrigin),
		order.SubtotalCents, order.TaxCents, order.ShippingCents, order.TotalCents,
		order.Status, order.CreatedByRole, nullIfEmpty(order.CashierID), order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("order %s already exists", order.ID)
		}
		return apperr.Internal(err)
	}

	for lineNo, line := range order.Lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_no, sku, size_label, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, order.ID, lineNo, line.SKU, line.Size, line.Quantity, line.UnitPriceCents)
		if err != nil {
			return apperr.Internal(err)
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO invoices (id, order_id, subtotal_cents, tax_cents, shipping_cents, total_cents, payment_method, issued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, invoice.ID, invoice.OrderID, invoice.SubtotalCents, invoice.TaxCents,
		invoice.ShippingCents, invoice.TotalCents, invoice.PaymentMethod, invoice.IssuedAt)
	if err != nil {
		return apperr.Internal(err)
	}

	if ticket != nil {
		lines, _ := json.Marshal(ticket.Lines)
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO tickets (
				id, order_id, invoice_id, cashier_id, sale_origin, lines,
				subtotal_cents, tax_cents, total_cents, payment_method, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, ticket.ID, ticket.OrderID, ticket.InvoiceID, ticket.CashierID, ticket.SaleOrigin,
			lines, ticket.SubtotalCents, ticket.TaxCents, ticket.TotalCents,
			ticket.PaymentMethod, ticket.CreatedAt)
		if err != nil {
			return apperr.Internal(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var userID, addressID, shippingMethod, saleOrigin, cashierID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, payment_method, address_id, shipping_method, sale_origin,
		       subtotal_cents, tax_cents, shipping_cents, total_cents,
		       status, created_by_role, cashier_id, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &userID, &order.PaymentMethod, &addressID, &shippingMethod, &saleOrigin,
		&order.SubtotalCents, &order.TaxCents, &order.ShippingCents, &order.TotalCents,
		&order.Status, &order.CreatedByRole, &cashierID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	order.UserID = userID.String
	order.AddressID = addressID.String
	order.ShippingMethod = shippingMethod.String
	order.SaleOrigin = saleOrigin.String
	order.CashierID = cashierID.String

	lines, err := s.orderLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (s *Store) orderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, size_label, qty, unit_price_cents
		FROM order_lines
		WHERE order_id = $1
		ORDER BY line_no
	`, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0, 8)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.SKU, &line.Size, &line.Quantity, &line.UnitPriceCents); err != nil {
			return nil, apperr.Internal(err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return lines, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	return s.listOrders(ctx, `user_id = $1`, userID, limit)
}

func (s *Store) ListOrdersByCashier(ctx context.Context, cashierID string, limit int) ([]domain.Order, error) {
	return s.listOrders(ctx, `cashier_id = $1`, cashierID, limit)
}

func (s *Store) listOrders(ctx context.Context, where string, arg string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, payment_method, address_id, shipping_method, sale_origin,
		       subtotal_cents, tax_cents, shipping_cents, total_cents,
		       status, created_by_role, cashier_id, created_at
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $2
	`, where), arg, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		var order domain.Order
		var uid, addressID, shippingMethod, saleOrigin, cashierID sql.NullString
		if err := rows.Scan(&order.ID, &uid, &order.PaymentMethod, &addressID, &shippingMethod, &saleOrigin,
			&order.SubtotalCents, &order.TaxCents, &order.ShippingCents, &order.TotalCents,
			&order.Status, &order.CreatedByRole, &cashierID, &order.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		order.UserID = uid.String
		order.AddressID = addressID.String
		order.ShippingMethod = shippingMethod.String
		order.SaleOrigin = saleOrigin.String
		order.CashierID = cashierID.String
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}

	for i := range orders {
		lines, err := s.orderLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (s *Store) GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, subtotal_cents, tax_cents, shipping_cents, total_cents, payment_method, issued_at
		FROM invoices
		WHERE id = $1
	`, id).Scan(&invoice.ID, &invoice.OrderID, &invoice.SubtotalCents, &invoice.TaxCents,
		&invoice.ShippingCents, &invoice.TotalCents, &invoice.PaymentMethod, &invoice.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("invoice %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return &invoice, nil
}

func (s *Store) GetTicketByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var linesRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, invoice_id, cashier_id, sale_origin, lines,
		       subtotal_cents, tax_cents, total_cents, payment_method, created_at
		FROM tickets
		WHERE id = $1
	`, id).Scan(&ticket.ID, &ticket.OrderID, &ticket.InvoiceID, &ticket.CashierID, &ticket.SaleOrigin,
		&linesRaw, &ticket.SubtotalCents, &ticket.TaxCents, &ticket.TotalCents,
		&ticket.PaymentMethod, &ticket.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("ticket %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	if len(linesRaw) > 0 {
		_ = json.Unmarshal(linesRaw, &ticket.Lines)
	}
	return &ticket, nil
}

func (s *Store) GetRefundedQtyByOrder(ctx context.Context, orderID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rl.sku, rl.size_label, COALESCE(SUM(rl.qty), 0)
		FROM refund_lines rl
		JOIN refunds r ON r.id = rl.refund_id
		WHERE r.order_id = $1
		GROUP BY rl.sku, rl.size_label
	`, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	refunded := make(map[string]int)
	for rows.Next() {
		var sku, size string
		var qty int
		if err := rows.Scan(&sku, &size, &qty); err != nil {
			return nil, apperr.Internal(err)
		}
		refunded[lineKey(sku, size)] = qty
	}
	return refunded, apperrFromRows(rows.Err())
}

func (s *Store) CreateRefund(ctx context.Context, refund domain.Refund) (*domain.Refund, error) {
	if refund.OrderID == "" || len(refund.Lines) == 0 {
		return nil, apperr.Validation("refund requires an order and at least one line")
	}
	if refund.ID == "" {
		refund.ID = xid.New("refund")
	}
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	var orderStatus string
	err = pgTx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, refund.OrderID).Scan(&orderStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order %s not found", refund.OrderID)
		}
		return nil, apperr.Internal(err)
	}

	orderedQty := make(map[string]int)
	lineRows, err := pgTx.QueryContext(ctx, `
		SELECT sku, size_label, qty FROM order_lines WHERE order_id = $1
	`, refund.OrderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for lineRows.Next() {
		var sku, size string
		var qty int
		if err := lineRows.Scan(&sku, &size, &qty); err != nil {
			_ = lineRows.Close()
			return nil, apperr.Internal(err)
		}
		orderedQty[lineKey(sku, size)] += qty
	}
	if err := lineRows.Err(); err != nil {
		_ = lineRows.Close()
		return nil, apperr.Internal(err)
	}
	_ = lineRows.Close()

	refundedQty := make(map[string]int)
	refundedRows, err := pgTx.QueryContext(ctx, `
		SELECT rl.sku, rl.size_label, COALESCE(SUM(rl.qty), 0)
		FROM refund_lines rl
		JOIN refunds r ON r.id = rl.refund_id
		WHERE r.order_id = $1
		GROUP BY rl.sku, rl.size_label
	`, refund.OrderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for refundedRows.Next() {
		var sku, size string
		var qty int
		if err := refundedRows.Scan(&sku, &size, &qty); err != nil {
			_ = refundedRows.Close()
			return nil, apperr.Internal(err)
		}
		refundedQty[lineKey(sku, size)] = qty
	}
	if err := refundedRows.Err(); err != nil {
		_ = refundedRows.Close()
		return nil, apperr.Internal(err)
	}
	_ = refundedRows.Close()

	for _, line := range refund.Lines {
		key := lineKey(line.SKU, line.Size)
		ordered, ok := orderedQty[key]
		if !ok {
			return nil, apperr.NotFoundSKU(line.SKU, line.Size)
		}
		if refundedQty[key]+line.Quantity > ordered {
			return nil, apperr.Validation("refund quantity for sku %s size %s exceeds ordered quantity", line.SKU, line.Size)
		}
	}

	for _, line := range refund.Lines {
		if err := s.releaseLine(ctx, pgTx, line.SKU, line.Size, line.Quantity); err != nil {
			return nil, err
		}
		refundedQty[lineKey(line.SKU, line.Size)] += line.Quantity
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO refunds (id, order_id, invoice_id, cashier_id, total_refunded_cents, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, refund.ID, refund.OrderID, refund.InvoiceID, refund.CashierID,
		refund.TotalRefundedCents, refund.Reason, refund.CreatedAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, line := range refund.Lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO refund_lines (refund_id, sku, size_label, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, refund.ID, line.SKU, line.Size, line.Quantity, line.UnitPriceCents)
		if err != nil {
			return nil, apperr.Internal(err)
		}
	}

	fullyRefunded := true
	for key, ordered := range orderedQty {
		if refundedQty[key] < ordered {
			fullyRefunded = false
			break
		}
	}
	if fullyRefunded && orderStatus != domain.OrderStatusRefunded {
		_, err = pgTx.ExecContext(ctx, `
			UPDATE orders SET status = $2 WHERE id = $1
		`, refund.OrderID, domain.OrderStatusRefunded)
		if err != nil {
			return nil, apperr.Internal(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, apperr.Internal(err)
	}
	return &refund, nil
}

func (s *Store) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, street, number, city, state, postal_code, country
		FROM addresses
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	addresses := make([]domain.Address, 0, 4)
	for rows.Next() {
		var addr domain.Address
		var number, country sql.NullString
		if err := rows.Scan(&addr.ID, &addr.UserID, &addr.Street, &number, &addr.City,
			&addr.State, &addr.PostalCode, &country); err != nil {
			return nil, apperr.Internal(err)
		}
		addr.Number = number.String
		addr.Country = country.String
		addresses = append(addresses, addr)
	}
	return addresses, apperrFromRows(rows.Err())
}

func (s *Store) GetAddress(ctx context.Context, userID string, addressID string) (*domain.Address, error) {
	var addr domain.Address
	var number, country sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, street, number, city, state, postal_code, country
		FROM addresses
		WHERE user_id = $1 AND id = $2
	`, userID, addressID).Scan(&addr.ID, &addr.UserID, &addr.Street, &number, &addr.City,
		&addr.State, &addr.PostalCode, &country)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("address %s not found", addressID)
		}
		return nil, apperr.Internal(err)
	}
	addr.Number = number.String
	addr.Country = country.String
	return &addr, nil
}

func (s *Store) CreateAddress(ctx context.Context, address domain.Address) (*domain.Address, error) {
	if address.UserID == "" {
		return nil, apperr.Validation("address requires a user")
	}
	if address.ID == "" {
		address.ID = xid.New("addr")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (id, user_id, street, number, city, state, postal_code, country)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, address.ID, address.UserID, address.Street, nullIfEmpty(address.Number),
		address.City, address.State, address.PostalCode, nullIfEmpty(address.Country))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	created := address
	return &created, nil
}

func (s *Store) DeleteAddress(ctx context.Context, userID string, addressID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM addresses WHERE user_id = $1 AND id = $2
	`, userID, addressID)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("address %s not found", addressID)
	}
	return nil
}

func (s *Store) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, size_label, qty
		FROM cart_items
		WHERE user_id = $1
		ORDER BY sku, size_label
	`, userID)
	if err != nil {
		return domain.Cart{}, apperr.Internal(err)
	}
	defer rows.Close()

	cart := domain.Cart{UserID: userID, Items: make([]domain.CartItem, 0, 8)}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.SKU, &item.Size, &item.Quantity); err != nil {
			return domain.Cart{}, apperr.Internal(err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, apperr.Internal(err)
	}
	return cart, nil
}

func (s *Store) UpsertCartItem(ctx context.Context, userID string, item domain.CartItem) (domain.Cart, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, sku, size_label, qty)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, sku, size_label)
		DO UPDATE SET qty = EXCLUDED.qty
	`, userID, item.SKU, item.Size, item.Quantity)
	if err != nil {
		return domain.Cart{}, apperr.Internal(err)
	}
	return s.GetCart(ctx, userID)
}

func (s *Store) RemoveCartItem(ctx context.Context, userID string, sku string, size string) (domain.Cart, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE user_id = $1 AND sku = $2 AND size_label = $3
	`, userID, sku, size)
	if err != nil {
		return domain.Cart{}, apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Cart{}, apperr.Internal(err)
	}
	if affected == 0 {
		return domain.Cart{}, apperr.NotFound("cart item %s/%s not found", sku, size)
	}
	return s.GetCart(ctx, userID)
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Store) CreateOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	if event.ID == "" {
		event.ID = xid.New("evt")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_events (id, actor, action, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, event.ID, event.Actor, event.Action, event.EntityID, event.Detail, event.CreatedAt)
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Store) ListOrderEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, entity_id, detail, created_at
		FROM order_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	events := make([]domain.OrderEvent, 0, limit)
	for rows.Next() {
		var event domain.OrderEvent
		if err := rows.Scan(&event.ID, &event.Actor, &event.Action, &event.EntityID, &event.Detail, &event.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		events = append(events, event)
	}
	return events, apperrFromRows(rows.Err())
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		users = append(users, user)
	}
	return users, apperrFromRows(rows.Err())
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("user %s not found", username)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func lineKey(sku string, size string) string {
	return fmt.Sprintf("%s|%s", sku, size)
}

func apperrFromRows(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Internal(err)
}
