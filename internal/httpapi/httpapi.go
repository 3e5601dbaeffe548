package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"shopcore/backend/internal/apperr"
	"shopcore/backend/internal/domain"
	"shopcore/backend/internal/service"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/healthz", a.handleHealth)
	mux.HandleFunc("/api/auth/login", a.handleLogin)

	mux.HandleFunc("/api/products", a.handleProducts)
	mux.HandleFunc("/api/products/", a.handleProductByID)
	mux.HandleFunc("/api/inventory/", a.requireAuth(a.handleInventoryAdjust, domain.RoleAdmin))

	mux.HandleFunc("/api/addresses", a.requireAuth(a.handleAddresses, domain.RoleCustomer))
	mux.HandleFunc("/api/addresses/", a.requireAuth(a.handleAddressByID, domain.RoleCustomer))

	mux.HandleFunc("/api/cart", a.requireAuth(a.handleCart, domain.RoleCustomer))
	mux.HandleFunc("/api/cart/items", a.requireAuth(a.handleCartItems, domain.RoleCustomer))
	mux.HandleFunc("/api/cart/items/", a.requireAuth(a.handleCartItemActions, domain.RoleCustomer))

	mux.HandleFunc("/api/checkout", a.requireAuth(a.handleCheckout, domain.RoleCustomer, domain.RoleCashier))
	mux.HandleFunc("/api/pos/checkout", a.requireAuth(a.handlePosCheckout, domain.RoleCashier))
	mux.HandleFunc("/api/pos/refunds", a.requireAuth(a.handleRefunds, domain.RoleCashier))

	mux.HandleFunc("/api/orders", a.requireAuth(a.handleOrders))
	mux.HandleFunc("/api/orders/", a.requireAuth(a.handleOrderByID))
	mux.HandleFunc("/api/order-events", a.requireAuth(a.handleOrderEvents, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, apperr.Forbidden("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) authenticate(r *http.Request) (domain.Actor, error) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return domain.Actor{}, apperr.Unauthorized("missing bearer token")
	}
	token := strings.TrimSpace(authorization[len("Bearer "):])
	return a.auth.ParseToken(token)
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeStatusError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// The catalog is public: no token required for browsing.
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		actor, err := a.authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if actor.Role != domain.RoleAdmin {
			writeError(w, apperr.Forbidden("forbidden role"))
			return
		}

		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, apperr.Validation("invalid request body: %v", err))
			return
		}

		product, err := a.service.CreateProduct(service.WithActor(r.Context(), actor), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, apperr.NotFound("product not found"))
		return
	}

	product, err := a.service.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

// handleInventoryAdjust serves POST /api/inventory/{sku}/adjust.
func (a *API) handleInventoryAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/inventory/")
	sku, action, found := strings.Cut(rest, "/")
	if !found || sku == "" || action != "adjust" {
		writeError(w, apperr.NotFound("not found"))
		return
	}

	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := a.service.AdjustStock(r.Context(), sku, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAddresses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		addresses, err := a.service.ListAddresses(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"addresses": addresses})
	case http.MethodPost:
		var req domain.AddressCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, apperr.Validation("invalid request body: %v", err))
			return
		}
		address, err := a.service.AddAddress(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"address": address})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAddressByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/addresses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, apperr.NotFound("address not found"))
		return
	}

	if err := a.service.DeleteAddress(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	cart, err := a.service.GetCart(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var item domain.CartItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	cart, err := a.service.SetCartItem(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// handleCartItemActions serves PUT and DELETE on /api/cart/items/{sku}/{size}.
func (a *API) handleCartItemActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/cart/items/")
	sku, size, found := strings.Cut(rest, "/")
	if !found || sku == "" || size == "" || strings.Contains(size, "/") {
		writeError(w, apperr.NotFound("cart item not found"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var body struct {
			Quantity int `json:"quantity"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, apperr.Validation("invalid request body: %v", err))
			return
		}
		cart, err := a.service.SetCartItem(r.Context(), domain.CartItem{SKU: sku, Size: size, Quantity: body.Quantity})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)
	case http.MethodDelete:
		cart, err := a.service.RemoveCartItem(r.Context(), sku, size)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CheckoutWebRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := a.service.CheckoutWeb(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handlePosCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CheckoutPosRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := a.service.CheckoutPos(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleRefunds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.RefundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := a.service.Refund(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	orders, err := a.service.ListOrders(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, apperr.NotFound("order not found"))
		return
	}

	order, err := a.service.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (a *API) handleOrderEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	events, err := a.service.ListOrderEvents(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindInsufficientStock: http.StatusConflict,
	apperr.KindInternal:          http.StatusInternalServerError,
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
	SKU     string      `json:"sku,omitempty"`
	Size    string      `json:"size,omitempty"`
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeStatusError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeError maps an error's classification to an HTTP status. 5xx
// responses carry a generic message so internal details never reach
// clients; the original error goes to the server log.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := errorBody{
		Kind:    appErr.Kind,
		Message: appErr.Message,
		SKU:     appErr.SKU,
		Size:    appErr.Size,
	}
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		body.Message = "internal server error"
		body.SKU = ""
		body.Size = ""
	}
	writeJSON(w, status, map[string]any{"error": body})
}

func writeStatusError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": errorBody{Kind: apperr.KindValidation, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
