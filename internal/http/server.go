package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/integrations/catalog"
	"storefront/internal/service/checkout"
	"storefront/internal/service/coupon"
	"storefront/internal/service/listing"
	"storefront/internal/service/pricing"
	storepkg "storefront/internal/store"
)

type contextKey string

const contextKeyCustomerRef contextKey = "customer_ref"

type Server struct {
	cfg      config.Config
	store    storepkg.Store
	pricing  *pricing.Engine
	coupons  *coupon.Resolver
	checkout *checkout.Manager
	catalog  *catalog.Client
}

func NewServer(
	cfg config.Config,
	store storepkg.Store,
	pricingEngine *pricing.Engine,
	coupons *coupon.Resolver,
	checkoutManager *checkout.Manager,
	catalogClient *catalog.Client,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		pricing:  pricingEngine,
		coupons:  coupons,
		checkout: checkoutManager,
		catalog:  catalogClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(s.identity)

	r.Get("/health", s.handleHealth)

	r.Get("/catalog/products", s.handleListProducts)
	r.Get("/catalog/products/{productID}", s.handleGetProduct)

	r.Route("/carts/{cartID}", func(cart chi.Router) {
		cart.Get("/", s.handleGetCart)
		cart.Delete("/", s.handleClearCart)
		cart.Post("/items", s.handleAddItem)
		cart.Put("/items/{productID}", s.handleSetQuantity)
		cart.Delete("/items/{productID}", s.handleRemoveItem)
		cart.Post("/coupon", s.handleApplyCoupon)
	})

	r.Route("/checkout", func(co chi.Router) {
		co.Post("/", s.handleBeginCheckout)
		co.Get("/{sessionID}", s.handleCheckoutState)
		co.Post("/{sessionID}/advance", s.handleCheckoutAdvance)
		co.Post("/{sessionID}/back", s.handleCheckoutBack)
		co.Delete("/{sessionID}", s.handleCheckoutAbandon)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	q := listing.Query{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("q"),
		Sort:     listing.Sort(r.URL.Query().Get("sort")),
	}
	if raw := r.URL.Query().Get("min_price"); raw != "" {
		if v, err := decimal.NewFromString(raw); err == nil {
			q.MinPrice = &v
		}
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		if v, err := decimal.NewFromString(raw); err == nil {
			q.MaxPrice = &v
		}
	}

	filtered := listing.Apply(products, q)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": filtered,
		"count":    len(filtered),
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalog.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.store.Load(chi.URLParam(r, "cartID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCart(w, cart, r.URL.Query().Get("coupon"))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	// The catalog is the source of truth for name and price; the client
	// only chooses the product and how many.
	product, err := s.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	cart, err := s.store.Add(chi.URLParam(r, "cartID"), domain.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		ImageRef:  product.Image,
		Quantity:  req.Quantity,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCart(w, cart, "")
}

func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Quantities below one are silently ignored, matching the store contract.
	cart, err := s.store.SetQuantity(chi.URLParam(r, "cartID"), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCart(w, cart, "")
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := s.store.Remove(chi.URLParam(r, "cartID"), chi.URLParam(r, "productID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCart(w, cart, "")
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(chi.URLParam(r, "cartID")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := s.store.Load(chi.URLParam(r, "cartID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	base := s.pricing.ComputeTotals(cart.Items, domain.CouponState{})
	outcome := s.coupons.Resolve(req.Code, base)
	totals := base
	if outcome.Applied {
		totals = s.pricing.ComputeTotals(cart.Items, domain.CouponState{
			Code:           outcome.Code,
			DiscountAmount: outcome.Amount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied": outcome.Applied,
		"code":    outcome.Code,
		"amount":  outcome.Amount.Round(2),
		"totals":  totals.Rounded(),
	})
}

func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartID     string `json:"cart_id"`
		CouponCode string `json:"coupon_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CartID == "" {
		writeError(w, http.StatusBadRequest, "cart_id is required")
		return
	}

	view, err := s.checkout.Begin(req.CartID, req.CouponCode, customerRefFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCheckout(w, http.StatusCreated, view)
}

func (s *Server) handleCheckoutState(w http.ResponseWriter, r *http.Request) {
	view, err := s.checkout.View(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCheckout(w, http.StatusOK, view)
}

func (s *Server) handleCheckoutAdvance(w http.ResponseWriter, r *http.Request) {
	var form domain.CheckoutForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.checkout.Advance(r.Context(), chi.URLParam(r, "sessionID"), form)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCheckout(w, http.StatusOK, view)
}

func (s *Server) handleCheckoutBack(w http.ResponseWriter, r *http.Request) {
	view, err := s.checkout.Retreat(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeCheckout(w, http.StatusOK, view)
}

func (s *Server) handleCheckoutAbandon(w http.ResponseWriter, r *http.Request) {
	s.checkout.Abandon(chi.URLParam(r, "sessionID"))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) writeCart(w http.ResponseWriter, cart domain.Cart, couponCode string) {
	couponState := domain.CouponState{}
	body := map[string]interface{}{
		"cart_id": cart.ID,
		"items":   cart.Items,
	}
	if couponCode != "" {
		base := s.pricing.ComputeTotals(cart.Items, domain.CouponState{})
		outcome := s.coupons.Resolve(couponCode, base)
		body["coupon"] = outcome
		if outcome.Applied {
			couponState = domain.CouponState{Code: outcome.Code, DiscountAmount: outcome.Amount}
		}
	}
	body["totals"] = s.pricing.ComputeTotals(cart.Items, couponState).Rounded()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeCheckout(w http.ResponseWriter, status int, view checkout.View) {
	view.Totals = view.Totals.Rounded()
	view.Coupon.DiscountAmount = view.Coupon.DiscountAmount.Round(2)
	writeJSON(w, status, view)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	var serr *domain.SubmissionError
	if errors.As(err, &serr) {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":     serr.Error(),
			"retryable": true,
		})
		return
	}
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		writeError(w, http.StatusServiceUnavailable, "cart temporarily unavailable, please retry")
		return
	}
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":    "cart is empty",
			"redirect": "/catalog/products",
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "checkout session not found")
	case errors.Is(err, domain.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, "submission already in progress")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// identity reads an optional bearer token to derive a customer reference.
// Tokens are never issued or enforced here; an absent or unparsable token
// simply means an anonymous shopper.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" || s.cfg.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			next.ServeHTTP(w, r)
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyCustomerRef, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func customerRefFromContext(ctx context.Context) string {
	ref, _ := ctx.Value(contextKeyCustomerRef).(string)
	return ref
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
