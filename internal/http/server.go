package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"foodexplorer/internal/config"
	"foodexplorer/internal/domain"
	"foodexplorer/internal/integrations/openfoodfacts"
	"foodexplorer/internal/logger"
	"foodexplorer/internal/service/cart"
	"foodexplorer/internal/service/checkout"
	"foodexplorer/internal/service/drawer"
	"foodexplorer/internal/service/listing"
)

// ProductLookup resolves a single product by barcode.
type ProductLookup interface {
	ByBarcode(ctx context.Context, code string) (domain.Product, error)
}

type Server struct {
	cfg      config.Config
	cart     *cart.Store
	products ProductLookup
	listing  *listing.Listing
	drawer   *drawer.Controller
	pricing  checkout.Pricing
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time

	flowMu sync.Mutex
	flow   *checkout.Flow
}

func NewServer(
	cfg config.Config,
	cartStore *cart.Store,
	products ProductLookup,
	catalogListing *listing.Listing,
	drawerCtl *drawer.Controller,
	log *zap.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		cart:     cartStore,
		products: products,
		listing:  catalogListing,
		drawer:   drawerCtl,
		pricing: checkout.Pricing{
			UnitPrice:        cfg.UnitPrice,
			TaxRate:          cfg.TaxRate,
			ShippingFee:      cfg.ShippingFee,
			FreeShippingOver: cfg.FreeShippingOver,
		},
		logger:   log.Named("http"),
		validate: newValidator(),
		now:      time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Middleware(s.logger), middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/catalog", func(c chi.Router) {
		c.Get("/categories", s.handleCategories)
		c.Get("/products/{code}", s.handleProduct)
	})

	r.Route("/listing", func(l chi.Router) {
		l.Get("/", s.handleListing)
		l.Post("/search", s.handleListingSearch)
		l.Post("/input", s.handleListingInput)
		l.Post("/category", s.handleListingCategory)
		l.Post("/more", s.handleListingMore)
		l.Post("/sort", s.handleListingSort)
	})

	r.Group(func(c chi.Router) {
		c.Use(s.requireCartReady)
		c.Get("/cart", s.handleCart)
		c.Post("/cart/items", s.handleAddItem)
		c.Put("/cart/items/{code}", s.handleUpdateItem)
		c.Delete("/cart/items/{code}", s.handleRemoveItem)
		c.Delete("/cart", s.handleClearCart)
		c.Get("/orders", s.handleOrders)

		c.Post("/checkout", s.handleCheckoutStart)
		c.Get("/checkout", s.handleCheckoutView)
		c.Post("/checkout/proceed", s.handleCheckoutProceed)
		c.Post("/checkout/back", s.handleCheckoutBack)
		c.Post("/checkout/confirm", s.handleCheckoutConfirm)
	})

	r.Get("/drawer", s.handleDrawer)
	r.Post("/drawer/open", s.handleDrawerOpen)
	r.Post("/drawer/close", s.handleDrawerClose)

	return otelhttp.NewHandler(r, "foodexplorer")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"time":       s.now().UTC().Format(time.RFC3339),
		"cart_ready": s.cart.Ready(),
	})
}

func (s *Server) requireCartReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cart.Ready() {
			writeError(w, http.StatusServiceUnavailable, cart.ErrNotReady.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps domain errors to HTTP status codes. Anything unknown gets
// fallback.
func statusFor(err error, fallback int) int {
	var httpErr *openfoodfacts.HTTPError
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrInvalidEmail),
		errors.Is(err, listing.ErrInvalidSort),
		errors.Is(err, openfoodfacts.ErrEmptyBarcode):
		return http.StatusBadRequest
	case errors.Is(err, openfoodfacts.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, listing.ErrSuperseded),
		errors.Is(err, listing.ErrLoadInProgress):
		return http.StatusConflict
	case errors.Is(err, cart.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, openfoodfacts.ErrCatalogUnavailable), errors.As(err, &httpErr):
		return http.StatusBadGateway
	default:
		return fallback
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= 500 {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, target interface{}) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
