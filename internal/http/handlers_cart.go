package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodexplorer/internal/domain"
	"foodexplorer/internal/service/checkout"
)

type cartResponse struct {
	Items      []domain.CartLine `json:"items"`
	TotalItems int               `json:"total_items"`
	Summary    checkout.Summary  `json:"summary"`
}

func (s *Server) cartView() cartResponse {
	items := s.cart.Items()
	return cartResponse{
		Items:      items,
		TotalItems: s.cart.TotalItemCount(),
		Summary:    s.pricing.Summarize(items),
	}
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cartView())
}

// A client may send the full product it is displaying, or only its code,
// in which case the product is looked up.
type addItemRequest struct {
	Product  *domain.Product `json:"product" validate:"required_without=Code"`
	Code     string          `json:"code" validate:"required_without=Product,max=64"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	var product domain.Product
	if req.Product != nil {
		product = *req.Product
	} else {
		p, err := s.products.ByBarcode(r.Context(), req.Code)
		if err != nil {
			s.writeErr(w, err, http.StatusBadGateway)
			return
		}
		product = p
	}
	if product.Code == "" {
		writeError(w, http.StatusBadRequest, "product code is required")
		return
	}

	if err := s.cart.AddToCart(r.Context(), product, req.Quantity); err != nil {
		s.writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int `json:"quantity" validate:"required"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.cart.UpdateQuantity(r.Context(), chi.URLParam(r, "code"), *req.Quantity); err != nil {
		s.writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := s.cart.RemoveFromCart(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.cart.ClearCart(r.Context()); err != nil {
		s.writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView())
}

// The store keeps orders in placement order. The history endpoint lists the
// most recent order first because that is what the order history view shows.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.cart.Orders()
	for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
		orders[i], orders[j] = orders[j], orders[i]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

var errNoCheckout = errors.New("no checkout in progress")

func (s *Server) currentFlow() (*checkout.Flow, error) {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()
	if s.flow == nil {
		return nil, errNoCheckout
	}
	return s.flow, nil
}

func (s *Server) handleCheckoutStart(w http.ResponseWriter, r *http.Request) {
	flow := checkout.NewFlow(s.cart, s.pricing, s.now, s.cfg.Location, s.logger)
	s.flowMu.Lock()
	s.flow = flow
	s.flowMu.Unlock()
	writeJSON(w, http.StatusCreated, flow.View())
}

func (s *Server) handleCheckoutView(w http.ResponseWriter, r *http.Request) {
	flow, err := s.currentFlow()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, flow.View())
}

func (s *Server) handleCheckoutProceed(w http.ResponseWriter, r *http.Request) {
	s.checkoutStep(w, func(f *checkout.Flow) error { return f.Proceed() })
}

func (s *Server) handleCheckoutBack(w http.ResponseWriter, r *http.Request) {
	s.checkoutStep(w, func(f *checkout.Flow) error { return f.Back() })
}

func (s *Server) checkoutStep(w http.ResponseWriter, step func(*checkout.Flow) error) {
	flow, err := s.currentFlow()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := step(flow); err != nil {
		s.writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, flow.View())
}

func (s *Server) handleCheckoutConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"max=254"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	flow, err := s.currentFlow()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	order, err := flow.Confirm(r.Context(), req.Email)
	if err != nil {
		s.writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order":    order,
		"checkout": flow.View(),
	})
}
