package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodexplorer/internal/service/listing"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.listing.View().Categories
	if len(cats) == 0 {
		cats = s.listing.LoadCategories(r.Context())
	}
	items := make([]map[string]string, 0, len(cats))
	for _, c := range cats {
		items = append(items, map[string]string{"id": c, "name": listing.FormatCategoryName(c)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": items})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.ByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, listing.NewDetail(p))
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.listing.View())
}

type termRequest struct {
	Term string `json:"term" validate:"max=200"`
}

func (s *Server) handleListingSearch(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.listing.Search(r.Context(), req.Term); err != nil {
		s.writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, s.listing.View())
}

func (s *Server) handleListingInput(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.listing.Input(req.Term)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) handleListingCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category" validate:"max=200"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.listing.SelectCategory(r.Context(), req.Category); err != nil {
		s.writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, s.listing.View())
}

func (s *Server) handleListingMore(w http.ResponseWriter, r *http.Request) {
	if err := s.listing.LoadMore(r.Context()); err != nil {
		s.writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, s.listing.View())
}

func (s *Server) handleListingSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sort string `json:"sort" validate:"required,oneof=name-asc name-desc grade-asc grade-desc created-asc created-desc popularity"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.listing.SetSort(listing.SortOption(req.Sort)); err != nil {
		s.writeErr(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.listing.View())
}

func (s *Server) handleDrawer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"open": s.drawer.IsOpen()})
}

func (s *Server) handleDrawerOpen(w http.ResponseWriter, r *http.Request) {
	s.drawer.Open()
	writeJSON(w, http.StatusOK, map[string]bool{"open": s.drawer.IsOpen()})
}

func (s *Server) handleDrawerClose(w http.ResponseWriter, r *http.Request) {
	s.drawer.Close()
	writeJSON(w, http.StatusOK, map[string]bool{"open": s.drawer.IsOpen()})
}
