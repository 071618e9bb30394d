package openfoodfacts

import (
	"bytes"
	"encoding/json"
	"strconv"

	"foodexplorer/internal/domain"
)

// flexInt accepts both 3 and "3"; the public API is not consistent about it.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type wireProduct struct {
	domain.Product
	IngredientsN flexInt `json:"ingredients_n"`
	AdditivesN   flexInt `json:"additives_n"`
	NovaGroup    flexInt `json:"nova_group"`
	CreatedT     flexInt `json:"created_t"`
}

func (w wireProduct) toDomain() domain.Product {
	p := w.Product
	p.IngredientsN = int(w.IngredientsN)
	p.AdditivesN = int(w.AdditivesN)
	p.NovaGroup = int(w.NovaGroup)
	p.CreatedT = int64(w.CreatedT)
	return p
}

type searchPayload struct {
	Products []wireProduct `json:"products"`
	Count    flexInt       `json:"count"`
	Page     flexInt       `json:"page"`
	PageSize flexInt       `json:"page_size"`
}

func (s searchPayload) toDomain() domain.SearchResponse {
	out := domain.SearchResponse{
		Products: make([]domain.Product, 0, len(s.Products)),
		Count:    int(s.Count),
		Page:     int(s.Page),
		PageSize: int(s.PageSize),
	}
	for _, p := range s.Products {
		out.Products = append(out.Products, p.toDomain())
	}
	return out
}

type productPayload struct {
	Status        flexInt      `json:"status"`
	StatusVerbose string       `json:"status_verbose"`
	Product       *wireProduct `json:"product"`
}

type categoriesPayload struct {
	Tags []struct {
		ID   json.RawMessage `json:"id"`
		Name json.RawMessage `json:"name"`
	} `json:"tags"`
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
