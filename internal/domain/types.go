package domain

import "github.com/shopspring/decimal"

// Product is the subset of an Open Food Facts product record the service reads.
// Only Code, the name fields, the image fields and Brands matter to the cart;
// everything else is carried for presentation.
type Product struct {
	Code            string      `json:"code"`
	ProductName     string      `json:"product_name,omitempty"`
	ProductNameEn   string      `json:"product_name_en,omitempty"`
	GenericName     string      `json:"generic_name,omitempty"`
	Brands          string      `json:"brands,omitempty"`
	BrandOwner      string      `json:"brand_owner,omitempty"`
	Categories      string      `json:"categories,omitempty"`
	ImageURL        string      `json:"image_url,omitempty"`
	ImageFrontURL   string      `json:"image_front_url,omitempty"`
	NutritionGrades string      `json:"nutrition_grades,omitempty"`
	IngredientsText string      `json:"ingredients_text,omitempty"`
	IngredientsN    int         `json:"ingredients_n,omitempty"`
	AdditivesN      int         `json:"additives_n,omitempty"`
	AdditivesTags   []string    `json:"additives_tags,omitempty"`
	Nutriments      *Nutriments `json:"nutriments,omitempty"`
	Labels          string      `json:"labels,omitempty"`
	Allergens       string      `json:"allergens,omitempty"`
	AllergensTags   []string    `json:"allergens_tags,omitempty"`
	Traces          string      `json:"traces,omitempty"`
	Countries       string      `json:"countries,omitempty"`
	Origins         string      `json:"origins,omitempty"`
	Packaging       string      `json:"packaging,omitempty"`
	Quantity        string      `json:"quantity,omitempty"`
	ServingSize     string      `json:"serving_size,omitempty"`
	Completeness    float64     `json:"completeness,omitempty"`
	CreatedT        int64       `json:"created_t,omitempty"`
	NovaGroup       int         `json:"nova_group,omitempty"`
	EcoscoreGrade   string      `json:"ecoscore_grade,omitempty"`
	EcoscoreScore   float64     `json:"ecoscore_score,omitempty"`
}

// Nutriments holds per-100g values.
type Nutriments struct {
	Energy        float64 `json:"energy_100g,omitempty"`
	Fat           float64 `json:"fat_100g,omitempty"`
	Carbohydrates float64 `json:"carbohydrates_100g,omitempty"`
	Sugars        float64 `json:"sugars_100g,omitempty"`
	Proteins      float64 `json:"proteins_100g,omitempty"`
	Salt          float64 `json:"salt_100g,omitempty"`
	Fiber         float64 `json:"fiber_100g,omitempty"`
	Sodium        float64 `json:"sodium_100g,omitempty"`
}

// SearchResponse is a page of catalog results.
type SearchResponse struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// CartLine is one product in the cart. Code is the identity.
type CartLine struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Quantity int    `json:"quantity"`
}

// Order is the immutable record written at checkout completion.
type Order struct {
	ID    string          `json:"id"`
	Date  string          `json:"date"`
	Time  string          `json:"time"`
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Email string          `json:"email"`
}

// CartSnapshot is the whole cart state, and also the layout of the combined
// storage blob.
type CartSnapshot struct {
	Items  []CartLine `json:"items"`
	Orders []Order    `json:"orders"`
}

// Clone returns a deep copy so callers never alias store-owned slices.
func (s CartSnapshot) Clone() CartSnapshot {
	out := CartSnapshot{
		Items:  CloneLines(s.Items),
		Orders: make([]Order, len(s.Orders)),
	}
	for i, o := range s.Orders {
		o.Items = CloneLines(o.Items)
		out.Orders[i] = o
	}
	return out
}

func CloneLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
