package listing

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"foodexplorer/internal/domain"
)

const (
	NoIngredients     = "No ingredients listed"
	NotSpecified      = "Not specified"
	BrandNotSpecified = "Brand not specified"
	UnnamedProduct    = "Unnamed Product"
)

var ingredientMarkup = strings.NewReplacer("**", "", "__", "", "*", "", "_", "")

var gradeDescriptions = map[string]string{
	"A": "Very good nutritional quality",
	"B": "Good nutritional quality",
	"C": "Average nutritional quality",
	"D": "Poor nutritional quality",
	"E": "Very poor nutritional quality",
}

// FormatCategoryName turns "en:plant-based-foods" into "Plant Based Foods".
func FormatCategoryName(category string) string {
	s := strings.ReplaceAll(category, "-", " ")
	if len(s) >= 3 && strings.EqualFold(s[:3], "en:") {
		s = s[3:]
	}
	return cases.Title(language.English, cases.NoLower).String(s)
}

// TruncateText cuts text to max runes and appends "...". Text that already
// fits is returned unchanged.
func TruncateText(text string, max int) string {
	if text == "" {
		return ""
	}
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// FormatIngredientsText strips the emphasis markers the catalog embeds in
// ingredient lists.
func FormatIngredientsText(text string) string {
	if text == "" {
		return NoIngredients
	}
	return strings.TrimSpace(ingredientMarkup.Replace(text))
}

func DisplayName(p domain.Product) string {
	switch {
	case p.ProductName != "":
		return p.ProductName
	case p.ProductNameEn != "":
		return p.ProductNameEn
	default:
		return UnnamedProduct
	}
}

func primaryCategory(p domain.Product) string {
	first, _, _ := strings.Cut(p.Categories, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return NotSpecified
	}
	return FormatCategoryName(first)
}

func GradeDescription(grade string) string {
	if d, ok := gradeDescriptions[strings.ToUpper(grade)]; ok {
		return d
	}
	return "Unknown"
}

// Card is the compact listing presentation of a product.
type Card struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Ingredients string `json:"ingredients"`
	Quantity    string `json:"quantity,omitempty"`
	Image       string `json:"image,omitempty"`
	Grade       string `json:"grade"`
}

func NewCard(p domain.Product) Card {
	ingredients := p.IngredientsText
	if ingredients == "" {
		ingredients = NoIngredients
	}
	brand := p.Brands
	if brand == "" {
		brand = BrandNotSpecified
	}
	grade := "?"
	if p.NutritionGrades != "" {
		grade = strings.ToUpper(p.NutritionGrades)
	}
	image := p.ImageURL
	if image == "" {
		image = p.ImageFrontURL
	}
	return Card{
		Code:        p.Code,
		Name:        TruncateText(DisplayName(p), 30),
		Brand:       TruncateText(brand, 25),
		Category:    primaryCategory(p),
		Ingredients: TruncateText(ingredients, 60),
		Quantity:    p.Quantity,
		Image:       image,
		Grade:       grade,
	}
}

// Detail is the full product page presentation.
type Detail struct {
	Product          domain.Product `json:"product"`
	Name             string         `json:"name"`
	Category         string         `json:"category"`
	Ingredients      string         `json:"ingredients"`
	Grade            string         `json:"grade"`
	GradeDescription string         `json:"grade_description"`
	LowGrade         bool           `json:"low_grade"`
}

func NewDetail(p domain.Product) Detail {
	grade := strings.ToUpper(p.NutritionGrades)
	if grade == "" {
		grade = "UNKNOWN"
	}
	return Detail{
		Product:          p,
		Name:             DisplayName(p),
		Category:         primaryCategory(p),
		Ingredients:      FormatIngredientsText(p.IngredientsText),
		Grade:            grade,
		GradeDescription: GradeDescription(p.NutritionGrades),
		LowGrade:         grade == "D" || grade == "E",
	}
}
