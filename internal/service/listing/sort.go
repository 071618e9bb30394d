package listing

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"foodexplorer/internal/domain"
)

type SortOption string

const (
	SortNameAsc     SortOption = "name-asc"
	SortNameDesc    SortOption = "name-desc"
	SortGradeAsc    SortOption = "grade-asc"
	SortGradeDesc   SortOption = "grade-desc"
	SortCreatedAsc  SortOption = "created-asc"
	SortCreatedDesc SortOption = "created-desc"
	SortPopularity  SortOption = "popularity"
)

var ErrInvalidSort = errors.New("unknown sort option")

var SortOptions = []SortOption{
	SortNameAsc, SortNameDesc, SortGradeAsc, SortGradeDesc,
	SortCreatedAsc, SortCreatedDesc, SortPopularity,
}

func ParseSortOption(s string) (SortOption, error) {
	for _, opt := range SortOptions {
		if string(opt) == s {
			return opt, nil
		}
	}
	return "", ErrInvalidSort
}

// Sorted returns a sorted copy of products. Popularity keeps the catalog's
// own order. Products without a grade or creation time go last in either
// direction.
func Sorted(products []domain.Product, opt SortOption) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)

	switch opt {
	case SortNameAsc, SortNameDesc:
		// Collators keep scratch buffers, so each sort gets its own.
		col := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool {
			c := col.CompareString(out[i].ProductName, out[j].ProductName)
			if opt == SortNameDesc {
				return c > 0
			}
			return c < 0
		})
	case SortGradeAsc, SortGradeDesc:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := strings.ToLower(out[i].NutritionGrades), strings.ToLower(out[j].NutritionGrades)
			if a == "" || b == "" {
				return a != "" && b == ""
			}
			if opt == SortGradeDesc {
				return a > b
			}
			return a < b
		})
	case SortCreatedAsc, SortCreatedDesc:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].CreatedT, out[j].CreatedT
			if a == 0 || b == 0 {
				return a != 0 && b == 0
			}
			if opt == SortCreatedDesc {
				return a > b
			}
			return a < b
		})
	}
	return out
}
