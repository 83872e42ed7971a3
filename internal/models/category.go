package models

import "strings"

const (
	CategoryGeneral       = "general"
	CategoryBusiness      = "business"
	CategoryTechnology    = "technology"
	CategoryScience       = "science"
	CategoryHealth        = "health"
	CategorySports        = "sports"
	CategoryEntertainment = "entertainment"
	CategoryLifestyle     = "lifestyle"

	CategoryBreaking = "BREAKING"
)

// Categories - фиксированный словарь категорий в порядке отображения.
var Categories = []string{
	CategoryGeneral,
	CategoryBusiness,
	CategoryTechnology,
	CategoryScience,
	CategoryHealth,
	CategorySports,
	CategoryEntertainment,
	CategoryLifestyle,
}

// SectionCategories отображает разделы провайдеров на словарь категорий.
var SectionCategories = map[string]string{
	"home":        CategoryGeneral,
	"world":       CategoryGeneral,
	"us":          CategoryGeneral,
	"politics":    CategoryGeneral,
	"nyregion":    CategoryGeneral,
	"opinion":     CategoryGeneral,
	"upshot":      CategoryGeneral,
	"obituaries":  CategoryGeneral,
	"business":    CategoryBusiness,
	"realestate":  CategoryBusiness,
	"automobiles": CategoryBusiness,
	"your-money":  CategoryBusiness,
	"technology":  CategoryTechnology,
	"science":     CategoryScience,
	"climate":     CategoryScience,
	"health":      CategoryHealth,
	"well":        CategoryHealth,
	"sports":      CategorySports,
	"arts":        CategoryEntertainment,
	"movies":      CategoryEntertainment,
	"theater":     CategoryEntertainment,
	"television":  CategoryEntertainment,
	"books":       CategoryEntertainment,
	"t-magazine":  CategoryLifestyle,
	"style":       CategoryLifestyle,
	"fashion":     CategoryLifestyle,
	"food":        CategoryLifestyle,
	"travel":      CategoryLifestyle,
	"magazine":    CategoryLifestyle,
}

// NormalizeCategory переводит произвольный раздел в словарь категорий.
// BREAKING сохраняется, неизвестные значения становятся general.
func NormalizeCategory(raw string) string {
	if strings.TrimSpace(raw) == CategoryBreaking {
		return CategoryBreaking
	}
	key := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := SectionCategories[key]; ok {
		return c
	}
	if IsCategory(key) {
		return key
	}
	return CategoryGeneral
}

// IsCategory проверяет принадлежность значения словарю (без BREAKING).
func IsCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// SectionFor возвращает раздел NYT для категории.
func SectionFor(category string) string {
	switch category {
	case CategoryGeneral, "":
		return "home"
	case CategoryEntertainment:
		return "arts"
	case CategoryLifestyle:
		return "style"
	default:
		return category
	}
}
