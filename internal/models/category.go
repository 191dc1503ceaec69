package models

import (
	"slices"
	"strings"
)

// Category is one of the fixed content taxonomies a card belongs to
type Category string

const (
	CategoryHadis          Category = "Hadis"
	CategoryDua            Category = "Dua"
	CategoryProphetStories Category = "Prophet Stories"
	CategoryQuranSurah     Category = "Quran Surah"
	CategoryIslamicFacts   Category = "Islamic Facts"
)

// DefaultCategory is assigned to feed cards whose category cannot be recognised
const DefaultCategory = CategoryIslamicFacts

// Categories lists every category in display order
var Categories = []Category{
	CategoryHadis,
	CategoryDua,
	CategoryProphetStories,
	CategoryQuranSurah,
	CategoryIslamicFacts,
}

// ParseCategory maps a category name, backend slug or alias to a Category.
//
// Matching is case-insensitive. The second return value is false when the value is not a known category.
func ParseCategory(value string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "hadis", "hadith":
		return CategoryHadis, true
	case "dua":
		return CategoryDua, true
	case "prophet stories", "prophet_stories", "stories":
		return CategoryProphetStories, true
	case "quran surah", "quran_surah", "quran":
		return CategoryQuranSurah, true
	case "islamic facts", "islamic_facts", "facts":
		return CategoryIslamicFacts, true
	}
	return "", false
}

// Slug returns the backend preference slug for the category
func (c Category) Slug() string {
	switch c {
	case CategoryHadis:
		return "hadith"
	case CategoryDua:
		return "dua"
	case CategoryProphetStories:
		return "stories"
	case CategoryQuranSurah:
		return "quran_surah"
	case CategoryIslamicFacts:
		return "islamic_facts"
	}
	return ""
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	return c.Slug() != ""
}

// CategorySlugs maps categories to backend slugs, skipping unknown values
func CategorySlugs(categories []Category) []string {
	slugs := make([]string, 0, len(categories))
	for _, c := range categories {
		if slug := c.Slug(); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	return slugs
}

// ParseCategories maps backend slugs or names to categories, dropping unknown values and duplicates
func ParseCategories(values []string) []Category {
	categories := make([]Category, 0, len(values))
	for _, v := range values {
		c, ok := ParseCategory(v)
		if !ok || slices.Contains(categories, c) {
			continue
		}
		categories = append(categories, c)
	}
	return categories
}
