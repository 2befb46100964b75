// Package listing filters and sorts catalog product lists for display.
package listing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceLow  Sort = "price-low"
	SortPriceHigh Sort = "price-high"
	SortNameAsc   Sort = "name-asc"
	SortNameDesc  Sort = "name-desc"
)

type Query struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	Sort     Sort
}

// Apply filters then sorts the list. The input slice is not modified.
func Apply(products []domain.Product, q Query) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, q) {
			out = append(out, p)
		}
	}

	switch q.Sort {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[j].Price.LessThan(out[i].Price) })
	case SortNameAsc:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	case SortNameDesc:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[j].Name) < strings.ToLower(out[i].Name) })
	default:
		// Newest first.
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

func matches(p domain.Product, q Query) bool {
	if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
		return false
	}
	if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}
