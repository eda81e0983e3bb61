package catalog

import (
	"strings"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

// DefaultPageSize is the listing page size when none is requested.
const DefaultPageSize = 20

// Searchable exposes the text a free-text query is matched against.
type Searchable interface {
	SearchFields() []string
}

// Search keeps items with any field containing query, case-insensitively.
// A blank query returns items unchanged.
func Search[T Searchable](items []T, query string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, f := range item.SearchFields() {
			if f != "" && strings.Contains(strings.ToLower(f), q) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// FilterByType keeps bundles of type t. An empty type keeps everything.
func FilterByType(bundles []models.NormalizedBundle, t models.BundleType) []models.NormalizedBundle {
	if t == "" {
		return bundles
	}
	out := make([]models.NormalizedBundle, 0, len(bundles))
	for _, b := range bundles {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out
}

// Page is one 1-indexed page of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Paginate slices items into fixed-size pages. Out-of-range pages fall back
// to page 1 so a valid listing never comes back empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	totalPages := (total + size - 1) / size
	if page < 1 || page > totalPages {
		page = 1
	}

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page[T]{
		Items:      append(make([]T, 0, end-start), items[start:end]...),
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
