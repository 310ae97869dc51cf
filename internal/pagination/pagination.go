// Package pagination slices fully materialized result sets. Aggregators
// assemble and sort their complete candidate set first, then call
// Paginate; the helper never touches storage.
package pagination

import "fmt"

// Defaults and caps shared by every paginated query surface.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Meta describes one page of a larger result set. Total always reflects
// the full set before slicing.
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Validate rejects out-of-range page parameters before any storage work.
func Validate(page, pageSize int) error {
	if page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", page)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return fmt.Errorf("pageSize must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}
	return nil
}

// NewMeta builds pagination metadata for a set of total items.
func NewMeta(page, pageSize, total int) Meta {
	totalPages := (total + pageSize - 1) / pageSize
	return Meta{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// Paginate returns the requested page of items plus metadata. Pages past
// the end yield an empty slice while Total stays accurate.
func Paginate[T any](items []T, page, pageSize int) ([]T, Meta) {
	meta := NewMeta(page, pageSize, len(items))

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, meta
	}

	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
