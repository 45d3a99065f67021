// Package pagination windows an ordered listing into fixed-size pages.
package pagination

// DefaultPageSize is the number of items shown per page of a trophy listing.
const DefaultPageSize = 10

// Paginate returns the items of the 1-based page and the total number of
// pages. A page outside [1, totalPages] yields an empty window; totalPages is
// still reported. A non-positive pageSize yields no window and no pages.
func Paginate[T any](items []T, page, pageSize int) ([]T, int) {
	if pageSize <= 0 {
		return []T{}, 0
	}

	count := len(items)
	totalPages := (count + pageSize - 1) / pageSize

	if page < 1 || page > totalPages {
		return []T{}, totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, count)
	return items[start:end], totalPages
}

// Page is one window of a listing together with what navigation it allows.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// New windows items like Paginate and keeps the navigation metadata.
func New[T any](items []T, page, pageSize int) Page[T] {
	window, total := Paginate(items, page, pageSize)
	return Page[T]{
		Items:      window,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: total,
		TotalItems: len(items),
	}
}

// HasPrev reports whether a previous page exists. It is false on page 1.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a following page exists. It is false on the last page.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}
