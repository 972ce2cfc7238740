package domain

// DefaultPageSize is the page size when none is specified.
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed page size.
const MaxPageSize = 100

// PageRequest holds pagination and search parameters for list operations.
// Search matches username, display name, and email by case-insensitive
// substring.
type PageRequest struct {
	Page     int
	PageSize int
	Search   string
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	if p.PageSize <= 0 || p.PageSize > MaxPageSize {
		return DefaultPageSize
	}
	return p.PageSize
}

// Offset returns the row offset for the requested page (1-based pages).
func (p PageRequest) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}

// ListResult is a paginated list of items with the total match count.
type ListResult[T any] struct {
	Items []*T  `json:"items"`
	Total int64 `json:"total"`
}
