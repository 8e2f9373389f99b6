package domain

// Trip listings page with these limits.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PaginationParams is a resolved page request. Page is 1-based and Limit is
// always within [1, MaxPageLimit].
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams resolves the optional page and limit query values.
// Missing or non-positive values take the defaults; a limit above
// MaxPageLimit is clamped rather than rejected.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page > 0 {
		p.Page = *page
	}
	if limit != nil && *limit > 0 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset is the number of rows to skip.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages is how many pages total matching rows fill at this limit.
func (p PaginationParams) TotalPages(total int64) int64 {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return (total + int64(p.Limit) - 1) / int64(p.Limit)
}
