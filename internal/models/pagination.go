package models

// Page size bounds shared by list endpoints and repositories.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage defaults a missing page or size and caps size at MaxPageSize.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// NewPagination reports the window repositories actually served.
func NewPagination(page, size, total int) *Pagination {
	page, size = NormalizePage(page, size)
	return &Pagination{Page: page, PageSize: size, TotalCount: total}
}
