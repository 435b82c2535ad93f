package service

// PageRequest is a 1-based page selection. Out of range values are clamped.
type PageRequest struct {
	Page     int
	PageSize int
}

const maxPageSize = 100

func (r PageRequest) normalize(defaultSize int) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
	return r
}

func (r PageRequest) offset() int {
	return (r.Page - 1) * r.PageSize
}

type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

func newPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: req.Page, PageSize: req.PageSize}
}

func (p Page[T]) PageCount() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p Page[T]) HasPrevious() bool {
	return p.Page > 1
}

func (p Page[T]) HasNext() bool {
	return p.Page < p.PageCount()
}
