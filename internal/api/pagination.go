package api

import (
	"net/http"
	"strconv"
)

// Pagination defaults and bounds.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageParams holds a parsed page-number pagination request.
type pageParams struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the requested page.
func (p pageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// parsePageParams reads `page` and `page_size` query parameters.
// Out-of-range or malformed values fall back to defaults rather than
// erroring, so a bad query never breaks a list view.
func parsePageParams(r *http.Request) pageParams {
	p := pageParams{Page: 1, PageSize: defaultPageSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Page = v
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.PageSize = v
			if p.PageSize > maxPageSize {
				p.PageSize = maxPageSize
			}
		}
	}
	return p
}

// pagedResponse is the envelope for paginated list endpoints. Next and
// Previous carry page numbers, not URLs, and are null at the edges.
type pagedResponse struct {
	Count      int  `json:"count"`
	TotalPages int  `json:"total_pages"`
	Next       *int `json:"next"`
	Previous   *int `json:"previous"`
	Results    any  `json:"results"`
}

// newPagedResponse assembles the pagination envelope for a page of results.
// An empty collection still reports one total page so page=1 is always valid.
func newPagedResponse(total int, p pageParams, results any) pagedResponse {
	totalPages := (total + p.PageSize - 1) / p.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	resp := pagedResponse{
		Count:      total,
		TotalPages: totalPages,
		Results:    results,
	}

	if p.Page < totalPages {
		next := p.Page + 1
		resp.Next = &next
	}
	if p.Page > 1 {
		prev := p.Page - 1
		resp.Previous = &prev
	}
	return resp
}
