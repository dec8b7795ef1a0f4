package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ParsePagination extracts page and per-page parameters from query values.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	return
}

// Paginate slices items for the requested page and reports the metadata.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = len(items)
		if perPage == 0 {
			perPage = 1
		}
	}
	total := len(items)
	meta := Pagination{Page: page, PerPage: perPage, TotalItems: total, TotalPages: (total + perPage - 1) / perPage}
	start := (page - 1) * perPage
	if start >= total {
		return []T{}, meta
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return items[start:end], meta
}
