// Package pagination turns page/limit query parameters into a skip/limit
// window and reports page counts for a total.
package pagination

import (
	"math"
	"strconv"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/model"
)

// Defaults applied when a parameter is absent from the query string.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Page is a validated listing window.
type Page struct {
	Number int64 // 1-based page number as requested
	Limit  int64 // Page size, always > 0
	Skip   int64 // (Number-1)*Limit
}

// Parse validates raw page and limit parameters.
// An empty value takes its default; anything else must be a base-10 integer
// greater than zero. There is no upper bound on either value.
func Parse(pageParam, limitParam string) (Page, error) {
	page, ok := parsePositive(pageParam, DefaultPage)
	if !ok {
		return Page{}, errordefs.New(errordefs.VS_VALIDATION, "Page number must be a positive integer.")
	}
	limit, ok := parsePositive(limitParam, DefaultLimit)
	if !ok {
		return Page{}, errordefs.New(errordefs.VS_VALIDATION, "Limit number must be a positive integer.")
	}
	if page-1 > math.MaxInt64/limit {
		return Page{}, errordefs.New(errordefs.VS_VALIDATION, "Page number must be a positive integer.")
	}
	return Page{Number: page, Limit: limit, Skip: (page - 1) * limit}, nil
}

func parsePositive(raw string, def int64) (int64, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// TotalPages returns ceil(total/limit), 0 when total is 0.
func (p Page) TotalPages(total int64) int64 {
	if total <= 0 {
		return 0
	}
	pages := total / p.Limit
	if total%p.Limit != 0 {
		pages++
	}
	return pages
}

// Result builds the pagination block for a listing of total items.
func (p Page) Result(total int64) model.Pagination {
	return model.Pagination{CurrentPage: p.Number, TotalPages: p.TotalPages(total)}
}

// Query converts the window to a store query.
func (p Page) Query() model.ListQuery {
	return model.ListQuery{Skip: p.Skip, Limit: p.Limit}
}
