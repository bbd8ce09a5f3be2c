package handler

import (
	"net/http"
	"strconv"
)

// Session and history feeds page through `limit` and `offset` query
// parameters. Clients usually render one screen of past sessions at a
// time, so the default page is small.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset from the query string. Values that
// are missing, non-numeric or out of range fall back to the defaults
// rather than erroring.
func ParsePagination(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: DefaultLimit}

	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= MaxLimit {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		params.Offset = offset
	}

	return params
}
