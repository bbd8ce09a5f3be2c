package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		limit  int
		offset int
	}{
		{"defaults when absent", "/urge-sessions", DefaultLimit, 0},
		{"explicit values", "/urge-sessions?limit=5&offset=10", 5, 10},
		{"limit above max falls back", "/urge-sessions?limit=500", DefaultLimit, 0},
		{"garbage falls back", "/urge-sessions?limit=abc&offset=-3", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := ParsePagination(httptest.NewRequest("GET", tt.url, nil))
			assert.Equal(t, tt.limit, params.Limit)
			assert.Equal(t, tt.offset, params.Offset)
		})
	}
}
