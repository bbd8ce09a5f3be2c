package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyLimitMiddleware(t *testing.T) {
	mw := NewBodyLimitMiddleware(16)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("rejects oversized body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/messages", strings.NewReader(strings.Repeat("a", 32)))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("passes small body through", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/messages", strings.NewReader("hi"))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("zero size uses default", func(t *testing.T) {
		mw := NewBodyLimitMiddleware(0)
		assert.Equal(t, int64(DefaultMaxBodySize), mw.maxSize)
	})
}
