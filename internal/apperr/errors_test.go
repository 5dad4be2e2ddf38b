package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		category Category
		want     int
	}{
		{CategoryValidation, http.StatusBadRequest},
		{CategoryPolicy, http.StatusForbidden},
		{CategoryContent, http.StatusForbidden},
		{CategoryQuota, http.StatusTooManyRequests},
		{CategoryUpstream, http.StatusInternalServerError},
		{CategoryUnavailable, http.StatusInternalServerError},
		{CategoryInternal, http.StatusInternalServerError},
		{Category(200), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatusCode(c.category), "category %s", c.category)
	}
}

func TestWrapKeepsCauseButHidesItOnTheWire(t *testing.T) {
	root := errors.New("connection refused")
	err := Wrap(root, CategoryUpstream, "ai_error", "AI service failed")

	assert.ErrorIs(t, err, root)
	assert.Equal(t, "AI service failed: connection refused", err.Error())

	w := WireFrom(err)
	assert.Equal(t, "ai_error", w.Error)
	assert.Equal(t, "AI service failed", w.Message)
}

func TestCategoryOfWrappedError(t *testing.T) {
	err := fmt.Errorf("handler: %w", Policyf("spam_detected", "spam %s", "detected"))
	assert.Equal(t, CategoryPolicy, CategoryOf(err))
	assert.True(t, IsCategory(err, CategoryPolicy))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))

	assert.Equal(t, CategoryInternal, CategoryOf(errors.New("plain")))
}

func TestQuotaExceededCarriesRetryAfter(t *testing.T) {
	e, ok := As(QuotaExceeded(42 * time.Second))
	require.True(t, ok)
	assert.Equal(t, 42*time.Second, e.RetryAfter())
	assert.Equal(t, "rate_limited", e.Code())
	assert.Equal(t, CategoryQuota, e.Category())
}

func TestWireFromForeignError(t *testing.T) {
	w := WireFrom(errors.New("sql: database is locked"))
	assert.Equal(t, "internal_error", w.Error)
	assert.NotContains(t, w.Message, "sql")
	assert.Equal(t, Wire{}, WireFrom(nil))
}

func TestNilErrorRenders(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())
}
