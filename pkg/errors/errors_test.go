package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrNotFound, "course not found")
	wrapped := fmt.Errorf("load: %w", typed)

	got := FromError(wrapped)

	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "course not found", got.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.ErrorIs(t, got, sql.ErrConnDone)
}

func TestIsComparesCodes(t *testing.T) {
	assert.True(t, errors.Is(Clone(ErrCacheMiss, ""), ErrCacheMiss))
	assert.False(t, errors.Is(ErrNotFound, ErrCacheMiss))
}
