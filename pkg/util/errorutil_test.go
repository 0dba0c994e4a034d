package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewConflict("already claimed", map[string]any{"ticket_id": "t1"})
	de := ToDomainError(original)
	require.NotNil(t, de)
	assert.Equal(t, "CONFLICT", de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)

	wrapped := fmt.Errorf("outer: %w", original)
	de = ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, "CONFLICT", de.Code)
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	de := ToDomainError(pgx.ErrNoRows)
	require.NotNil(t, de)
	assert.Equal(t, "NOT_FOUND", de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("disk on fire")
	de := ToDomainError(cause)
	require.NotNil(t, de)
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.ErrorIs(t, de, cause)

	assert.Nil(t, ToDomainError(nil))
}
