package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrTypeValidation, "unknown column")
	assert.Equal(t, "validation: unknown column", err.Error())

	wrapped := Wrap(errors.New("boom"), ErrTypeExecution, "query failed")
	assert.Equal(t, "execution: query failed (caused by: boom)", wrapped.Error())
	assert.Equal(t, "boom", wrapped.Unwrap().Error())
}

func TestIsTypeAndGetType(t *testing.T) {
	err := Newf(ErrTypeGenerationBlocked, "blocked keyword %q", "DROP")

	assert.True(t, IsType(err, ErrTypeGenerationBlocked))
	assert.False(t, IsType(err, ErrTypeValidation))
	assert.Equal(t, ErrTypeGenerationBlocked, GetType(err))

	// Plain errors fall back to internal
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
}

func TestIsTypeThroughWrapping(t *testing.T) {
	inner := New(ErrTypeRetrieval, "index unavailable")
	outer := fmt.Errorf("stage failed: %w", inner)

	require.True(t, IsType(outer, ErrTypeRetrieval))
	assert.Equal(t, ErrTypeRetrieval, GetType(outer))
}

func TestWithSuggestion(t *testing.T) {
	err := NewConfigError("missing DSN", "warehouse.dsn")
	require.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Message, "warehouse.dsn")
}
