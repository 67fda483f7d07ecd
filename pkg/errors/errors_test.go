package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "store unreachable")

	require.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeUnavailable))
	assert.False(t, Is(err, CodeInternal))
	assert.Contains(t, err.Error(), "store unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsSeesThroughOuterWrapping(t *testing.T) {
	inner := New(CodeConflict, "transition not allowed")
	outer := fmt.Errorf("clock out: %w", inner)

	assert.True(t, Is(outer, CodeConflict))
	assert.Equal(t, CodeConflict, CodeOf(outer))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:  http.StatusBadRequest,
		CodeNotFound:    http.StatusNotFound,
		CodeConflict:    http.StatusConflict,
		CodeForbidden:   http.StatusForbidden,
		CodeUnavailable: http.StatusServiceUnavailable,
		CodeTimeout:     http.StatusGatewayTimeout,
		CodeInternal:    http.StatusInternalServerError,
		Code("unknown"): http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
