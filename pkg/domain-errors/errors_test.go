package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeNotFound, "record not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("wrapped cause keeps its code visible", func(t *testing.T) {
		inner := New(CodeConstraintViolation, "slug must be unique")
		outer := Wrap(inner, CodeInternal, "create record")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeConstraintViolation))
	})

	t.Run("survives fmt.Errorf wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeAccessDenied, "not the owner"))
		assert.True(t, HasCode(err, CodeAccessDenied))
	})

	t.Run("uncoded error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(New(CodeConflict, "lost the race")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "record repository unreachable")
	require.ErrorIs(t, err, cause)
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeAccessDenied:        http.StatusForbidden,
		CodeConstraintViolation: http.StatusUnprocessableEntity,
		CodeNotFound:            http.StatusNotFound,
		CodeConflict:            http.StatusConflict,
		CodePayloadRejected:     http.StatusRequestEntityTooLarge,
		CodeBadRequest:          http.StatusBadRequest,
		CodeUnavailable:         http.StatusServiceUnavailable,
		CodeInternal:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
