package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsClassifiedErrors(t *testing.T) {
	base := Conflict("release %s already exists", "1.0.0")
	wrapped := fmt.Errorf("upload: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.Equal(t, "release 1.0.0 already exists", Message(wrapped))
}

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", Message(err))
	assert.False(t, Is(nil, KindInternal))
}

func TestInternalKeepsCauseButHidesIt(t *testing.T) {
	cause := errors.New("pq: relation does not exist")
	err := Internal(cause, "Failed to save release. Please try again.")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to save release. Please try again.", Message(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation: http.StatusBadRequest,
		KindConflict:   http.StatusConflict,
		KindNotFound:   http.StatusNotFound,
		KindInternal:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind.String())
	}
}
