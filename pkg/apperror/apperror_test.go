package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, BadRequest("x").Status())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").Status())
	assert.Equal(t, http.StatusForbidden, Forbidden("x").Status())
	assert.Equal(t, http.StatusNotFound, NotFound("x").Status())
	assert.Equal(t, http.StatusInternalServerError, Internal("x", nil).Status())
}

func TestAsWrapsForeignErrors(t *testing.T) {
	cause := errors.New("connection reset")
	ae := As(cause)
	assert.Equal(t, KindInternal, ae.Kind)
	assert.Equal(t, "internal server error", ae.Message)
	assert.ErrorIs(t, ae, cause)

	wrapped := fmt.Errorf("update: %w", NotFound("School not found"))
	assert.Equal(t, "School not found", As(wrapped).Message)
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(cause, KindInternal))
	assert.Nil(t, As(nil))
}

func TestWithDetailsCopies(t *testing.T) {
	base := BadRequest("Invalid permissions")
	withDetails := base.WithDetails(map[string][]string{"invalid": {"x"}})
	assert.Nil(t, base.Details)
	assert.NotNil(t, withDetails.Details)
	assert.Equal(t, base.Message, withDetails.Message)
}
