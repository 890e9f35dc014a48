package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{Unauthorized(), http.StatusUnauthorized},
		{MalformedPayload(stderrors.New("bad json")), http.StatusBadRequest},
		{ValidationError("bad"), http.StatusBadRequest},
		{RepoNotRegistered(7), http.StatusNotFound},
		{PayloadTooLarge(1024), http.StatusRequestEntityTooLarge},
		{ClientNotConnected(), http.StatusServiceUnavailable},
		{DatabaseError(stderrors.New("locked")), http.StatusInternalServerError},
		{New("SOMETHING_NEW", "x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode)
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", RepoNotRegistered(7))

	assert.ErrorIs(t, wrapped, RepoNotRegistered(8))
	assert.NotErrorIs(t, wrapped, Unauthorized())
}

func TestAsAppError(t *testing.T) {
	assert.Nil(t, AsAppError(nil))

	appErr := AsAppError(fmt.Errorf("wrapped: %w", Unauthorized()))
	assert.Equal(t, ErrCodeUnauthorized, appErr.Code)

	cause := stderrors.New("boom")
	appErr = AsAppError(cause)
	assert.Equal(t, ErrCodeInternalError, appErr.Code)
	assert.ErrorIs(t, appErr, cause)
	assert.Equal(t, "INTERNAL_ERROR: Internal server error (boom)", appErr.Error())
}
