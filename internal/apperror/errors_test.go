package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType_WalksWrapChain(t *testing.T) {
	inner := Wrap(TypeFetch, "order lookup failed", errors.New("connection refused"))
	outer := Wrap(TypeUnresolvedIdentifier, "no esim id", inner)
	wrapped := fmt.Errorf("resolve: %w", outer)

	assert.True(t, IsType(wrapped, TypeUnresolvedIdentifier))
	assert.True(t, IsType(wrapped, TypeFetch))
	assert.False(t, IsType(wrapped, TypeQRProcessing))
	assert.Equal(t, TypeUnresolvedIdentifier, TypeOf(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Type]int{
		TypeInput:                http.StatusBadRequest,
		TypeNotFound:             http.StatusNotFound,
		TypeUnresolvedIdentifier: http.StatusUnprocessableEntity,
		TypeQRProcessing:         http.StatusBadGateway,
		TypeFetch:                http.StatusBadGateway,
		TypeTransform:            http.StatusInternalServerError,
	}
	for typ, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(typ, "x")), typ)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	err := Newf(TypeNotFound, "bundle %q not found", "FR-1GB").WithContext("bundle", "FR-1GB")
	assert.Equal(t, `[NOT_FOUND] bundle "FR-1GB" not found`, err.Error())
	assert.Equal(t, "not_found", Code(err))
	assert.Equal(t, "FR-1GB", err.Context["bundle"])
	assert.Equal(t, "internal error", Message(errors.New("boom")))
}
