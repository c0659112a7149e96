package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/Uptimer/internal/domain"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.NewConfigError("method", "unsupported"), http.StatusBadRequest},
		{fmt.Errorf("create: %w", domain.ErrQuotaExceeded), http.StatusBadRequest},
		{domain.ErrConflict, http.StatusBadRequest},
		{domain.ErrInvalidToken, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("checks/x: %w", domain.ErrNotFound), http.StatusNotFound},
		{&domain.StorageError{Op: "put", Kind: "checks", Err: errors.New("disk full")}, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), "%v", c.err)
	}
}

func TestFail_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, zaptest.NewLogger(t), errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Fail(rec, zaptest.NewLogger(t), domain.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	require.ErrorIs(t, Decode(r, &v), domain.ErrInvalidInput)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, Decode(r, &v))
	assert.Equal(t, "a", v.Name)
}
