package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mnemohq/mnemo/internal/auth"
)

type fakeTokenService struct {
	valid string
}

func (f *fakeTokenService) Generate(_ context.Context, username string) (string, error) {
	return f.valid, nil
}

func (f *fakeTokenService) Validate(_ context.Context, token string) (string, error) {
	if token == f.valid {
		return "syncuser", nil
	}
	return "", auth.ErrInvalidToken
}

func postForm(handler http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sync/summary",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireSession(&fakeTokenService{valid: "good-token"})(next)

	t.Run("valid token passes", func(t *testing.T) {
		reached = false
		rec := postForm(guarded, url.Values{"k": {"good-token"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, reached)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		reached = false
		rec := postForm(guarded, url.Values{})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, reached)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		reached = false
		rec := postForm(guarded, url.Values{"k": {"forged"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, reached)
	})
}
