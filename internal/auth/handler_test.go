package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginRejectsMalformedPayload(t *testing.T) {
	h := NewHandler(slog.New(slog.DiscardHandler), nil, nil)
	router := h.Routes()

	cases := []struct {
		name string
		body string
	}{
		{"missing password", `{"username":"jane"}`},
		{"missing username", `{"password":"secret"}`},
		{"empty payload", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}
