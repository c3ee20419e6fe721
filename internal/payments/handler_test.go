package payments

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompleteRequiresNote(t *testing.T) {
	h := NewHandler(slog.New(slog.DiscardHandler), nil)
	router := h.Routes()

	cases := []struct {
		name string
		body string
	}{
		{"empty note", `{"confirmed":true,"note":""}`},
		{"missing note", `{"confirmed":true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/MM-REF-1/complete", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}
