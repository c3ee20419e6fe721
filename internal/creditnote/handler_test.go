package creditnote

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func postJSON(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCommitRejectsMalformedPayload(t *testing.T) {
	h := NewHandler(slog.New(slog.DiscardHandler), nil)
	router := h.Routes()

	cases := []struct {
		name string
		body string
	}{
		{"missing credit note number", `{"supplier":"MedSupply","lines":[{"product_id":1,"quantity":1}]}`},
		{"missing supplier", `{"credit_note_number":"CN-1","lines":[{"product_id":1,"quantity":1}]}`},
		{"no lines", `{"credit_note_number":"CN-1","supplier":"MedSupply","lines":[]}`},
		{"zero quantity", `{"credit_note_number":"CN-1","supplier":"MedSupply","lines":[{"product_id":1,"quantity":0}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, router, "/", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}
