package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]int{"n": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":3}`, rec.Body.String())
}

func TestWriteJSON_NilData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteError_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "missing id") }, http.StatusBadRequest},
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "missing id") }, http.StatusNotFound},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "missing id") }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, `{"error":"missing id"}`, rec.Body.String())
		})
	}
}

func TestWriteOctetStream(t *testing.T) {
	body := []byte{0x00, 0xff, '\r', '\n', 0x80}
	rec := httptest.NewRecorder()
	WriteOctetStream(rec, http.StatusOK, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, body, rec.Body.Bytes())
}
