package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
)

func TestLoggingRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "logging-test", Level: logger.ParseLevel("info"), Output: &buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/listings/{listingId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/listings/6f1c", nil))
	require.Equal(t, http.StatusAccepted, resp.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "request.complete", line["message"])
	assert.Equal(t, "/listings/{listingId}", line["route"])
	assert.Equal(t, "/listings/6f1c", line["path"])
	assert.EqualValues(t, http.StatusAccepted, line["status"])
	assert.EqualValues(t, 2, line["bytes"])
}

func TestLoggingNilLoggerPassesThrough(t *testing.T) {
	handler := Logging(nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
