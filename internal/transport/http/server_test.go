package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fieldops/internal/service"
	"github.com/xiaot623/gogo/fieldops/tests/helpers"
)

func TestServerRoutesAndLogsRequests(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	helpers.CreateAccount(t, db, "Camille", "Durand")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	e := NewServer(service.New(db, nil, nil, nil), nil, nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/work-session/start", bytes.NewBufferString(`{"account_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account/1/latest-session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Started"`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/work-sessions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "live feed is off without a realtime server")

	assert.Contains(t, logs.String(), "uri=/work-session/start")
	assert.Contains(t, logs.String(), "status=201")
}

func TestServerLogsInternalCauseWithoutLeakingIt(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	helpers.CreateAccount(t, db, "Camille", "Durand")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	e := NewServer(service.New(db, nil, nil, nil), nil, nil, logger)
	require.NoError(t, db.Close())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account/1/latest-session", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to get account","kind":"internal"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "database is closed")
	assert.Contains(t, logs.String(), "level=ERROR")
}
