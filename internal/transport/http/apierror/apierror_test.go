package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

func TestStatus(t *testing.T) {
	cases := map[domain.ErrorKind]int{
		domain.ErrorKindMissingField: http.StatusBadRequest,
		domain.ErrorKindInvalidID:    http.StatusBadRequest,
		domain.ErrorKindInvalidInput: http.StatusBadRequest,
		domain.ErrorKindConflict:     http.StatusBadRequest,
		domain.ErrorKindNotFound:     http.StatusNotFound,
		domain.ErrorKindRejected:     http.StatusUnprocessableEntity,
		domain.ErrorKindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := Status(kind); got != want {
			t.Errorf("Status(%s) = %d, want %d", kind, got, want)
		}
	}
}

func write(t *testing.T, err error) (*httptest.ResponseRecorder, echo.Context, Body) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, Write(c, err))

	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, c, body
}

func TestWriteKeepsDomainMessage(t *testing.T) {
	rec, c, body := write(t, domain.NotFound("account", 7))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, Body{Error: "account 7 not found", Kind: "not_found"}, body)
	assert.Nil(t, c.Get(CauseKey))
}

func TestWriteHidesInternalCause(t *testing.T) {
	cause := domain.Internal("failed to stop work session", errors.New("sql: database is closed"))
	rec, c, body := write(t, cause)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, Body{Error: "failed to stop work session", Kind: "internal"}, body)
	assert.NotContains(t, rec.Body.String(), "database is closed")
	assert.Equal(t, cause, c.Get(CauseKey))

	rec, _, body = write(t, errors.New("driver: bad connection"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, Body{Error: "internal error", Kind: "internal"}, body)
}
