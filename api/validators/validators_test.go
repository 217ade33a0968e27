package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
)

type archiveRequest struct {
	Reason   string `json:"reason" validate:"required,max=10"`
	DriverID int64  `json:"driver_id" validate:"gt=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"sick","driver_id":7}`))
	var dest archiveRequest
	require.NoError(t, DecodeJSONBody(httptest.NewRecorder(), req, &dest))
	assert.Equal(t, archiveRequest{Reason: "sick", DriverID: 7}, dest)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"sick","driver_id":7,"extra":true}`))
	var dest archiveRequest
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"","driver_id":0}`))
	var dest archiveRequest
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	require.Error(t, err)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["reason"])
	assert.Equal(t, "must be greater than 0", details["driver_id"])
}

type itineraryRequest struct {
	Header
	Stops []stopRequest `json:"stops" validate:"dive"`
}

type Header struct {
	ServiceID int64 `json:"service_id" validate:"gt=0"`
}

type stopRequest struct {
	Address string `json:"address" validate:"required"`
}

func TestDecodeJSONBodyNamesNestedFields(t *testing.T) {
	body := `{"service_id":0,"stops":[{"address":"1 Library Way"},{"address":""}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest itineraryRequest
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	require.Error(t, err)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be greater than 0", details["service_id"])
	assert.Equal(t, "is required", details["stops[1].address"])
}

func TestDecodeJSONBodyDecodeFailures(t *testing.T) {
	cases := map[string]string{
		"empty":       ``,
		"malformed":   `{"reason":`,
		"wrong type":  `{"reason":"sick","driver_id":"seven"}`,
		"two objects": `{"reason":"sick","driver_id":7}{"reason":"x","driver_id":1}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dest archiveRequest
		err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"sick","driver_id":"seven"}`))
	var dest archiveRequest
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "driver_id")
}

func TestParseQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?date=2024-03-01", nil)
	date, err := ParseQueryDate(req, "date")
	require.NoError(t, err)
	assert.Equal(t, dbtypes.Date{Year: 2024, Month: time.March, Day: 1}, date)

	_, err = ParseQueryDate(httptest.NewRequest(http.MethodGet, "/", nil), "date")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryDate(httptest.NewRequest(http.MethodGet, "/?date=03-01-2024", nil), "date")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseIDParam(t *testing.T) {
	var got int64
	var gotErr error
	router := chi.NewRouter()
	router.Get("/assignments/{assignmentID}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = ParseIDParam(r, "assignmentID")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assignments/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	for _, path := range []string{"/assignments/abc", "/assignments/0", "/assignments/-3"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		assert.True(t, pkgerrors.IsCode(gotErr, pkgerrors.CodeValidation), path)
	}
}
