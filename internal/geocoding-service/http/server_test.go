package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/geocoding-service/geocoder"
	"github.com/radieske/court-booking-platform/internal/geocoding-service/nominatim"
)

// upstream falso no formato do Nominatim, atrás de um geocoder real
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			switch r.URL.Query().Get("q") {
			case "Hải Châu":
				_, _ = w.Write([]byte(`[{"lat":"16.0544","lon":"108.2022","display_name":"Hải Châu, Đà Nẵng"}]`))
			case "boom":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				_, _ = w.Write([]byte(`[]`))
			}
		case "/reverse":
			_, _ = w.Write([]byte(`{"display_name":"Hải Châu, Đà Nẵng"}`))
		}
	}))
	t.Cleanup(up.Close)

	geo := geocoder.New(
		nominatim.New(up.URL, "test-agent", "vn"),
		zap.NewNop(),
		geocoder.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	return NewServer(zap.NewNop(), geo).Router()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestLookup(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/geocoding?address=H%E1%BA%A3i+Ch%C3%A2u", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res geocoder.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 16.0544, res.Lat, 1e-9)
	assert.InDelta(t, 108.2022, res.Lng, 1e-9)
	assert.Equal(t, "Hải Châu, Đà Nẵng", res.Address)

	rec = do(t, h, http.MethodGet, "/geocoding", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Address parameter is required", errorOf(t, rec))

	rec = do(t, h, http.MethodGet, "/geocoding?address=atlantis", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No results found", errorOf(t, rec))

	rec = do(t, h, http.MethodGet, "/geocoding?address=boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Geocoding failed", errorOf(t, rec))
}

func TestBatch(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/geocoding/batch", `{"addresses":["Hải Châu","atlantis"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]*geocoder.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.NotNil(t, out["Hải Châu"])
	assert.Nil(t, out["atlantis"])
	assert.Contains(t, rec.Body.String(), `"atlantis":null`)

	for _, body := range []string{`{}`, `{"addresses":`, `not json`} {
		rec = do(t, h, http.MethodPost, "/geocoding/batch", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Addresses array is required", errorOf(t, rec))
	}

	rec = do(t, h, http.MethodPost, "/geocoding/batch", `{"addresses":[]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestDistance(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/geocoding/distance?from=16.0544,108.2022&to=16.0544,108.2022", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"kilometers":0,"formatted":"0.0 km"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/geocoding/distance?from=16.0544,108.2022&to=16.1067,108.2525", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d distanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.InDelta(t, 7.9, d.Kilometers, 0.3)

	for _, q := range []string{"from=16,108", "from=a,b&to=1,2", "from=95,0&to=0,0"} {
		rec = do(t, h, http.MethodGet, "/geocoding/distance?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestReverse(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/geocoding/reverse?lat=16.0544&lng=108.2022", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hải Châu, Đà Nẵng")

	rec = do(t, h, http.MethodGet, "/geocoding/reverse?lat=16.05", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingGeo struct{}

func (failingGeo) Lookup(context.Context, string) (*geocoder.Result, error) { return nil, nil }
func (failingGeo) Batch(context.Context, []string) (map[string]*geocoder.Result, error) {
	return nil, errors.New("cancelled")
}
func (failingGeo) Reverse(context.Context, float64, float64) (*nominatim.ReversePlace, error) {
	return nil, errors.New("down")
}

func TestBatch_Aborted(t *testing.T) {
	h := NewServer(zap.NewNop(), failingGeo{}).Router()
	rec := do(t, h, http.MethodPost, "/geocoding/batch", `{"addresses":["x"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, http.MethodGet, "/geocoding/reverse?lat=1&lng=2", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
