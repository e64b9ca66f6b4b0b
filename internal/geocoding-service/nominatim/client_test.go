package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_SendsQueryAndUserAgent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "vn", q.Get("countrycodes"))
		assert.Equal(t, "12 Lê Duẩn, Đà Nẵng", q.Get("q"))
		assert.Equal(t, "Badminton-Court-App/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"16.07","lon":"108.22","display_name":"Lê Duẩn, Hải Châu"}]`))
	}))
	defer ts.Close()

	c := New(ts.URL, "Badminton-Court-App/1.0", "vn")
	got, err := c.Search(context.Background(), "12 Lê Duẩn, Đà Nẵng")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "16.07", got[0].Lat)
	assert.Equal(t, "Lê Duẩn, Hải Châu", got[0].DisplayName)
}

func TestSearch_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := New(ts.URL, "ua", "vn").Search(context.Background(), "x")
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
}

func TestReverse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "16.0544", r.URL.Query().Get("lat"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Hải Châu, Đà Nẵng","address":{"city":"Đà Nẵng"}}`))
	}))
	defer ts.Close()

	got, err := New(ts.URL, "ua", "vn").Reverse(context.Background(), 16.0544, 108.2022)
	require.NoError(t, err)
	assert.Equal(t, "Hải Châu, Đà Nẵng", got.DisplayName)
	assert.Equal(t, "Đà Nẵng", got.Address["city"])
}
