package mock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/court-booking-platform/internal/geocoding-service/nominatim"
)

func TestSearch_WithNominatimClient(t *testing.T) {
	srv := httptest.NewServer(NewServer(zap.NewNop()).Router())
	defer srv.Close()
	c := nominatim.New(srv.URL, "test", "vn")
	ctx := context.Background()

	places, err := c.Search(ctx, "Sân cầu lông Hải Châu, Đà Nẵng")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Hải Châu, Đà Nẵng, Việt Nam", places[0].DisplayName)
	assert.Equal(t, "16.0544000", places[0].Lat)

	places, err = c.Search(ctx, "son tra")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Contains(t, places[0].DisplayName, "Sơn Trà")

	places, err = c.Search(ctx, "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestReverse_Nearest(t *testing.T) {
	srv := httptest.NewServer(NewServer(zap.NewNop()).Router())
	defer srv.Close()
	c := nominatim.New(srv.URL, "test", "vn")

	p, err := c.Reverse(context.Background(), 10.78, 106.70)
	require.NoError(t, err)
	assert.Contains(t, p.DisplayName, "Quận 1")
}

func TestFailRatio(t *testing.T) {
	srv := httptest.NewServer(NewServer(zap.NewNop(), WithFailRatio(1)).Router())
	defer srv.Close()
	c := nominatim.New(srv.URL, "test", "vn")

	_, err := c.Search(context.Background(), "Hải Châu")
	var up *nominatim.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusServiceUnavailable, up.Status)
}

func TestMatch(t *testing.T) {
	_, ok := match("   ")
	assert.False(t, ok)
	p, ok := match("HOÀN KIẾM")
	require.True(t, ok)
	assert.Equal(t, "hoàn kiếm", p.Name)
}
