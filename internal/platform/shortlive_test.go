package platform

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortLivePageFixture = `<html><script>window.__INITIAL_STATE__ = {room: {title: 'Live Now', cover: 'http://x/c.jpg', status: 2, owner_uid: 'u1', owner_name: 'Streamer', owner_face: 'http://x/f.jpg', stream_url: [{flv: ['http://cdn1/a.flv','http://cdn2/a.flv'], hls: ['http://cdn1/a.m3u8']}]}};</script></html>`

func newTestShortLiveClient(url string, preferFLV bool) *shortLiveClient {
	c := NewShortLiveClient(newTestHTTPClient(), url, true, preferFLV).(*shortLiveClient)
	c.randIntn = func(n int) int { return 0 }
	return c
}

func TestShortLiveClient_GetRoomInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(shortLivePageFixture))
	}))
	defer srv.Close()

	c := newTestShortLiveClient(srv.URL, false)
	info, err := c.GetRoomInfo(t.Context(), models.Account{}, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Live Now", info.Title)
	assert.True(t, info.LiveStatus)
}

func TestShortLiveClient_GetStream_PrefersHLSByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(shortLivePageFixture))
	}))
	defer srv.Close()

	c := newTestShortLiveClient(srv.URL, false)
	handle, err := c.GetStream(t.Context(), models.Account{}, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ContainerTS, handle.Format)
	assert.Equal(t, "http://cdn1/a.m3u8", handle.PlaylistURL)
}

func TestShortLiveClient_GetStream_FLVPreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(shortLivePageFixture))
	}))
	defer srv.Close()

	c := newTestShortLiveClient(srv.URL, true)
	handle, err := c.GetStream(t.Context(), models.Account{}, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ContainerFLV, handle.Format)
	assert.Equal(t, "http://cdn1/a.flv", handle.StreamURL)
}

func TestShortLiveClient_RegionBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestShortLiveClient(srv.URL, false)
	_, err := c.GetRoomInfo(t.Context(), models.Account{}, "r1")
	require.Error(t, err)
	assert.Equal(t, bsrerrors.KindAuth, bsrerrors.KindOf(err))
}
