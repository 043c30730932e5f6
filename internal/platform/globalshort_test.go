package platform

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func globalShortFixture(streamHost string) string {
	return `<html><script>window.SIGI_STATE = {"LiveRoom":{"nested":{"status":2,"title":"Short Live","cover":"http://x/c.jpg","owner_id":"u5","nickname":"Creator","avatar":"http://x/f.jpg","stream_urls":{"1080p":"` + streamHost + `/hi.m3u8","smooth":"` + streamHost + `/lo.m3u8"}}}};</script></html>`
}

func TestGlobalShortClient_GetRoomInfo(t *testing.T) {
	probeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer probeSrv.Close()

	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(globalShortFixture(probeSrv.URL)))
	}))
	defer pageSrv.Close()

	c := NewGlobalShortClient(newTestHTTPClient(), pageSrv.URL, false, false)
	info, err := c.GetRoomInfo(t.Context(), models.Account{}, "u5")
	require.NoError(t, err)
	assert.Equal(t, "Short Live", info.Title)
	assert.True(t, info.LiveStatus)
}

func TestGlobalShortClient_GetStream_PicksHighestQualityAndProbes(t *testing.T) {
	probeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer probeSrv.Close()

	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(globalShortFixture(probeSrv.URL)))
	}))
	defer pageSrv.Close()

	c := NewGlobalShortClient(newTestHTTPClient(), pageSrv.URL, false, false)
	handle, err := c.GetStream(t.Context(), models.Account{}, "u5")
	require.NoError(t, err)
	assert.Contains(t, handle.PlaylistURL, "/hi.m3u8")
}

func TestGlobalShortClient_NotLive(t *testing.T) {
	page := `<html><script>window.SIGI_STATE = {"LiveRoom":{"status":0,"owner_id":"u1","stream_urls":{}}};</script></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c := NewGlobalShortClient(newTestHTTPClient(), srv.URL, false, false)
	_, err := c.GetStream(t.Context(), models.Account{}, "u1")
	require.Error(t, err)
}
