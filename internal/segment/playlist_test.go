package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlaylist_BasicMediaPlaylist(t *testing.T) {
	body := `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:100
#EXTINF:6.006,
seg100.ts
#EXTINF:5.994,
seg101.ts
`
	pl, err := parsePlaylist(strings.NewReader(body), "https://cdn.example.com/live/index.m3u8")
	require.NoError(t, err)

	assert.Equal(t, uint64(100), pl.MediaSequence)
	assert.Equal(t, 6.0, pl.TargetSeconds)
	require.Len(t, pl.Entries, 2)
	assert.Equal(t, uint64(100), pl.Entries[0].Sequence)
	assert.Equal(t, 6.006, pl.Entries[0].Duration)
	assert.Equal(t, "https://cdn.example.com/live/seg100.ts", pl.Entries[0].URL)
	assert.Equal(t, uint64(101), pl.Entries[1].Sequence)
	assert.False(t, pl.Ended)
}

func TestParsePlaylist_Discontinuity(t *testing.T) {
	body := `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:1
#EXTINF:6.0,
seg1.ts
#EXT-X-DISCONTINUITY
#EXTINF:6.0,
seg2.ts
`
	pl, err := parsePlaylist(strings.NewReader(body), "https://cdn.example.com/index.m3u8")
	require.NoError(t, err)
	require.Len(t, pl.Entries, 2)
	assert.False(t, pl.Entries[0].Discontinuity)
	assert.True(t, pl.Entries[1].Discontinuity)
}

func TestParsePlaylist_EndList(t *testing.T) {
	body := `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:1
#EXTINF:6.0,
seg1.ts
#EXT-X-ENDLIST
`
	pl, err := parsePlaylist(strings.NewReader(body), "https://cdn.example.com/index.m3u8")
	require.NoError(t, err)
	assert.True(t, pl.Ended)
}

func TestParsePlaylist_ExtXMap(t *testing.T) {
	body := `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:1
#EXT-X-MAP:URI="init.mp4"
#EXTINF:6.0,
seg1.m4s
`
	pl, err := parsePlaylist(strings.NewReader(body), "https://cdn.example.com/hls/index.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/hls/init.mp4", pl.InitMapURL)
}

func TestParsePlaylist_SubMillisecondDuration(t *testing.T) {
	body := `#EXTM3U
#EXT-X-TARGETDURATION:1
#EXT-X-MEDIA-SEQUENCE:1
#EXTINF:0.05,
seg1.ts
`
	pl, err := parsePlaylist(strings.NewReader(body), "https://cdn.example.com/index.m3u8")
	require.NoError(t, err)
	require.Len(t, pl.Entries, 1)
	assert.Equal(t, 0.05, pl.Entries[0].Duration)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://other.example.com/x.ts", resolveURL("https://other.example.com/x.ts", "https://cdn.example.com/a/index.m3u8"))
	assert.Equal(t, "https://cdn.example.com/a/x.ts", resolveURL("x.ts", "https://cdn.example.com/a/index.m3u8"))
	assert.Equal(t, "https://cdn.example.com/b/x.ts", resolveURL("../b/x.ts", "https://cdn.example.com/a/index.m3u8"))
}
