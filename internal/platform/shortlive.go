package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/platform/extract"
)

const shortLiveGlobalMarker = "window.__INITIAL_STATE__ ="

// shortLiveClient implements Client for the short-video live platform: the
// room page embeds a large JS object under a window-global; the client
// locates it with a lenient brace scanner, normalizes it to JSON, and picks
// one CDN entry uniformly at random from the multi-CDN list.
type shortLiveClient struct {
	http             *httpclient.Client
	pageBase         string
	disableMobileAPI bool
	preferFLV        bool
	randIntn         func(n int) int
}

// NewShortLiveClient creates a Client for the short-video live platform.
// pageBase is the room-page origin. disableMobileAPI and preferFLV mirror
// the BSR_PLATFORM_SHORTLIVE_* config flags.
func NewShortLiveClient(client *httpclient.Client, pageBase string, disableMobileAPI, preferFLV bool) Client {
	return &shortLiveClient{
		http:             client,
		pageBase:         pageBase,
		disableMobileAPI: disableMobileAPI,
		preferFLV:        preferFLV,
		randIntn:         rand.Intn,
	}
}

func (c *shortLiveClient) Platform() models.Platform { return models.PlatformShortLive }

type shortLiveRoomState struct {
	Room struct {
		Title      string `json:"title"`
		Cover      string `json:"cover"`
		Status     int    `json:"status"`
		OwnerUID   string `json:"owner_uid"`
		OwnerName  string `json:"owner_name"`
		OwnerFace  string `json:"owner_face"`
		StreamURLs []struct {
			FLV []string `json:"flv"`
			HLS []string `json:"hls"`
		} `json:"stream_url"`
	} `json:"room"`
}

func (c *shortLiveClient) fetchRoomState(ctx context.Context, account models.Account, roomID string) (shortLiveRoomState, error) {
	var state shortLiveRoomState

	pageURL := fmt.Sprintf("%s/live/%s", c.pageBase, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return state, bsrerrors.Wrap(bsrerrors.KindProtocol, "building page request", err)
	}
	for k, v := range platformHeaders(account) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return state, bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching room page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return state, bsrerrors.New(bsrerrors.KindAuth, "room page returned 404 (region-blocked or removed)")
	}
	if err := statusToErr(resp.StatusCode); err != nil {
		return state, err
	}

	buf, err := boundedRead(resp.Body, 8<<20)
	if err != nil {
		return state, bsrerrors.Wrap(bsrerrors.KindNetwork, "reading room page", err)
	}

	raw, err := extract.FindObjectAfter(string(buf), shortLiveGlobalMarker)
	if err != nil {
		return state, bsrerrors.Wrap(bsrerrors.KindProtocol, "locating embedded room state", err)
	}

	normalized := extract.NormalizeJS(raw)
	if err := json.Unmarshal([]byte(normalized), &state); err != nil {
		return state, bsrerrors.Wrap(bsrerrors.KindProtocol, "parsing embedded room state", err)
	}
	return state, nil
}

func (c *shortLiveClient) GetRoomInfo(ctx context.Context, account models.Account, roomID string) (models.RoomInfo, error) {
	state, err := c.fetchRoomState(ctx, account, roomID)
	if err != nil {
		return models.RoomInfo{}, err
	}
	return models.RoomInfo{
		Title:      state.Room.Title,
		CoverURL:   state.Room.Cover,
		LiveStatus: state.Room.Status == 2,
	}, nil
}

func (c *shortLiveClient) GetUserInfo(ctx context.Context, account models.Account, userID string) (models.UserInfo, error) {
	state, err := c.fetchRoomState(ctx, account, userID)
	if err != nil {
		return models.UserInfo{}, err
	}
	return models.UserInfo{
		UserID:      state.Room.OwnerUID,
		DisplayName: state.Room.OwnerName,
		AvatarURL:   state.Room.OwnerFace,
	}, nil
}

func (c *shortLiveClient) GetStream(ctx context.Context, account models.Account, roomID string) (models.StreamHandle, error) {
	state, err := c.fetchRoomState(ctx, account, roomID)
	if err != nil {
		return models.StreamHandle{}, err
	}
	if state.Room.Status != 2 {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindNotLive, "room is not live")
	}
	if len(state.Room.StreamURLs) == 0 {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindFormatNotFound, "no stream URLs present")
	}

	entry := state.Room.StreamURLs[0]
	headers := platformHeaders(account)

	if c.preferFLV && len(entry.FLV) > 0 {
		chosen := entry.FLV[c.randIntn(len(entry.FLV))]
		return models.StreamHandle{
			Platform:  models.PlatformShortLive,
			Format:    models.ContainerFLV,
			Codec:     models.CodecAVC,
			StreamURL: chosen,
			Headers:   headers,
		}, nil
	}
	if len(entry.HLS) > 0 {
		chosen := entry.HLS[c.randIntn(len(entry.HLS))]
		return models.StreamHandle{
			Platform:    models.PlatformShortLive,
			Format:      models.ContainerTS,
			Codec:       models.CodecAVC,
			PlaylistURL: chosen,
			Headers:     headers,
		}, nil
	}
	if len(entry.FLV) > 0 {
		chosen := entry.FLV[c.randIntn(len(entry.FLV))]
		return models.StreamHandle{
			Platform:  models.PlatformShortLive,
			Format:    models.ContainerFLV,
			Codec:     models.CodecAVC,
			StreamURL: chosen,
			Headers:   headers,
		}, nil
	}
	return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindFormatNotFound, "no playable CDN entry")
}

func (c *shortLiveClient) DownloadCover(ctx context.Context, url, destPath string) error {
	return downloadToFile(ctx, c.http, url, destPath, nil)
}
