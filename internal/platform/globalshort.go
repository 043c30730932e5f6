package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/platform/extract"
)

const globalShortPageMarker = "window.SIGI_STATE ="

// globalShortClient implements Client for the global short-video platform:
// a page-state blob is extracted, searched for a "room info"-shaped
// sub-tree, and candidate stream URLs are probed with a HEAD-like range
// request, preferring the highest available quality. This platform has
// no danmaku provider (models.Platform.SupportsDanmaku).
type globalShortClient struct {
	http      *httpclient.Client
	pageBase  string
	preferFLV bool
	preferHLS bool
}

// NewGlobalShortClient creates a Client for the global short-video
// platform. preferFLV/preferHLS mirror the BSR_PLATFORM_GLOBALSHORT_* config flags.
func NewGlobalShortClient(client *httpclient.Client, pageBase string, preferFLV, preferHLS bool) Client {
	return &globalShortClient{http: client, pageBase: pageBase, preferFLV: preferFLV, preferHLS: preferHLS}
}

func (c *globalShortClient) Platform() models.Platform { return models.PlatformGlobalShort }

type globalShortRoomInfo struct {
	Status     int               `json:"status"`
	Title      string            `json:"title"`
	Cover      string            `json:"cover"`
	OwnerUID   string            `json:"owner_id"`
	OwnerName  string            `json:"nickname"`
	OwnerFace  string            `json:"avatar"`
	StreamURLs map[string]string `json:"stream_urls"` // quality -> URL
}

// findRoomInfo walks a decoded page-state tree looking for any sub-object
// whose shape matches a room-info schema: a numeric "status" plus either
// owner ("owner_id"/"nickname") or stream ("stream_urls") fields.
func findRoomInfo(node any) (globalShortRoomInfo, bool) {
	obj, ok := node.(map[string]any)
	if !ok {
		return globalShortRoomInfo{}, false
	}

	_, hasStatus := obj["status"]
	_, hasOwner := obj["owner_id"]
	_, hasStream := obj["stream_urls"]
	if hasStatus && (hasOwner || hasStream) {
		raw, err := json.Marshal(obj)
		if err == nil {
			var info globalShortRoomInfo
			if json.Unmarshal(raw, &info) == nil {
				return info, true
			}
		}
	}

	for _, v := range obj {
		if child, ok := v.(map[string]any); ok {
			if info, found := findRoomInfo(child); found {
				return info, true
			}
		}
		if arr, ok := v.([]any); ok {
			for _, item := range arr {
				if info, found := findRoomInfo(item); found {
					return info, true
				}
			}
		}
	}
	return globalShortRoomInfo{}, false
}

func (c *globalShortClient) fetchRoomInfo(ctx context.Context, account models.Account, roomID string) (globalShortRoomInfo, error) {
	var info globalShortRoomInfo

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/@%s/live", c.pageBase, roomID), nil)
	if err != nil {
		return info, bsrerrors.Wrap(bsrerrors.KindProtocol, "building page request", err)
	}
	for k, v := range platformHeaders(account) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return info, bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching room page", err)
	}
	defer resp.Body.Close()

	if err := statusToErr(resp.StatusCode); err != nil {
		return info, err
	}

	buf, err := boundedRead(resp.Body, 8<<20)
	if err != nil {
		return info, bsrerrors.Wrap(bsrerrors.KindNetwork, "reading room page", err)
	}

	raw, err := extract.FindObjectAfter(string(buf), globalShortPageMarker)
	if err != nil {
		return info, bsrerrors.Wrap(bsrerrors.KindProtocol, "locating page state", err)
	}

	var tree map[string]any
	if err := json.Unmarshal([]byte(extract.NormalizeJS(raw)), &tree); err != nil {
		return info, bsrerrors.Wrap(bsrerrors.KindProtocol, "parsing page state", err)
	}

	found, ok := findRoomInfo(tree)
	if !ok {
		return info, bsrerrors.New(bsrerrors.KindNotFound, "no room-info sub-tree found in page state")
	}
	return found, nil
}

func (c *globalShortClient) GetRoomInfo(ctx context.Context, account models.Account, roomID string) (models.RoomInfo, error) {
	info, err := c.fetchRoomInfo(ctx, account, roomID)
	if err != nil {
		return models.RoomInfo{}, err
	}
	return models.RoomInfo{
		Title:      info.Title,
		CoverURL:   info.Cover,
		LiveStatus: info.Status == 2,
	}, nil
}

func (c *globalShortClient) GetUserInfo(ctx context.Context, account models.Account, userID string) (models.UserInfo, error) {
	info, err := c.fetchRoomInfo(ctx, account, userID)
	if err != nil {
		return models.UserInfo{}, err
	}
	return models.UserInfo{
		UserID:      info.OwnerUID,
		DisplayName: info.OwnerName,
		AvatarURL:   info.OwnerFace,
	}, nil
}

func (c *globalShortClient) GetStream(ctx context.Context, account models.Account, roomID string) (models.StreamHandle, error) {
	info, err := c.fetchRoomInfo(ctx, account, roomID)
	if err != nil {
		return models.StreamHandle{}, err
	}
	if info.Status != 2 {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindNotLive, "room is not live")
	}
	if len(info.StreamURLs) == 0 {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindFormatNotFound, "no candidate stream URLs")
	}

	quality := PickQuality(info.StreamURLs)
	if quality == "" {
		for q := range info.StreamURLs {
			quality = q
			break
		}
	}
	candidate := info.StreamURLs[quality]

	if err := c.probeAccessible(ctx, candidate, account); err != nil {
		return models.StreamHandle{}, err
	}

	headers := platformHeaders(account)
	if c.preferFLV && !c.preferHLS {
		return models.StreamHandle{
			Platform:  models.PlatformGlobalShort,
			Format:    models.ContainerFLV,
			Codec:     models.CodecAVC,
			StreamURL: candidate,
			Headers:   headers,
		}, nil
	}
	return models.StreamHandle{
		Platform:    models.PlatformGlobalShort,
		Format:      models.ContainerTS,
		Codec:       models.CodecAVC,
		PlaylistURL: candidate,
		Headers:     headers,
	}, nil
}

// probeAccessible issues a HEAD-like ranged GET (Range: bytes=0-0) to
// confirm a candidate URL is reachable before committing to it.
func (c *globalShortClient) probeAccessible(ctx context.Context, rawURL string, account models.Account) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindProtocol, "building probe request", err)
	}
	req.Header.Set("Range", "bytes=0-0")
	for k, v := range platformHeaders(account) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindNetwork, "probing stream URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return bsrerrors.New(bsrerrors.KindFormatNotFound, fmt.Sprintf("candidate stream URL unreachable: status %d", resp.StatusCode))
	}
	return nil
}

func (c *globalShortClient) DownloadCover(ctx context.Context, rawURL, destPath string) error {
	return downloadToFile(ctx, c.http, rawURL, destPath, nil)
}
