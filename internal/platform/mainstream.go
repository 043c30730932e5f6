package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
)

// mainstreamClient implements Client for the mainstream long-form platform:
// plain JSON HTTP APIs, HLS playback with a signed `expires` query
// parameter, codec/quality selection among multiple renditions.
type mainstreamClient struct {
	http *httpclient.Client
	base string
}

// NewMainstreamClient creates a Client for the mainstream platform. base is
// the API origin (e.g. "https://api.example.invalid"), overridable in tests.
func NewMainstreamClient(client *httpclient.Client, base string) Client {
	return &mainstreamClient{http: client, base: base}
}

func (c *mainstreamClient) Platform() models.Platform { return models.PlatformMainstream }

type mainstreamRoomResp struct {
	Data struct {
		Title      string `json:"title"`
		Cover      string `json:"user_cover"`
		LiveStatus int    `json:"live_status"`
	} `json:"data"`
}

func (c *mainstreamClient) GetRoomInfo(ctx context.Context, account models.Account, roomID string) (models.RoomInfo, error) {
	req, err := c.newRequest(ctx, account, fmt.Sprintf("%s/room/info?room_id=%s", c.base, url.QueryEscape(roomID)))
	if err != nil {
		return models.RoomInfo{}, err
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return models.RoomInfo{}, bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching room info", err)
	}
	defer resp.Body.Close()

	if err := statusToErr(resp.StatusCode); err != nil {
		return models.RoomInfo{}, err
	}

	var parsed mainstreamRoomResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.RoomInfo{}, bsrerrors.Wrap(bsrerrors.KindProtocol, "decoding room info", err)
	}

	return models.RoomInfo{
		Title:      parsed.Data.Title,
		CoverURL:   parsed.Data.Cover,
		LiveStatus: parsed.Data.LiveStatus == 1,
	}, nil
}

type mainstreamUserResp struct {
	Data struct {
		Name string `json:"name"`
		Face string `json:"face"`
	} `json:"data"`
}

func (c *mainstreamClient) GetUserInfo(ctx context.Context, account models.Account, userID string) (models.UserInfo, error) {
	req, err := c.newRequest(ctx, account, fmt.Sprintf("%s/user/info?uid=%s", c.base, url.QueryEscape(userID)))
	if err != nil {
		return models.UserInfo{}, err
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return models.UserInfo{}, bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching user info", err)
	}
	defer resp.Body.Close()

	if err := statusToErr(resp.StatusCode); err != nil {
		return models.UserInfo{}, err
	}

	var parsed mainstreamUserResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.UserInfo{}, bsrerrors.Wrap(bsrerrors.KindProtocol, "decoding user info", err)
	}

	return models.UserInfo{
		UserID:      userID,
		DisplayName: parsed.Data.Name,
		AvatarURL:   parsed.Data.Face,
	}, nil
}

type mainstreamStreamResp struct {
	Data struct {
		Playurl struct {
			Streams []struct {
				Format  string `json:"format"` // "ts" or "fmp4"
				Codec   string `json:"codec"`  // "avc" or "hevc"
				Quality string `json:"quality"`
				URL     string `json:"url"`
				InitURL string `json:"init_url"`
			} `json:"streams"`
		} `json:"playurl"`
	} `json:"data"`
}

func (c *mainstreamClient) GetStream(ctx context.Context, account models.Account, roomID string) (models.StreamHandle, error) {
	req, err := c.newRequest(ctx, account, fmt.Sprintf("%s/room/playurl?room_id=%s", c.base, url.QueryEscape(roomID)))
	if err != nil {
		return models.StreamHandle{}, err
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return models.StreamHandle{}, bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching stream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindNotLive, "room is not live")
	}
	if err := statusToErr(resp.StatusCode); err != nil {
		return models.StreamHandle{}, err
	}

	var parsed mainstreamStreamResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.StreamHandle{}, bsrerrors.Wrap(bsrerrors.KindProtocol, "decoding stream response", err)
	}
	if len(parsed.Data.Playurl.Streams) == 0 {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindNotLive, "no streams returned")
	}

	byQuality := make(map[string][]int)
	for i, s := range parsed.Data.Playurl.Streams {
		byQuality[s.Quality] = append(byQuality[s.Quality], i)
	}
	quality := PickQuality(qualityPresence(byQuality))
	if quality == "" {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindFormatNotFound, "no known quality present")
	}

	candidates := byQuality[quality]
	chosen := parsed.Data.Playurl.Streams[candidates[0]]
	for _, idx := range candidates {
		if parsed.Data.Playurl.Streams[idx].Codec == string(models.CodecHEVC) {
			chosen = parsed.Data.Playurl.Streams[idx]
			break
		}
	}

	format := models.ContainerTS
	if chosen.Format == "fmp4" {
		format = models.ContainerFMP4
	}
	codec := models.CodecAVC
	if chosen.Codec == "hevc" {
		codec = models.CodecHEVC
	}
	if codec != models.CodecAVC && codec != models.CodecHEVC {
		return models.StreamHandle{}, bsrerrors.New(bsrerrors.KindCodecNotFound, "unrecognized codec: "+chosen.Codec)
	}

	expiresAt := parseExpiresParam(chosen.URL)

	return models.StreamHandle{
		Platform:       models.PlatformMainstream,
		Format:         format,
		Codec:          codec,
		PlaylistURL:    chosen.URL,
		InitSegmentURL: chosen.InitURL,
		Headers:        platformHeaders(account),
		ExpiresAt:      expiresAt,
	}, nil
}

func (c *mainstreamClient) DownloadCover(ctx context.Context, rawURL, destPath string) error {
	return downloadToFile(ctx, c.http, rawURL, destPath, nil)
}

func (c *mainstreamClient) newRequest(ctx context.Context, account models.Account, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, bsrerrors.Wrap(bsrerrors.KindProtocol, "building request", err)
	}
	for k, v := range platformHeaders(account) {
		req.Header.Set(k, v)
	}
	return req, nil
}

// qualityPresence reduces a quality->indices map to the presence map
// PickQuality expects.
func qualityPresence(byQuality map[string][]int) map[string]string {
	out := make(map[string]string, len(byQuality))
	for q := range byQuality {
		out[q] = q
	}
	return out
}

// parseExpiresParam extracts the signed `expires` query parameter from a
// playback URL. Returns the zero Time if absent or malformed.
func parseExpiresParam(rawURL string) time.Time {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return time.Time{}
	}
	raw := parsed.Query().Get("expires")
	if raw == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

func platformHeaders(account models.Account) map[string]string {
	h := map[string]string{
		"User-Agent": httpclient.DefaultUserAgentHeader,
	}
	if account.Cookies != "" {
		h["Cookie"] = account.Cookies
	}
	if account.CSRFToken != "" {
		h["X-CSRF-Token"] = account.CSRFToken
	}
	return h
}

func statusToErr(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return bsrerrors.New(bsrerrors.KindAuth, fmt.Sprintf("unexpected status %d", code))
	case code == http.StatusTooManyRequests:
		return bsrerrors.New(bsrerrors.KindRateLimited, "rate limited")
	case code == http.StatusNotFound:
		return bsrerrors.New(bsrerrors.KindNotFound, "not found")
	case code >= 500:
		return bsrerrors.New(bsrerrors.KindNetwork, fmt.Sprintf("upstream status %d", code))
	case code >= 200 && code < 300:
		return nil
	default:
		return bsrerrors.New(bsrerrors.KindProtocol, fmt.Sprintf("unexpected status %d", code))
	}
}

// downloadToFile streams rawURL to destPath, applying extra headers if
// given. Shared by all four platform clients' DownloadCover.
func downloadToFile(ctx context.Context, client *httpclient.Client, rawURL, destPath string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindProtocol, "building cover request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.DoWithContext(ctx, req)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching cover", err)
	}
	defer resp.Body.Close()

	if err := statusToErr(resp.StatusCode); err != nil {
		return err
	}

	f, err := os.Create(destPath)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindIO, "creating cover file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return bsrerrors.Wrap(bsrerrors.KindIO, "writing cover file", err)
	}
	return nil
}
