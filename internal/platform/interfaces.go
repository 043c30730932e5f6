// Package platform implements the per-upstream Client contract (room info,
// user info, stream resolution, cover download) and a registry keyed by
// platform tag.
package platform

import (
	"context"

	"github.com/jmylchreest/tvarr/internal/models"
)

// Client is the uniform capability set every platform implements.
type Client interface {
	// Platform returns the tag this client serves.
	Platform() models.Platform

	// GetRoomInfo fetches the current room snapshot. Returns a
	// bsrerrors-tagged error of kind Network, Auth, RateLimited, or NotFound.
	GetRoomInfo(ctx context.Context, account models.Account, roomID string) (models.RoomInfo, error)

	// GetUserInfo fetches streamer metadata for userID.
	GetUserInfo(ctx context.Context, account models.Account, userID string) (models.UserInfo, error)

	// GetStream resolves a playable handle for the live room. Returns a
	// bsrerrors-tagged error of kind NotLive, FormatNotFound, CodecNotFound,
	// or Auth.
	GetStream(ctx context.Context, account models.Account, roomID string) (models.StreamHandle, error)

	// DownloadCover streams the cover image at url into destPath.
	DownloadCover(ctx context.Context, url, destPath string) error
}

// PickQuality returns the first entry of models.QualityPreference present
// in available, or "" if none match.
func PickQuality(available map[string]string) string {
	for _, want := range models.QualityPreference {
		if _, ok := available[want]; ok {
			return want
		}
	}
	return ""
}
