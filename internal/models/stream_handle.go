package models

import "time"

// StreamHandle is an opaque, platform-tagged value holding the resolved
// playback URL(s) plus the metadata needed to consume them.
type StreamHandle struct {
	Platform Platform
	Format   StreamContainer
	Codec    Codec

	// PlaylistURL is the HLS media playlist URL (TS/fMP4 modes).
	// StreamURL is the FLV body URL (FLV mode). Exactly one is set,
	// selected by Format.
	PlaylistURL string
	StreamURL   string

	// InitSegmentURL is set when Format is ContainerFMP4 and the upstream
	// exposes an initialization segment out of band (mainstream platform).
	InitSegmentURL string

	// Headers are required request headers (referer, user-agent, cookie)
	// that must accompany every request for this handle.
	Headers map[string]string

	// ExpiresAt is the signed-URL expiry, zero if the upstream does not
	// expose one. NeedsRefresh reports when ExpiresAt-SafetyMargin has
	// been reached; the Recorder does not call it.
	ExpiresAt time.Time

	// PlatformLiveID holds the upstream's own session identifier, for
	// correlation only; never used for directory layout. No platform
	// client sets it.
	PlatformLiveID string
}

// HasExpiry reports whether the upstream exposed a signed-URL expiry.
func (h StreamHandle) HasExpiry() bool {
	return !h.ExpiresAt.IsZero()
}

// NeedsRefresh reports whether h should be refreshed now, given
// safetyMargin before ExpiresAt. Streams with no expiry never need
// time-based refresh.
func (h StreamHandle) NeedsRefresh(now time.Time, safetyMargin time.Duration) bool {
	if !h.HasExpiry() {
		return false
	}
	return !now.Before(h.ExpiresAt.Add(-safetyMargin))
}
