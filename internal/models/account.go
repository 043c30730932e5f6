package models

// Account is a credential bundle for one platform. One Account may serve
// many Recorders of the same platform.
type Account struct {
	Platform Platform `json:"platform"`
	// UserID is the account's own user id on the upstream platform.
	UserID string `json:"user_id"`
	// Cookies is an opaque cookie blob sent with every request.
	Cookies string `json:"-"`
	// CSRFToken is derived from Cookies when the platform requires it.
	CSRFToken string `json:"-"`
}

// RoomInfo is a snapshot of upstream room state, refreshed on every poll.
type RoomInfo struct {
	Title      string `json:"title"`
	CoverURL   string `json:"cover_url"`
	LiveStatus bool   `json:"live_status"`
}

// Changed reports whether other differs from ri in any observable field.
func (ri RoomInfo) Changed(other RoomInfo) bool {
	return ri.Title != other.Title || ri.CoverURL != other.CoverURL || ri.LiveStatus != other.LiveStatus
}

// UserInfo is streamer metadata, lazily fetched once per room and cached
// until UserID changes.
type UserInfo struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}
