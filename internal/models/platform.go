// Package models defines the core domain types and GORM-backed persistence
// rows shared across the recorder core.
package models

// Platform identifies one of the four supported broadcasting platforms.
type Platform string

const (
	// PlatformMainstream is the mainstream long-form streaming platform.
	PlatformMainstream Platform = "mainstream"
	// PlatformShortLive is the short-video live platform.
	PlatformShortLive Platform = "shortlive"
	// PlatformGaming is the gaming platform.
	PlatformGaming Platform = "gaming"
	// PlatformGlobalShort is the global short-video platform.
	PlatformGlobalShort Platform = "globalshort"
)

// Valid reports whether p is one of the four enumerated platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformMainstream, PlatformShortLive, PlatformGaming, PlatformGlobalShort:
		return true
	default:
		return false
	}
}

// SupportsDanmaku reports whether the platform exposes a chat/danmaku feed.
// The global short-video platform has no danmaku provider.
func (p Platform) SupportsDanmaku() bool {
	return p != PlatformGlobalShort
}

// RoomKey is the primary key across the system: (platform, room_id).
type RoomKey struct {
	Platform Platform
	RoomID   string
}

func (k RoomKey) String() string {
	return string(k.Platform) + "/" + k.RoomID
}

// StreamContainer is the media container a StreamHandle resolves to.
type StreamContainer string

const (
	// ContainerTS is MPEG-TS segments delivered over HLS.
	ContainerTS StreamContainer = "ts"
	// ContainerFMP4 is fragmented MP4 segments delivered over HLS.
	ContainerFMP4 StreamContainer = "fmp4"
	// ContainerFLV is an FLV body delivered over a single long-lived HTTP stream.
	ContainerFLV StreamContainer = "flv"
)

// Codec is a video codec identifier used for preference-list selection.
type Codec string

const (
	CodecAVC  Codec = "avc"
	CodecHEVC Codec = "hevc"
)

// QualityPreference is the fixed preference order used when multiple
// stream qualities are advertised by an upstream.
var QualityPreference = []string{
	"dolby", "4k", "2k", "1080p_hi", "1080p", "720p", "hd", "smooth",
}

// DanmuKind classifies a DanmuMessage. Only Chat is surfaced to subscribers;
// the others are observed for metrics only.
type DanmuKind string

const (
	DanmuKindChat        DanmuKind = "chat"
	DanmuKindGift        DanmuKind = "gift"
	DanmuKindLike        DanmuKind = "like"
	DanmuKindMemberEnter DanmuKind = "member_enter"
)

// LifecycleEventType tags an event emitted by a Recorder.
type LifecycleEventType string

const (
	EventLiveStart     LifecycleEventType = "live_start"
	EventLiveEnd       LifecycleEventType = "live_end"
	EventRecordStart   LifecycleEventType = "record_start"
	EventRecordEnd     LifecycleEventType = "record_end"
	EventDanmuReceived LifecycleEventType = "danmu_received"
	EventStreamExpired LifecycleEventType = "stream_expired"
)

// RecorderState is the coarse state of a Recorder's internal state machine.
type RecorderState string

const (
	StateDisabled     RecorderState = "disabled"
	StateOffline      RecorderState = "offline"
	StateOnline       RecorderState = "online"
	StateRecording    RecorderState = "recording"
	StateReconnecting RecorderState = "reconnecting"
)
