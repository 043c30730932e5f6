package models

// DanmuMessage is a uniform representation of a chat/danmaku frame, decoded
// from whatever wire format the platform's danmaku provider speaks. Only
// Kind == DanmuKindChat is surfaced to subscribers.
type DanmuMessage struct {
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Content     string    `json:"content"`
	Color       string    `json:"color"`
	TimestampMs int64     `json:"timestamp_ms"`
	Kind        DanmuKind `json:"kind"`
}

// IsChat reports whether the message should be persisted and rebroadcast.
func (m DanmuMessage) IsChat() bool {
	return m.Kind == DanmuKindChat
}
