package models

import "time"

// RecorderInfo is a read-only snapshot of one Recorder's state, returned by
// Info() for UI consumption.
type RecorderInfo struct {
	Platform Platform      `json:"platform"`
	RoomID   string        `json:"room_id"`
	State    RecorderState `json:"state"`
	Enabled  bool          `json:"enabled"`

	Room RoomInfo  `json:"room"`
	User *UserInfo `json:"user,omitempty"`

	LiveID        int64     `json:"live_id,omitempty"`
	IsRecording   bool      `json:"is_recording"`
	TotalDuration float64   `json:"total_duration,omitempty"`
	TotalSize     int64     `json:"total_size,omitempty"`
	LastSequence  int64     `json:"last_sequence,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
