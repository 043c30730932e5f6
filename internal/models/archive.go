package models

import "time"

// SegmentEntry is one captured media segment in an archive's index.
// Segments are written strictly in sequence order: the file for
// sequence n exists before the index lists it.
type SegmentEntry struct {
	// Sequence is the upstream's monotonic media-sequence number.
	Sequence int64 `json:"sequence"`
	// Duration is the segment's declared duration in seconds, carried as
	// floating point with millisecond precision.
	Duration float64 `json:"duration"`
	// FileName matches ^[0-9]+\.(ts|m4s)$ relative to the session work_dir.
	FileName string `json:"file_name"`
	// IsKey reports whether the segment opens with a key frame (fMP4 only;
	// always true for TS segments, which are key-frame aligned at the
	// playlist boundary by convention).
	IsKey bool `json:"is_key"`
	// Discontinuity mirrors an EXT-X-DISCONTINUITY tag immediately
	// preceding this segment in the source playlist, so downstream
	// clippers can honor it.
	Discontinuity bool `json:"discontinuity"`
	// WrittenAt is the local wall-clock time the segment file was closed.
	WrittenAt time.Time `json:"written_at"`
}

// ArchiveIndex is the in-memory representation of one recorded session's
// segment index. An archive is owned by the filesystem once written; the
// in-memory index is rebuilt from disk on demand.
type ArchiveIndex struct {
	Platform Platform `json:"platform"`
	RoomID   string   `json:"room_id"`
	// LiveID is the monotonic, Recorder-chosen session id: millisecond
	// epoch at first segment.
	LiveID int64 `json:"live_id"`

	Format StreamContainer `json:"format"`
	// HasInitSegment is true once init.m4s has been written (fMP4 only).
	HasInitSegment bool `json:"has_init_segment"`

	Segments []SegmentEntry `json:"segments"`

	// TotalDuration and TotalSize are cumulative counters. For FLV
	// archives TotalDuration stays zero until the session closes and is
	// backfilled post-hoc.
	TotalDuration float64 `json:"total_duration"`
	TotalSize     int64   `json:"total_size"`

	// LastSequence is the highest sequence number written so far.
	LastSequence int64 `json:"last_sequence"`
}

// NewArchiveIndex constructs an empty index for a new session.
func NewArchiveIndex(platform Platform, roomID string, liveID int64, format StreamContainer) *ArchiveIndex {
	return &ArchiveIndex{
		Platform: platform,
		RoomID:   roomID,
		LiveID:   liveID,
		Format:   format,
		Segments: make([]SegmentEntry, 0, 64),
	}
}

// Append records a new segment. Callers must serialize calls to Append to
// preserve the ordering invariant: segment index append order equals
// filesystem write-completion order equals upstream media-sequence order.
func (a *ArchiveIndex) Append(entry SegmentEntry) {
	a.Segments = append(a.Segments, entry)
	a.TotalDuration += entry.Duration
	if entry.Sequence > a.LastSequence {
		a.LastSequence = entry.Sequence
	}
}

// LifecycleEvent is one of the tagged events a Recorder emits.
type LifecycleEvent struct {
	Type     LifecycleEventType `json:"type"`
	Platform Platform           `json:"platform"`
	RoomID   string             `json:"room_id"`
	LiveID   int64              `json:"live_id,omitempty"`
	At       time.Time          `json:"at"`

	// Reason carries a human-readable message for RecordEnd.
	Reason string `json:"reason,omitempty"`
	// Danmu is set only for EventDanmuReceived.
	Danmu *DanmuMessage `json:"danmu,omitempty"`
}
