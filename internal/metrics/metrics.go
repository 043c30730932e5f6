// Package metrics exposes Prometheus gauges and counters describing the
// recorder fleet: per-room state, archive size on disk, and danmaku
// throughput.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecorderState reports the current models.RecorderState of a room as
	// a numeric code (see RecorderStateCode), one gauge per (platform,
	// room_id).
	RecorderState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bsr_recorder_state",
		Help: "Current recorder state per room (0=disabled 1=offline 2=online 3=recording 4=reconnecting)",
	}, []string{"platform", "room_id"})

	// ArchiveTotalSizeBytes reports the cumulative archived byte count for
	// the room's current (or most recently completed) live session.
	ArchiveTotalSizeBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bsr_archive_total_size_bytes",
		Help: "Total archived bytes for a room's current live session",
	}, []string{"platform", "room_id"})

	// DanmakuMessagesTotal counts danmaku messages persisted to danmu.txt.
	DanmakuMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bsr_danmaku_messages_total",
		Help: "Total danmaku messages written per room",
	}, []string{"platform", "room_id"})
)

// RecorderStateCode maps a recorder state name to the numeric code used by
// the RecorderState gauge, so callers never hand-roll the mapping.
func RecorderStateCode(state string) float64 {
	switch state {
	case "disabled":
		return 0
	case "offline":
		return 1
	case "online":
		return 2
	case "recording":
		return 3
	case "reconnecting":
		return 4
	default:
		return -1
	}
}
