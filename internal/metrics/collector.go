package metrics

import (
	"context"
	"time"

	"github.com/jmylchreest/tvarr/internal/models"
)

// Lister is the subset of recordermanager.Manager this package needs,
// kept narrow so tests can supply a fake fleet without a real Manager.
type Lister interface {
	List() []models.RecorderInfo
}

// StartCollector polls lister every interval and refreshes the
// RecorderState and ArchiveTotalSizeBytes gauges from its snapshot. It
// runs until ctx is cancelled.
func StartCollector(ctx context.Context, lister Lister, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		collect(lister)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect(lister)
			}
		}
	}()
}

func collect(lister Lister) {
	for _, info := range lister.List() {
		platform, room := string(info.Platform), info.RoomID
		RecorderState.WithLabelValues(platform, room).Set(RecorderStateCode(string(info.State)))
		ArchiveTotalSizeBytes.WithLabelValues(platform, room).Set(float64(info.TotalSize))
	}
}
