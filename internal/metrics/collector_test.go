package metrics

import (
	"testing"

	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeLister struct {
	infos []models.RecorderInfo
}

func (f fakeLister) List() []models.RecorderInfo { return f.infos }

func TestCollect_SetsGaugesFromSnapshot(t *testing.T) {
	lister := fakeLister{infos: []models.RecorderInfo{
		{Platform: "mainstream", RoomID: "room-a", State: models.StateRecording, TotalSize: 4096},
	}}

	collect(lister)

	assert.Equal(t, float64(3), testutil.ToFloat64(RecorderState.WithLabelValues("mainstream", "room-a")))
	assert.Equal(t, float64(4096), testutil.ToFloat64(ArchiveTotalSizeBytes.WithLabelValues("mainstream", "room-a")))
}

func TestRecorderStateCode_MapsKnownStates(t *testing.T) {
	assert.Equal(t, float64(0), RecorderStateCode("disabled"))
	assert.Equal(t, float64(1), RecorderStateCode("offline"))
	assert.Equal(t, float64(2), RecorderStateCode("online"))
	assert.Equal(t, float64(3), RecorderStateCode("recording"))
	assert.Equal(t, float64(4), RecorderStateCode("reconnecting"))
	assert.Equal(t, float64(-1), RecorderStateCode("unknown"))
}
