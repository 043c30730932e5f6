package segment

import (
	"context"
	"os"

	"github.com/asticode/go-astits"
)

// tsHasKeyFrame reports whether a downloaded .ts segment opens with a
// random-access point, by scanning TS packet adaptation fields for the
// random access indicator; is_key for TS segments is set honestly rather
// than assumed true.
func tsHasKeyFrame(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	dmx := astits.NewDemuxer(context.Background(), file)
	for {
		pkt, err := dmx.NextPacket()
		if err != nil {
			break
		}
		if pkt.Header == nil || pkt.AdaptationField == nil {
			continue
		}
		if pkt.AdaptationField.HasRandomAccessIndicator && pkt.AdaptationField.RandomAccessIndicator {
			return true, nil
		}
	}
	return false, nil
}
