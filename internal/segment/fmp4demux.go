package segment

import (
	"os"

	"github.com/abema/go-mp4"
)

// fmp4HasKeyFrame reports whether a downloaded fMP4 media segment's moof
// box contains a trun sample marked as a sync sample; is_key for fMP4
// segments comes from the sample flags, not a guess.
func fmp4HasKeyFrame(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	found := false
	_, err = mp4.ReadBoxStructure(file, func(h *mp4.ReadHandle) (interface{}, error) {
		if h.BoxInfo.Type != mp4.BoxTypeTrun() {
			return h.Expand()
		}
		box, _, err := h.ReadPayload()
		if err != nil {
			return nil, err
		}
		trun, ok := box.(*mp4.Trun)
		if !ok {
			return nil, nil
		}
		for _, entry := range trun.Entries {
			if !entry.SampleFlags.SampleIsNonSyncSample() {
				found = true
			}
		}
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// fmp4HasMoov reports whether a downloaded init.m4s contains a moov box,
// the minimum bar for considering the init segment validly written:
// since the init segment is written before any media segment, it must
// actually be a usable init segment.
func fmp4HasMoov(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	found := false
	_, err = mp4.ReadBoxStructure(file, func(h *mp4.ReadHandle) (interface{}, error) {
		if h.BoxInfo.Type == mp4.BoxTypeMoov() {
			found = true
			return nil, nil
		}
		return h.Expand()
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
