// Package segment implements the Segment Fetcher: a single cooperative
// loop that pulls HLS or FLV media from a resolved StreamHandle into a
// work directory, building an ArchiveIndex as it goes.
package segment

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// entry is one parsed media segment reference from a playlist.
type entry struct {
	Sequence      uint64
	Duration      float64
	URL           string
	Discontinuity bool
}

// playlist is the result of parsing one HLS media playlist fetch.
type playlist struct {
	MediaSequence uint64
	TargetSeconds float64
	Entries       []entry
	InitMapURL    string // set when #EXT-X-MAP is present
	Ended         bool   // #EXT-X-ENDLIST seen
}

// parsePlaylist parses an HLS media playlist using a line-oriented
// scanner convention (bufio.Scanner over #EXT-X-* tags) with no
// third-party M3U8 library.
func parsePlaylist(r io.Reader, baseURL string) (playlist, error) {
	var pl playlist
	var pendingDuration float64
	var pendingDiscontinuity bool
	haveDuration := false
	seq := uint64(0)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			if v, err := strconv.ParseUint(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"), 10, 64); err == nil {
				seq = v
				pl.MediaSequence = v
			}
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"), 64); err == nil {
				pl.TargetSeconds = v
			}
		case strings.HasPrefix(line, "#EXT-X-MAP:"):
			pl.InitMapURL = resolveURL(parseMapURI(line), baseURL)
		case line == "#EXT-X-DISCONTINUITY":
			pendingDiscontinuity = true
		case line == "#EXT-X-ENDLIST":
			pl.Ended = true
		case strings.HasPrefix(line, "#EXTINF:"):
			durStr := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(durStr, ","); idx >= 0 {
				durStr = durStr[:idx]
			}
			if v, err := strconv.ParseFloat(durStr, 64); err == nil {
				pendingDuration = v
				haveDuration = true
			}
		case strings.HasPrefix(line, "#"):
			// Unrecognized tag; ignore.
		default:
			if !haveDuration {
				continue
			}
			pl.Entries = append(pl.Entries, entry{
				Sequence:      seq,
				Duration:      pendingDuration,
				URL:           resolveURL(line, baseURL),
				Discontinuity: pendingDiscontinuity,
			})
			seq++
			haveDuration = false
			pendingDiscontinuity = false
		}
	}

	if err := scanner.Err(); err != nil {
		return pl, fmt.Errorf("scanning playlist: %w", err)
	}
	return pl, nil
}

// parseMapURI extracts the URI="..." attribute from an #EXT-X-MAP tag.
func parseMapURI(line string) string {
	const marker = `URI="`
	idx := strings.Index(line, marker)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// resolveURL resolves a possibly-relative playlist reference against base.
func resolveURL(ref, base string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
