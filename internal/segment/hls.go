package segment

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/models"
)

// runHLS implements the HLS mode of the Segment Fetcher: refresh the
// playlist, download every new segment with bounded parallelism, insert
// into the index in sequence order, sleep, repeat until cancelled or the
// stream expires.
func (f *Fetcher) runHLS(ctx context.Context, handle models.StreamHandle, workDir string, index IndexAppender) error {
	lastSeq := int64(-1)
	consecutive404 := 0
	haveInit := false
	ext := ".ts"
	if handle.Format == models.ContainerFMP4 {
		ext = ".m4s"
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pl, err := f.fetchPlaylist(ctx, handle)
		if err != nil {
			if isNotFoundErr(err) {
				consecutive404++
				if consecutive404 >= 2 {
					return bsrerrors.New(bsrerrors.KindStreamExpired, "playlist returned 404 twice in a row")
				}
				if !sleepCtx(ctx, f.refreshCap) {
					return nil
				}
				continue
			}
			f.logger.Warn("hls playlist refresh failed, retrying", "error", err)
			if !sleepCtx(ctx, f.refreshCap) {
				return nil
			}
			continue
		}
		consecutive404 = 0

		if pl.InitMapURL != "" && !haveInit {
			initPath := filepath.Join(workDir, "init.m4s")
			if _, err := downloadWithRetry(ctx, f.http, pl.InitMapURL, initPath, handle.Headers); err != nil {
				return bsrerrors.Wrap(bsrerrors.KindIO, "downloading init segment", err)
			}
			if ok, err := fmp4HasMoov(initPath); err != nil || !ok {
				return bsrerrors.Wrap(bsrerrors.KindIO, "init segment missing moov box", err)
			}
			index.SetInitSegment()
			haveInit = true
		}

		pending := make([]entry, 0, len(pl.Entries))
		for _, e := range pl.Entries {
			if int64(e.Sequence) <= lastSeq {
				continue
			}
			pending = append(pending, e)
		}

		if len(pending) > 0 {
			results, err := f.downloadSegmentsBounded(ctx, handle, workDir, ext, pending)
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.entry.Sequence > lastSeq {
					lastSeq = r.entry.Sequence
				}
				index.Append(r.entry)
				index.AddSize(r.size)
			}
		}

		if pl.Ended {
			return nil
		}

		sleepFor := time.Duration(pl.TargetSeconds * float64(time.Second))
		if sleepFor <= 0 || sleepFor > f.refreshCap {
			sleepFor = f.refreshCap
		}
		if !sleepCtx(ctx, sleepFor) {
			return nil
		}
	}
}

// segmentResult pairs a parsed index entry with its downloaded byte size.
type segmentResult struct {
	entry models.SegmentEntry
	size  int64
}

// downloadSegmentsBounded downloads pending segments with up to
// maxParallelDownloads concurrent requests, returning results in
// ascending sequence order regardless of completion order; index
// insertion is serialized to preserve ordering.
func (f *Fetcher) downloadSegmentsBounded(ctx context.Context, handle models.StreamHandle, workDir, ext string, pending []entry) ([]segmentResult, error) {
	results := make([]segmentResult, len(pending))
	present := make([]bool, len(pending))
	errs := make([]error, len(pending))

	sem := make(chan struct{}, maxParallelDownloads)
	var wg sync.WaitGroup

	for i, e := range pending {
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}

			fileName := fmt.Sprintf("%d%s", e.Sequence, ext)
			destPath := filepath.Join(workDir, fileName)

			n, err := downloadWithRetry(ctx, f.http, e.URL, destPath, handle.Headers)
			if err != nil {
				f.logger.Warn("segment download failed, skipping sequence", "sequence", e.Sequence, "error", err)
				errs[i] = err
				return
			}

			isKey := true
			if handle.Format == models.ContainerFMP4 {
				isKey, _ = fmp4HasKeyFrame(destPath)
			} else {
				isKey, _ = tsHasKeyFrame(destPath)
			}

			results[i] = segmentResult{
				entry: models.SegmentEntry{
					Sequence:      int64(e.Sequence),
					Duration:      e.Duration,
					FileName:      fileName,
					IsKey:         isKey,
					Discontinuity: e.Discontinuity,
					WrittenAt:     time.Now(),
				},
				size: n,
			}
			present[i] = true
		}(i, e)
	}
	wg.Wait()

	var ordered []segmentResult
	for i, err := range errs {
		if err != nil {
			if bsrerrors.Is(err, bsrerrors.KindCancelled) || ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if bsrerrors.Is(err, bsrerrors.KindIO) {
				return nil, err
			}
			continue // gap logged above, sequence number skipped per policy
		}
		if present[i] {
			ordered = append(ordered, results[i])
		}
	}
	return ordered, nil
}

// fetchPlaylist retrieves and parses the current HLS media playlist,
// following master-playlist variant redirection once if necessary.
func (f *Fetcher) fetchPlaylist(ctx context.Context, handle models.StreamHandle) (playlist, error) {
	body, err := f.fetchURL(ctx, handle.PlaylistURL, handle.Headers)
	if err != nil {
		return playlist{}, err
	}

	pl, err := parsePlaylist(bytes.NewReader(body), handle.PlaylistURL)
	if err != nil {
		return playlist{}, err
	}

	if len(pl.Entries) == 0 && pl.MediaSequence == 0 && pl.TargetSeconds == 0 {
		// Likely a master playlist; try the first variant URI.
		if variant := firstVariantURI(body); variant != "" {
			variantURL := resolveURL(variant, handle.PlaylistURL)
			body, err = f.fetchURL(ctx, variantURL, handle.Headers)
			if err != nil {
				return playlist{}, err
			}
			return parsePlaylist(bytes.NewReader(body), variantURL)
		}
	}
	return pl, nil
}

// firstVariantURI scans a master playlist body for the first non-comment
// line following an #EXT-X-STREAM-INF tag.
func firstVariantURI(body []byte) string {
	sawStreamInf := false
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			sawStreamInf = true
		case strings.HasPrefix(line, "#"):
			continue
		case sawStreamInf && line != "":
			return line
		}
	}
	return ""
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, bsrerrors.Wrap(bsrerrors.KindProtocol, "building playlist request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching playlist", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, bsrerrors.New(bsrerrors.KindStreamExpired, "playlist not found")
	}
	if resp.StatusCode >= 400 {
		return nil, bsrerrors.New(bsrerrors.KindNetwork, fmt.Sprintf("playlist fetch returned status %d", resp.StatusCode))
	}

	return boundedRead(resp.Body, 8<<20)
}

func isNotFoundErr(err error) bool {
	return bsrerrors.Is(err, bsrerrors.KindStreamExpired)
}

// sleepCtx sleeps for d or returns false early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
