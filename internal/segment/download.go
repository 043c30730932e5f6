package segment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/httpclient"
)

// downloadToFile fetches rawURL with headers and writes the body to
// destPath, returning the number of bytes written. Callers retry this at
// a higher level per the per-segment retry policy.
func downloadToFile(ctx context.Context, client *httpclient.Client, rawURL, destPath string, headers map[string]string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, bsrerrors.Wrap(bsrerrors.KindProtocol, "building segment request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.DoWithContext(ctx, req)
	if err != nil {
		return 0, bsrerrors.Wrap(bsrerrors.KindNetwork, "fetching segment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, bsrerrors.New(bsrerrors.KindStreamExpired, fmt.Sprintf("segment %s returned 404", rawURL))
	}
	if resp.StatusCode >= 400 {
		return 0, bsrerrors.New(bsrerrors.KindNetwork, fmt.Sprintf("segment %s returned status %d", rawURL, resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, bsrerrors.Wrap(bsrerrors.KindIO, "creating segment directory", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, bsrerrors.Wrap(bsrerrors.KindIO, "creating segment file", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return n, bsrerrors.Wrap(bsrerrors.KindIO, "writing segment file", err)
	}
	return n, nil
}

// downloadWithRetry retries downloadToFile up to maxSegmentRetries times
// with exponential backoff from segmentRetryBaseDelay. A StreamExpired
// result is never retried and is returned at once; downloadSegmentsBounded
// then skips that sequence like any other failed download.
func downloadWithRetry(ctx context.Context, client *httpclient.Client, rawURL, destPath string, headers map[string]string) (int64, error) {
	var lastErr error
	delay := segmentRetryBaseDelay

	for attempt := 0; attempt <= maxSegmentRetries; attempt++ {
		n, err := downloadToFile(ctx, client, rawURL, destPath, headers)
		if err == nil {
			return n, nil
		}
		if bsrerrors.Is(err, bsrerrors.KindStreamExpired) {
			return 0, err
		}
		lastErr = err

		if attempt == maxSegmentRetries {
			break
		}
		select {
		case <-ctx.Done():
			return 0, bsrerrors.Wrap(bsrerrors.KindCancelled, "segment download cancelled during retry", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return 0, lastErr
}
