package segment

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/models"
)

// runFLV implements the FLV passthrough mode: a single streaming HTTP
// request piped to stream.flv, flushed periodically, ending when the
// upstream closes the TCP connection.
func (f *Fetcher) runFLV(ctx context.Context, handle models.StreamHandle, workDir string, index IndexAppender) error {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return bsrerrors.Wrap(bsrerrors.KindIO, "creating work directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.StreamURL, nil)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindProtocol, "building flv request", err)
	}
	for k, v := range handle.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.http.DoWithContext(ctx, req)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindNetwork, "opening flv stream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return bsrerrors.New(bsrerrors.KindStreamExpired, "flv stream returned 404")
	}
	if resp.StatusCode >= 400 {
		return bsrerrors.New(bsrerrors.KindNetwork, "flv stream returned an error status")
	}

	destPath := filepath.Join(workDir, "stream.flv")
	out, err := os.Create(destPath)
	if err != nil {
		return bsrerrors.Wrap(bsrerrors.KindIO, "creating flv file", err)
	}
	defer out.Close()

	index.Append(models.SegmentEntry{
		Sequence:  0,
		FileName:  "stream.flv",
		IsKey:     true,
		WrittenAt: time.Now(),
	})

	return f.pipeFLV(ctx, resp.Body, out, index)
}

// pipeFLV copies src into dst in fixed-size chunks, flushing to disk every
// flvFlushInterval and reporting cumulative size to index as it grows.
func (f *Fetcher) pipeFLV(ctx context.Context, src io.Reader, dst *os.File, index IndexAppender) error {
	buf := make([]byte, 64*1024)
	lastFlush := time.Now()

	for {
		select {
		case <-ctx.Done():
			_ = dst.Sync()
			return nil
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return bsrerrors.Wrap(bsrerrors.KindIO, "writing flv body", writeErr)
			}
			index.AddSize(int64(n))
			if time.Since(lastFlush) >= flvFlushInterval {
				_ = dst.Sync()
				lastFlush = time.Now()
			}
		}

		if readErr != nil {
			_ = dst.Sync()
			if readErr == io.EOF {
				return nil // TCP close: end of session.
			}
			if ctx.Err() != nil {
				return nil
			}
			return bsrerrors.Wrap(bsrerrors.KindNetwork, "reading flv body", readErr)
		}
	}
}
