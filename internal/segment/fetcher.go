package segment

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
)

// maxParallelDownloads bounds concurrent segment downloads within one
// playlist refresh cycle to a bounded degree of parallelism.
const maxParallelDownloads = 4

// maxSegmentRetries and segmentRetryBaseDelay implement the per-segment
// retry policy: retry up to 3 times with exponential backoff starting at
// 500 ms.
const (
	maxSegmentRetries     = 3
	segmentRetryBaseDelay = 500 * time.Millisecond
)

// playlistRefreshCap is the upper bound on the inter-refresh sleep:
// min(target_duration, 2s).
const playlistRefreshCap = 2 * time.Second

// flvFlushInterval is how often the FLV passthrough mode flushes its
// output file to disk.
const flvFlushInterval = 2 * time.Second

// IndexAppender receives each fully-written segment in write order. The
// Fetcher serializes calls to Append so callers never observe
// out-of-sequence or duplicate entries (mirrors models.ArchiveIndex.Append's
// ordering requirement).
type IndexAppender interface {
	Append(entry models.SegmentEntry)
	SetInitSegment()
	AddSize(n int64)
}

// Fetcher implements the Segment Fetcher: given a resolved StreamHandle,
// it writes media segments (or a single FLV body) into workDir and
// reports each one to index.
type Fetcher struct {
	http       *httpclient.Client
	logger     *slog.Logger
	refreshCap time.Duration
}

// New constructs a Fetcher using client for all playlist/segment/FLV HTTP
// requests (the same resilient client every Platform Client uses).
func New(client *httpclient.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{http: client, logger: logger, refreshCap: playlistRefreshCap}
}

// Run executes one fetch loop for handle until ctx is cancelled or a fatal
// error occurs. It returns bsrerrors.KindStreamExpired when the playlist
// 404s twice in a row, a bsrerrors.KindIO error on local write failure
// (always fatal), or nil on clean cancellation.
func (f *Fetcher) Run(ctx context.Context, handle models.StreamHandle, workDir string, index IndexAppender) error {
	switch handle.Format {
	case models.ContainerFLV:
		return f.runFLV(ctx, handle, workDir, index)
	default:
		return f.runHLS(ctx, handle, workDir, index)
	}
}
