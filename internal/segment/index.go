package segment

import (
	"sync"

	"github.com/jmylchreest/tvarr/internal/models"
)

// ArchiveIndexWriter adapts a models.ArchiveIndex into an IndexAppender,
// serializing writes so a Recorder can safely read Snapshot() concurrently
// from a different goroutine (e.g. for an info() poll) while the Fetcher
// is still appending.
type ArchiveIndexWriter struct {
	mu    sync.Mutex
	index *models.ArchiveIndex
}

// NewArchiveIndexWriter wraps index for use by a Fetcher.
func NewArchiveIndexWriter(index *models.ArchiveIndex) *ArchiveIndexWriter {
	return &ArchiveIndexWriter{index: index}
}

// Append records entry, updating cumulative duration and last sequence.
func (w *ArchiveIndexWriter) Append(entry models.SegmentEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.index.Append(entry)
}

// SetInitSegment marks the init segment as written.
func (w *ArchiveIndexWriter) SetInitSegment() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.index.HasInitSegment = true
}

// AddSize accumulates n bytes into TotalSize, used by FLV mode where
// segments aren't individually indexed.
func (w *ArchiveIndexWriter) AddSize(n int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.index.TotalSize += n
}

// Snapshot returns a shallow copy of the current index state.
func (w *ArchiveIndexWriter) Snapshot() models.ArchiveIndex {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.index
}
