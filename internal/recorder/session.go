package recorder

import (
	"context"
	"path/filepath"
	"time"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/danmustorage"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/segment"
)

// runSession opens one recording session, runs it to completion, and
// reports whether it ended on StreamExpired (in which case the caller
// loops straight back here with the same live_id and no RecordEnd
// emitted).
func (r *Recorder) runSession(ctx context.Context) (expired bool, err error) {
	r.mu.Lock()
	liveID := r.liveID
	continuing := r.shouldContinue
	room := r.room
	r.mu.Unlock()

	if !continuing {
		liveID = time.Now().UnixMilli()
	}
	workDir := r.workDir(liveID)
	if err := ensureWorkDir(workDir); err != nil {
		return false, err
	}

	if !continuing && room.CoverURL != "" {
		if err := r.client.DownloadCover(ctx, room.CoverURL, filepath.Join(workDir, "cover.jpg")); err != nil {
			r.logger.Warn("cover download failed", "error", err)
		}
	}

	r.mu.Lock()
	if r.danmu == nil {
		d, derr := danmustorage.Open(filepath.Join(workDir, "danmu.txt"))
		if derr != nil {
			r.mu.Unlock()
			return false, derr
		}
		r.danmu = d
	}
	r.mu.Unlock()

	handle, err := r.getStreamWithRetry(ctx)
	if err != nil {
		// Stream acquisition failed; remain Online and let sessionLoop
		// retry after its backoff rather than emitting RecordStart/RecordEnd
		// for a session that never opened.
		return false, err
	}

	index := models.NewArchiveIndex(r.platform, r.roomID, liveID, handle.Format)
	writer := segment.NewArchiveIndexWriter(index)

	r.mu.Lock()
	r.liveID = liveID
	r.shouldContinue = false
	r.indexWriter = writer
	r.mu.Unlock()

	r.setState(models.StateRecording)
	r.emit(models.EventRecordStart, "")

	runErr := r.fetcher.Run(ctx, handle, workDir, writer)

	if runErr != nil && bsrerrors.Is(runErr, bsrerrors.KindStreamExpired) {
		r.mu.Lock()
		r.shouldContinue = true
		r.mu.Unlock()
		r.setState(models.StateReconnecting)
		r.emit(models.EventStreamExpired, runErr.Error())
		return true, runErr
	}

	reason := ""
	if runErr != nil {
		reason = runErr.Error()
	}
	r.emit(models.EventRecordEnd, reason)
	r.reset()
	if ctx.Err() == nil {
		r.setState(models.StateOnline)
	}
	return false, runErr
}

// getStreamWithRetry retries platform.GetStream up to streamRetryAttempts
// times spaced streamRetryDelay apart before surfacing the last error.
func (r *Recorder) getStreamWithRetry(ctx context.Context) (models.StreamHandle, error) {
	attempts := r.streamRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return models.StreamHandle{}, ctx.Err()
			case <-time.After(r.streamRetryDelay):
			}
		}

		handle, err := r.client.GetStream(ctx, r.account, r.roomID)
		if err == nil {
			return handle, nil
		}
		lastErr = err
		if bsrerrors.IsFatal(err) {
			break
		}
	}
	return models.StreamHandle{}, lastErr
}
