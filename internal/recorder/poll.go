package recorder

import (
	"context"
	"time"

	"github.com/jmylchreest/tvarr/internal/models"
)

// pollLoop refreshes room state on a jittered cadence and drives the
// Disabled/Offline/Online transitions, then hands off to the session loop
// whenever the record gate opens.
func (r *Recorder) pollLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		r.pollOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.jitteredInterval()):
		}
	}
}

func (r *Recorder) pollOnce(ctx context.Context) {
	r.mu.Lock()
	enabled := r.enabled
	r.mu.Unlock()
	if !enabled {
		return
	}

	room, err := r.client.GetRoomInfo(ctx, r.account, r.roomID)
	if err != nil {
		r.logRecoverable("get_room_info failed", err)
		return
	}

	r.mu.Lock()
	prev := r.room
	changed := prev.Changed(room)
	r.room = room
	r.mu.Unlock()

	if !changed {
		if room.LiveStatus {
			r.maybeStartSession(ctx)
		}
		return
	}

	if room.LiveStatus && !prev.LiveStatus {
		r.setState(models.StateOnline)
		r.emit(models.EventLiveStart, "")
		r.startDanmakuWorker(ctx)
	} else if !room.LiveStatus && prev.LiveStatus {
		r.mu.Lock()
		liveCancel := r.liveCancel
		r.mu.Unlock()
		if liveCancel != nil {
			liveCancel()
		}
		r.liveWG.Wait()
		r.stopDanmakuWorker()
		r.setState(models.StateOffline)
		r.reset()
		r.emit(models.EventLiveEnd, "")
	}

	if room.LiveStatus {
		r.maybeStartSession(ctx)
	}
}

// maybeStartSession opens a recording session if the record gate is open
// and none is already running. Session lifetime is tracked via liveCtx so a
// LiveEnd or Stop can cancel it without tearing down the poll loop. The
// record gate is enabled ∧ room.live_status.
func (r *Recorder) maybeStartSession(ctx context.Context) {
	if !r.shouldRecord() || r.isRecording() {
		return
	}

	r.mu.Lock()
	liveCtx, liveCancel := context.WithCancel(ctx)
	r.liveCtx = liveCtx
	r.liveCancel = liveCancel
	r.sessionActive = true
	r.mu.Unlock()

	r.liveWG.Add(1)
	go func() {
		defer r.liveWG.Done()
		defer func() {
			r.mu.Lock()
			r.sessionActive = false
			r.mu.Unlock()
		}()
		r.sessionLoop(liveCtx)
	}()
}

// sessionLoop opens, runs, and retries recording sessions until the room
// goes offline, the Recorder is stopped, or a non-recoverable error occurs.
func (r *Recorder) sessionLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !r.shouldRecord() {
			return
		}

		expired, err := r.runSession(ctx)
		if err != nil {
			r.logRecoverable("recording session ended", err)
		}
		if expired {
			// should_continue is already set; loop straight back into
			// session open with the same live_id, no RecordEnd emitted.
			continue
		}

		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(randomBackoff()):
		}
	}
}
