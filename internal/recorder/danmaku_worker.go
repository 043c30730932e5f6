package recorder

import (
	"context"
	"time"

	"github.com/jmylchreest/tvarr/internal/danmaku"
	"github.com/jmylchreest/tvarr/internal/metrics"
	"github.com/jmylchreest/tvarr/internal/models"
)

// startDanmakuWorker starts the danmaku worker on LiveStart. It runs
// independently of the recording session: its failures retry on their own
// backoff schedule and never stop recording. A no-op for platforms with
// no registered provider (e.g. the global short-video platform).
func (r *Recorder) startDanmakuWorker(ctx context.Context) {
	if r.danmakuReg == nil {
		return
	}
	provider := r.danmakuReg.New(r.platform, r.account, r.roomID)
	if provider == nil {
		return
	}

	danmuCtx, danmuCancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.danmuCtx = danmuCtx
	r.danmuCancel = danmuCancel
	r.mu.Unlock()

	r.danmuWG.Add(1)
	go func() {
		defer r.danmuWG.Done()
		r.danmakuLoop(danmuCtx, provider)
	}()
}

// stopDanmakuWorker stops the worker on LiveEnd (or Recorder Stop) and
// waits for it to exit.
func (r *Recorder) stopDanmakuWorker() {
	r.mu.Lock()
	cancel := r.danmuCancel
	r.danmuCancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.danmuWG.Wait()
}

// danmakuLoop connects, drains chat messages, and reconnects on failure
// while the room is live, matching the record worker's retry cadence.
func (r *Recorder) danmakuLoop(ctx context.Context, provider danmaku.Provider) {
	defer provider.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := provider.Start(ctx); err != nil {
			r.logger.Warn("danmaku start failed", "error", err)
			if !r.sleepOrDone(ctx, randomBackoff()) {
				return
			}
			continue
		}

		r.drainDanmaku(ctx, provider)
		provider.Stop()

		if ctx.Err() != nil {
			return
		}
		if !r.sleepOrDone(ctx, randomBackoff()) {
			return
		}
	}
}

func (r *Recorder) drainDanmaku(ctx context.Context, provider danmaku.Provider) {
	for {
		msg, ok := provider.Recv(ctx)
		if !ok {
			return
		}
		if !msg.IsChat() {
			continue
		}
		r.handleDanmu(*msg)
	}
}

// handleDanmu persists a chat message and rebroadcasts it on the bus.
func (r *Recorder) handleDanmu(msg models.DanmuMessage) {
	r.mu.Lock()
	store := r.danmu
	liveID := r.liveID
	r.mu.Unlock()

	if store != nil {
		if err := store.AddLine(msg.TimestampMs, msg.Content); err != nil {
			r.logger.Warn("danmu write failed", "error", err)
		} else {
			metrics.DanmakuMessagesTotal.WithLabelValues(string(r.platform), r.roomID).Inc()
		}
	}

	if r.bus == nil {
		return
	}
	r.bus.Publish(models.LifecycleEvent{
		Type:     models.EventDanmuReceived,
		Platform: r.platform,
		RoomID:   r.roomID,
		LiveID:   liveID,
		At:       time.Now(),
		Danmu:    &msg,
	})
}

// sleepOrDone sleeps for d or returns false early if ctx is cancelled.
func (r *Recorder) sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
