// Package recorder implements the Recorder: the state machine that owns
// one room, composing a Platform Client, the Segment Fetcher, a Danmaku
// Provider, and Danmaku Storage into a single poll/record/danmaku
// lifecycle. Follows a per-session owned-state-behind-a-mutex pattern
// with a ctx/cancel lifetime, a sync.Once-guarded stop, and an
// exponential-backoff reconnect loop.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/danmaku"
	"github.com/jmylchreest/tvarr/internal/danmustorage"
	"github.com/jmylchreest/tvarr/internal/eventbus"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/observability"
	"github.com/jmylchreest/tvarr/internal/platform"
	"github.com/jmylchreest/tvarr/internal/segment"
)

// Config bundles everything needed to construct one Recorder.
type Config struct {
	Platform  models.Platform
	RoomID    string
	Account   models.Account
	CacheRoot string
	Enabled   bool

	Client     platform.Client
	DanmakuReg *danmaku.Registry
	Bus        *eventbus.Bus
	HTTPClient *httpclient.Client
	Logger     *slog.Logger

	PollInterval        time.Duration
	PollJitterMax       time.Duration
	SafetyMargin        time.Duration
	StreamRetryAttempts int
	StreamRetryDelay    time.Duration
	SessionCloseDrain   time.Duration
}

// Recorder owns one (platform, room_id) recording lifecycle.
type Recorder struct {
	platform  models.Platform
	roomID    string
	account   models.Account
	cacheRoot string

	client     platform.Client
	danmakuReg *danmaku.Registry
	bus        *eventbus.Bus
	fetcher    *segment.Fetcher
	logger     *slog.Logger

	pollInterval        time.Duration
	pollJitterMax       time.Duration
	safetyMargin        time.Duration
	streamRetryAttempts int
	streamRetryDelay    time.Duration
	sessionCloseDrain   time.Duration

	// mu serializes every state transition and the emission ordering
	// invariant: LiveStart ≺ RecordStart ≺ ... ≺ RecordEnd ≺ LiveEnd.
	mu             sync.Mutex
	state          models.RecorderState
	enabled        bool
	room           models.RoomInfo
	user           *models.UserInfo
	liveID         int64
	shouldContinue bool
	sessionActive  bool
	indexWriter    *segment.ArchiveIndexWriter
	danmu          *danmustorage.Storage

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	// liveCtx/liveCancel bound one recording session's lifetime.
	liveCtx    context.Context
	liveCancel context.CancelFunc
	liveWG     sync.WaitGroup

	// danmuCtx/danmuCancel bound the danmaku worker's lifetime, which
	// tracks LiveStart/LiveEnd independently of the recording session.
	danmuCtx    context.Context
	danmuCancel context.CancelFunc
	danmuWG     sync.WaitGroup
}

// New constructs a Recorder in the Offline (if enabled) or Disabled state.
// It does not start any goroutines; call Run for that.
func New(cfg Config) *Recorder {
	state := models.StateDisabled
	if cfg.Enabled {
		state = models.StateOffline
	}
	return &Recorder{
		platform:            cfg.Platform,
		roomID:              cfg.RoomID,
		account:             cfg.Account,
		cacheRoot:           cfg.CacheRoot,
		client:              cfg.Client,
		danmakuReg:          cfg.DanmakuReg,
		bus:                 cfg.Bus,
		fetcher:             segment.New(cfg.HTTPClient, cfg.Logger),
		logger:              cfg.Logger.With("platform", cfg.Platform, "room_id", cfg.RoomID),
		pollInterval:        cfg.PollInterval,
		pollJitterMax:       cfg.PollJitterMax,
		safetyMargin:        cfg.SafetyMargin,
		streamRetryAttempts: cfg.StreamRetryAttempts,
		streamRetryDelay:    cfg.StreamRetryDelay,
		sessionCloseDrain:   cfg.SessionCloseDrain,
		state:               state,
		enabled:             cfg.Enabled,
	}
}

// Run spawns the poll worker and returns immediately.
func (r *Recorder) Run() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.pollLoop(r.ctx)
}

// Stop cancels all workers, closes the current DanmuStorage, and returns
// once the filesystem is consistent.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()

		r.mu.Lock()
		if r.liveCancel != nil {
			r.liveCancel()
		}
		if r.danmuCancel != nil {
			r.danmuCancel()
		}
		r.mu.Unlock()
		r.liveWG.Wait()
		r.danmuWG.Wait()

		r.mu.Lock()
		if r.danmu != nil {
			_ = r.danmu.Close()
			r.danmu = nil
		}
		r.mu.Unlock()
	})
}

// Info returns a snapshot for UI consumption.
func (r *Recorder) Info() models.RecorderInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := models.RecorderInfo{
		Platform:    r.platform,
		RoomID:      r.roomID,
		State:       r.state,
		Enabled:     r.enabled,
		Room:        r.room,
		User:        r.user,
		LiveID:      r.liveID,
		IsRecording: r.state == models.StateRecording,
		UpdatedAt:   time.Now(),
	}
	if r.indexWriter != nil {
		snap := r.indexWriter.Snapshot()
		info.TotalDuration = snap.TotalDuration
		info.TotalSize = snap.TotalSize
		info.LastSequence = snap.LastSequence
	}
	return info
}

// SetEnabled toggles the record gate without restarting the poll loop;
// the Disabled<->Offline transition is driven by enable=false.
func (r *Recorder) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	if !enabled && r.state != models.StateDisabled {
		r.state = models.StateDisabled
	} else if enabled && r.state == models.StateDisabled {
		r.state = models.StateOffline
	}
	r.mu.Unlock()
}

// logRecoverable logs a non-fatal error at Warn, coalescing rate-limit
// errors: once one is logged for this room's platform, duplicates are
// suppressed for observability.RateLimitLogWindow.
func (r *Recorder) logRecoverable(msg string, err error) {
	if bsrerrors.Is(err, bsrerrors.KindRateLimited) {
		key := "ratelimit:" + string(r.platform)
		if !observability.ShouldLog(key, observability.RateLimitLogWindow) {
			return
		}
	}
	r.logger.Warn(msg, "error", err)
}

func (r *Recorder) setState(s models.RecorderState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Recorder) shouldRecord() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled && r.room.LiveStatus
}

func (r *Recorder) isRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionActive
}

// emit publishes a lifecycle event on the bus, stamping At and the
// identifying fields. emit takes r.mu briefly to read liveID, so callers
// must not hold r.mu when calling it.
func (r *Recorder) emit(evtType models.LifecycleEventType, reason string) {
	if r.bus == nil {
		return
	}
	r.mu.Lock()
	liveID := r.liveID
	r.mu.Unlock()
	r.bus.Publish(models.LifecycleEvent{
		Type:     evtType,
		Platform: r.platform,
		RoomID:   r.roomID,
		LiveID:   liveID,
		At:       time.Now(),
		Reason:   reason,
	})
}

// workDir returns the archive directory for liveID:
// <cache_root>/<platform>/<room>/<live_id>/.
func (r *Recorder) workDir(liveID int64) string {
	return filepath.Join(r.cacheRoot, string(r.platform), r.roomID, fmt.Sprintf("%d", liveID))
}

// reset drops the StreamHandle-adjacent session state, closes the
// current DanmuStorage, and zeros the session counters.
func (r *Recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.danmu != nil {
		_ = r.danmu.Close()
		r.danmu = nil
	}
	r.indexWriter = nil
	r.liveID = 0
	r.shouldContinue = false
}

// jitteredInterval returns pollInterval plus a uniform random offset in
// [-pollJitterMax, pollJitterMax), never less than zero.
func (r *Recorder) jitteredInterval() time.Duration {
	if r.pollJitterMax <= 0 {
		return r.pollInterval
	}
	d := r.pollInterval + time.Duration(rand.Int63n(2*int64(r.pollJitterMax))) - r.pollJitterMax
	if d < 0 {
		return 0
	}
	return d
}

// randomBackoff returns a random duration in [2s, 5s), the shared retry
// spacing used by both the record worker and the danmaku worker after a
// non-fatal failure.
func randomBackoff() time.Duration {
	return 2*time.Second + time.Duration(rand.Int63n(int64(3*time.Second)))
}

// ensureWorkDir creates the archive directory for one session.
func ensureWorkDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
