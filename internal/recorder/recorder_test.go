package recorder

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/tvarr/internal/danmaku"
	"github.com/jmylchreest/tvarr/internal/eventbus"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient is a scripted platform.Client: GetRoomInfo cycles through a
// fixed sequence of snapshots, one per call, holding the last one once
// exhausted.
type fakeClient struct {
	mu     sync.Mutex
	rooms  []models.RoomInfo
	idx    int
	handle models.StreamHandle
	getErr error
}

func (f *fakeClient) Platform() models.Platform { return models.PlatformMainstream }

func (f *fakeClient) GetRoomInfo(ctx context.Context, account models.Account, roomID string) (models.RoomInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.rooms[f.idx]
	if f.idx < len(f.rooms)-1 {
		f.idx++
	}
	return room, nil
}

func (f *fakeClient) GetUserInfo(ctx context.Context, account models.Account, userID string) (models.UserInfo, error) {
	return models.UserInfo{UserID: userID}, nil
}

func (f *fakeClient) GetStream(ctx context.Context, account models.Account, roomID string) (models.StreamHandle, error) {
	if f.getErr != nil {
		return models.StreamHandle{}, f.getErr
	}
	return f.handle, nil
}

func (f *fakeClient) DownloadCover(ctx context.Context, url, destPath string) error {
	return nil
}

func newRecorderForTest(t *testing.T, client *fakeClient, bus *eventbus.Bus) *Recorder {
	t.Helper()
	cfg := Config{
		Platform:            models.PlatformMainstream,
		RoomID:              "room1",
		Account:             models.Account{Platform: models.PlatformMainstream},
		CacheRoot:           t.TempDir(),
		Enabled:             true,
		Client:              client,
		DanmakuReg:          danmaku.NewRegistry(),
		Bus:                 bus,
		HTTPClient:          httpclient.NewWithDefaults(),
		Logger:              testLogger(),
		PollInterval:        10 * time.Millisecond,
		PollJitterMax:       5 * time.Millisecond,
		SafetyMargin:        time.Second,
		StreamRetryAttempts: 2,
		StreamRetryDelay:    5 * time.Millisecond,
		SessionCloseDrain:   50 * time.Millisecond,
	}
	return New(cfg)
}

func TestRecorder_SetEnabledFalse_EntersDisabled(t *testing.T) {
	client := &fakeClient{rooms: []models.RoomInfo{{}}}
	rec := newRecorderForTest(t, client, eventbus.New(16))
	rec.SetEnabled(false)
	assert.Equal(t, models.StateDisabled, rec.Info().State)
}

func TestRecorder_PollLoop_EmitsLiveStartAndLiveEnd(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client := &fakeClient{
		rooms: []models.RoomInfo{
			{LiveStatus: false},
			{LiveStatus: true, Title: "live"},
			{LiveStatus: false},
		},
		getErr: assert.AnError,
	}
	bus := eventbus.New(16)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	rec := newRecorderForTest(t, client, bus)
	rec.Run()
	defer rec.Stop()

	var gotStart, gotEnd bool
	deadline := time.After(2 * time.Second)
	for !gotStart || !gotEnd {
		select {
		case evt := <-sub.Events():
			switch evt.Type {
			case models.EventLiveStart:
				gotStart = true
			case models.EventLiveEnd:
				gotEnd = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for lifecycle events, start=%v end=%v", gotStart, gotEnd)
		}
	}
}

func TestRecorder_Stop_IsIdempotentAndLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client := &fakeClient{rooms: []models.RoomInfo{{LiveStatus: false}}}
	rec := newRecorderForTest(t, client, eventbus.New(16))
	rec.Run()

	rec.Stop()
	require.NotPanics(t, rec.Stop)
}

func TestRecorder_Info_ReflectsRoomSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client := &fakeClient{rooms: []models.RoomInfo{{LiveStatus: true, Title: "hello"}}, getErr: assert.AnError}
	rec := newRecorderForTest(t, client, eventbus.New(16))
	rec.Run()
	defer rec.Stop()

	require.Eventually(t, func() bool {
		return rec.Info().Room.Title == "hello"
	}, time.Second, 5*time.Millisecond)
}
