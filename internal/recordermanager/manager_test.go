package recordermanager

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmylchreest/tvarr/internal/config"
	"github.com/jmylchreest/tvarr/internal/danmaku"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRecorderRepo is an in-memory RecorderRepository for testing.
type mockRecorderRepo struct {
	rows []*models.RecorderRow
}

func (m *mockRecorderRepo) Create(_ context.Context, row *models.RecorderRow) error {
	row.ID = models.NewULID()
	m.rows = append(m.rows, row)
	return nil
}

func (m *mockRecorderRepo) GetByID(_ context.Context, id models.ULID) (*models.RecorderRow, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRecorderRepo) GetByRoom(_ context.Context, plat models.Platform, roomID string) (*models.RecorderRow, error) {
	for _, r := range m.rows {
		if r.Platform == plat && r.RoomID == roomID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRecorderRepo) GetAll(_ context.Context) ([]*models.RecorderRow, error) {
	return m.rows, nil
}

func (m *mockRecorderRepo) Update(_ context.Context, row *models.RecorderRow) error {
	for i, r := range m.rows {
		if r.ID == row.ID {
			m.rows[i] = row
			return nil
		}
	}
	return nil
}

func (m *mockRecorderRepo) Delete(_ context.Context, id models.ULID) error {
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// mockAccountRepo is an in-memory AccountRepository for testing.
type mockAccountRepo struct {
	rows []*models.AccountRow
}

func (m *mockAccountRepo) Create(_ context.Context, row *models.AccountRow) error {
	row.ID = models.NewULID()
	m.rows = append(m.rows, row)
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id models.ULID) (*models.AccountRow, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockAccountRepo) GetByPlatformUser(_ context.Context, plat models.Platform, userID string) (*models.AccountRow, error) {
	for _, r := range m.rows {
		if r.Platform == plat && r.UserID == userID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockAccountRepo) GetAll(_ context.Context) ([]*models.AccountRow, error) {
	return m.rows, nil
}

func (m *mockAccountRepo) Update(_ context.Context, row *models.AccountRow) error {
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, id models.ULID) error {
	return nil
}

// stubClient is a minimal platform.Client that never goes live, so its
// Recorder stays parked in Offline for the lifetime of a test.
type stubClient struct{ platform models.Platform }

func (s stubClient) Platform() models.Platform { return s.platform }
func (s stubClient) GetRoomInfo(ctx context.Context, account models.Account, roomID string) (models.RoomInfo, error) {
	return models.RoomInfo{}, nil
}
func (s stubClient) GetUserInfo(ctx context.Context, account models.Account, userID string) (models.UserInfo, error) {
	return models.UserInfo{}, nil
}
func (s stubClient) GetStream(ctx context.Context, account models.Account, roomID string) (models.StreamHandle, error) {
	return models.StreamHandle{}, nil
}
func (s stubClient) DownloadCover(ctx context.Context, url, destPath string) error { return nil }

func newTestManager(t *testing.T) (*Manager, *mockRecorderRepo, *mockAccountRepo) {
	t.Helper()
	recRepo := &mockRecorderRepo{}
	acctRepo := &mockAccountRepo{}

	clients := platform.NewClientFactory()
	clients.Register(stubClient{platform: models.PlatformMainstream})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.RecorderConfig{
		PollInterval:        20 * time.Millisecond,
		PollJitterMax:       5 * time.Millisecond,
		SafetyMargin:        time.Second,
		StreamRetryAttempts: 1,
		StreamRetryDelay:    5 * time.Millisecond,
		SessionCloseDrain:   50 * time.Millisecond,
		EventBusCapacity:    16,
	}

	mgr := New(recRepo, acctRepo, clients, danmaku.NewRegistry(), httpclient.NewWithDefaults(), cfg, t.TempDir(), logger)
	return mgr, recRepo, acctRepo
}

func TestManager_Add_PersistsAndStartsRecorder(t *testing.T) {
	mgr, _, acctRepo := newTestManager(t)
	defer mgr.Shutdown()

	acctRepo.rows = append(acctRepo.rows, &models.AccountRow{
		BaseModel: models.BaseModel{ID: models.NewULID()},
		Platform:  models.PlatformMainstream,
		UserID:    "u1",
	})
	accountID := acctRepo.rows[0].ID

	row, err := mgr.Add(context.Background(), models.PlatformMainstream, "room1", accountID)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformMainstream, row.Platform)
	assert.Equal(t, "room1", row.RoomID)

	infos := mgr.List()
	require.Len(t, infos, 1)
	assert.Equal(t, "room1", infos[0].RoomID)
}

func TestManager_Add_FailsWhenAlreadyRegistered(t *testing.T) {
	mgr, _, acctRepo := newTestManager(t)
	defer mgr.Shutdown()

	acctRepo.rows = append(acctRepo.rows, &models.AccountRow{BaseModel: models.BaseModel{ID: models.NewULID()}, Platform: models.PlatformMainstream, UserID: "u1"})
	accountID := acctRepo.rows[0].ID

	_, err := mgr.Add(context.Background(), models.PlatformMainstream, "room1", accountID)
	require.NoError(t, err)

	_, err = mgr.Add(context.Background(), models.PlatformMainstream, "room1", accountID)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestManager_Add_FailsWhenAccountMissing(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	defer mgr.Shutdown()

	_, err := mgr.Add(context.Background(), models.PlatformMainstream, "room1", models.NewULID())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestManager_Remove_IsIdempotent(t *testing.T) {
	mgr, _, acctRepo := newTestManager(t)
	defer mgr.Shutdown()

	acctRepo.rows = append(acctRepo.rows, &models.AccountRow{BaseModel: models.BaseModel{ID: models.NewULID()}, Platform: models.PlatformMainstream, UserID: "u1"})
	accountID := acctRepo.rows[0].ID

	_, err := mgr.Add(context.Background(), models.PlatformMainstream, "room1", accountID)
	require.NoError(t, err)

	require.NoError(t, mgr.Remove(context.Background(), models.PlatformMainstream, "room1"))
	require.NoError(t, mgr.Remove(context.Background(), models.PlatformMainstream, "room1"))
	assert.Empty(t, mgr.List())
}

func TestManager_SetEnabled_FailsForUnknownRoom(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	defer mgr.Shutdown()

	err := mgr.SetEnabled(context.Background(), models.PlatformMainstream, "missing", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Subscribe_DoesNotRaceWithPolling(t *testing.T) {
	mgr, _, acctRepo := newTestManager(t)
	defer mgr.Shutdown()

	acctRepo.rows = append(acctRepo.rows, &models.AccountRow{BaseModel: models.BaseModel{ID: models.NewULID()}, Platform: models.PlatformMainstream, UserID: "u1"})
	accountID := acctRepo.rows[0].ID

	sub := mgr.Subscribe()
	defer mgr.Unsubscribe(sub)

	_, err := mgr.Add(context.Background(), models.PlatformMainstream, "room1", accountID)
	require.NoError(t, err)

	// The stub client never reports live, so no lifecycle events are
	// expected; this only exercises that Subscribe/Unsubscribe don't race
	// with a live Recorder's background polling.
	select {
	case <-sub.Events():
	case <-time.After(50 * time.Millisecond):
	}
}
