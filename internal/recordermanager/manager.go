// Package recordermanager implements the single owner of every room's
// Recorder, keyed by (platform, room_id), backed by the repository
// collaborator for durable configuration and fronting the shared event
// bus. Modeled on a ClientFactory-style registry (map + RWMutex) plus a
// subscribe/broadcast service lifecycle.
package recordermanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/tvarr/internal/config"
	"github.com/jmylchreest/tvarr/internal/danmaku"
	"github.com/jmylchreest/tvarr/internal/eventbus"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/platform"
	"github.com/jmylchreest/tvarr/internal/recorder"
	"github.com/jmylchreest/tvarr/internal/repository"
)

// ErrAlreadyExists is returned by Add when a Recorder for the given
// (platform, room_id) is already registered.
var ErrAlreadyExists = errors.New("recorder already exists")

// ErrNotFound is returned by operations addressing an unregistered
// (platform, room_id).
var ErrNotFound = errors.New("recorder not found")

// ErrAccountNotFound is returned by Add when the requested account row
// does not exist.
var ErrAccountNotFound = errors.New("account not found")

// Manager owns every live Recorder, protected by a single writer lock,
// keyed by (platform, room_id).
type Manager struct {
	mu        sync.RWMutex
	recorders map[models.RoomKey]*recorder.Recorder

	recorderRepo repository.RecorderRepository
	accountRepo  repository.AccountRepository

	clients    *platform.ClientFactory
	danmakuReg *danmaku.Registry
	bus        *eventbus.Bus
	httpClient *httpclient.Client
	cfg        config.RecorderConfig
	cacheRoot  string
	logger     *slog.Logger
}

// New constructs a Manager with no Recorders registered. Load should be
// called once afterward to hydrate previously configured rooms.
func New(
	recorderRepo repository.RecorderRepository,
	accountRepo repository.AccountRepository,
	clients *platform.ClientFactory,
	danmakuReg *danmaku.Registry,
	httpClient *httpclient.Client,
	cfg config.RecorderConfig,
	cacheRoot string,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		recorders:    make(map[models.RoomKey]*recorder.Recorder),
		recorderRepo: recorderRepo,
		accountRepo:  accountRepo,
		clients:      clients,
		danmakuReg:   danmakuReg,
		bus:          eventbus.New(cfg.EventBusCapacity),
		httpClient:   httpClient,
		cfg:          cfg,
		cacheRoot:    cacheRoot,
		logger:       logger,
	}
}

// Load hydrates a Recorder for every RecorderRow currently in the
// repository and starts each one, so durable configuration survives a
// restart.
func (m *Manager) Load(ctx context.Context) error {
	rows, err := m.recorderRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading recorders: %w", err)
	}

	for _, row := range rows {
		accountRow, err := m.accountRepo.GetByID(ctx, row.AccountID)
		if err != nil || accountRow == nil {
			m.logger.Warn("skipping recorder with missing account", "platform", row.Platform, "room_id", row.RoomID)
			continue
		}
		if err := m.start(row.Platform, row.RoomID, accountRow.ToAccount(), row.IsEnabled()); err != nil {
			m.logger.Warn("failed to start recorder", "platform", row.Platform, "room_id", row.RoomID, "error", err)
		}
	}
	return nil
}

// Add registers and starts a new Recorder for (platform, room_id), backed
// by account. Fails with ErrAlreadyExists if one is already registered.
func (m *Manager) Add(ctx context.Context, plat models.Platform, roomID string, accountID models.ULID) (*models.RecorderRow, error) {
	key := models.RoomKey{Platform: plat, RoomID: roomID}

	m.mu.Lock()
	if _, exists := m.recorders[key]; exists {
		m.mu.Unlock()
		return nil, ErrAlreadyExists
	}
	m.mu.Unlock()

	accountRow, err := m.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if accountRow == nil {
		return nil, ErrAccountNotFound
	}

	row := &models.RecorderRow{
		Platform:  plat,
		RoomID:    roomID,
		AccountID: accountID,
		Enabled:   models.BoolPtr(true),
	}
	if err := m.recorderRepo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("persisting recorder: %w", err)
	}

	if err := m.start(plat, roomID, accountRow.ToAccount(), true); err != nil {
		return nil, err
	}
	return row, nil
}

// start constructs, registers, and runs a Recorder. Add calls it after
// checking that the room is not yet in the map and persisting its row;
// Load calls it while replaying rows at startup.
func (m *Manager) start(plat models.Platform, roomID string, account models.Account, enabled bool) error {
	client, err := m.clients.Get(plat)
	if err != nil {
		return fmt.Errorf("resolving platform client: %w", err)
	}

	rec := recorder.New(recorder.Config{
		Platform:            plat,
		RoomID:              roomID,
		Account:             account,
		CacheRoot:           m.cacheRoot,
		Enabled:             enabled,
		Client:              client,
		DanmakuReg:          m.danmakuReg,
		Bus:                 m.bus,
		HTTPClient:          m.httpClient,
		Logger:              m.logger,
		PollInterval:        m.cfg.PollInterval,
		PollJitterMax:       m.cfg.PollJitterMax,
		SafetyMargin:        m.cfg.SafetyMargin,
		StreamRetryAttempts: m.cfg.StreamRetryAttempts,
		StreamRetryDelay:    m.cfg.StreamRetryDelay,
		SessionCloseDrain:   m.cfg.SessionCloseDrain,
	})

	key := models.RoomKey{Platform: plat, RoomID: roomID}
	m.mu.Lock()
	m.recorders[key] = rec
	m.mu.Unlock()

	rec.Run()
	return nil
}

// Remove stops and unregisters the Recorder for (platform, room_id).
// Idempotent.
func (m *Manager) Remove(ctx context.Context, plat models.Platform, roomID string) error {
	key := models.RoomKey{Platform: plat, RoomID: roomID}

	m.mu.Lock()
	rec, ok := m.recorders[key]
	if ok {
		delete(m.recorders, key)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	rec.Stop()

	row, err := m.recorderRepo.GetByRoom(ctx, plat, roomID)
	if err != nil {
		return fmt.Errorf("looking up recorder row: %w", err)
	}
	if row == nil {
		return nil
	}
	return m.recorderRepo.Delete(ctx, row.ID)
}

// SetEnabled toggles a Recorder's record gate without removing it.
func (m *Manager) SetEnabled(ctx context.Context, plat models.Platform, roomID string, enabled bool) error {
	key := models.RoomKey{Platform: plat, RoomID: roomID}

	m.mu.RLock()
	rec, ok := m.recorders[key]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	rec.SetEnabled(enabled)

	row, err := m.recorderRepo.GetByRoom(ctx, plat, roomID)
	if err != nil {
		return fmt.Errorf("looking up recorder row: %w", err)
	}
	if row == nil {
		return nil
	}
	row.Enabled = models.BoolPtr(enabled)
	return m.recorderRepo.Update(ctx, row)
}

// List returns a snapshot of every registered Recorder.
func (m *Manager) List() []models.RecorderInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]models.RecorderInfo, 0, len(m.recorders))
	for _, rec := range m.recorders {
		infos = append(infos, rec.Info())
	}
	return infos
}

// Subscribe returns a new broadcast-bus subscription. Callers must
// Unsubscribe when done.
func (m *Manager) Subscribe() *eventbus.Subscriber {
	return m.bus.Subscribe()
}

// Unsubscribe releases a subscription obtained from Subscribe.
func (m *Manager) Unsubscribe(sub *eventbus.Subscriber) {
	m.bus.Unsubscribe(sub)
}

// Shutdown stops every Recorder in parallel and awaits all of them before
// returning.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	recorders := make([]*recorder.Recorder, 0, len(m.recorders))
	for _, rec := range m.recorders {
		recorders = append(recorders, rec)
	}
	m.recorders = make(map[models.RoomKey]*recorder.Recorder)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, rec := range recorders {
		wg.Add(1)
		go func(rec *recorder.Recorder) {
			defer wg.Done()
			rec.Stop()
		}(rec)
	}
	wg.Wait()

	m.bus.Shutdown()
}
