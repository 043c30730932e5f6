package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRecorderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.AccountRow{}, &models.RecorderRow{}, &models.RecordRow{}))

	return db
}

func TestRecorderRepo_CreateAndGetByRoom(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecorderRepository(db)
	ctx := context.Background()

	row := &models.RecorderRow{
		Platform:  models.PlatformMainstream,
		RoomID:    "12345",
		AccountID: models.NewULID(),
		Enabled:   models.BoolPtr(true),
	}
	require.NoError(t, repo.Create(ctx, row))
	assert.False(t, row.ID.IsZero())

	found, err := repo.GetByRoom(ctx, models.PlatformMainstream, "12345")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, row.ID, found.ID)
	assert.True(t, found.IsEnabled())
}

func TestRecorderRepo_GetByRoom_NotFound(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecorderRepository(db)

	found, err := repo.GetByRoom(context.Background(), models.PlatformGaming, "missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRecorderRepo_UniquePerRoom(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecorderRepository(db)
	ctx := context.Background()

	accountID := models.NewULID()
	require.NoError(t, repo.Create(ctx, &models.RecorderRow{
		Platform:  models.PlatformShortLive,
		RoomID:    "room1",
		AccountID: accountID,
	}))

	err := repo.Create(ctx, &models.RecorderRow{
		Platform:  models.PlatformShortLive,
		RoomID:    "room1",
		AccountID: accountID,
	})
	assert.Error(t, err)
}

func TestRecorderRepo_UpdateEnabled(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecorderRepository(db)
	ctx := context.Background()

	row := &models.RecorderRow{
		Platform:  models.PlatformGlobalShort,
		RoomID:    "streamer1",
		AccountID: models.NewULID(),
		Enabled:   models.BoolPtr(true),
	}
	require.NoError(t, repo.Create(ctx, row))

	row.Enabled = models.BoolPtr(false)
	require.NoError(t, repo.Update(ctx, row))

	found, err := repo.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, found.IsEnabled())
}

func TestRecorderRepo_Delete(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecorderRepository(db)
	ctx := context.Background()

	row := &models.RecorderRow{
		Platform:  models.PlatformMainstream,
		RoomID:    "toDelete",
		AccountID: models.NewULID(),
	}
	require.NoError(t, repo.Create(ctx, row))
	require.NoError(t, repo.Delete(ctx, row.ID))

	found, err := repo.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRecorderRepo_GetAll(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecorderRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.RecorderRow{
			Platform:  models.PlatformMainstream,
			RoomID:    string(rune('a' + i)),
			AccountID: models.NewULID(),
		}))
	}

	rows, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
