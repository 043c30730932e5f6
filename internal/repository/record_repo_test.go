package repository

import (
	"context"
	"testing"

	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRepo_CreateAndGetByLiveID(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	row := &models.RecordRow{
		Platform: models.PlatformMainstream,
		RoomID:   "room1",
		LiveID:   1700000000000,
		Title:    "Morning stream",
	}
	require.NoError(t, repo.Create(ctx, row))
	assert.False(t, row.ID.IsZero())

	found, err := repo.GetByLiveID(ctx, models.PlatformMainstream, "room1", 1700000000000)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Morning stream", found.Title)
}

func TestRecordRepo_GetByLiveID_NotFound(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecordRepository(db)

	found, err := repo.GetByLiveID(context.Background(), models.PlatformGaming, "room2", 1)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRecordRepo_UniqueLiveID(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.RecordRow{Platform: models.PlatformShortLive, RoomID: "r", LiveID: 42}))
	err := repo.Create(ctx, &models.RecordRow{Platform: models.PlatformShortLive, RoomID: "r2", LiveID: 42})
	assert.Error(t, err)
}

func TestRecordRepo_GetByRoom_OrderedByStartDesc(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	earlier := models.RecordRow{
		Platform: models.PlatformMainstream, RoomID: "roomX", LiveID: 1,
		StartTS: models.Time{},
	}
	require.NoError(t, repo.Create(ctx, &earlier))

	later := models.RecordRow{
		Platform: models.PlatformMainstream, RoomID: "roomX", LiveID: 2,
		StartTS: models.Time{},
	}
	require.NoError(t, repo.Create(ctx, &later))

	rows, err := repo.GetByRoom(ctx, models.PlatformMainstream, "roomX")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRecordRepo_ParentIDLinksContinuation(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	first := &models.RecordRow{Platform: models.PlatformGaming, RoomID: "roomY", LiveID: 100}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.RecordRow{Platform: models.PlatformGaming, RoomID: "roomY", LiveID: 101, ParentID: &first.ID}
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.GetByLiveID(ctx, models.PlatformGaming, "roomY", 101)
	require.NoError(t, err)
	require.NotNil(t, found.ParentID)
	assert.Equal(t, first.ID, *found.ParentID)
}

func TestRecordRepo_Update(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	row := &models.RecordRow{Platform: models.PlatformMainstream, RoomID: "roomZ", LiveID: 200, Duration: 0}
	require.NoError(t, repo.Create(ctx, row))

	row.Duration = 123.5
	row.Size = 4096
	require.NoError(t, repo.Update(ctx, row))

	found, err := repo.GetByLiveID(ctx, models.PlatformMainstream, "roomZ", 200)
	require.NoError(t, err)
	assert.InDelta(t, 123.5, found.Duration, 0.001)
	assert.Equal(t, int64(4096), found.Size)
}

func TestRecordRepo_Delete(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewRecordRepository(db)
	ctx := context.Background()

	row := &models.RecordRow{Platform: models.PlatformMainstream, RoomID: "roomW", LiveID: 300}
	require.NoError(t, repo.Create(ctx, row))
	require.NoError(t, repo.Delete(ctx, row.ID))

	found, err := repo.GetByLiveID(ctx, models.PlatformMainstream, "roomW", 300)
	require.NoError(t, err)
	assert.Nil(t, found)
}
