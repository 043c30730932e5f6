package repository

import (
	"context"
	"testing"

	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepo_CreateAndGetByPlatformUser(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	row := &models.AccountRow{
		Platform: models.PlatformMainstream,
		UserID:   "user1",
		Name:     "Streamer One",
		Cookies:  "sessionid=abc123",
	}
	require.NoError(t, repo.Create(ctx, row))
	assert.False(t, row.ID.IsZero())

	found, err := repo.GetByPlatformUser(ctx, models.PlatformMainstream, "user1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Streamer One", found.Name)
}

func TestAccountRepo_GetByPlatformUser_NotFound(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewAccountRepository(db)

	found, err := repo.GetByPlatformUser(context.Background(), models.PlatformGaming, "nobody")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAccountRepo_UniquePerPlatformUser(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.AccountRow{Platform: models.PlatformShortLive, UserID: "dup"}))
	err := repo.Create(ctx, &models.AccountRow{Platform: models.PlatformShortLive, UserID: "dup"})
	assert.Error(t, err)
}

func TestAccountRepo_Update(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	row := &models.AccountRow{Platform: models.PlatformMainstream, UserID: "user2", Cookies: "old"}
	require.NoError(t, repo.Create(ctx, row))

	row.Cookies = "new"
	require.NoError(t, repo.Update(ctx, row))

	found, err := repo.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", found.Cookies)
}

func TestAccountRepo_Delete(t *testing.T) {
	db := setupRecorderTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	row := &models.AccountRow{Platform: models.PlatformMainstream, UserID: "toDelete"}
	require.NoError(t, repo.Create(ctx, row))
	require.NoError(t, repo.Delete(ctx, row.ID))

	found, err := repo.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAccountRepo_ToAccount(t *testing.T) {
	row := models.AccountRow{
		Platform: models.PlatformGaming,
		UserID:   "user3",
		Cookies:  "session=xyz",
		CSRF:     "token123",
	}
	account := row.ToAccount()
	assert.Equal(t, models.PlatformGaming, account.Platform)
	assert.Equal(t, "user3", account.UserID)
	assert.Equal(t, "session=xyz", account.Cookies)
	assert.Equal(t, "token123", account.CSRFToken)
}
