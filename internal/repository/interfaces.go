// Package repository provides the persistence collaborator the recorder
// core relies on: a simple row-oriented store for recorder configuration,
// recorded sessions, and platform accounts. The relational store itself,
// and the HTTP/UI surface built on top of it, sit outside the recorder
// core — these interfaces are the seam.
package repository

import (
	"context"

	"github.com/jmylchreest/tvarr/internal/models"
)

// RecorderRepository persists RecorderRow configuration.
type RecorderRepository interface {
	Create(ctx context.Context, row *models.RecorderRow) error
	GetByID(ctx context.Context, id models.ULID) (*models.RecorderRow, error)
	GetByRoom(ctx context.Context, platform models.Platform, roomID string) (*models.RecorderRow, error)
	GetAll(ctx context.Context) ([]*models.RecorderRow, error)
	Update(ctx context.Context, row *models.RecorderRow) error
	Delete(ctx context.Context, id models.ULID) error
}

// RecordRepository persists RecordRow archive metadata.
type RecordRepository interface {
	Create(ctx context.Context, row *models.RecordRow) error
	GetByLiveID(ctx context.Context, platform models.Platform, roomID string, liveID int64) (*models.RecordRow, error)
	GetByRoom(ctx context.Context, platform models.Platform, roomID string) ([]*models.RecordRow, error)
	Update(ctx context.Context, row *models.RecordRow) error
	Delete(ctx context.Context, id models.ULID) error
}

// AccountRepository persists AccountRow credential bundles.
type AccountRepository interface {
	Create(ctx context.Context, row *models.AccountRow) error
	GetByID(ctx context.Context, id models.ULID) (*models.AccountRow, error)
	GetByPlatformUser(ctx context.Context, platform models.Platform, userID string) (*models.AccountRow, error)
	GetAll(ctx context.Context) ([]*models.AccountRow, error)
	Update(ctx context.Context, row *models.AccountRow) error
	Delete(ctx context.Context, id models.ULID) error
}
