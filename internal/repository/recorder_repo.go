package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/tvarr/internal/models"
	"gorm.io/gorm"
)

type recorderRepo struct {
	db *gorm.DB
}

// NewRecorderRepository creates a new RecorderRepository backed by GORM.
func NewRecorderRepository(db *gorm.DB) RecorderRepository {
	return &recorderRepo{db: db}
}

func (r *recorderRepo) Create(ctx context.Context, row *models.RecorderRow) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("creating recorder: %w", err)
	}
	return nil
}

func (r *recorderRepo) GetByID(ctx context.Context, id models.ULID) (*models.RecorderRow, error) {
	var row models.RecorderRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recorder by ID: %w", err)
	}
	return &row, nil
}

func (r *recorderRepo) GetByRoom(ctx context.Context, platform models.Platform, roomID string) (*models.RecorderRow, error) {
	var row models.RecorderRow
	if err := r.db.WithContext(ctx).Where("platform = ? AND room_id = ?", platform, roomID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recorder by room: %w", err)
	}
	return &row, nil
}

func (r *recorderRepo) GetAll(ctx context.Context) ([]*models.RecorderRow, error) {
	var rows []*models.RecorderRow
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("getting all recorders: %w", err)
	}
	return rows, nil
}

func (r *recorderRepo) Update(ctx context.Context, row *models.RecorderRow) error {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("updating recorder: %w", err)
	}
	return nil
}

func (r *recorderRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.RecorderRow{}).Error; err != nil {
		return fmt.Errorf("deleting recorder: %w", err)
	}
	return nil
}
