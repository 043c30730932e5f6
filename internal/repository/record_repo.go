package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/tvarr/internal/models"
	"gorm.io/gorm"
)

type recordRepo struct {
	db *gorm.DB
}

// NewRecordRepository creates a new RecordRepository backed by GORM.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepo{db: db}
}

func (r *recordRepo) Create(ctx context.Context, row *models.RecordRow) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("creating record: %w", err)
	}
	return nil
}

func (r *recordRepo) GetByLiveID(ctx context.Context, platform models.Platform, roomID string, liveID int64) (*models.RecordRow, error) {
	var row models.RecordRow
	err := r.db.WithContext(ctx).
		Where("platform = ? AND room_id = ? AND live_id = ?", platform, roomID, liveID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting record by live_id: %w", err)
	}
	return &row, nil
}

func (r *recordRepo) GetByRoom(ctx context.Context, platform models.Platform, roomID string) ([]*models.RecordRow, error) {
	var rows []*models.RecordRow
	err := r.db.WithContext(ctx).
		Where("platform = ? AND room_id = ?", platform, roomID).
		Order("start_ts DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("getting records by room: %w", err)
	}
	return rows, nil
}

func (r *recordRepo) Update(ctx context.Context, row *models.RecordRow) error {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	return nil
}

func (r *recordRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.RecordRow{}).Error; err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}
