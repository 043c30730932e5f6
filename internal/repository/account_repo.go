package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/tvarr/internal/models"
	"gorm.io/gorm"
)

type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository backed by GORM.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, row *models.AccountRow) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id models.ULID) (*models.AccountRow, error) {
	var row models.AccountRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting account by ID: %w", err)
	}
	return &row, nil
}

func (r *accountRepo) GetByPlatformUser(ctx context.Context, platform models.Platform, userID string) (*models.AccountRow, error) {
	var row models.AccountRow
	err := r.db.WithContext(ctx).Where("platform = ? AND user_id = ?", platform, userID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting account by platform/user: %w", err)
	}
	return &row, nil
}

func (r *accountRepo) GetAll(ctx context.Context) ([]*models.AccountRow, error) {
	var rows []*models.AccountRow
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("getting all accounts: %w", err)
	}
	return rows, nil
}

func (r *accountRepo) Update(ctx context.Context, row *models.AccountRow) error {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	return nil
}

func (r *accountRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.AccountRow{}).Error; err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}
