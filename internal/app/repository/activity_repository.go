package repository

import (
	"context"

	"github.com/sifan077/LinkRewards/internal/app/model"
	"gorm.io/gorm"
)

// ActivityRepository persists audit records.
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns a GORM-backed ActivityRepository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create inserts the activity. Redelivered records with a known id are ignored.
func (r *activityRepository) Create(ctx context.Context, activity *model.Activity) error {
	var existing int64
	if err := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("id = ?", activity.ID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(activity).Error
}
