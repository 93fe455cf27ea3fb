package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/LinkRewards/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimedTaskRepository stores bookkeeping for scheduled jobs.
type TimedTaskRepository interface {
	// Get returns nil without error when the task has never run.
	Get(ctx context.Context, name string) (*model.TimedTask, error)
	MarkRun(ctx context.Context, name string, at time.Time, success bool, message string) error
}

type timedTaskRepository struct {
	db *gorm.DB
}

// NewTimedTaskRepository returns a GORM-backed TimedTaskRepository.
func NewTimedTaskRepository(db *gorm.DB) TimedTaskRepository {
	return &timedTaskRepository{db: db}
}

func (r *timedTaskRepository) Get(ctx context.Context, name string) (*model.TimedTask, error) {
	var task model.TimedTask
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *timedTaskRepository) MarkRun(ctx context.Context, name string, at time.Time, success bool, message string) error {
	task := model.TimedTask{
		Name:      name,
		LastRunAt: &at,
		Success:   success,
		Message:   message,
	}
	columns := []string{"last_run_at", "success", "message"}
	if success {
		task.LastSuccessAt = &at
		columns = append(columns, "last_success_at")
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(&task).Error
}
