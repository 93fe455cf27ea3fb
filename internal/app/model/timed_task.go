package model

import "time"

// TimedTask tracks the last run of a scheduled job so it only acts when due.
type TimedTask struct {
	Name          string     `json:"name" gorm:"primaryKey;size:64"`
	LastRunAt     *time.Time `json:"last_run_at"`
	LastSuccessAt *time.Time `json:"last_success_at"`
	Success       bool       `json:"success" gorm:"not null;default:false"`
	Message       string     `json:"message" gorm:"type:text"`
}

func (TimedTask) TableName() string {
	return "billinglinks_timed_tasks"
}
