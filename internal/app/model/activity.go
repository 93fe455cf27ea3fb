package model

import "time"

// Activity is an append-only audit record of a user or admin action.
type Activity struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    int64     `json:"user_id" gorm:"index"`
	UserUUID  string    `json:"user_uuid" gorm:"size:64"`
	Name      string    `json:"name" gorm:"size:64;index;not null"`
	Context   string    `json:"context" gorm:"type:text"`
	IPAddress string    `json:"ip_address" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
}

func (Activity) TableName() string {
	return "billinglinks_activities"
}

const (
	ActivityLinkStarted          = "link_started"
	ActivityLinkCompletedTooFast = "link_completed_too_fast"
	ActivityLinkRedeemed         = "link_redeemed"
	ActivitySettingsUpdated      = "billinglinks_settings_updated"
)

const (
	ActivityStreamName     = "ACTIVITIES"
	ActivityStreamSubject  = "activities.events"
	ActivityConsumerName   = "activity-recorder"
	ActivityStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
