package models

import "time"

// ActivityLog records a change made through the API, such as a project
// update or a role assignment.
type ActivityLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Level      string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Event      string    `gorm:"size:100;index" json:"event"`
	EntityType string    `gorm:"size:50;index" json:"entity_type"` // project, task, user
	EntityID   string    `gorm:"size:64;index" json:"entity_id"`
	ProjectID  string    `gorm:"size:64;index" json:"project_id,omitempty"`
	ActorID    *uint     `gorm:"index" json:"actor_id"`
	Message    string    `gorm:"type:text" json:"message"`
	IP         string    `gorm:"size:50" json:"ip,omitempty"`
	UserAgent  string    `gorm:"size:500" json:"user_agent,omitempty"`
	Extra      string    `gorm:"type:text" json:"extra,omitempty"` // JSON extra data
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
