package videos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoJobEvent is the append-only ledger of job state transitions.
type VideoJobEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID   uuid.UUID `gorm:"type:uuid;column:video_id;not null;index" json:"video_id"`
	FromState string    `gorm:"column:from_state" json:"from_state"`
	ToState   string    `gorm:"column:to_state;not null" json:"to_state"`
	Reason    string    `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (VideoJobEvent) TableName() string { return "video_job_event" }

func (e *VideoJobEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
