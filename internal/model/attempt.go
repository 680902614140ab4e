package model

import "time"

// Run modes recorded on a BookingAttempt.
const (
	ModeBook  = "book"
	ModeCheck = "check"
)

// BookingAttempt is the record of one workflow run.
type BookingAttempt struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"uniqueIndex;size:36;not null" json:"run_id"`
	Mode       string    `gorm:"size:16;not null" json:"mode"`
	DryRun     bool      `gorm:"not null" json:"dry_run"`
	StartedAt  time.Time `gorm:"index;not null" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Success    bool      `gorm:"not null" json:"success"`
	Stage      string    `gorm:"size:32" json:"stage"`
	Outcome    string    `gorm:"size:32" json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Room       string    `gorm:"size:32" json:"room,omitempty"`
	SlotTime   string    `gorm:"size:16" json:"slot_time,omitempty"`
	TargetDate string    `gorm:"size:10;index" json:"target_date"`
	Message    string    `json:"message"`
	Screenshot string    `json:"screenshot,omitempty"`
}
