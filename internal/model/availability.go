package model

import "time"

// AvailabilitySnapshot is the list of matching slots seen by one availability check.
type AvailabilitySnapshot struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"index;size:36;not null" json:"run_id"`
	TargetDate string    `gorm:"size:10;not null" json:"target_date"`
	ObservedAt time.Time `gorm:"index;not null" json:"observed_at"`

	// Associations
	Slots []AvailableSlot `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE" json:"slots"`
}

// AvailableSlot is one room and start time in a snapshot.
type AvailableSlot struct {
	ID         int64  `gorm:"primaryKey" json:"-"`
	SnapshotID int64  `gorm:"index;not null" json:"-"`
	Room       string `gorm:"size:32;not null" json:"room"`
	Capacity   int    `gorm:"not null" json:"capacity"`
	Time       string `gorm:"size:16;not null" json:"time"`
	Minutes    int    `gorm:"not null" json:"minutes"`
}
