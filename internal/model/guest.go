package model

import (
	"time"

	"gorm.io/datatypes"
)

// Guest is owned by the guest registry. This service only reads the profile
// and keeps RoomNumber in step with the bed the guest occupies.
type Guest struct {
	ID             int64          `gorm:"primaryKey"`
	FullName       string         `gorm:"size:256;not null"`
	DocumentNumber string         `gorm:"size:64"`
	Profile        datatypes.JSON
	RoomNumber     string         `gorm:"size:32;not null;default:''"` // empty when unallocated
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}
