package model

import "time"

// Room is a lettable room on one floor. BedCount is the declared capacity.
type Room struct {
	ID         int64     `gorm:"primaryKey"`
	RoomNumber string    `gorm:"size:32;not null;index"`
	Floor      int       `gorm:"not null;index"`
	BedCount   int       `gorm:"not null"`
	Notes      string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`

	// Associations
	Beds []Bed `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}
