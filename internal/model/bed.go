package model

import "time"

// BedStatus is the lifecycle state of a bed.
type BedStatus string

const (
	BedStatusActive   BedStatus = "active"
	BedStatusInactive BedStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s BedStatus) Valid() bool {
	return s == BedStatusActive || s == BedStatusInactive
}

// Bed belongs to exactly one room and holds at most one occupant.
// The deactivation columns keep the last deactivation after the bed is reactivated.
type Bed struct {
	ID                 int64     `gorm:"primaryKey"`
	RoomID             int64     `gorm:"not null;uniqueIndex:idx_beds_room_number"`
	Number             int       `gorm:"not null;uniqueIndex:idx_beds_room_number"`
	Status             BedStatus `gorm:"size:16;not null;default:active"`
	OccupantID         *int64    `gorm:"index"`
	DeactivationReason string    `gorm:"size:255"`
	DeactivatedAt      *time.Time
	DeactivatedBy      string    `gorm:"size:128"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`

	// Associations
	Occupant *Guest `gorm:"foreignKey:OccupantID;constraint:OnDelete:SET NULL"`
}
