package store

import (
	"errors"

	"residence-backend/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// Fields is a partial column set for an update, keyed by column name.
// A nil value writes NULL.
type Fields map[string]any

// BedFilter narrows a bed query. Zero values do not filter.
type BedFilter struct {
	IDs          []int64
	RoomIDs      []int64
	OccupantIDs  []int64
	Status       model.BedStatus
	OnlyOccupied bool // occupant_id IS NOT NULL
	NumberAbove  int
	WithOccupant bool // join the occupant's guest row
}

// GuestFilter narrows a guest query. Zero values do not filter.
type GuestFilter struct {
	IDs    []int64
	Seated bool // room_number is not empty
}
