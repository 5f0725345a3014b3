package allocation

import (
	"context"
	"time"
)

// EventType names a committed allocation change.
type EventType string

const (
	EventRoomCreated     EventType = "room_created"
	EventRoomUpdated     EventType = "room_updated"
	EventRoomDeleted     EventType = "room_deleted"
	EventBedsAdded       EventType = "beds_added"
	EventBedsRemoved     EventType = "beds_removed"
	EventGuestAllocated  EventType = "guest_allocated"
	EventGuestReleased   EventType = "guest_released"
	EventBedVacated      EventType = "bed_vacated"
	EventBedDeactivated  EventType = "bed_deactivated"
	EventBedReactivated  EventType = "bed_reactivated"
	EventStateReconciled EventType = "state_reconciled"
)

// Event describes one committed change. Fields that do not apply are zero.
type Event struct {
	Type       EventType `json:"type"`
	RoomID     int64     `json:"room_id,omitempty"`
	RoomNumber string    `json:"room_number,omitempty"`
	BedID      int64     `json:"bed_id,omitempty"`
	BedNumber  int       `json:"bed_number,omitempty"`
	GuestID    int64     `json:"guest_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

// OpensVacancy reports whether the event leaves an active bed free for a new guest.
func (e Event) OpensVacancy() bool {
	switch e.Type {
	case EventBedVacated, EventBedReactivated, EventBedsAdded:
		return true
	}
	return false
}

// Observer receives events after the snapshot has been refreshed.
// Implementations must not block; delivery failures are theirs to log.
type Observer interface {
	Publish(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Publish(ctx context.Context, ev Event) {
	f(ctx, ev)
}
