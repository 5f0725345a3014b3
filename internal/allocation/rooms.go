package allocation

import (
	"context"
	"strings"

	"residence-backend/internal/model"
	"residence-backend/internal/parse"
	"residence-backend/internal/store"
)

// RoomInput describes a room to create. Floor 0 infers the floor from the room number.
type RoomInput struct {
	RoomNumber string
	Floor      int
	BedCount   int
	Notes      string
}

// RoomPatch is a partial room update. Nil fields are left unchanged.
type RoomPatch struct {
	RoomNumber *string
	Floor      *int
	BedCount   *int
	Notes      *string
}

// CreateRoom inserts the room with beds numbered 1..BedCount, all active and vacant.
func (e *Engine) CreateRoom(ctx context.Context, in RoomInput) (int64, error) {
	const op = "create_room"

	number := strings.TrimSpace(in.RoomNumber)
	if number == "" {
		return 0, validationf(op, "room number is required")
	}
	floor := in.Floor
	if floor == 0 {
		label, err := parse.ParseRoomLabel(number)
		if err != nil {
			return 0, &Error{Kind: KindValidation, Op: op, Msg: "floor is required", Err: err}
		}
		floor = label.Floor
	}
	if err := e.checkFloor(op, floor); err != nil {
		return 0, err
	}
	if err := e.checkBedCount(op, in.BedCount); err != nil {
		return 0, err
	}

	var id int64
	err := e.commit(ctx, op, func(tx store.Store) ([]Event, error) {
		room := &model.Room{
			RoomNumber: number,
			Floor:      floor,
			BedCount:   in.BedCount,
			Notes:      strings.TrimSpace(in.Notes),
		}
		if err := tx.CreateRoom(ctx, room); err != nil {
			return nil, storeFailure(op, err)
		}
		if err := tx.CreateBeds(ctx, newBeds(room.ID, 1, in.BedCount)); err != nil {
			return nil, storeFailure(op, err)
		}
		id = room.ID
		return []Event{{Type: EventRoomCreated, RoomID: room.ID, RoomNumber: number, Count: in.BedCount, At: e.nowFn()}}, nil
	})
	if err != nil && KindOf(err) != KindLoad {
		return 0, err
	}
	return id, err
}

// UpdateRoom applies the patch. A rename is mirrored onto every seated guest; growing adds
// beds after the highest existing number; shrinking removes the highest numbers and is
// refused while any of them is occupied.
func (e *Engine) UpdateRoom(ctx context.Context, roomID int64, patch RoomPatch) error {
	const op = "update_room"

	var number string
	if patch.RoomNumber != nil {
		number = strings.TrimSpace(*patch.RoomNumber)
		if number == "" {
			return validationf(op, "room number cannot be empty")
		}
	}
	if patch.Floor != nil {
		if err := e.checkFloor(op, *patch.Floor); err != nil {
			return err
		}
	}
	if patch.BedCount != nil {
		if err := e.checkBedCount(op, *patch.BedCount); err != nil {
			return err
		}
	}

	return e.commit(ctx, op, func(tx store.Store) ([]Event, error) {
		room, err := tx.Room(ctx, roomID)
		if err != nil {
			return nil, storeFailure(op, err)
		}
		beds, err := tx.Beds(ctx, store.BedFilter{RoomIDs: []int64{room.ID}})
		if err != nil {
			return nil, storeFailure(op, err)
		}

		var (
			fields  = store.Fields{}
			removed []int64
			added   []model.Bed
		)
		if patch.BedCount != nil && *patch.BedCount != room.BedCount {
			want := *patch.BedCount
			occupied, highest := 0, 0
			for _, b := range beds {
				if b.OccupantID != nil {
					occupied++
				}
				if b.Number > want {
					if b.OccupantID != nil {
						return nil, conflictf(op, "occupied beds exceed requested reduction: bed %d of room %s is occupied", b.Number, room.RoomNumber)
					}
					removed = append(removed, b.ID)
					continue
				}
				if b.Number > highest {
					highest = b.Number
				}
			}
			if want < occupied {
				return nil, conflictf(op, "occupied beds exceed requested reduction: %d occupied, %d requested", occupied, want)
			}
			added = newBeds(room.ID, highest+1, want)
			fields["bed_count"] = want
		}

		renamed := patch.RoomNumber != nil && number != room.RoomNumber
		if renamed {
			fields["room_number"] = number
		} else {
			number = room.RoomNumber
		}
		if patch.Floor != nil && *patch.Floor != room.Floor {
			fields["floor"] = *patch.Floor
		}
		if patch.Notes != nil {
			fields["notes"] = strings.TrimSpace(*patch.Notes)
		}

		if err := tx.UpdateRoom(ctx, room.ID, fields); err != nil {
			return nil, storeFailure(op, err)
		}
		if err := tx.DeleteBeds(ctx, removed); err != nil {
			return nil, storeFailure(op, err)
		}
		if err := tx.CreateBeds(ctx, added); err != nil {
			return nil, storeFailure(op, err)
		}
		if renamed {
			var guests []int64
			for _, b := range beds {
				if b.OccupantID != nil {
					guests = append(guests, *b.OccupantID)
				}
			}
			if err := tx.UpdateGuests(ctx, guests, store.Fields{"room_number": number}); err != nil {
				return nil, storeFailure(op, err)
			}
		}

		if len(fields) == 0 {
			return nil, nil
		}
		now := e.nowFn()
		events := []Event{{Type: EventRoomUpdated, RoomID: room.ID, RoomNumber: number, At: now}}
		if len(removed) > 0 {
			events = append(events, Event{Type: EventBedsRemoved, RoomID: room.ID, RoomNumber: number, Count: len(removed), At: now})
		}
		if len(added) > 0 {
			events = append(events, Event{Type: EventBedsAdded, RoomID: room.ID, RoomNumber: number, Count: len(added), At: now})
		}
		return events, nil
	})
}

// DeleteRoom removes the room and its beds. Rooms with a seated guest are refused.
func (e *Engine) DeleteRoom(ctx context.Context, roomID int64) error {
	const op = "delete_room"

	return e.commit(ctx, op, func(tx store.Store) ([]Event, error) {
		room, err := tx.Room(ctx, roomID)
		if err != nil {
			return nil, storeFailure(op, err)
		}
		occupied, err := tx.Beds(ctx, store.BedFilter{RoomIDs: []int64{room.ID}, OnlyOccupied: true})
		if err != nil {
			return nil, storeFailure(op, err)
		}
		if len(occupied) > 0 {
			return nil, conflictf(op, "room %s has %d occupied beds", room.RoomNumber, len(occupied))
		}
		if err := tx.DeleteRooms(ctx, []int64{room.ID}); err != nil {
			return nil, storeFailure(op, err)
		}
		return []Event{{Type: EventRoomDeleted, RoomID: room.ID, RoomNumber: room.RoomNumber, At: e.nowFn()}}, nil
	})
}

func (e *Engine) checkFloor(op string, floor int) error {
	if floor < e.limits.MinFloor || floor > e.limits.MaxFloor {
		return validationf(op, "floor must be between %d and %d, got %d", e.limits.MinFloor, e.limits.MaxFloor, floor)
	}
	return nil
}

func (e *Engine) checkBedCount(op string, n int) error {
	if n < 1 || n > e.limits.MaxBedsPerRoom {
		return validationf(op, "bed count must be between 1 and %d, got %d", e.limits.MaxBedsPerRoom, n)
	}
	return nil
}

// newBeds builds active, vacant beds numbered from..to inclusive.
func newBeds(roomID int64, from, to int) []model.Bed {
	var beds []model.Bed
	for n := from; n <= to; n++ {
		beds = append(beds, model.Bed{RoomID: roomID, Number: n, Status: model.BedStatusActive})
	}
	return beds
}
