package allocation

// FloorGroup is the set of rooms on one floor.
type FloorGroup struct {
	Floor int    `json:"floor"`
	Rooms []Room `json:"rooms"`
}

// AvailableBed is an active, vacant bed with the room it sits in.
type AvailableBed struct {
	BedID      int64  `json:"bed_id"`
	BedNumber  int    `json:"bed_number"`
	RoomID     int64  `json:"room_id"`
	RoomNumber string `json:"room_number"`
	Floor      int    `json:"floor"`
}

// RoomOccupancy counts active beds only.
type RoomOccupancy struct {
	RoomID     int64   `json:"room_id"`
	RoomNumber string  `json:"room_number"`
	Floor      int     `json:"floor"`
	Capacity   int     `json:"capacity"`
	Occupied   int     `json:"occupied"`
	Available  int     `json:"available"`
	Inactive   int     `json:"inactive"`
	Rate       float64 `json:"rate"`
}

// OccupancyStats aggregates RoomOccupancy across the snapshot.
type OccupancyStats struct {
	Rooms     []RoomOccupancy `json:"rooms"`
	Capacity  int             `json:"capacity"`
	Occupied  int             `json:"occupied"`
	Available int             `json:"available"`
	Inactive  int             `json:"inactive"`
	Rate      float64         `json:"rate"`
}

// RoomsOnFloor returns the rooms of one floor in snapshot order.
func (s *Snapshot) RoomsOnFloor(floor int) []Room {
	out := []Room{}
	for _, r := range s.Rooms {
		if r.Floor == floor {
			out = append(out, r)
		}
	}
	return out
}

// ByFloor groups rooms by floor, floors ascending.
func (s *Snapshot) ByFloor() []FloorGroup {
	groups := []FloorGroup{}
	for _, r := range s.Rooms {
		if n := len(groups); n > 0 && groups[n-1].Floor == r.Floor {
			groups[n-1].Rooms = append(groups[n-1].Rooms, r)
			continue
		}
		groups = append(groups, FloorGroup{Floor: r.Floor, Rooms: []Room{r}})
	}
	return groups
}

// Room looks up a room by id.
func (s *Snapshot) Room(id int64) (Room, bool) {
	for _, r := range s.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// Bed looks up a bed by id together with its room.
func (s *Snapshot) Bed(id int64) (Bed, Room, bool) {
	for _, r := range s.Rooms {
		for _, b := range r.Beds {
			if b.ID == id {
				return b, r, true
			}
		}
	}
	return Bed{}, Room{}, false
}

// AvailableBeds lists every active, unoccupied bed across all rooms.
func (s *Snapshot) AvailableBeds() []AvailableBed {
	out := []AvailableBed{}
	for _, r := range s.Rooms {
		for _, b := range r.Beds {
			if !b.Active() || b.Occupied() {
				continue
			}
			out = append(out, AvailableBed{
				BedID:      b.ID,
				BedNumber:  b.Number,
				RoomID:     r.ID,
				RoomNumber: r.RoomNumber,
				Floor:      r.Floor,
			})
		}
	}
	return out
}

// Occupancy computes per-room and total occupancy. Inactive beds never count toward capacity.
func (s *Snapshot) Occupancy() OccupancyStats {
	stats := OccupancyStats{Rooms: make([]RoomOccupancy, 0, len(s.Rooms))}
	for _, r := range s.Rooms {
		ro := RoomOccupancy{RoomID: r.ID, RoomNumber: r.RoomNumber, Floor: r.Floor}
		for _, b := range r.Beds {
			if !b.Active() {
				ro.Inactive++
				continue
			}
			ro.Capacity++
			if b.Occupied() {
				ro.Occupied++
			}
		}
		ro.Available = ro.Capacity - ro.Occupied
		ro.Rate = rate(ro.Occupied, ro.Capacity)

		stats.Rooms = append(stats.Rooms, ro)
		stats.Capacity += ro.Capacity
		stats.Occupied += ro.Occupied
		stats.Available += ro.Available
		stats.Inactive += ro.Inactive
	}
	stats.Rate = rate(stats.Occupied, stats.Capacity)
	return stats
}

// AllocatedGuestIDs returns the guests seated on any bed other than excludeBedID.
// Pass 0 to include every bed.
func (s *Snapshot) AllocatedGuestIDs(excludeBedID int64) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, r := range s.Rooms {
		for _, b := range r.Beds {
			if b.ID == excludeBedID || b.Occupant == nil {
				continue
			}
			ids[b.Occupant.GuestID] = struct{}{}
		}
	}
	return ids
}

func rate(occupied, capacity int) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(occupied) / float64(capacity)
}
