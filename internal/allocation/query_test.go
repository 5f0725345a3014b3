package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"residence-backend/internal/model"
)

func testSnapshot() *Snapshot {
	rooms := []Room{
		{ID: 3, RoomNumber: "201", Floor: 2, BedCount: 2, Beds: []Bed{
			{ID: 31, RoomID: 3, Number: 1, Status: model.BedStatusActive, Occupant: &Occupant{GuestID: 7}},
			{ID: 32, RoomID: 3, Number: 2, Status: model.BedStatusActive},
		}},
		{ID: 1, RoomNumber: "10", Floor: 1, BedCount: 3, Beds: []Bed{
			{ID: 13, RoomID: 1, Number: 3, Status: model.BedStatusInactive, Deactivation: &Deactivation{Reason: "mould"}},
			{ID: 11, RoomID: 1, Number: 1, Status: model.BedStatusActive, Occupant: &Occupant{GuestID: 5}},
			{ID: 12, RoomID: 1, Number: 2, Status: model.BedStatusActive, Occupant: &Occupant{GuestID: 6}},
		}},
		{ID: 2, RoomNumber: "9", Floor: 1, BedCount: 1, Beds: []Bed{
			{ID: 21, RoomID: 2, Number: 1, Status: model.BedStatusActive},
		}},
	}
	for _, r := range rooms {
		sortBeds(r.Beds)
	}
	sortRooms(rooms)
	return &Snapshot{Rooms: rooms}
}

func TestSnapshot_Ordering(t *testing.T) {
	s := testSnapshot()

	var order []string
	for _, r := range s.Rooms {
		order = append(order, r.RoomNumber)
	}
	assert.Equal(t, []string{"9", "10", "201"}, order)

	var beds []int
	for _, b := range s.Rooms[1].Beds {
		beds = append(beds, b.Number)
	}
	assert.Equal(t, []int{1, 2, 3}, beds)
	assert.False(t, s.Rooms[1].Beds[2].Active())
}

func TestCompareRoomNumbers(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected int
	}{
		{"9", "10", -1},
		{"101", "101", 0},
		{"201", "110", 1},
		{"A10", "A9", -1},
		{"B1", "A2", 1},
		{"10", "A1", -1},
		{"10", "10a", -1},
		{"10a", "9", 1},
		{"010", "10", -1},
		{"B2-07", "101", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.a+"_vs_"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.expected, compareRoomNumbers(tc.a, tc.b))
		})
	}
}

func TestSnapshot_Floors(t *testing.T) {
	s := testSnapshot()

	assert.Len(t, s.RoomsOnFloor(1), 2)
	assert.Len(t, s.RoomsOnFloor(2), 1)
	assert.Empty(t, s.RoomsOnFloor(3))

	groups := s.ByFloor()
	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].Floor)
	assert.Len(t, groups[0].Rooms, 2)
	assert.Equal(t, 2, groups[1].Floor)

	assert.Empty(t, (&Snapshot{}).ByFloor())
}

func TestSnapshot_Lookups(t *testing.T) {
	s := testSnapshot()

	room, ok := s.Room(3)
	require.True(t, ok)
	assert.Equal(t, "201", room.RoomNumber)
	_, ok = s.Room(99)
	assert.False(t, ok)

	bed, bedRoom, ok := s.Bed(12)
	require.True(t, ok)
	assert.Equal(t, 2, bed.Number)
	assert.Equal(t, "10", bedRoom.RoomNumber)
	_, _, ok = s.Bed(99)
	assert.False(t, ok)
}

func TestSnapshot_AvailableBeds(t *testing.T) {
	available := testSnapshot().AvailableBeds()

	var ids []int64
	for _, b := range available {
		ids = append(ids, b.BedID)
	}
	assert.Equal(t, []int64{21, 32}, ids)
	assert.Equal(t, "201", available[1].RoomNumber)
	assert.Equal(t, 2, available[1].Floor)
}

func TestSnapshot_Occupancy(t *testing.T) {
	stats := testSnapshot().Occupancy()

	require.Len(t, stats.Rooms, 3)
	room10 := stats.Rooms[1]
	assert.Equal(t, RoomOccupancy{RoomID: 1, RoomNumber: "10", Floor: 1, Capacity: 2, Occupied: 2, Available: 0, Inactive: 1, Rate: 1}, room10)

	assert.Equal(t, 5, stats.Capacity)
	assert.Equal(t, 3, stats.Occupied)
	assert.Equal(t, 2, stats.Available)
	assert.Equal(t, 1, stats.Inactive)
	assert.InDelta(t, 0.6, stats.Rate, 1e-9)

	empty := (&Snapshot{}).Occupancy()
	assert.Zero(t, empty.Rate)
}

func TestSnapshot_AllocatedGuestIDs(t *testing.T) {
	s := testSnapshot()

	all := s.AllocatedGuestIDs(0)
	assert.Len(t, all, 3)

	excluding := s.AllocatedGuestIDs(11)
	assert.Len(t, excluding, 2)
	assert.NotContains(t, excluding, int64(5))
	assert.Contains(t, excluding, int64(6))
}

func TestSortRooms_MixedLabelsAreDeterministic(t *testing.T) {
	labels := []string{"9", "10", "10a"}
	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, perm := range permutations {
		rooms := make([]Room, 0, len(perm))
		for _, i := range perm {
			rooms = append(rooms, Room{ID: int64(i + 1), RoomNumber: labels[i], Floor: 1})
		}
		sortRooms(rooms)

		var got []string
		for _, r := range rooms {
			got = append(got, r.RoomNumber)
		}
		assert.Equal(t, labels, got, "input order %v", perm)
	}
}
