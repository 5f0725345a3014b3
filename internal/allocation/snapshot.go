package allocation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"residence-backend/internal/model"
	"residence-backend/internal/store"
)

// Snapshot is the materialized join of rooms, beds and occupants. It is never mutated after publication.
type Snapshot struct {
	Rooms    []Room    `json:"rooms"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Room is a room with its beds in display order.
type Room struct {
	ID         int64     `json:"id"`
	RoomNumber string    `json:"room_number"`
	Floor      int       `json:"floor"`
	BedCount   int       `json:"bed_count"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Beds       []Bed     `json:"beds"`
}

// Bed is a bed with its resolved occupant.
type Bed struct {
	ID           int64           `json:"id"`
	RoomID       int64           `json:"room_id"`
	Number       int             `json:"number"`
	Status       model.BedStatus `json:"status"`
	Occupant     *Occupant       `json:"occupant"`
	Deactivation *Deactivation   `json:"deactivation,omitempty"`
}

// Occupied reports whether a guest holds the bed.
func (b Bed) Occupied() bool {
	return b.Occupant != nil
}

// Active reports whether the bed counts toward capacity.
func (b Bed) Active() bool {
	return b.Status == model.BedStatusActive
}

// Occupant is the guest profile joined onto a bed.
type Occupant struct {
	GuestID        int64  `json:"guest_id"`
	FullName       string `json:"full_name"`
	DocumentNumber string `json:"document_number"`
	RoomNumber     string `json:"room_number"`
}

// Deactivation is the audit stamp of an inactive bed.
type Deactivation struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
}

// Status reports the loading and error flags of the state store.
type Status struct {
	Loading  bool      `json:"loading"`
	Error    string    `json:"error,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// StateStore holds the current snapshot. Only Refresh replaces it.
type StateStore struct {
	src   store.Store
	log   *zap.Logger
	nowFn func() time.Time

	current atomic.Pointer[Snapshot]

	mu       sync.Mutex
	started  uint64 // sequence of the latest load begun
	settled  uint64 // sequence of the latest load whose outcome was recorded
	inflight int
	lastErr  error
}

// NewStateStore returns a state store holding an empty snapshot.
func NewStateStore(src store.Store, log *zap.Logger) *StateStore {
	if log == nil {
		log = zap.NewNop()
	}
	s := &StateStore{
		src:   src,
		log:   log,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	s.current.Store(&Snapshot{})
	return s
}

// Snapshot returns the last successfully loaded snapshot.
func (s *StateStore) Snapshot() *Snapshot {
	return s.current.Load()
}

// Status returns the loading flag, the last refresh error and the snapshot time.
func (s *StateStore) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Loading: s.inflight > 0, LoadedAt: s.current.Load().LoadedAt}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

// Refresh reloads rooms and beds with their occupants and swaps the snapshot.
// On failure the previous snapshot stays in place and a LoadError is returned.
// Overlapping refreshes are ordered by start: a load never replaces the result of
// a load that started after it.
func (s *StateStore) Refresh(ctx context.Context) error {
	const op = "refresh"

	seq := s.begin()
	snap, err := s.load(ctx)
	if err != nil {
		err = &Error{Kind: KindLoad, Op: op, Err: err}
		s.log.Warn("snapshot refresh failed; keeping previous snapshot", zap.Error(err))
	}
	if !s.settle(seq, snap, err) {
		s.log.Debug("discarding superseded snapshot load", zap.Uint64("seq", seq))
	}
	return err
}

func (s *StateStore) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	s.inflight++
	return s.started
}

// settle records the outcome of load seq unless a later load already settled.
func (s *StateStore) settle(seq uint64, snap *Snapshot, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq < s.settled {
		return false
	}
	s.settled = seq
	s.lastErr = err
	if err == nil {
		s.current.Store(snap)
	}
	return true
}

func (s *StateStore) load(ctx context.Context) (*Snapshot, error) {
	rooms, err := s.src.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	beds, err := s.src.Beds(ctx, store.BedFilter{WithOccupant: true})
	if err != nil {
		return nil, err
	}

	bedsByRoom := make(map[int64][]Bed, len(rooms))
	for _, b := range beds {
		bedsByRoom[b.RoomID] = append(bedsByRoom[b.RoomID], toBed(b))
	}

	out := make([]Room, 0, len(rooms))
	for _, r := range rooms {
		roomBeds := bedsByRoom[r.ID]
		delete(bedsByRoom, r.ID)
		if roomBeds == nil {
			roomBeds = []Bed{}
		}
		sortBeds(roomBeds)
		out = append(out, Room{
			ID:         r.ID,
			RoomNumber: r.RoomNumber,
			Floor:      r.Floor,
			BedCount:   r.BedCount,
			Notes:      r.Notes,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
			Beds:       roomBeds,
		})
	}
	for roomID, orphans := range bedsByRoom {
		s.log.Warn("beds reference a missing room", zap.Int64("room_id", roomID), zap.Int("beds", len(orphans)))
	}

	sortRooms(out)
	return &Snapshot{Rooms: out, LoadedAt: s.nowFn()}, nil
}

func toBed(b model.Bed) Bed {
	out := Bed{
		ID:     b.ID,
		RoomID: b.RoomID,
		Number: b.Number,
		Status: b.Status,
	}
	if b.Occupant != nil {
		out.Occupant = &Occupant{
			GuestID:        b.Occupant.ID,
			FullName:       b.Occupant.FullName,
			DocumentNumber: b.Occupant.DocumentNumber,
			RoomNumber:     b.Occupant.RoomNumber,
		}
	} else if b.OccupantID != nil {
		out.Occupant = &Occupant{GuestID: *b.OccupantID}
	}
	if b.Status == model.BedStatusInactive {
		d := &Deactivation{Reason: b.DeactivationReason, Actor: b.DeactivatedBy}
		if b.DeactivatedAt != nil {
			d.At = *b.DeactivatedAt
		}
		out.Deactivation = d
	}
	return out
}

// sortRooms orders rooms by floor, then room number, then id.
func sortRooms(rooms []Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.Floor != b.Floor {
			return a.Floor < b.Floor
		}
		if c := compareRoomNumbers(a.RoomNumber, b.RoomNumber); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

// sortBeds puts active beds before inactive ones, each group by bed number.
func sortBeds(beds []Bed) {
	sort.SliceStable(beds, func(i, j int) bool {
		a, b := beds[i], beds[j]
		if a.Active() != b.Active() {
			return a.Active()
		}
		return a.Number < b.Number
	})
}

// compareRoomNumbers orders labels naturally: labels starting with digits come first, ordered by
// that number, then by the rest of the label; other labels compare lexically. Ties fall back to the
// raw label so the order is total.
func compareRoomNumbers(a, b string) int {
	da, ra := leadingDigits(a)
	db, rb := leadingDigits(b)
	switch {
	case da != "" && db == "":
		return -1
	case da == "" && db != "":
		return 1
	case da != "":
		if c := compareDigits(da, db); c != 0 {
			return c
		}
		if c := strings.Compare(ra, rb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func leadingDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// compareDigits compares two digit runs by value without overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
