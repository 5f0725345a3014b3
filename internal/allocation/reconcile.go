package allocation

import (
	"context"
	"fmt"
	"sort"

	"residence-backend/internal/model"
	"residence-backend/internal/store"
)

// ReconcileReport counts the repairs made by one Reconcile pass.
type ReconcileReport struct {
	BedsCreated      int      `json:"beds_created"`
	BedsRemoved      int      `json:"beds_removed"`
	OccupantsCleared int      `json:"occupants_cleared"`
	GuestsRepaired   int      `json:"guests_repaired"`
	Unresolved       []string `json:"unresolved,omitempty"`
}

// Changes is the total number of rows touched.
func (r ReconcileReport) Changes() int {
	return r.BedsCreated + r.BedsRemoved + r.OccupantsCleared + r.GuestsRepaired
}

// Reconcile repairs drift between rooms, beds and guests left behind by writers outside the engine:
// bed rows that disagree with bed_count, occupants on inactive beds, guests seated twice and
// stale guest room numbers. Occupied beds above bed_count are reported, never removed.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileReport, error) {
	const op = "reconcile"

	var report ReconcileReport
	err := e.commit(ctx, op, func(tx store.Store) ([]Event, error) {
		report = ReconcileReport{}

		rooms, err := tx.Rooms(ctx)
		if err != nil {
			return nil, storeFailure(op, err)
		}
		beds, err := tx.Beds(ctx, store.BedFilter{})
		if err != nil {
			return nil, storeFailure(op, err)
		}

		roomByID := make(map[int64]model.Room, len(rooms))
		for _, r := range rooms {
			roomByID[r.ID] = r
		}

		var (
			removed []int64
			added   []model.Bed
			kept    []model.Bed
		)
		numbers := make(map[int64]map[int]bool, len(rooms))
		for _, b := range beds {
			room, ok := roomByID[b.RoomID]
			switch {
			case !ok:
				removed = append(removed, b.ID)
				continue
			case b.Number > room.BedCount || b.Number < 1:
				if b.OccupantID != nil {
					report.Unresolved = append(report.Unresolved,
						fmt.Sprintf("room %s: occupied bed %d is outside 1..%d", room.RoomNumber, b.Number, room.BedCount))
					kept = append(kept, b)
					continue
				}
				removed = append(removed, b.ID)
				continue
			}
			if numbers[b.RoomID] == nil {
				numbers[b.RoomID] = make(map[int]bool)
			}
			numbers[b.RoomID][b.Number] = true
			kept = append(kept, b)
		}
		for _, r := range rooms {
			for n := 1; n <= r.BedCount; n++ {
				if !numbers[r.ID][n] {
					added = append(added, model.Bed{RoomID: r.ID, Number: n, Status: model.BedStatusActive})
				}
			}
		}

		if err := tx.DeleteBeds(ctx, removed); err != nil {
			return nil, storeFailure(op, err)
		}
		if err := tx.CreateBeds(ctx, added); err != nil {
			return nil, storeFailure(op, err)
		}
		report.BedsRemoved, report.BedsCreated = len(removed), len(added)

		// One seat per guest, the lowest bed id wins. Inactive beds hold nobody.
		sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
		seatOf := make(map[int64]string)
		for _, b := range kept {
			if b.OccupantID == nil {
				continue
			}
			guestID := *b.OccupantID
			_, seated := seatOf[guestID]
			if b.Status != model.BedStatusActive || seated {
				if err := tx.UpdateBed(ctx, b.ID, store.Fields{"occupant_id": nil}); err != nil {
					return nil, storeFailure(op, err)
				}
				report.OccupantsCleared++
				continue
			}
			seatOf[guestID] = roomByID[b.RoomID].RoomNumber
		}

		stale, err := tx.Guests(ctx, store.GuestFilter{Seated: true})
		if err != nil {
			return nil, storeFailure(op, err)
		}
		for _, g := range stale {
			if _, ok := seatOf[g.ID]; ok {
				continue
			}
			if err := tx.UpdateGuests(ctx, []int64{g.ID}, store.Fields{"room_number": ""}); err != nil {
				return nil, storeFailure(op, err)
			}
			report.GuestsRepaired++
		}

		if len(seatOf) > 0 {
			ids := make([]int64, 0, len(seatOf))
			for id := range seatOf {
				ids = append(ids, id)
			}
			seated, err := tx.Guests(ctx, store.GuestFilter{IDs: ids})
			if err != nil {
				return nil, storeFailure(op, err)
			}
			for _, g := range seated {
				if want := seatOf[g.ID]; g.RoomNumber != want {
					if err := tx.UpdateGuests(ctx, []int64{g.ID}, store.Fields{"room_number": want}); err != nil {
						return nil, storeFailure(op, err)
					}
					report.GuestsRepaired++
				}
			}
		}

		if report.Changes() == 0 {
			return nil, nil
		}
		return []Event{{Type: EventStateReconciled, Count: report.Changes(), At: e.nowFn()}}, nil
	})
	return report, err
}
