package allocation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"residence-backend/internal/model"
)

func TestEngine_ReconcileRepairsDrift(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	g1, g2, g3 := h.guest(t, "G1"), h.guest(t, "G2"), h.guest(t, "G3")

	r1, err := h.engine.CreateRoom(ctx, RoomInput{RoomNumber: "101", Floor: 1, BedCount: 3})
	require.NoError(t, err)
	r2, err := h.engine.CreateRoom(ctx, RoomInput{RoomNumber: "201", Floor: 2, BedCount: 2})
	require.NoError(t, err)
	room1, room2 := h.room(t, "101"), h.room(t, "201")

	// drift written behind the engine's back
	require.NoError(t, h.db.Where("id = ?", bedNumbered(t, room1, 3).ID).Delete(&model.Bed{}).Error)
	require.NoError(t, h.db.Create(&model.Bed{RoomID: r2, Number: 5, Status: model.BedStatusActive}).Error)
	require.NoError(t, h.db.Model(&model.Bed{}).Where("id = ?", bedNumbered(t, room1, 1).ID).Update("occupant_id", g1).Error)
	require.NoError(t, h.db.Model(&model.Bed{}).Where("id = ?", bedNumbered(t, room2, 1).ID).Update("occupant_id", g1).Error)
	require.NoError(t, h.db.Model(&model.Bed{}).Where("id = ?", bedNumbered(t, room2, 2).ID).
		Updates(map[string]any{"occupant_id": g2, "status": model.BedStatusInactive}).Error)
	require.NoError(t, h.db.Model(&model.Guest{}).Where("id = ?", g3).Update("room_number", "999").Error)
	h.events = nil

	report, err := h.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.BedsCreated)
	assert.Equal(t, 1, report.BedsRemoved)
	assert.Equal(t, 2, report.OccupantsCleared)
	assert.Equal(t, 2, report.GuestsRepaired)
	assert.Empty(t, report.Unresolved)

	room1, _ = h.engine.Snapshot().Room(r1)
	room2, _ = h.engine.Snapshot().Room(r2)
	assert.Len(t, room1.Beds, 3)
	assert.Len(t, room2.Beds, 2)
	assert.Equal(t, g1, bedNumbered(t, room1, 1).Occupant.GuestID)
	assert.Nil(t, bedNumbered(t, room2, 1).Occupant)
	assert.Nil(t, bedNumbered(t, room2, 2).Occupant)
	assert.Equal(t, "101", h.loadGuest(t, g1).RoomNumber)
	assert.Equal(t, "", h.loadGuest(t, g2).RoomNumber)
	assert.Equal(t, "", h.loadGuest(t, g3).RoomNumber)

	require.Len(t, h.events, 1)
	assert.Equal(t, EventStateReconciled, h.events[0].Type)
	assert.Equal(t, report.Changes(), h.events[0].Count)

	again, err := h.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Changes())
	assert.Len(t, h.events, 1)
}

func TestEngine_ReconcileReportsOccupiedExcessBeds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	g1 := h.guest(t, "G1")

	id, err := h.engine.CreateRoom(ctx, RoomInput{RoomNumber: "101", Floor: 1, BedCount: 2})
	require.NoError(t, err)
	require.NoError(t, h.engine.AllocateGuestToBed(ctx, bedNumbered(t, h.room(t, "101"), 2).ID, &g1))
	require.NoError(t, h.db.Model(&model.Room{}).Where("id = ?", id).Update("bed_count", 1).Error)

	report, err := h.engine.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, report.Unresolved, 1)
	assert.Contains(t, report.Unresolved[0], "occupied bed 2")
	assert.Zero(t, report.Changes())

	room, _ := h.engine.Snapshot().Room(id)
	assert.Len(t, room.Beds, 2)
	assert.Equal(t, "101", h.loadGuest(t, g1).RoomNumber)
}
