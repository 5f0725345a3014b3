package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"residence-backend/internal/allocation"
)

// ListRooms handles GET /api/rooms[?floor=N].
func (h *Handler) ListRooms(c *gin.Context) {
	floor, present, ok := optionalQueryInt(c, "floor")
	if !ok {
		return
	}
	snap := h.engine.Snapshot()
	if present {
		c.JSON(http.StatusOK, gin.H{"rooms": snap.RoomsOnFloor(int(floor)), "loaded_at": snap.LoadedAt})
		return
	}
	rooms := snap.Rooms
	if rooms == nil {
		rooms = []allocation.Room{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "loaded_at": snap.LoadedAt})
}

// RoomsByFloor handles GET /api/rooms/by-floor.
func (h *Handler) RoomsByFloor(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"floors": h.engine.Snapshot().ByFloor()})
}

// GetRoom handles GET /api/rooms/:room_id.
func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	room, found := h.engine.Snapshot().Room(id)
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room not found", "kind": allocation.KindNotFound})
		return
	}
	c.JSON(http.StatusOK, room)
}

type createRoomRequest struct {
	RoomNumber string `json:"room_number" binding:"required"`
	Floor      int    `json:"floor"`
	BedCount   int    `json:"bed_count"`
	Notes      string `json:"notes"`
}

// CreateRoom handles POST /api/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	id, err := h.engine.CreateRoom(c.Request.Context(), allocation.RoomInput{
		RoomNumber: req.RoomNumber,
		Floor:      req.Floor,
		BedCount:   req.BedCount,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type updateRoomRequest struct {
	RoomNumber *string `json:"room_number"`
	Floor      *int    `json:"floor"`
	BedCount   *int    `json:"bed_count"`
	Notes      *string `json:"notes"`
}

// UpdateRoom handles PATCH /api/rooms/:room_id.
func (h *Handler) UpdateRoom(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	err := h.engine.UpdateRoom(c.Request.Context(), id, allocation.RoomPatch{
		RoomNumber: req.RoomNumber,
		Floor:      req.Floor,
		BedCount:   req.BedCount,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRoom handles DELETE /api/rooms/:room_id.
func (h *Handler) DeleteRoom(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	if err := h.engine.DeleteRoom(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
