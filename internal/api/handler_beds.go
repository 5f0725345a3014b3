package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"residence-backend/internal/allocation"
	"residence-backend/internal/model"
)

// ActorHeader names the staff member performing a change when the body omits it.
const ActorHeader = "X-Actor"

// AvailableBeds handles GET /api/beds/available.
func (h *Handler) AvailableBeds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"beds": h.engine.Snapshot().AvailableBeds()})
}

// SetOccupant handles PUT /api/beds/:bed_id/occupant. guest_id must be present;
// an explicit null vacates the bed.
func (h *Handler) SetOccupant(c *gin.Context) {
	bedID, ok := pathID(c, "bed_id")
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request")
		return
	}
	raw, present := body["guest_id"]
	if !present {
		badRequest(c, "guest_id is required; send null to vacate the bed")
		return
	}
	var guestID *int64
	if err := json.Unmarshal(raw, &guestID); err != nil {
		badRequest(c, "guest_id must be an integer or null")
		return
	}

	if err := h.engine.AllocateGuestToBed(c.Request.Context(), bedID, guestID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// SetStatus handles PUT /api/beds/:bed_id/status.
func (h *Handler) SetStatus(c *gin.Context) {
	bedID, ok := pathID(c, "bed_id")
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = c.GetHeader(ActorHeader)
	}

	err := h.engine.UpdateBedStatus(c.Request.Context(), bedID, allocation.StatusChange{
		Status: model.BedStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Reason: req.Reason,
		Actor:  actor,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AllocatedGuests handles GET /api/guests/allocated[?exclude_bed=ID].
func (h *Handler) AllocatedGuests(c *gin.Context) {
	exclude, _, ok := optionalQueryInt(c, "exclude_bed")
	if !ok {
		return
	}
	set := h.engine.Snapshot().AllocatedGuestIDs(exclude)
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	c.JSON(http.StatusOK, gin.H{"guest_ids": ids})
}
