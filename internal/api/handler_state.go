package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"residence-backend/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Health handles GET /health. It reports 503 while the last snapshot load failed.
func (h *Handler) Health(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": errEngineUnavailable.Error()})
		return
	}
	st := h.engine.Status()
	if st.Error != "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": st.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status handles GET /api/status.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status())
}

// Occupancy handles GET /api/occupancy.
func (h *Handler) Occupancy(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot().Occupancy())
}

// ExportOccupancy handles GET /api/occupancy/export.
func (h *Handler) ExportOccupancy(c *gin.Context) {
	snap := h.engine.Snapshot()
	data, err := report.OccupancyWorkbook(snap)
	if err != nil {
		h.fail(c, err)
		return
	}
	filename := fmt.Sprintf("occupancy-%s.xlsx", snap.LoadedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Refresh handles POST /api/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.engine.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.Status())
}

// Reconcile handles POST /api/reconcile.
func (h *Handler) Reconcile(c *gin.Context) {
	rep, err := h.engine.Reconcile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
