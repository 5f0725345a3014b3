package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"residence-backend/internal/allocation"
	"residence-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine  *allocation.Engine
	store   store.Store
	webpush *webpush.Options
	log     *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(engine *allocation.Engine, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		engine:  engine,
		store:   s,
		webpush: webpushOptions,
		log:     log,
	}
}

// statusFor maps an allocation error kind to its HTTP status.
func statusFor(kind allocation.Kind) int {
	switch kind {
	case allocation.KindValidation:
		return http.StatusBadRequest
	case allocation.KindNotFound:
		return http.StatusNotFound
	case allocation.KindConflict:
		return http.StatusConflict
	case allocation.KindLoad:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error", "kind"} with the status of its kind.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := allocation.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": allocation.KindValidation})
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// optionalQueryInt returns the query parameter as an int, or ok=false with a 400 written when malformed.
func optionalQueryInt(c *gin.Context, name string) (value int64, present, ok bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return 0, false, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, true, false
	}
	return v, true, true
}

var errEngineUnavailable = errors.New("allocation engine is not configured")
