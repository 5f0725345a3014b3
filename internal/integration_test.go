package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"residence-backend/config"
	"residence-backend/internal/allocation"
	"residence-backend/internal/api"
	"residence-backend/internal/db"
	"residence-backend/internal/model"
	"residence-backend/internal/store"
)

// TestAllocationLifecycle walks a room through creation, allocation, a blocked
// shrink, a move between beds, a rejected deactivation and finally deletion,
// checking the database after each step.
func TestAllocationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	var published []allocation.Event
	recorder := allocation.ObserverFunc(func(_ context.Context, ev allocation.Event) {
		published = append(published, ev)
	})

	appStore := store.NewGormStore(testDB)
	engine := allocation.NewEngine(appStore, allocation.WithObservers(recorder))
	require.NoError(t, engine.Refresh(context.Background()))
	router := api.NewRouter(engine, appStore, api.RouterOptions{
		Server: config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 30},
	})

	call := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	kindOf := func(w *httptest.ResponseRecorder) string {
		var body struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Kind
	}
	loadBeds := func(roomID int64) []model.Bed {
		var beds []model.Bed
		require.NoError(t, testDB.Where("room_id = ?", roomID).Order("number").Find(&beds).Error)
		return beds
	}

	g1 := model.Guest{FullName: "G1"}
	require.NoError(t, testDB.Create(&g1).Error)

	// Scenario 1: create room 101 with two beds.
	w := call(http.MethodPost, "/api/rooms", gin.H{"room_number": "101", "floor": 1, "bed_count": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	roomPath := "/api/rooms/" + strconv.FormatInt(created.ID, 10)

	beds := loadBeds(created.ID)
	require.Len(t, beds, 2)
	for i, b := range beds {
		assert.Equal(t, i+1, b.Number)
		assert.Equal(t, model.BedStatusActive, b.Status)
		assert.Nil(t, b.OccupantID)
	}
	bed1 := "/api/beds/" + strconv.FormatInt(beds[0].ID, 10)
	bed2 := "/api/beds/" + strconv.FormatInt(beds[1].ID, 10)

	// Scenario 2: seat G1 on bed 1.
	w = call(http.MethodPut, bed1+"/occupant", gin.H{"guest_id": g1.ID})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	beds = loadBeds(created.ID)
	require.NotNil(t, beds[0].OccupantID)
	assert.Equal(t, g1.ID, *beds[0].OccupantID)
	require.NoError(t, testDB.First(&g1, g1.ID).Error)
	assert.Equal(t, "101", g1.RoomNumber)

	// Scenario 3: shrinking to zero beds is rejected and nothing changes.
	w = call(http.MethodPatch, roomPath, gin.H{"bed_count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", kindOf(w))
	var room model.Room
	require.NoError(t, testDB.First(&room, created.ID).Error)
	assert.Equal(t, 2, room.BedCount)
	assert.Len(t, loadBeds(created.ID), 2)

	// Scenario 4: moving G1 to bed 2 vacates bed 1.
	w = call(http.MethodPut, bed2+"/occupant", gin.H{"guest_id": g1.ID})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	beds = loadBeds(created.ID)
	assert.Nil(t, beds[0].OccupantID)
	require.NotNil(t, beds[1].OccupantID)
	assert.Equal(t, g1.ID, *beds[1].OccupantID)
	require.NoError(t, testDB.First(&g1, g1.ID).Error)
	assert.Equal(t, "101", g1.RoomNumber)

	// Scenario 5: deactivation needs a reason.
	w = call(http.MethodPut, bed2+"/status", gin.H{"status": "inactive"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", kindOf(w))
	beds = loadBeds(created.ID)
	assert.Equal(t, model.BedStatusActive, beds[1].Status)

	// Scenario 6: an occupied room cannot be deleted until it is vacated.
	w = call(http.MethodDelete, roomPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", kindOf(w))
	assert.Len(t, loadBeds(created.ID), 2)

	w = call(http.MethodPut, bed2+"/occupant", gin.H{"guest_id": nil})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = call(http.MethodDelete, roomPath, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Empty(t, loadBeds(created.ID))
	require.NoError(t, testDB.First(&g1, g1.ID).Error)
	assert.Equal(t, "", g1.RoomNumber)

	w = call(http.MethodGet, roomPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var types []allocation.EventType
	for _, ev := range published {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []allocation.EventType{
		allocation.EventRoomCreated,
		allocation.EventGuestAllocated,
		allocation.EventBedVacated,
		allocation.EventGuestAllocated,
		allocation.EventGuestReleased,
		allocation.EventBedVacated,
		allocation.EventRoomDeleted,
	}, types)
}
