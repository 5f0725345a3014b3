package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"residence-backend/internal/model"
)

// Store defines the relational operations the allocation layer needs over rooms, beds and guests.
type Store interface {
	Rooms(ctx context.Context) ([]model.Room, error)
	Room(ctx context.Context, id int64) (*model.Room, error)
	Beds(ctx context.Context, f BedFilter) ([]model.Bed, error)
	Bed(ctx context.Context, id int64) (*model.Bed, error)
	Guest(ctx context.Context, id int64) (*model.Guest, error)
	Guests(ctx context.Context, f GuestFilter) ([]model.Guest, error)

	CreateRoom(ctx context.Context, room *model.Room) error
	CreateBeds(ctx context.Context, beds []model.Bed) error
	UpdateRoom(ctx context.Context, id int64, fields Fields) error
	UpdateBed(ctx context.Context, id int64, fields Fields) error
	UpdateGuests(ctx context.Context, ids []int64, fields Fields) error
	DeleteBeds(ctx context.Context, ids []int64) error
	DeleteRooms(ctx context.Context, ids []int64) error

	// Atomic runs fn against a store whose writes commit or roll back together.
	Atomic(ctx context.Context, fn func(Store) error) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Atomic wraps fn in a database transaction. fn's error is returned unchanged.
func (s *gormStore) Atomic(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// Rooms returns every room ordered by floor, then room number.
func (s *gormStore) Rooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).
		Order("floor ASC").
		Order("room_number ASC").
		Order("id ASC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) Room(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, notFound(err, "room", id)
	}
	return &room, nil
}

// Beds returns the beds matching f ordered by room, then bed number.
func (s *gormStore) Beds(ctx context.Context, f BedFilter) ([]model.Bed, error) {
	q := s.db.WithContext(ctx).Model(&model.Bed{})
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if len(f.RoomIDs) > 0 {
		q = q.Where("room_id IN ?", f.RoomIDs)
	}
	if len(f.OccupantIDs) > 0 {
		q = q.Where("occupant_id IN ?", f.OccupantIDs)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OnlyOccupied {
		q = q.Where("occupant_id IS NOT NULL")
	}
	if f.NumberAbove > 0 {
		q = q.Where("number > ?", f.NumberAbove)
	}
	if f.WithOccupant {
		q = q.Preload("Occupant")
	}

	var beds []model.Bed
	if err := q.Order("room_id ASC").Order("number ASC").Find(&beds).Error; err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	return beds, nil
}

func (s *gormStore) Bed(ctx context.Context, id int64) (*model.Bed, error) {
	var bed model.Bed
	if err := s.db.WithContext(ctx).First(&bed, id).Error; err != nil {
		return nil, notFound(err, "bed", id)
	}
	return &bed, nil
}

func (s *gormStore) Guest(ctx context.Context, id int64) (*model.Guest, error) {
	var guest model.Guest
	if err := s.db.WithContext(ctx).First(&guest, id).Error; err != nil {
		return nil, notFound(err, "guest", id)
	}
	return &guest, nil
}

func (s *gormStore) Guests(ctx context.Context, f GuestFilter) ([]model.Guest, error) {
	q := s.db.WithContext(ctx).Model(&model.Guest{})
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if f.Seated {
		q = q.Where("room_number <> ''")
	}

	var guests []model.Guest
	if err := q.Order("id ASC").Find(&guests).Error; err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	return guests, nil
}

func (s *gormStore) CreateRoom(ctx context.Context, room *model.Room) error {
	if err := s.db.WithContext(ctx).Omit("Beds").Create(room).Error; err != nil {
		return fmt.Errorf("failed to insert room %q: %w", room.RoomNumber, err)
	}
	return nil
}

// CreateBeds inserts beds in one batch. IDs are written back into the slice.
func (s *gormStore) CreateBeds(ctx context.Context, beds []model.Bed) error {
	if len(beds) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Omit("Occupant").Create(&beds).Error; err != nil {
		return fmt.Errorf("failed to insert %d beds: %w", len(beds), err)
	}
	return nil
}

func (s *gormStore) UpdateRoom(ctx context.Context, id int64, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", id).Updates(map[string]any(fields)).Error; err != nil {
		return fmt.Errorf("failed to update room %d: %w", id, err)
	}
	return nil
}

func (s *gormStore) UpdateBed(ctx context.Context, id int64, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&model.Bed{}).Where("id = ?", id).Updates(map[string]any(fields)).Error; err != nil {
		return fmt.Errorf("failed to update bed %d: %w", id, err)
	}
	return nil
}

func (s *gormStore) UpdateGuests(ctx context.Context, ids []int64, fields Fields) error {
	if len(ids) == 0 || len(fields) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&model.Guest{}).Where("id IN ?", ids).Updates(map[string]any(fields)).Error; err != nil {
		return fmt.Errorf("failed to update %d guests: %w", len(ids), err)
	}
	return nil
}

func (s *gormStore) DeleteBeds(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&model.Bed{}, ids).Error; err != nil {
		return fmt.Errorf("failed to delete beds %v: %w", ids, err)
	}
	return nil
}

// DeleteRooms removes the rooms and, explicitly, their beds; not every backend enforces the cascade.
func (s *gormStore) DeleteRooms(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx)
	if err := db.Where("room_id IN ?", ids).Delete(&model.Bed{}).Error; err != nil {
		return fmt.Errorf("failed to delete beds of rooms %v: %w", ids, err)
	}
	if err := db.Delete(&model.Room{}, ids).Error; err != nil {
		return fmt.Errorf("failed to delete rooms %v: %w", ids, err)
	}
	return nil
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}
