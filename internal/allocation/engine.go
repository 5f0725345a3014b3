package allocation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"residence-backend/internal/model"
	"residence-backend/internal/store"
)

// Limits bound the room input accepted by the engine.
type Limits struct {
	MaxBedsPerRoom int
	MinFloor       int
	MaxFloor       int
}

// maxBedsPerRoom is the hard ceiling on a room's bed count; Limits may only lower it.
const maxBedsPerRoom = 10

// DefaultLimits allows 1..10 beds per room on floors 1..3.
func DefaultLimits() Limits {
	return Limits{MaxBedsPerRoom: maxBedsPerRoom, MinFloor: 1, MaxFloor: 3}
}

// Instrumentation receives operation outcomes and the occupancy of each fresh snapshot.
type Instrumentation interface {
	ObserveOperation(op, outcome string, d time.Duration)
	ObserveOccupancy(stats OccupancyStats)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides DefaultLimits. A bed ceiling above 10 or below 1 is clamped to 10.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		if l.MaxBedsPerRoom <= 0 || l.MaxBedsPerRoom > maxBedsPerRoom {
			l.MaxBedsPerRoom = maxBedsPerRoom
		}
		e.limits = l
	}
}

// WithLogger sets the engine and state store logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithObservers registers event observers.
func WithObservers(obs ...Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

// WithInstrumentation registers a metrics sink.
func WithInstrumentation(in Instrumentation) Option {
	return func(e *Engine) { e.instr = in }
}

// WithClock replaces the time source used for deactivation stamps and events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.nowFn = now }
}

// Engine validates and performs every allocation mutation, then reloads the snapshot.
// Callers are not serialized against each other; the store decides which concurrent write wins.
type Engine struct {
	store     store.Store
	state     *StateStore
	limits    Limits
	log       *zap.Logger
	nowFn     func() time.Time
	observers []Observer
	instr     Instrumentation
}

// NewEngine creates an engine over s. The snapshot is empty until Refresh is called.
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		limits: DefaultLimits(),
		log:    zap.NewNop(),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = NewStateStore(s, e.log)
	e.state.nowFn = e.nowFn
	return e
}

// Refresh reloads the snapshot from the store.
func (e *Engine) Refresh(ctx context.Context) error {
	start := time.Now()
	err := e.state.Refresh(ctx)
	e.observe(ctx, "refresh", err, time.Since(start))
	return err
}

// Snapshot returns the current read-only snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.state.Snapshot()
}

// Status returns the state store flags.
func (e *Engine) Status() Status {
	return e.state.Status()
}

// Limits returns the configured room limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// StatusChange requests a bed status transition.
type StatusChange struct {
	Status model.BedStatus
	Reason string
	Actor  string
}

// AllocateGuestToBed seats guestID on the bed, or vacates the bed when guestID is nil.
// A guest already seated elsewhere is moved: the previous bed is vacated in the same write set.
// Inactive beds cannot receive an occupant.
func (e *Engine) AllocateGuestToBed(ctx context.Context, bedID int64, guestID *int64) error {
	const op = "allocate_guest_to_bed"

	return e.commit(ctx, op, func(tx store.Store) ([]Event, error) {
		bed, err := tx.Bed(ctx, bedID)
		if err != nil {
			return nil, storeFailure(op, err)
		}
		room, err := tx.Room(ctx, bed.RoomID)
		if err != nil {
			return nil, storeFailure(op, err)
		}
		now := e.nowFn()
		base := Event{RoomID: room.ID, RoomNumber: room.RoomNumber, BedID: bed.ID, BedNumber: bed.Number, At: now}

		if guestID == nil {
			if bed.OccupantID == nil {
				return nil, nil
			}
			prev := *bed.OccupantID
			if err := tx.UpdateGuests(ctx, []int64{prev}, store.Fields{"room_number": ""}); err != nil {
				return nil, storeFailure(op, err)
			}
			if err := tx.UpdateBed(ctx, bed.ID, store.Fields{"occupant_id": nil}); err != nil {
				return nil, storeFailure(op, err)
			}
			events := []Event{withType(base, EventGuestReleased, prev)}
			if bed.Status == model.BedStatusActive {
				events = append(events, withType(base, EventBedVacated, prev))
			}
			return events, nil
		}

		guest, err := tx.Guest(ctx, *guestID)
		if err != nil {
			return nil, storeFailure(op, err)
		}

		if bed.OccupantID != nil && *bed.OccupantID == guest.ID {
			if guest.RoomNumber != room.RoomNumber {
				if err := tx.UpdateGuests(ctx, []int64{guest.ID}, store.Fields{"room_number": room.RoomNumber}); err != nil {
					return nil, storeFailure(op, err)
				}
			}
			return nil, nil
		}

		if bed.Status != model.BedStatusActive {
			return nil, conflictf(op, "bed %d of room %s is inactive", bed.Number, room.RoomNumber)
		}

		var events []Event
		if bed.OccupantID != nil {
			prev := *bed.OccupantID
			if err := tx.UpdateGuests(ctx, []int64{prev}, store.Fields{"room_number": ""}); err != nil {
				return nil, storeFailure(op, err)
			}
			events = append(events, withType(base, EventGuestReleased, prev))
		}

		seats, err := tx.Beds(ctx, store.BedFilter{OccupantIDs: []int64{guest.ID}})
		if err != nil {
			return nil, storeFailure(op, err)
		}
		for _, seat := range seats {
			if seat.ID == bed.ID {
				continue
			}
			if err := tx.UpdateBed(ctx, seat.ID, store.Fields{"occupant_id": nil}); err != nil {
				return nil, storeFailure(op, err)
			}
			ev := Event{Type: EventBedVacated, RoomID: seat.RoomID, BedID: seat.ID, BedNumber: seat.Number, GuestID: guest.ID, At: now}
			if seatRoom, err := tx.Room(ctx, seat.RoomID); err == nil {
				ev.RoomNumber = seatRoom.RoomNumber
			}
			if seat.Status == model.BedStatusActive {
				events = append(events, ev)
			}
		}

		if err := tx.UpdateBed(ctx, bed.ID, store.Fields{"occupant_id": guest.ID}); err != nil {
			return nil, storeFailure(op, err)
		}
		if err := tx.UpdateGuests(ctx, []int64{guest.ID}, store.Fields{"room_number": room.RoomNumber}); err != nil {
			return nil, storeFailure(op, err)
		}
		return append(events, withType(base, EventGuestAllocated, guest.ID)), nil
	})
}

// UpdateBedStatus moves a bed between Active and Inactive.
// Deactivation needs a reason and a vacant bed; the audit stamp survives reactivation.
func (e *Engine) UpdateBedStatus(ctx context.Context, bedID int64, change StatusChange) error {
	const op = "update_bed_status"

	if !change.Status.Valid() {
		return validationf(op, "unknown bed status %q", change.Status)
	}
	reason := strings.TrimSpace(change.Reason)
	if change.Status == model.BedStatusInactive && reason == "" {
		return validationf(op, "a reason is required to deactivate a bed")
	}

	return e.commit(ctx, op, func(tx store.Store) ([]Event, error) {
		bed, err := tx.Bed(ctx, bedID)
		if err != nil {
			return nil, storeFailure(op, err)
		}
		if bed.Status == change.Status {
			return nil, nil
		}
		room, err := tx.Room(ctx, bed.RoomID)
		if err != nil {
			return nil, storeFailure(op, err)
		}

		now := e.nowFn()
		ev := Event{RoomID: room.ID, RoomNumber: room.RoomNumber, BedID: bed.ID, BedNumber: bed.Number, At: now}

		switch change.Status {
		case model.BedStatusInactive:
			if bed.OccupantID != nil {
				return nil, conflictf(op, "bed %d of room %s is occupied; release the guest first", bed.Number, room.RoomNumber)
			}
			actor := strings.TrimSpace(change.Actor)
			if err := tx.UpdateBed(ctx, bed.ID, store.Fields{
				"status":              model.BedStatusInactive,
				"deactivation_reason": reason,
				"deactivated_at":      now,
				"deactivated_by":      actor,
			}); err != nil {
				return nil, storeFailure(op, err)
			}
			ev.Type, ev.Reason, ev.Actor = EventBedDeactivated, reason, actor
		default:
			if err := tx.UpdateBed(ctx, bed.ID, store.Fields{"status": model.BedStatusActive}); err != nil {
				return nil, storeFailure(op, err)
			}
			ev.Type = EventBedReactivated
		}
		return []Event{ev}, nil
	})
}

// commit runs fn atomically, refreshes the snapshot and publishes the resulting events.
// A failed fn leaves the snapshot untouched.
func (e *Engine) commit(ctx context.Context, op string, fn func(tx store.Store) ([]Event, error)) error {
	start := time.Now()

	var events []Event
	err := e.store.Atomic(ctx, func(tx store.Store) error {
		var ferr error
		events, ferr = fn(tx)
		return ferr
	})
	if err != nil {
		err = storeFailure(op, err)
		e.observe(ctx, op, err, time.Since(start))
		return err
	}

	err = e.state.Refresh(ctx)
	e.observe(ctx, op, err, time.Since(start))
	e.publish(ctx, events)
	return err
}

func (e *Engine) observe(ctx context.Context, op string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		e.log.Warn("allocation operation failed", zap.String("op", op), zap.String("outcome", outcome), zap.Duration("duration", d), zap.Error(err))
	} else {
		e.log.Info("allocation operation", zap.String("op", op), zap.Duration("duration", d))
	}

	if e.instr == nil {
		return
	}
	e.instr.ObserveOperation(op, outcome, d)
	if err == nil {
		e.instr.ObserveOccupancy(e.state.Snapshot().Occupancy())
	}
}

func (e *Engine) publish(ctx context.Context, events []Event) {
	for _, ev := range events {
		for _, o := range e.observers {
			o.Publish(ctx, ev)
		}
	}
}

func withType(ev Event, t EventType, guestID int64) Event {
	ev.Type = t
	ev.GuestID = guestID
	return ev
}
