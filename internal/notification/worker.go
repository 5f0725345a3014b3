package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"residence-backend/internal/allocation"
	"residence-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends vacancy notifications to the subscribers of a room.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool. Jobs are room ids.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case roomID := <-wp.jobs:
			wp.sendNotificationsForRoom(ctx, roomID)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a room, blocking while the queue is full.
func (wp *WorkerPool) Dispatch(roomID int64) {
	wp.jobs <- roomID
}

// TryDispatch queues a room unless the queue is full.
func (wp *WorkerPool) TryDispatch(roomID int64) bool {
	select {
	case wp.jobs <- roomID:
		return true
	default:
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// Publish queues a notification for events that free a bed. It never blocks the caller.
func (wp *WorkerPool) Publish(_ context.Context, ev allocation.Event) {
	if !ev.OpensVacancy() || ev.RoomID == 0 {
		return
	}
	if !wp.TryDispatch(ev.RoomID) {
		wp.log.Warn("notification queue full; dropping vacancy", zap.Int64("room_id", ev.RoomID), zap.String("event", string(ev.Type)))
	}
}

func (wp *WorkerPool) sendNotificationsForRoom(ctx context.Context, roomID int64) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_room_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.room_id = ?", roomID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.Error("failed to fetch subscriptions", zap.Int64("room_id", roomID), zap.Error(err))
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	var room model.Room
	roomLabel := fmt.Sprintf("%d", roomID)
	if err := wp.db.WithContext(ctx).
		Select("room_number").
		First(&room, roomID).Error; err != nil {
		wp.log.Warn("failed to fetch room", zap.Int64("room_id", roomID), zap.Error(err))
	} else if room.RoomNumber != "" {
		roomLabel = room.RoomNumber
	}

	wp.log.Info("sending vacancy notifications", zap.Int64("room_id", roomID), zap.Int("subscriptions", len(subscriptions)))
	message := fmt.Sprintf("A bed is available in room %s", roomLabel)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are removed.
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired; deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
