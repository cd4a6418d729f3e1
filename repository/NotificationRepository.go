package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"neoShop/models"
	"neoShop/storage"
)

type NotificationRepository interface {
	GetNotifications(ctx context.Context, clientId string) (notes []models.Notification, err error)
	AddNotification(ctx context.Context, clientId string, note models.Notification) (created models.Notification, err error)
	MarkRead(ctx context.Context, clientId string, id int64) (err error)
	MarkAllRead(ctx context.Context, clientId string) (err error)
	DeleteNotification(ctx context.Context, clientId string, id int64) (err error)
}

type NotificationRepo struct {
	mu  sync.Mutex
	st  storage.Storage
	now func() time.Time
}

func NewNotificationRepository(st storage.Storage) (NotificationRepository, error) {
	if st == nil {
		return nil, errors.New("storage must be non-nil")
	}
	return &NotificationRepo{st: st, now: time.Now}, nil
}

func (n *NotificationRepo) GetNotifications(ctx context.Context, clientId string) (notes []models.Notification, err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	notes, _, err = loadCollection[models.Notification](ctx, n.st, clientKey(clientId, notificationsKey))
	return
}

func (n *NotificationRepo) mutate(ctx context.Context, clientId string, fn func([]models.Notification) ([]models.Notification, error)) (err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	key := clientKey(clientId, notificationsKey)
	notes, _, err := loadForUpdate[models.Notification](ctx, n.st, key)
	if err != nil {
		return
	}
	if notes, err = fn(notes); err != nil {
		return
	}
	err = saveCollection(ctx, n.st, key, notes)
	return
}

func (n *NotificationRepo) AddNotification(ctx context.Context, clientId string, note models.Notification) (created models.Notification, err error) {
	err = n.mutate(ctx, clientId, func(notes []models.Notification) ([]models.Notification, error) {
		var maxId int64
		for _, v := range notes {
			maxId = max(maxId, v.Id)
		}
		now := n.now()
		note.Id = nextId(now, maxId)
		if note.Time.IsZero() {
			note.Time = now.UTC()
		}
		created = note
		return append(notes, note), nil
	})
	return
}

func (n *NotificationRepo) MarkRead(ctx context.Context, clientId string, id int64) (err error) {
	err = n.mutate(ctx, clientId, func(notes []models.Notification) ([]models.Notification, error) {
		idx := slices.IndexFunc(notes, func(v models.Notification) bool { return v.Id == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: notification %d", models.ErrNotFound, id)
		}
		notes[idx].Read = true
		return notes, nil
	})
	return
}

func (n *NotificationRepo) MarkAllRead(ctx context.Context, clientId string) (err error) {
	err = n.mutate(ctx, clientId, func(notes []models.Notification) ([]models.Notification, error) {
		for i := range notes {
			notes[i].Read = true
		}
		return notes, nil
	})
	return
}

// DeleteNotification of an unknown id is a no-op.
func (n *NotificationRepo) DeleteNotification(ctx context.Context, clientId string, id int64) (err error) {
	err = n.mutate(ctx, clientId, func(notes []models.Notification) ([]models.Notification, error) {
		return slices.DeleteFunc(notes, func(v models.Notification) bool { return v.Id == id }), nil
	})
	return
}
