package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"neoShop/entities"
	"neoShop/models"
	"neoShop/repository"
)

const (
	NotificationFilterAll    = "all"
	NotificationFilterUnread = "unread"
)

type NotificationService struct {
	nr  repository.NotificationRepository
	now func() time.Time
}

func NewNotificationService(notifRepo repository.NotificationRepository) NotificationService {
	return NotificationService{
		nr:  notifRepo,
		now: time.Now,
	}
}

// List returns the client's notifications newest first. filter is all, unread or a notification type.
func (ns *NotificationService) List(ctx context.Context, clientId, filter string) (resp entities.NotificationsResponse, err error) {
	if filter != "" && filter != NotificationFilterAll && filter != NotificationFilterUnread &&
		!models.NotificationType(filter).Valid() {
		err = fmt.Errorf("%w: unknown notification filter %q", models.ErrValidation, filter)
		return
	}
	notes, err := ns.nr.GetNotifications(ctx, clientId)
	if err != nil {
		return
	}
	slices.SortStableFunc(notes, func(a, b models.Notification) int {
		if c := b.Time.Compare(a.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.Id, a.Id)
	})

	now := ns.now()
	resp.Notifications = []entities.NotificationView{}
	for _, n := range notes {
		if !n.Read {
			resp.UnreadCount++
		}
		switch filter {
		case "", NotificationFilterAll:
		case NotificationFilterUnread:
			if n.Read {
				continue
			}
		default:
			if string(n.Type) != filter {
				continue
			}
		}
		resp.Notifications = append(resp.Notifications, entities.NotificationView{Notification: n, Ago: TimeAgo(n.Time, now)})
	}
	return
}

func (ns *NotificationService) UnreadCount(ctx context.Context, clientId string) (count int, err error) {
	notes, err := ns.nr.GetNotifications(ctx, clientId)
	if err != nil {
		return
	}
	for _, n := range notes {
		if !n.Read {
			count++
		}
	}
	return
}

func (ns *NotificationService) MarkRead(ctx context.Context, clientId string, id int64) error {
	return ns.nr.MarkRead(ctx, clientId, id)
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, clientId string) error {
	return ns.nr.MarkAllRead(ctx, clientId)
}

func (ns *NotificationService) Delete(ctx context.Context, clientId string, id int64) error {
	return ns.nr.DeleteNotification(ctx, clientId, id)
}

func (ns *NotificationService) Push(ctx context.Context, clientId string, kind models.NotificationType, title, message string) (note models.Notification, err error) {
	if !kind.Valid() {
		err = fmt.Errorf("%w: unknown notification type %q", models.ErrValidation, kind)
		return
	}
	note, err = ns.nr.AddNotification(ctx, clientId, models.Notification{
		Type:    kind,
		Title:   title,
		Message: message,
		Time:    ns.now().UTC(),
	})
	return
}

// notify pushes a notification on behalf of another operation; a failure is logged, never returned.
func (ns *NotificationService) notify(ctx context.Context, clientId string, kind models.NotificationType, title, message string) {
	if ns == nil || ns.nr == nil {
		return
	}
	if _, err := ns.Push(ctx, clientId, kind, title, message); err != nil {
		slog.Warn("notify: push failed", "client", clientId, "type", kind, "err", err)
	}
}

func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + "h ago"
	default:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d ago"
	}
}
