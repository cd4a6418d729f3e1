package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"neoShop/models"
	"neoShop/storage"
)

type OrderRepository interface {
	GetOrders(ctx context.Context) (orders []models.Order, err error)
	GetOrderById(ctx context.Context, orderId int64) (order models.Order, exists bool, err error)
	CreateOrder(ctx context.Context, order models.Order) (created models.Order, err error)
	SetOrderStatus(ctx context.Context, orderId int64, status models.OrderStatus) (updated models.Order, err error)
}

type OrderRepo struct {
	mu  sync.Mutex
	st  storage.Storage
	now func() time.Time
}

func NewOrderRepository(st storage.Storage) (OrderRepository, error) {
	if st == nil {
		return nil, errors.New("storage must be non-nil")
	}
	return &OrderRepo{st: st, now: time.Now}, nil
}

func (o *OrderRepo) GetOrders(ctx context.Context) (orders []models.Order, err error) {
	orders, _, err = loadCollection[models.Order](ctx, o.st, ordersKey)
	return
}

func (o *OrderRepo) GetOrderById(ctx context.Context, orderId int64) (order models.Order, exists bool, err error) {
	orders, err := o.GetOrders(ctx)
	if err != nil {
		return
	}
	for _, v := range orders {
		if v.Id == orderId {
			return v, true, nil
		}
	}
	return
}

func (o *OrderRepo) CreateOrder(ctx context.Context, order models.Order) (created models.Order, err error) {
	if !order.Status.Valid() {
		err = fmt.Errorf("%w: unknown order status %q", models.ErrValidation, order.Status)
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	orders, _, err := loadForUpdate[models.Order](ctx, o.st, ordersKey)
	if err != nil {
		return
	}
	var maxId int64
	for _, v := range orders {
		maxId = max(maxId, v.Id)
	}
	now := o.now()
	order.Id = nextId(now, maxId)
	if order.Date.IsZero() {
		order.Date = now.UTC()
	}
	orders = append(orders, order)
	if err = saveCollection(ctx, o.st, ordersKey, orders); err != nil {
		return
	}
	created = order
	return
}

// SetOrderStatus moves an order along pending -> processing -> completed, or to cancelled
// from either non-terminal state.
func (o *OrderRepo) SetOrderStatus(ctx context.Context, orderId int64, status models.OrderStatus) (updated models.Order, err error) {
	if !status.Valid() {
		err = fmt.Errorf("%w: unknown order status %q", models.ErrValidation, status)
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	orders, _, err := loadForUpdate[models.Order](ctx, o.st, ordersKey)
	if err != nil {
		return
	}
	for i, v := range orders {
		if v.Id != orderId {
			continue
		}
		if !v.Status.CanTransitionTo(status) {
			slog.Info("SetOrderStatus: transition rejected", "id", orderId, "from", v.Status, "to", status)
			err = fmt.Errorf("%w: order %d cannot go from %s to %s", models.ErrNotAllowed, orderId, v.Status, status)
			return
		}
		orders[i].Status = status
		if err = saveCollection(ctx, o.st, ordersKey, orders); err != nil {
			return
		}
		updated = orders[i]
		return
	}
	err = fmt.Errorf("%w: order %d", models.ErrNotFound, orderId)
	return
}
