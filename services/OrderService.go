package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"neoShop/models"
	"neoShop/repository"
)

type OrderService struct {
	or repository.OrderRepository
	cs CartService
	ns NotificationService
}

func NewOrderService(orderRepo repository.OrderRepository, carts CartService, notifs NotificationService) OrderService {
	return OrderService{
		or: orderRepo,
		cs: carts,
		ns: notifs,
	}
}

func ownsOrder(user models.User, order models.Order) bool {
	return strings.EqualFold(strings.TrimSpace(order.CustomerEmail), strings.TrimSpace(user.Email))
}

// GetOrders lists orders in placement order. Customers see their own, admins see all.
// An empty filter or "all" matches every status.
func (ors *OrderService) GetOrders(ctx context.Context, user models.User, filter string) (orders []models.Order, err error) {
	status := models.OrderStatus(filter)
	if filter != "" && filter != models.StatusAll && !status.Valid() {
		err = fmt.Errorf("%w: unknown order status %q", models.ErrValidation, filter)
		return
	}
	all, err := ors.or.GetOrders(ctx)
	if err != nil {
		return
	}
	orders = make([]models.Order, 0, len(all))
	for _, o := range all {
		if !user.IsAdmin() && !ownsOrder(user, o) {
			continue
		}
		if filter != "" && filter != models.StatusAll && o.Status != status {
			continue
		}
		orders = append(orders, o)
	}
	return
}

func (ors *OrderService) GetAllOrders(ctx context.Context) (orders []models.Order, err error) {
	orders, err = ors.or.GetOrders(ctx)
	return
}

// Checkout turns the client's cart into a pending order and empties the cart. The cart stays
// locked from read to clear, so a double submit places one order.
func (ors *OrderService) Checkout(ctx context.Context, clientId string, user models.User) (order models.Order, err error) {
	err = ors.cs.DrainCart(ctx, clientId, func(lines []models.CartLine) (e error) {
		order, e = ors.or.CreateOrder(ctx, models.Order{
			CustomerName:  user.DisplayName(),
			CustomerEmail: user.Email,
			Items:         lines,
			Total:         CartTotal(lines),
			Status:        models.StatusPending,
		})
		return
	})
	if err != nil {
		if order.Id != 0 {
			slog.Error("Checkout: order placed but cart not cleared", "order", order.Id, "err", err)
		}
		return
	}
	ors.ns.notify(ctx, clientId, models.NotificationOrder, "Order Confirmed",
		"Your order #"+strconv.FormatInt(order.Id, 10)+" has been placed.")
	return
}

func (ors *OrderService) SetOrderStatus(ctx context.Context, clientId string, orderId int64, status models.OrderStatus) (updated models.Order, err error) {
	updated, err = ors.or.SetOrderStatus(ctx, orderId, status)
	if err != nil {
		return
	}
	ors.ns.notify(ctx, clientId, models.NotificationOrder, "Order Updated",
		"Order #"+strconv.FormatInt(orderId, 10)+" is now "+string(status)+".")
	return
}

// CancelOrder lets the customer who placed the order, or an admin, cancel it.
func (ors *OrderService) CancelOrder(ctx context.Context, clientId string, user models.User, orderId int64) (updated models.Order, err error) {
	order, ex, err := ors.or.GetOrderById(ctx, orderId)
	if err != nil {
		return
	}
	if !ex {
		err = fmt.Errorf("%w: order %d", models.ErrNotFound, orderId)
		return
	}
	if !user.IsAdmin() && !ownsOrder(user, order) {
		slog.Info("CancelOrder: not the owner", "order", orderId, "user", user.Id)
		err = fmt.Errorf("%w: order %d belongs to another customer", models.ErrForbidden, orderId)
		return
	}
	updated, err = ors.or.SetOrderStatus(ctx, orderId, models.StatusCancelled)
	if err != nil {
		return
	}
	ors.ns.notify(ctx, clientId, models.NotificationOrder, "Order Cancelled",
		"Order #"+strconv.FormatInt(orderId, 10)+" has been cancelled.")
	return
}
