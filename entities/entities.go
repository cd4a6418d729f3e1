package entities

import (
	"neoShop/models"

	"github.com/shopspring/decimal"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type SessionResponse struct {
	User  *models.User `json:"user"`
	Error string       `json:"error,omitempty"`
}

type CartResponse struct {
	Lines     []models.CartLine `json:"lines"`
	ItemCount int               `json:"itemCount"`
	Total     decimal.Decimal   `json:"total"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type FavoriteToggleResponse struct {
	Ids   []int64 `json:"ids"`
	Added bool    `json:"added"`
}

type OrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type NotificationView struct {
	models.Notification
	Ago string `json:"ago"`
}

type NotificationsResponse struct {
	Notifications []NotificationView `json:"notifications"`
	UnreadCount   int                `json:"unreadCount"`
}

type DashboardStats struct {
	TotalProducts  int              `json:"totalProducts"`
	TotalOrders    int              `json:"totalOrders"`
	TotalRevenue   decimal.Decimal  `json:"totalRevenue"`
	TotalUsers     int              `json:"totalUsers"`
	RecentProducts []models.Product `json:"recentProducts"`
	RecentOrders   []models.Order   `json:"recentOrders"`
}
