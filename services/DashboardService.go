package services

import (
	"context"

	"neoShop/entities"
	"neoShop/repository"

	"github.com/shopspring/decimal"
)

const recentLimit = 5

type DashboardService struct {
	pr repository.ProductRepository
	or repository.OrderRepository
	ur repository.UserRepository
}

func NewDashboardService(productRepo repository.ProductRepository, orderRepo repository.OrderRepository, userRepo repository.UserRepository) DashboardService {
	return DashboardService{
		pr: productRepo,
		or: orderRepo,
		ur: userRepo,
	}
}

func lastN[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[len(items)-n:]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func (ds *DashboardService) GetStats(ctx context.Context) (stats entities.DashboardStats, err error) {
	prods, err := ds.pr.GetProducts(ctx)
	if err != nil {
		return
	}
	orders, err := ds.or.GetOrders(ctx)
	if err != nil {
		return
	}
	users, err := ds.ur.GetUsers(ctx)
	if err != nil {
		return
	}
	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.Total)
	}
	stats = entities.DashboardStats{
		TotalProducts:  len(prods),
		TotalOrders:    len(orders),
		TotalRevenue:   revenue,
		TotalUsers:     len(users),
		RecentProducts: lastN(prods, recentLimit),
		RecentOrders:   lastN(orders, recentLimit),
	}
	return
}
