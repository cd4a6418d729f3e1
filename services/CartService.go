package services

import (
	"context"
	"fmt"
	"log/slog"

	"neoShop/entities"
	"neoShop/models"
	"neoShop/repository"

	"github.com/shopspring/decimal"
)

type CartService struct {
	pr repository.ProductRepository
	cr repository.CartRepository
}

func NewCartService(productRepo repository.ProductRepository, cartRepo repository.CartRepository) CartService {
	return CartService{
		pr: productRepo,
		cr: cartRepo,
	}
}

// AddCartItem puts a snapshot of the product in the cart or bumps its quantity by one.
func (cs *CartService) AddCartItem(ctx context.Context, clientId string, productId int64) (line models.CartLine, err error) {
	p, ex, err := cs.pr.GetProductById(ctx, productId)
	if err != nil {
		return
	}
	if !ex {
		slog.Info("AddCartItem: product does not exist", "id", productId)
		err = fmt.Errorf("%w: product %d", models.ErrNotFound, productId)
		return
	}
	line, err = cs.cr.AddCartItem(ctx, clientId, p)
	return
}

// GetCartLines returns the cart, dropping lines whose product was deleted since they were added.
func (cs *CartService) GetCartLines(ctx context.Context, clientId string) (lines []models.CartLine, err error) {
	lines, err = cs.cr.GetCart(ctx, clientId)
	if err != nil || len(lines) == 0 {
		return
	}
	prods, err := cs.pr.GetProducts(ctx)
	if err != nil {
		return
	}
	existing := existingIds(prods)
	kept := make([]models.CartLine, 0, len(lines))
	var dangling []int64
	for _, l := range lines {
		if _, ok := existing[l.Id]; ok {
			kept = append(kept, l)
		} else {
			dangling = append(dangling, l.Id)
		}
	}
	if len(dangling) > 0 {
		slog.Info("GetCartLines: purging deleted products", "client", clientId, "ids", dangling)
		if err = cs.cr.PurgeCart(ctx, clientId, dangling...); err != nil {
			return
		}
	}
	lines = kept
	return
}

func (cs *CartService) GetCartItems(ctx context.Context, clientId string) (resp entities.CartResponse, err error) {
	lines, err := cs.GetCartLines(ctx, clientId)
	if err != nil {
		return
	}
	resp = entities.CartResponse{
		Lines:     lines,
		ItemCount: ItemCount(lines),
		Total:     CartTotal(lines),
	}
	return
}

// DrainCart passes the cart lines that still have a product to place, then empties the cart.
// An empty cart is a validation error and place is not called.
func (cs *CartService) DrainCart(ctx context.Context, clientId string, place func(lines []models.CartLine) error) (err error) {
	prods, err := cs.pr.GetProducts(ctx)
	if err != nil {
		return
	}
	existing := existingIds(prods)
	err = cs.cr.DrainCart(ctx, clientId, func(lines []models.CartLine) error {
		kept := make([]models.CartLine, 0, len(lines))
		for _, l := range lines {
			if _, ok := existing[l.Id]; ok {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			return fmt.Errorf("%w: cart is empty", models.ErrValidation)
		}
		return place(kept)
	})
	return
}

func (cs *CartService) SetCartItemQuantity(ctx context.Context, clientId string, productId int64, quantity int) (err error) {
	err = cs.cr.SetCartItemQuantity(ctx, clientId, productId, quantity)
	return
}

func (cs *CartService) RemoveCartItem(ctx context.Context, clientId string, productId int64) (err error) {
	err = cs.cr.RemoveCartItem(ctx, clientId, productId)
	return
}

func (cs *CartService) ClearCart(ctx context.Context, clientId string) (err error) {
	err = cs.cr.ClearCart(ctx, clientId)
	return
}

// ItemCount sums the quantities, so two units of one product count as two.
func ItemCount(lines []models.CartLine) (count int) {
	for _, l := range lines {
		count += l.Quantity
	}
	return
}

func CartTotal(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
