package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"neoShop/models"
	"neoShop/storage"
)

type CartRepository interface {
	GetCart(ctx context.Context, clientId string) (lines []models.CartLine, err error)
	AddCartItem(ctx context.Context, clientId string, prod models.Product) (line models.CartLine, err error)
	SetCartItemQuantity(ctx context.Context, clientId string, productId int64, quantity int) (err error)
	RemoveCartItem(ctx context.Context, clientId string, productId int64) (err error)
	ClearCart(ctx context.Context, clientId string) (err error)
	PurgeCart(ctx context.Context, clientId string, productIds ...int64) (err error)
	DrainCart(ctx context.Context, clientId string, place func(lines []models.CartLine) error) (err error)
}

type CartRepo struct {
	mu sync.Mutex
	st storage.Storage
}

func NewCartRepository(st storage.Storage) (CartRepository, error) {
	if st == nil {
		return nil, errors.New("storage must be non-nil")
	}
	return &CartRepo{st: st}, nil
}

func (c *CartRepo) GetCart(ctx context.Context, clientId string) (lines []models.CartLine, err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	lines, _, err = loadCollection[models.CartLine](ctx, c.st, clientKey(clientId, cartKey))
	return
}

// mutate runs fn over the client's cart under the lock and saves the result when fn reports a change.
func (c *CartRepo) mutate(ctx context.Context, clientId string, fn func([]models.CartLine) ([]models.CartLine, bool, error)) (err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := clientKey(clientId, cartKey)
	lines, _, err := loadForUpdate[models.CartLine](ctx, c.st, key)
	if err != nil {
		return
	}
	lines, changed, err := fn(lines)
	if err != nil || !changed {
		return
	}
	err = saveCollection(ctx, c.st, key, lines)
	return
}

func (c *CartRepo) AddCartItem(ctx context.Context, clientId string, prod models.Product) (line models.CartLine, err error) {
	err = c.mutate(ctx, clientId, func(lines []models.CartLine) ([]models.CartLine, bool, error) {
		for i := range lines {
			if lines[i].Id == prod.Id {
				lines[i].Quantity++
				line = lines[i]
				return lines, true, nil
			}
		}
		line = models.CartLine{Product: prod, Quantity: 1}
		return append(lines, line), true, nil
	})
	return
}

// SetCartItemQuantity drops the line when quantity is not positive.
func (c *CartRepo) SetCartItemQuantity(ctx context.Context, clientId string, productId int64, quantity int) (err error) {
	err = c.mutate(ctx, clientId, func(lines []models.CartLine) ([]models.CartLine, bool, error) {
		idx := slices.IndexFunc(lines, func(l models.CartLine) bool { return l.Id == productId })
		if idx < 0 {
			return lines, false, fmt.Errorf("%w: cart line %d", models.ErrNotFound, productId)
		}
		if quantity <= 0 {
			return slices.Delete(lines, idx, idx+1), true, nil
		}
		lines[idx].Quantity = quantity
		return lines, true, nil
	})
	return
}

func (c *CartRepo) RemoveCartItem(ctx context.Context, clientId string, productId int64) (err error) {
	return c.PurgeCart(ctx, clientId, productId)
}

func (c *CartRepo) ClearCart(ctx context.Context, clientId string) (err error) {
	err = c.mutate(ctx, clientId, func(lines []models.CartLine) ([]models.CartLine, bool, error) {
		return []models.CartLine{}, len(lines) > 0, nil
	})
	return
}

func (c *CartRepo) PurgeCart(ctx context.Context, clientId string, productIds ...int64) (err error) {
	if len(productIds) == 0 {
		return
	}
	err = c.mutate(ctx, clientId, func(lines []models.CartLine) ([]models.CartLine, bool, error) {
		before := len(lines)
		lines = slices.DeleteFunc(lines, func(l models.CartLine) bool { return slices.Contains(productIds, l.Id) })
		return lines, len(lines) != before, nil
	})
	return
}

// DrainCart hands the cart to place and empties it when place succeeds, all under the cart
// lock, so a concurrent checkout or add cannot slip in between.
func (c *CartRepo) DrainCart(ctx context.Context, clientId string, place func(lines []models.CartLine) error) (err error) {
	err = c.mutate(ctx, clientId, func(lines []models.CartLine) ([]models.CartLine, bool, error) {
		if e := place(lines); e != nil {
			return lines, false, e
		}
		return []models.CartLine{}, true, nil
	})
	return
}
