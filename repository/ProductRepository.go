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

type ProductRepository interface {
	GetProducts(ctx context.Context) (prods []models.Product, err error)
	GetProductById(ctx context.Context, id int64) (prod models.Product, exists bool, err error)
	CreateProduct(ctx context.Context, prod models.Product) (created models.Product, err error)
	UpdateProductById(ctx context.Context, id int64, patch models.ProductPatch) (updated models.Product, err error)
	DeleteProduct(ctx context.Context, id int64) (removed bool, err error)
}

type ProductRepo struct {
	mu  sync.Mutex
	st  storage.Storage
	now func() time.Time
}

func NewProductRepository(st storage.Storage) (ProductRepository, error) {
	if st == nil {
		return nil, errors.New("storage must be non-nil")
	}
	return &ProductRepo{st: st, now: time.Now}, nil
}

func (p *ProductRepo) GetProducts(ctx context.Context) (prods []models.Product, err error) {
	prods, _, err = loadCollection[models.Product](ctx, p.st, productsKey)
	return
}

func (p *ProductRepo) GetProductById(ctx context.Context, id int64) (prod models.Product, exists bool, err error) {
	prods, err := p.GetProducts(ctx)
	if err != nil {
		return
	}
	for _, v := range prods {
		if v.Id == id {
			return v, true, nil
		}
	}
	return
}

func (p *ProductRepo) CreateProduct(ctx context.Context, prod models.Product) (created models.Product, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prods, _, err := loadForUpdate[models.Product](ctx, p.st, productsKey)
	if err != nil {
		return
	}
	var maxId int64
	for _, v := range prods {
		maxId = max(maxId, v.Id)
	}
	prod.Id = nextId(p.now(), maxId)
	prods = append(prods, prod)
	if err = saveCollection(ctx, p.st, productsKey, prods); err != nil {
		return
	}
	created = prod
	return
}

func (p *ProductRepo) UpdateProductById(ctx context.Context, id int64, patch models.ProductPatch) (updated models.Product, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prods, _, err := loadForUpdate[models.Product](ctx, p.st, productsKey)
	if err != nil {
		return
	}
	for i, v := range prods {
		if v.Id != id {
			continue
		}
		prods[i] = patch.Apply(v)
		if err = saveCollection(ctx, p.st, productsKey, prods); err != nil {
			return
		}
		updated = prods[i]
		return
	}
	slog.Info("UpdateProductById: product does not exist", "id", id)
	err = fmt.Errorf("%w: product %d", models.ErrNotFound, id)
	return
}

func (p *ProductRepo) DeleteProduct(ctx context.Context, id int64) (removed bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prods, _, err := loadForUpdate[models.Product](ctx, p.st, productsKey)
	if err != nil {
		return
	}
	kept := prods[:0]
	for _, v := range prods {
		if v.Id == id {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	if !removed {
		return
	}
	err = saveCollection(ctx, p.st, productsKey, kept)
	return
}
