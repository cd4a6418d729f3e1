package repository

import (
	"context"
	"errors"
	"slices"
	"sync"

	"neoShop/models"
	"neoShop/storage"
)

// FavoriteRepository stores full product snapshots per client. Later edits of the product do
// not reach a snapshot that is already stored.
type FavoriteRepository interface {
	GetFavorites(ctx context.Context, clientId string) (favs []models.Product, err error)
	ToggleFavorite(ctx context.Context, clientId string, prod models.Product) (ids []int64, added bool, err error)
	PurgeFavorites(ctx context.Context, clientId string, productIds ...int64) (err error)
}

type FavoriteRepo struct {
	mu sync.Mutex
	st storage.Storage
}

func NewFavoriteRepository(st storage.Storage) (FavoriteRepository, error) {
	if st == nil {
		return nil, errors.New("storage must be non-nil")
	}
	return &FavoriteRepo{st: st}, nil
}

// load falls back to the legacy "favourites" spelling when nothing was saved under the
// current key yet. forUpdate refuses collections with unreadable records.
func (f *FavoriteRepo) load(ctx context.Context, clientId string, forUpdate bool) (favs []models.Product, legacy bool, err error) {
	loader := loadCollection[models.Product]
	if forUpdate {
		loader = loadForUpdate[models.Product]
	}
	favs, found, err := loader(ctx, f.st, clientKey(clientId, favoritesKey))
	if err != nil || found {
		return
	}
	favs, legacy, err = loader(ctx, f.st, clientKey(clientId, legacyFavorites))
	return
}

func (f *FavoriteRepo) save(ctx context.Context, clientId string, favs []models.Product, legacy bool) (err error) {
	if err = saveCollection(ctx, f.st, clientKey(clientId, favoritesKey), favs); err != nil {
		return
	}
	if legacy {
		err = deleteKey(ctx, f.st, clientKey(clientId, legacyFavorites))
	}
	return
}

func (f *FavoriteRepo) GetFavorites(ctx context.Context, clientId string) (favs []models.Product, err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	favs, _, err = f.load(ctx, clientId, false)
	return
}

func (f *FavoriteRepo) ToggleFavorite(ctx context.Context, clientId string, prod models.Product) (ids []int64, added bool, err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	favs, legacy, err := f.load(ctx, clientId, true)
	if err != nil {
		return
	}
	idx := slices.IndexFunc(favs, func(v models.Product) bool { return v.Id == prod.Id })
	if idx >= 0 {
		favs = slices.Delete(favs, idx, idx+1)
	} else {
		favs = append(favs, prod)
		added = true
	}
	if err = f.save(ctx, clientId, favs, legacy); err != nil {
		return
	}
	ids = make([]int64, 0, len(favs))
	for _, v := range favs {
		ids = append(ids, v.Id)
	}
	return
}

func (f *FavoriteRepo) PurgeFavorites(ctx context.Context, clientId string, productIds ...int64) (err error) {
	if err = checkClient(clientId); err != nil || len(productIds) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	favs, legacy, err := f.load(ctx, clientId, true)
	if err != nil {
		return
	}
	kept := slices.DeleteFunc(favs, func(v models.Product) bool { return slices.Contains(productIds, v.Id) })
	if len(kept) == len(favs) && !legacy {
		return
	}
	err = f.save(ctx, clientId, kept, legacy)
	return
}
