package services

import (
	"context"
	"fmt"
	"log/slog"

	"neoShop/entities"
	"neoShop/models"
	"neoShop/repository"
)

type FavoriteService struct {
	pr repository.ProductRepository
	fr repository.FavoriteRepository
}

func NewFavoriteService(productRepo repository.ProductRepository, favRepo repository.FavoriteRepository) FavoriteService {
	return FavoriteService{
		pr: productRepo,
		fr: favRepo,
	}
}

// GetFavorites returns the stored snapshots, purging those whose product was deleted.
func (fs *FavoriteService) GetFavorites(ctx context.Context, clientId string) (favs []models.Product, err error) {
	favs, err = fs.fr.GetFavorites(ctx, clientId)
	if err != nil || len(favs) == 0 {
		return
	}
	prods, err := fs.pr.GetProducts(ctx)
	if err != nil {
		return
	}
	existing := existingIds(prods)
	kept := make([]models.Product, 0, len(favs))
	var dangling []int64
	for _, f := range favs {
		if _, ok := existing[f.Id]; ok {
			kept = append(kept, f)
		} else {
			dangling = append(dangling, f.Id)
		}
	}
	if len(dangling) > 0 {
		slog.Info("GetFavorites: purging deleted products", "client", clientId, "ids", dangling)
		if err = fs.fr.PurgeFavorites(ctx, clientId, dangling...); err != nil {
			return
		}
	}
	favs = kept
	return
}

// ToggleFavorite adds a snapshot of the product, or removes it when already a favorite.
func (fs *FavoriteService) ToggleFavorite(ctx context.Context, clientId string, productId int64) (resp entities.FavoriteToggleResponse, err error) {
	prod, ex, err := fs.pr.GetProductById(ctx, productId)
	if err != nil {
		return
	}
	if !ex {
		if err = fs.fr.PurgeFavorites(ctx, clientId, productId); err != nil {
			return
		}
		err = fmt.Errorf("%w: product %d", models.ErrNotFound, productId)
		return
	}
	resp.Ids, resp.Added, err = fs.fr.ToggleFavorite(ctx, clientId, prod)
	return
}
