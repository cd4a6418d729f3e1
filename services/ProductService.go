package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"neoShop/models"
	"neoShop/repository"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type ProductService struct {
	pr repository.ProductRepository
	fr repository.FavoriteRepository
	cr repository.CartRepository
	ns NotificationService
}

func NewProductService(productRepo repository.ProductRepository, favRepo repository.FavoriteRepository, cartRepo repository.CartRepository, notifs NotificationService) ProductService {
	return ProductService{
		pr: productRepo,
		fr: favRepo,
		cr: cartRepo,
		ns: notifs,
	}
}

func (ps *ProductService) GetProducts(ctx context.Context) (prods []models.Product, err error) {
	prods, err = ps.pr.GetProducts(ctx)
	return
}

func (ps *ProductService) GetProductById(ctx context.Context, id int64) (prod models.Product, err error) {
	prod, ex, err := ps.pr.GetProductById(ctx, id)
	if err != nil {
		return
	}
	if !ex {
		slog.Info("GetProductById: product does not exist", "id", id)
		err = fmt.Errorf("%w: product %d", models.ErrNotFound, id)
	}
	return
}

// Search filters by a case-insensitive title substring and category, then sorts. Products
// without a category fall under "uncategorized".
func (ps *ProductService) Search(ctx context.Context, q models.CatalogQuery) (prods []models.Product, err error) {
	switch q.SortBy {
	case "", models.SortByName, models.SortByPriceLow, models.SortByPriceHigh:
	default:
		err = fmt.Errorf("%w: unknown sort %q", models.ErrValidation, q.SortBy)
		return
	}
	all, err := ps.pr.GetProducts(ctx)
	if err != nil {
		return
	}
	term := strings.ToLower(strings.TrimSpace(q.Search))
	prods = make([]models.Product, 0, len(all))
	for _, p := range all {
		if term != "" && !strings.Contains(strings.ToLower(p.Title), term) {
			continue
		}
		if q.Category != "" && q.Category != CategoryAll && categoryOf(p) != q.Category {
			continue
		}
		prods = append(prods, p)
	}

	switch q.SortBy {
	case models.SortByName:
		col := collate.New(language.English, collate.IgnoreCase)
		slices.SortStableFunc(prods, func(a, b models.Product) int {
			return col.CompareString(a.Title, b.Title)
		})
	case models.SortByPriceLow:
		slices.SortStableFunc(prods, func(a, b models.Product) int { return a.Price.Cmp(b.Price) })
	case models.SortByPriceHigh:
		slices.SortStableFunc(prods, func(a, b models.Product) int { return b.Price.Cmp(a.Price) })
	}
	return
}

func checkPrice(prod models.Product) error {
	if prod.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", models.ErrValidation)
	}
	return nil
}

func (ps *ProductService) CreateProduct(ctx context.Context, clientId string, payload models.ProductPayload) (created models.Product, err error) {
	payload.Title = strings.TrimSpace(payload.Title)
	if err = validateStruct(payload); err != nil {
		return
	}
	prod := models.Product{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Image:       payload.Image,
		Category:    strings.TrimSpace(payload.Category),
	}
	if err = checkPrice(prod); err != nil {
		return
	}
	created, err = ps.pr.CreateProduct(ctx, prod)
	if err != nil {
		return
	}
	ps.ns.notify(ctx, clientId, models.NotificationProduct, "Product Added", created.Title+" is now in the catalog.")
	return
}

func (ps *ProductService) UpdateProductById(ctx context.Context, id int64, patch models.ProductPatch) (updated models.Product, err error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			err = fmt.Errorf("%w: title is required", models.ErrValidation)
			return
		}
		patch.Title = &title
	}
	if patch.Price != nil {
		if err = checkPrice(models.Product{Price: *patch.Price}); err != nil {
			return
		}
	}
	updated, err = ps.pr.UpdateProductById(ctx, id, patch)
	return
}

// DeleteProduct removes the product and drops it from the calling client's favorites and
// cart. Other clients lose their copies the next time they read them. Orders keep theirs.
func (ps *ProductService) DeleteProduct(ctx context.Context, clientId string, id int64) (err error) {
	removed, err := ps.pr.DeleteProduct(ctx, id)
	if err != nil {
		return
	}
	if !removed {
		slog.Debug("DeleteProduct: already gone", "id", id)
	}
	if err = ps.fr.PurgeFavorites(ctx, clientId, id); err != nil {
		return
	}
	err = ps.cr.PurgeCart(ctx, clientId, id)
	return
}

// existingIds indexes the current catalog for the lazy cascade.
func existingIds(prods []models.Product) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(prods))
	for _, p := range prods {
		ids[p.Id] = struct{}{}
	}
	return ids
}
