package services

import (
	"context"

	"neoShop/models"
	"neoShop/repository"
)

const (
	CategoryAll           = "all"
	CategoryUncategorized = "uncategorized"
)

type CategoryService struct {
	pr repository.ProductRepository
}

func NewCategoryService(productRepo repository.ProductRepository) CategoryService {
	return CategoryService{
		pr: productRepo,
	}
}

func categoryOf(p models.Product) string {
	if p.Category == "" {
		return CategoryUncategorized
	}
	return p.Category
}

// GetAllCategories lists "all" followed by every distinct product category in first-seen order.
func (cas *CategoryService) GetAllCategories(ctx context.Context) (categories []string, err error) {
	prods, err := cas.pr.GetProducts(ctx)
	if err != nil {
		return
	}
	categories = []string{CategoryAll}
	seen := map[string]bool{}
	for _, p := range prods {
		c := categoryOf(p)
		if seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}
	return
}
