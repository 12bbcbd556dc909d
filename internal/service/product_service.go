package service

import (
	"context"
	"fmt"

	"salesdesk/internal/model"
	"salesdesk/internal/repository"
)

type ProductService interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

// ListProducts returns the catalog ordered by name, then weight.
func (s *productService) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}
