package repository

import (
	"context"

	"salesdesk/internal/model"

	"gorm.io/gorm"
)

// ProductRepository reads the catalog. Products are seeded once and never
// edited through the sales workflow.
type ProductRepository interface {
	ListAll(ctx context.Context) ([]model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Order("name ASC, weight ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
