package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry. Prices are whole FCFA.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;index:idx_products_name_weight,priority:1" json:"name"`
	Weight    string    `gorm:"type:varchar(50);not null;index:idx_products_name_weight,priority:2" json:"weight"`
	UnitPrice int64     `gorm:"not null;check:unit_price > 0" json:"unit_price"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Label is the name and weight as printed on receipts, e.g. "Riz 50 KG".
func (p Product) Label() string {
	return p.Name + " " + p.Weight
}

// DefaultCatalog is seeded into an empty products table on first start.
func DefaultCatalog() []Product {
	return []Product{
		{Name: "Riz", Weight: "50 KG", UnitPrice: 16500},
		{Name: "Riz", Weight: "25 KG", UnitPrice: 8250},
		{Name: "Maïs", Weight: "100 KG", UnitPrice: 13500},
		{Name: "Mil", Weight: "50 KG", UnitPrice: 6750},
		{Name: "Mil", Weight: "100 KG", UnitPrice: 13500},
		{Name: "Sorgho", Weight: "50 KG", UnitPrice: 6750},
		{Name: "Sorgho", Weight: "100 KG", UnitPrice: 13500},
	}
}
