package service

import (
	"fmt"
	"math"

	"salesdesk/internal/model"

	"github.com/google/uuid"
)

// RequestedLine is one (product, quantity) pair chosen by the agent.
type RequestedLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// LinePolicy carries front-desk limits. MaxQuantityPerProduct 0 means no cap.
type LinePolicy struct {
	MaxQuantityPerProduct int
}

// ComputeLines prices the requested lines against a catalog snapshot.
// Lines naming the same product are merged, keeping first-seen order.
// It has no side effects.
func ComputeLines(catalog []model.Product, requested []RequestedLine, policy LinePolicy) ([]model.SaleItem, int64, error) {
	if len(requested) == 0 {
		return nil, 0, ErrEmptySelection
	}

	products := make(map[uuid.UUID]model.Product, len(catalog))
	for _, p := range catalog {
		products[p.ID] = p
	}

	var order []uuid.UUID
	quantities := make(map[uuid.UUID]int, len(requested))
	for _, line := range requested {
		if _, ok := products[line.ProductID]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductID)
		}
		if line.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: got %d", ErrInvalidQuantity, line.Quantity)
		}
		merged, seen := quantities[line.ProductID]
		if !seen {
			order = append(order, line.ProductID)
		}
		if merged > math.MaxInt-line.Quantity {
			return nil, 0, fmt.Errorf("%w: merged quantity too large", ErrInvalidQuantity)
		}
		quantities[line.ProductID] = merged + line.Quantity
	}

	items := make([]model.SaleItem, 0, len(order))
	var total int64
	for _, id := range order {
		p := products[id]
		qty := quantities[id]
		if policy.MaxQuantityPerProduct > 0 && qty > policy.MaxQuantityPerProduct {
			return nil, 0, fmt.Errorf("%w: %s (%d > %d)", ErrQuantityCap, p.Label(), qty, policy.MaxQuantityPerProduct)
		}
		// Amounts are int64 FCFA; refuse anything that would wrap.
		if int64(qty) > math.MaxInt64/p.UnitPrice {
			return nil, 0, fmt.Errorf("%w: %s quantity %d too large", ErrInvalidQuantity, p.Label(), qty)
		}
		lineTotal := p.UnitPrice * int64(qty)
		if total > math.MaxInt64-lineTotal {
			return nil, 0, fmt.Errorf("%w: sale total too large", ErrInvalidQuantity)
		}
		items = append(items, model.SaleItem{
			ProductID: p.ID,
			Quantity:  qty,
			UnitPrice: p.UnitPrice,
			LineTotal: lineTotal,
		})
		total += lineTotal
	}

	return items, total, nil
}
