package service

import (
	"math"
	"testing"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLines(t *testing.T) {
	catalog := []model.Product{riz50, riz25, mil50}

	items, total, err := ComputeLines(catalog, []RequestedLine{
		{ProductID: riz50.ID, Quantity: 1},
		{ProductID: riz25.ID, Quantity: 1},
	}, LinePolicy{MaxQuantityPerProduct: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(24750), total)
	require.Len(t, items, 2)
	assert.Equal(t, riz50.ID, items[0].ProductID)
	assert.Equal(t, int64(16500), items[0].LineTotal)
	assert.Equal(t, riz25.ID, items[1].ProductID)
	assert.Equal(t, int64(8250), items[1].UnitPrice)
}

func TestComputeLines_MergesRepeatedProducts(t *testing.T) {
	items, total, err := ComputeLines([]model.Product{riz50, mil50}, []RequestedLine{
		{ProductID: mil50.ID, Quantity: 2},
		{ProductID: riz50.ID, Quantity: 1},
		{ProductID: mil50.ID, Quantity: 1},
	}, LinePolicy{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, mil50.ID, items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, int64(3*6750), items[0].LineTotal)
	assert.Equal(t, int64(3*6750+16500), total)
}

func TestComputeLines_Errors(t *testing.T) {
	catalog := []model.Product{riz50}

	_, _, err := ComputeLines(catalog, nil, LinePolicy{})
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, _, err = ComputeLines(catalog, []RequestedLine{{ProductID: uuid.New(), Quantity: 1}}, LinePolicy{})
	assert.ErrorIs(t, err, ErrUnknownProduct)

	_, _, err = ComputeLines(catalog, []RequestedLine{{ProductID: riz50.ID, Quantity: -1}}, LinePolicy{})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// the cap applies to the merged quantity
	_, _, err = ComputeLines(catalog, []RequestedLine{
		{ProductID: riz50.ID, Quantity: 1},
		{ProductID: riz50.ID, Quantity: 1},
	}, LinePolicy{MaxQuantityPerProduct: 1})
	assert.ErrorIs(t, err, ErrQuantityCap)
}

func TestComputeLines_TotalMatchesLines(t *testing.T) {
	catalog := model.DefaultCatalog()
	for i := range catalog {
		catalog[i].ID = uuid.New()
	}

	// every subset of the default catalog, with varying quantities
	for mask := 1; mask < 1<<len(catalog); mask++ {
		var requested []RequestedLine
		for i, p := range catalog {
			if mask&(1<<i) != 0 {
				requested = append(requested, RequestedLine{ProductID: p.ID, Quantity: 1 + (mask+i)%4})
			}
		}

		items, total, err := ComputeLines(catalog, requested, LinePolicy{})
		require.NoError(t, err)

		var sum int64
		for _, item := range items {
			assert.Equal(t, item.UnitPrice*int64(item.Quantity), item.LineTotal)
			sum += item.LineTotal
		}
		assert.Equal(t, sum, total)
	}
}

func TestComputeLines_RejectsAmountOverflow(t *testing.T) {
	catalog := []model.Product{riz50, mil50}
	uncapped := LinePolicy{}

	// a single line whose price no longer fits in int64
	huge := int(math.MaxInt64/riz50.UnitPrice) + 1
	_, _, err := ComputeLines(catalog, []RequestedLine{{ProductID: riz50.ID, Quantity: huge}}, uncapped)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// each line fits, the sum does not
	half := int(math.MaxInt64 / riz50.UnitPrice)
	_, _, err = ComputeLines(catalog, []RequestedLine{
		{ProductID: riz50.ID, Quantity: half},
		{ProductID: mil50.ID, Quantity: int(math.MaxInt64 / mil50.UnitPrice)},
	}, uncapped)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// merging repeated lines must not wrap the quantity itself
	_, _, err = ComputeLines(catalog, []RequestedLine{
		{ProductID: mil50.ID, Quantity: math.MaxInt},
		{ProductID: mil50.ID, Quantity: 1},
	}, uncapped)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	items, total, err := ComputeLines(catalog, []RequestedLine{{ProductID: mil50.ID, Quantity: 1000}}, uncapped)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(6750000), total)
}
