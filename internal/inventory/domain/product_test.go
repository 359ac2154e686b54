package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductValidate(t *testing.T) {
	base := Product{
		SKU:      "RICE-5KG",
		Name:     "Golden Penny Rice 5kg",
		Category: "staples",
		Price:    decimal.NewFromFloat(8500),
	}

	t.Run("valid product", func(t *testing.T) {
		p := base
		require.NoError(t, p.Validate())
	})

	t.Run("missing sku", func(t *testing.T) {
		p := base
		p.SKU = "  "
		assert.ErrorContains(t, p.Validate(), "sku is required")
	})

	t.Run("name too short", func(t *testing.T) {
		p := base
		p.Name = "X"
		assert.ErrorContains(t, p.Validate(), "name must be at least 2 characters")
	})

	t.Run("missing category", func(t *testing.T) {
		p := base
		p.Category = ""
		assert.ErrorContains(t, p.Validate(), "category is required")
	})

	t.Run("non-positive price", func(t *testing.T) {
		p := base
		p.Price = decimal.Zero
		assert.ErrorContains(t, p.Validate(), "price must be positive")
	})

	t.Run("discount out of range", func(t *testing.T) {
		p := base
		p.Discount = decimal.NewFromInt(1)
		assert.Error(t, p.Validate())
	})

	t.Run("negative stock", func(t *testing.T) {
		p := base
		p.Stock = -1
		assert.Error(t, p.Validate())
	})

	t.Run("lists every violation at once", func(t *testing.T) {
		p := Product{SKU: " ", Name: "X", Price: decimal.Zero, Stock: -1}
		err := p.Validate()
		require.Error(t, err)

		var invalid *ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Len(t, invalid.Violations, 5)
	})
}

func TestProductDiscountedPrice(t *testing.T) {
	p := Product{Price: decimal.NewFromFloat(1000)}
	assert.True(t, p.DiscountedPrice().Equal(decimal.NewFromFloat(1000)))

	p.Discount = decimal.NewFromFloat(0.1)
	assert.True(t, p.DiscountedPrice().Equal(decimal.NewFromFloat(900)))

	// 折后价四舍五入到两位
	p.Price = decimal.NewFromFloat(199.99)
	p.Discount = decimal.NewFromFloat(0.15)
	assert.Equal(t, "169.99", p.DiscountedPrice().StringFixed(2))
}

func TestProductAdjustStock(t *testing.T) {
	p := Product{Stock: 10}

	require.NoError(t, p.AdjustStock(-4))
	assert.Equal(t, 6, p.Stock)

	require.NoError(t, p.AdjustStock(14))
	assert.Equal(t, 20, p.Stock)

	err := p.AdjustStock(-21)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 20, p.Stock)

	require.NoError(t, p.AdjustStock(-20))
	assert.True(t, p.IsStockOut())
}

func TestProductStockChecks(t *testing.T) {
	p := Product{Stock: 5}

	assert.True(t, p.InStock(5))
	assert.False(t, p.InStock(6))
	assert.False(t, p.InStock(0))

	assert.True(t, p.IsLowStock(5))
	assert.True(t, p.IsLowStock(10))
	assert.False(t, p.IsLowStock(4))
}

func TestProductLowStockPoint(t *testing.T) {
	p := Product{Stock: 5}
	assert.Equal(t, 10, p.LowStockPoint(10))

	p.ReorderPoint = 3
	assert.Equal(t, 3, p.LowStockPoint(10))
}
