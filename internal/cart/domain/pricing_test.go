package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegions() []Region {
	return []Region{
		{Name: "Lagos", ShippingFee: decimal.NewFromInt(1500), EstimatedDays: 1},
		{Name: "Abuja", ShippingFee: decimal.NewFromInt(2000), EstimatedDays: 2},
		{Name: "Port Harcourt", ShippingFee: decimal.NewFromInt(2500), EstimatedDays: 3},
	}
}

func testEngine() *PricingEngine {
	return NewPricingEngine(
		"NGN",
		decimal.NewFromFloat(0.075),
		decimal.NewFromInt(500),
		testRegions(),
		map[string]decimal.Decimal{
			"FIRST10": decimal.NewFromFloat(0.10),
			"SAVE5":   decimal.NewFromFloat(0.05),
			"BULK20":  decimal.NewFromFloat(0.20),
		},
	)
}

func pricedLine(id uint, sku string, unit float64, quantity int) PricedLine {
	price := decimal.NewFromFloat(unit)
	return PricedLine{
		ProductID: id,
		SKU:       sku,
		Quantity:  quantity,
		UnitPrice: price,
		LineTotal: price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

func TestMatchRegion(t *testing.T) {
	engine := testEngine()

	region, err := engine.MatchRegion("lagos")
	require.NoError(t, err)
	assert.Equal(t, "Lagos", region.Name)

	region, err = engine.MatchRegion("  PORT HARCOURT ")
	require.NoError(t, err)
	assert.Equal(t, "Port Harcourt", region.Name)

	_, err = engine.MatchRegion("Enugu")
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestDiscountRate(t *testing.T) {
	engine := testEngine()

	rate, err := engine.DiscountRate("first10")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.10)))

	rate, err = engine.DiscountRate("")
	require.NoError(t, err)
	assert.True(t, rate.IsZero())

	_, err = engine.DiscountRate("NOSUCHCODE")
	assert.ErrorIs(t, err, ErrInvalidDiscountCode)
}

func TestQuote(t *testing.T) {
	engine := testEngine()

	t.Run("total follows the breakdown", func(t *testing.T) {
		lines := []PricedLine{
			pricedLine(1, "RICE-5KG", 8500, 2),
			pricedLine(2, "OIL-1L", 2500, 1),
		}

		quote, err := engine.Quote(lines, "Lagos", "")
		require.NoError(t, err)
		assert.Equal(t, "19500", quote.Subtotal.String())
		assert.Equal(t, "1500", quote.ShippingFee.String())
		assert.Equal(t, "1462.5", quote.Tax.String())
		assert.True(t, quote.Discount.IsZero())
		assert.Equal(t, "22462.5", quote.Total.String())
		assert.Equal(t, 1, quote.EstimatedDays)
		assert.Equal(t, "NGN", quote.Currency)
	})

	t.Run("discount applies to subtotal only", func(t *testing.T) {
		lines := []PricedLine{pricedLine(1, "RICE-5KG", 10000, 1)}

		quote, err := engine.Quote(lines, "Abuja", "bulk20")
		require.NoError(t, err)
		assert.Equal(t, "2000", quote.Discount.String())
		assert.Equal(t, "BULK20", quote.DiscountCode)
		// 10000 + 2000 运费 + 750 税 - 2000 折扣
		assert.Equal(t, "10750", quote.Total.String())
	})

	t.Run("tax rounds to two places", func(t *testing.T) {
		lines := []PricedLine{pricedLine(1, "MILK-400G", 333.33, 1)}

		quote, err := engine.Quote(lines, "Lagos", "")
		require.NoError(t, err)
		// 333.33 * 0.075 = 24.99975 -> 25.00
		assert.Equal(t, "25.00", quote.Tax.StringFixed(2))
	})

	t.Run("empty cart rejected", func(t *testing.T) {
		_, err := engine.Quote(nil, "Lagos", "")
		assert.ErrorIs(t, err, ErrCartEmpty)
	})

	t.Run("unknown region rejected", func(t *testing.T) {
		lines := []PricedLine{pricedLine(1, "RICE-5KG", 1000, 1)}
		_, err := engine.Quote(lines, "Enugu", "")
		assert.ErrorIs(t, err, ErrUnknownRegion)
	})

	t.Run("no region means zero shipping", func(t *testing.T) {
		lines := []PricedLine{pricedLine(1, "RICE-5KG", 1000, 1)}
		quote, err := engine.Quote(lines, "", "")
		require.NoError(t, err)
		assert.Empty(t, quote.Region)
		assert.True(t, quote.ShippingFee.IsZero())
		// 1000 + 75 税
		assert.Equal(t, "1075", quote.Total.String())
	})
}

func TestCartOperations(t *testing.T) {
	t.Run("upsert merges quantity and options", func(t *testing.T) {
		cart := NewCart("u-1")
		require.NoError(t, cart.Upsert(CartItem{
			ProductID: 1, SKU: "RICE-5KG", Quantity: 2,
			Options: map[string]string{"bag": "jute", "milling": "parboiled"},
		}))
		require.NoError(t, cart.Upsert(CartItem{
			ProductID: 1, SKU: "RICE-5KG", Quantity: 1,
			Options: map[string]string{"bag": "plastic"},
		}))

		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity)
		// 新键覆盖旧键，未给出的键保留
		assert.Equal(t, "plastic", cart.Items[0].Options["bag"])
		assert.Equal(t, "parboiled", cart.Items[0].Options["milling"])
		assert.False(t, cart.Items[0].AddedAt.IsZero())
	})

	t.Run("set quantity zero removes", func(t *testing.T) {
		cart := NewCart("u-1")
		require.NoError(t, cart.Upsert(CartItem{ProductID: 1, Quantity: 2}))
		require.NoError(t, cart.SetQuantity(1, 0))
		assert.True(t, cart.IsEmpty())
	})

	t.Run("negative quantity also removes", func(t *testing.T) {
		cart := NewCart("u-1")
		require.NoError(t, cart.Upsert(CartItem{ProductID: 1, Quantity: 2}))
		require.NoError(t, cart.SetQuantity(1, -3))
		assert.True(t, cart.IsEmpty())

		assert.ErrorIs(t, cart.SetQuantity(1, 0), ErrItemNotFound)
	})

	t.Run("remove missing item", func(t *testing.T) {
		cart := NewCart("u-1")
		assert.ErrorIs(t, cart.Remove(42), ErrItemNotFound)
	})

	t.Run("item count sums quantities", func(t *testing.T) {
		cart := NewCart("u-1")
		require.NoError(t, cart.Upsert(CartItem{ProductID: 1, Quantity: 2}))
		require.NoError(t, cart.Upsert(CartItem{ProductID: 2, Quantity: 3}))
		assert.Equal(t, 5, cart.ItemCount())
	})
}
