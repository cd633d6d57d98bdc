package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
)

func products() (catalog.Product, catalog.Product) {
	all := catalog.InitialProducts()
	return all[0], all[1]
}

func TestCartOperationsDoNotMutateInput(t *testing.T) {
	p1, p2 := products()

	var empty cart.Cart
	one := empty.Add(p1)
	require.Empty(t, empty)
	require.Equal(t, 1, one.QuantityOf("p1"))

	two := one.Add(p1).Add(p2)
	require.Equal(t, 1, one.QuantityOf("p1"))
	require.Equal(t, 2, two.QuantityOf("p1"))
	require.Equal(t, 3, two.TotalItemCount())
	require.Equal(t, "p1", two[0].Product.ID)
	require.Equal(t, "p2", two[1].Product.ID)

	updated := two.UpdateQuantity("p2", 5)
	require.Equal(t, 1, two.QuantityOf("p2"))
	require.Equal(t, 5, updated.QuantityOf("p2"))

	removed := updated.UpdateQuantity("p1", 0)
	_, found := removed.Find("p1")
	require.False(t, found)
	require.Len(t, updated, 2)

	require.Len(t, removed.Remove("missing"), 1)
	require.Empty(t, removed.Remove("p2"))
}

func TestRemainingStock(t *testing.T) {
	p1, _ := products()
	c := cart.Cart{{Product: p1, Quantity: 15}}
	require.Equal(t, 5, c.RemainingStock(p1))
	require.Equal(t, 20, cart.Cart{}.RemainingStock(p1))
}

func TestRefresh(t *testing.T) {
	p1, p2 := products()
	c := cart.Cart{{Product: p1, Quantity: 2}, {Product: p2, Quantity: 1}}
	repriced := p1
	repriced.Price = 12000
	out := c.Refresh(func(id string) (catalog.Product, bool) {
		if id == "p1" {
			return repriced, true
		}
		return catalog.Product{}, false
	})
	require.Len(t, out, 1)
	require.Equal(t, int64(12000), out[0].Product.Price)
	require.Equal(t, 2, out[0].Quantity)
	require.Equal(t, int64(10000), c[0].Product.Price)
}
