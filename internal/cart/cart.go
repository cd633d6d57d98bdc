// Package cart models the shopper's cart as an immutable value and guards its
// mutations against product stock.
package cart

import "github.com/noah-isme/toko-cart/internal/catalog"

// Line is one product in the cart. Quantity is always positive.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Cart is an ordered list of lines, unique by product id. Every method returns
// a new Cart and leaves the receiver untouched.
type Cart []Line

// Find returns the line for productID.
func (c Cart) Find(productID string) (Line, bool) {
	for _, line := range c {
		if line.Product.ID == productID {
			return line, true
		}
	}
	return Line{}, false
}

// QuantityOf returns the quantity of productID in the cart, 0 when absent.
func (c Cart) QuantityOf(productID string) int {
	line, _ := c.Find(productID)
	return line.Quantity
}

// RemainingStock is the product stock minus what this cart already holds.
func (c Cart) RemainingStock(p catalog.Product) int {
	return p.Stock - c.QuantityOf(p.ID)
}

// Add inserts p with quantity 1 or increments its existing line.
func (c Cart) Add(p catalog.Product) Cart {
	out := make(Cart, 0, len(c)+1)
	found := false
	for _, line := range c {
		if line.Product.ID == p.ID {
			line.Quantity++
			found = true
		}
		out = append(out, line)
	}
	if !found {
		out = append(out, Line{Product: p, Quantity: 1})
	}
	return out
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (c Cart) Remove(productID string) Cart {
	out := make(Cart, 0, len(c))
	for _, line := range c {
		if line.Product.ID != productID {
			out = append(out, line)
		}
	}
	return out
}

// UpdateQuantity sets the quantity for productID; n <= 0 removes the line.
func (c Cart) UpdateQuantity(productID string, n int) Cart {
	if n <= 0 {
		return c.Remove(productID)
	}
	out := make(Cart, len(c))
	for i, line := range c {
		if line.Product.ID == productID {
			line.Quantity = n
		}
		out[i] = line
	}
	return out
}

// Refresh replaces each line's product with the current catalog entry and drops
// lines whose product no longer exists.
func (c Cart) Refresh(lookup func(id string) (catalog.Product, bool)) Cart {
	out := make(Cart, 0, len(c))
	for _, line := range c {
		p, ok := lookup(line.Product.ID)
		if !ok {
			continue
		}
		out = append(out, Line{Product: p, Quantity: line.Quantity})
	}
	return out
}

// TotalItemCount sums the quantities of every line.
func (c Cart) TotalItemCount() int {
	total := 0
	for _, line := range c {
		total += line.Quantity
	}
	return total
}
