// Package pricing computes cart totals from line discounts, the bulk bonus and
// an optional coupon. Every function is pure and recomputes from scratch.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/coupon"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// BulkThreshold is the line quantity that turns on the cart-wide bulk bonus.
const BulkThreshold = 10

var (
	// BulkBonus is added to every line's rate when any line reaches BulkThreshold.
	BulkBonus = decimal.RequireFromString("0.05")
	// MaxRate caps the combined per-line discount rate.
	MaxRate = decimal.RequireFromString("0.5")

	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Totals are derived from a cart snapshot and never stored.
type Totals struct {
	TotalBeforeDiscount Money `json:"totalBeforeDiscount"`
	TotalAfterDiscount  Money `json:"totalAfterDiscount"`
}

// Discount is the amount the shopper saves.
func (t Totals) Discount() Money {
	return t.TotalBeforeDiscount - t.TotalAfterDiscount
}

// BaseRate returns the best tier rate met by quantity. Tiers are searched in
// full; a lower threshold with a higher rate wins.
func BaseRate(line cart.Line) decimal.Decimal {
	best := decimal.Zero
	for _, tier := range line.Product.Discounts {
		if line.Quantity >= tier.Quantity && tier.Rate.GreaterThan(best) {
			best = tier.Rate
		}
	}
	return best
}

// HasBulkPurchase reports whether any line reaches BulkThreshold.
func HasBulkPurchase(c cart.Cart) bool {
	for _, line := range c {
		if line.Quantity >= BulkThreshold {
			return true
		}
	}
	return false
}

// ResolveRate returns the discount rate for line within c, in [0, MaxRate].
func ResolveRate(line cart.Line, c cart.Cart) decimal.Decimal {
	rate := BaseRate(line)
	if HasBulkPurchase(c) {
		rate = rate.Add(BulkBonus)
	}
	return decimal.Min(rate, MaxRate)
}

// PriceLine returns round(price * quantity * (1 - rate)) with halves rounded up.
func PriceLine(line cart.Line, c cart.Cart) Money {
	subtotal := decimal.NewFromInt(line.Product.Price).Mul(decimal.NewFromInt(int64(line.Quantity)))
	return subtotal.Mul(one.Sub(ResolveRate(line, c))).Round(0).IntPart()
}

// Aggregate sums the undiscounted and discounted line totals.
func Aggregate(c cart.Cart) Totals {
	var t Totals
	for _, line := range c {
		t.TotalBeforeDiscount += line.Product.Price * Money(line.Quantity)
		t.TotalAfterDiscount += PriceLine(line, c)
	}
	return t
}

// ApplyCoupon reduces total by c. A nil coupon returns total unchanged and the
// result never drops below zero, whatever the coupon's value.
func ApplyCoupon(total Money, c *coupon.Coupon) Money {
	if c == nil {
		return total
	}
	var after Money
	switch c.DiscountType {
	case coupon.DiscountAmount:
		after = total - c.DiscountValue
	case coupon.DiscountPercentage:
		factor := one.Sub(decimal.NewFromInt(c.DiscountValue).Div(hundred))
		after = decimal.NewFromInt(total).Mul(factor).Round(0).IntPart()
	default:
		return total
	}
	return max(after, 0)
}

// Calculate aggregates c and applies the selected coupon to the discounted total.
func Calculate(c cart.Cart, selected *coupon.Coupon) Totals {
	t := Aggregate(c)
	t.TotalAfterDiscount = ApplyCoupon(t.TotalAfterDiscount, selected)
	return t
}
