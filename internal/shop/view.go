package shop

import (
	"time"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/coupon"
	"github.com/noah-isme/toko-cart/internal/pricing"
	"github.com/noah-isme/toko-cart/internal/session"
)

// LineView is one priced cart line.
type LineView struct {
	ProductID      string        `json:"productId"`
	Name           string        `json:"name"`
	UnitPrice      pricing.Money `json:"unitPrice"`
	Quantity       int           `json:"quantity"`
	DiscountRate   string        `json:"discountRate"`
	LineTotal      pricing.Money `json:"lineTotal"`
	RemainingStock int           `json:"remainingStock"`
	DisplayPrice   string        `json:"displayPrice"`
}

// View is the shopper-facing projection of a session snapshot. Totals are
// recomputed on every render and never stored.
type View struct {
	SessionID      string         `json:"sessionId"`
	Lines          []LineView     `json:"lines"`
	SelectedCoupon *coupon.Coupon `json:"selectedCoupon,omitempty"`
	TotalItemCount int            `json:"totalItemCount"`
	Totals         pricing.Totals `json:"totals"`
	Discount       pricing.Money  `json:"discount"`
	DisplayBefore  string         `json:"displayTotalBeforeDiscount"`
	DisplayAfter   string         `json:"displayTotalAfterDiscount"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func buildView(sessionID string, snap session.Snapshot, lookup func(string) (catalog.Product, bool)) View {
	c := snap.Cart
	lines := make([]LineView, 0, len(c))
	for _, line := range c {
		p := line.Product
		if fresh, ok := lookup(p.ID); ok {
			p = fresh
		}
		remaining := c.RemainingStock(p)
		lines = append(lines, LineView{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPrice:      p.Price,
			Quantity:       line.Quantity,
			DiscountRate:   pricing.ResolveRate(line, c).String(),
			LineTotal:      pricing.PriceLine(line, c),
			RemainingStock: remaining,
			DisplayPrice:   pricing.FormatPrice(p.Price, false, remaining <= 0),
		})
	}
	totals := pricing.Calculate(c, snap.SelectedCoupon)
	return View{
		SessionID:      sessionID,
		Lines:          lines,
		SelectedCoupon: snap.SelectedCoupon,
		TotalItemCount: c.TotalItemCount(),
		Totals:         totals,
		Discount:       totals.Discount(),
		DisplayBefore:  pricing.FormatPrice(totals.TotalBeforeDiscount, false, false),
		DisplayAfter:   pricing.FormatPrice(totals.TotalAfterDiscount, false, false),
		UpdatedAt:      snap.UpdatedAt,
	}
}
