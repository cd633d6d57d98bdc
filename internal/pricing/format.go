package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Korean)

// SoldOut is shown instead of a price when nothing is left to add.
const SoldOut = "SOLD OUT"

// FormatPrice renders price for display. Admin screens use the "원" suffix,
// the storefront uses the "₩" prefix.
func FormatPrice(price Money, admin, soldOut bool) string {
	if soldOut {
		return SoldOut
	}
	if admin {
		return printer.Sprintf("%d원", price)
	}
	return printer.Sprintf("₩%d", price)
}
