package cart

import (
	"errors"
	"fmt"

	"github.com/noah-isme/toko-cart/internal/catalog"
)

// Action tells the caller how to route a result that is not a plain success.
type Action string

const (
	// ActionNone means apply the mutation as requested (or reject it on failure).
	ActionNone Action = ""
	// ActionRemove means the requested quantity removes the line.
	ActionRemove Action = "remove"
)

// Result codes.
const (
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeQuantityExceedsStock = "QUANTITY_EXCEEDS_STOCK"
)

var (
	// ErrInsufficientStock indicates an add or increment would exceed the product stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrQuantityExceedsStock indicates an explicit quantity above the product stock.
	ErrQuantityExceedsStock = errors.New("quantity exceeds stock")
)

const msgInsufficientStock = "재고가 부족합니다!"

// Result is the outcome of a stock check. Failures never panic or return errors;
// callers inspect Valid and route Message to the shopper.
type Result struct {
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Action  Action `json:"action,omitempty"`
}

// Err maps a failed result onto its sentinel error.
func (r Result) Err() error {
	switch {
	case r.Valid:
		return nil
	case r.Code == CodeInsufficientStock:
		return ErrInsufficientStock
	case r.Code == CodeQuantityExceedsStock:
		return ErrQuantityExceedsStock
	default:
		return nil
	}
}

var ok = Result{Valid: true}

// ValidateStockAvailability fails when nothing of p is left beyond what the cart holds.
func ValidateStockAvailability(p catalog.Product, c Cart) Result {
	if c.RemainingStock(p) <= 0 {
		return Result{Code: CodeInsufficientStock, Message: msgInsufficientStock}
	}
	return ok
}

// ValidateIncrement fails when raising current by one would exceed the stock.
func ValidateIncrement(p catalog.Product, current int) Result {
	if current+1 > p.Stock {
		return Result{Code: CodeInsufficientStock, Message: fmt.Sprintf("재고는 %d개까지만 있습니다.", p.Stock)}
	}
	return ok
}

// ValidateAdd runs the checks guarding an add-to-cart of p.
func ValidateAdd(p catalog.Product, c Cart) Result {
	if res := ValidateStockAvailability(p, c); !res.Valid {
		return res
	}
	if line, found := c.Find(p.ID); found {
		return ValidateIncrement(p, line.Quantity)
	}
	return ok
}

// ValidateQuantityChange checks an explicit quantity for p. Non-positive values
// are a removal, reported as a valid result with ActionRemove.
func ValidateQuantityChange(p catalog.Product, n int) Result {
	if n <= 0 {
		return Result{Valid: true, Action: ActionRemove}
	}
	if n > p.Stock {
		return Result{Code: CodeQuantityExceedsStock, Message: fmt.Sprintf("재고는 %d개까지만 있습니다.", p.Stock)}
	}
	return ok
}
